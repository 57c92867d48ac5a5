package planner

import (
	"github.com/nonibytes/eventsearch/eventsearch/errors"
	"github.com/nonibytes/eventsearch/eventsearch/expr"
	"github.com/nonibytes/eventsearch/eventsearch/query"
)

// Assemble compiles a token sequence into the where tree. The top level is
// an AND over every filter and free-text term; explicit OR and parentheses
// nest below it, with AND binding tighter than OR. An empty sequence yields
// an And without children.
func Assemble(c *Compiler, tokens []query.Token) (expr.And, error) {
	a := &assembler{compiler: c, tokens: tokens}
	if c.opts.FreeTextMode == FreeTextLast {
		a.ignore = ignoredFreeText(tokens)
	}

	node, _, err := a.parseOr()
	if err != nil {
		return expr.And{}, err
	}
	if !a.eof() {
		tok := a.peek()
		return expr.And{}, errors.Malformed(tok.Pos, tok.String(), "unbalanced ')'")
	}

	if and, ok := node.(expr.And); ok {
		return and, nil
	}
	return expr.NewAnd(node), nil
}

// ignoredFreeText marks every free-text token but the last one.
func ignoredFreeText(tokens []query.Token) map[int]bool {
	last := -1
	for i, tok := range tokens {
		if tok.Kind == query.TokFreeText {
			last = i
		}
	}
	ignore := make(map[int]bool)
	for i, tok := range tokens {
		if tok.Kind == query.TokFreeText && i != last {
			ignore[i] = true
		}
	}
	return ignore
}

type assembler struct {
	compiler *Compiler
	tokens   []query.Token
	pos      int
	ignore   map[int]bool
}

// parseOr reports skipped when every branch consisted only of free-text
// terms dropped by FreeTextLast.
func (a *assembler) parseOr() (expr.Node, bool, error) {
	var (
		terms   []expr.And
		skipped []bool
		lastOr  query.Token
		sawOr   bool
	)

	for {
		and, n, ignored, err := a.parseAnd()
		if err != nil {
			return nil, false, err
		}
		if n == 0 && sawOr {
			return nil, false, errors.Malformed(lastOr.Pos, lastOr.String(), "missing condition on the right side of OR")
		}
		if n == 0 && a.peekBoolean("OR") {
			tok := a.peek()
			return nil, false, errors.Malformed(tok.Pos, tok.String(), "missing condition on the left side of OR")
		}
		terms = append(terms, and)
		skipped = append(skipped, ignored)

		if !a.peekBoolean("OR") {
			break
		}
		lastOr = a.next()
		sawOr = true
	}

	if len(terms) == 1 {
		return terms[0], skipped[0], nil
	}

	var or expr.Or
	for i, t := range terms {
		switch {
		case skipped[i]:
			// only dropped free text, the branch does not exist
		case len(t.Children) == 0:
			// a branch that matches everything makes the whole OR match
			return expr.And{}, false, nil
		case len(t.Children) == 1:
			or.Children = append(or.Children, t.Children[0])
		default:
			or.Children = append(or.Children, t)
		}
	}

	switch len(or.Children) {
	case 0:
		return expr.And{}, true, nil
	case 1:
		return or.Children[0], false, nil
	}
	return or, false, nil
}

// parseAnd consumes a run of terms up to OR, ')' or the end and reports how
// many tokens it consumed. ignored is set when the run produced nothing only
// because its free-text terms were dropped.
func (a *assembler) parseAnd() (expr.And, int, bool, error) {
	var and expr.And
	start := a.pos
	matchAll := false

	for !a.eof() {
		tok := a.peek()
		switch {
		case tok.Kind == query.TokGroupClose, a.peekBoolean("OR"):
			return and, a.pos - start, a.dropped(and, matchAll, start), nil
		case tok.Kind == query.TokBooleanOp:
			if a.pos == start {
				return expr.And{}, 0, false, errors.Malformed(tok.Pos, tok.String(), "missing condition on the left side of AND")
			}
			a.pos++
			if a.eof() || a.peek().Kind == query.TokGroupClose || a.peek().Kind == query.TokBooleanOp {
				return expr.And{}, 0, false, errors.Malformed(tok.Pos, tok.String(), "missing condition on the right side of AND")
			}
			continue
		}

		node, ignored, err := a.parseTerm()
		if err != nil {
			return expr.And{}, 0, false, err
		}
		switch {
		case node != nil:
			and.Children = append(and.Children, node)
		case !ignored:
			matchAll = true
		}
	}
	return and, a.pos - start, a.dropped(and, matchAll, start), nil
}

func (a *assembler) dropped(and expr.And, matchAll bool, start int) bool {
	return a.pos > start && len(and.Children) == 0 && !matchAll
}

// parseTerm compiles one token or parenthesized group. ignored is set when
// the term produced nothing because FreeTextLast dropped it.
func (a *assembler) parseTerm() (expr.Node, bool, error) {
	idx := a.pos
	tok := a.next()

	if tok.Kind != query.TokGroupOpen {
		if a.ignore[idx] {
			return nil, true, nil
		}
		node, err := a.compiler.Compile(tok)
		return node, false, err
	}

	inner, skipped, err := a.parseOr()
	if err != nil {
		return nil, false, err
	}
	if a.eof() || a.peek().Kind != query.TokGroupClose {
		return nil, false, errors.Malformed(tok.Pos, tok.String(), "unbalanced '('")
	}
	a.next()
	if a.pos == idx+2 {
		return nil, false, errors.Malformed(tok.Pos, "()", "empty parentheses")
	}

	if and, ok := inner.(expr.And); ok {
		switch len(and.Children) {
		case 0:
			return nil, skipped, nil
		case 1:
			return and.Children[0], false, nil
		}
	}
	return inner, false, nil
}

func (a *assembler) peekBoolean(op string) bool {
	if a.eof() {
		return false
	}
	tok := a.tokens[a.pos]
	return tok.Kind == query.TokBooleanOp && tok.Value == op
}

func (a *assembler) peek() query.Token {
	return a.tokens[a.pos]
}

func (a *assembler) next() query.Token {
	tok := a.tokens[a.pos]
	a.pos++
	return tok
}

func (a *assembler) eof() bool {
	return a.pos >= len(a.tokens)
}
