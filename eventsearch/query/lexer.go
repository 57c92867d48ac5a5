package query

import (
	"strings"
	"unicode"

	"github.com/nonibytes/eventsearch/eventsearch/errors"
	"github.com/nonibytes/eventsearch/eventsearch/expr"
)

// snippetWidth bounds the offending text carried by a MalformedFilterError.
const snippetWidth = 32

// Lexer tokenizes a filter query
type Lexer struct {
	input  []rune
	pos    int
	groups []int // offsets of currently open '('
	tokens []Token
}

// NewLexer creates a new lexer for the input string
func NewLexer(input string) *Lexer {
	return &Lexer{
		input: []rune(input),
		pos:   0,
	}
}

// Parse tokenizes the entire input. A blank query yields no tokens and no
// error; it matches everything.
func Parse(input string) ([]Token, error) {
	lexer := NewLexer(input)

	for {
		lexer.skipWhitespace()
		if lexer.eof() {
			break
		}
		if err := lexer.lexTerm(); err != nil {
			return nil, err
		}
	}

	if n := len(lexer.groups); n > 0 {
		return nil, lexer.malformed(lexer.groups[n-1], "unbalanced '('")
	}
	return lexer.tokens, nil
}

func (l *Lexer) lexTerm() error {
	start := l.pos

	switch l.input[l.pos] {
	case '(':
		l.groups = append(l.groups, l.pos)
		l.emit(Token{Kind: TokGroupOpen, Pos: l.pos})
		l.pos++
		return nil
	case ')':
		if len(l.groups) == 0 {
			return l.malformed(l.pos, "unbalanced ')'")
		}
		l.closeGroup(l.pos)
		l.pos++
		return nil
	}

	negated := false
	if l.input[l.pos] == '!' {
		next := l.peek(1)
		if next == 0 || unicode.IsSpace(next) || next == '(' || next == ')' {
			return l.malformed(start, "'!' must precede a filter or search term")
		}
		negated = true
		l.pos++
	}

	if l.input[l.pos] == '"' {
		text, err := l.scanQuoted()
		if err != nil {
			return err
		}
		l.emit(Token{Kind: TokFreeText, Negated: negated, Value: text, Quoted: true, Pos: start})
		return l.expectBoundary(start)
	}

	field, isFilter, err := l.scanField(start)
	if err != nil {
		return err
	}
	if !isFilter {
		return l.lexFreeText(start, negated)
	}
	return l.lexFilter(start, field, negated)
}

func (l *Lexer) lexFreeText(start int, negated bool) error {
	raw, err := l.scanBare(start)
	if err != nil {
		return err
	}
	text, closers := l.splitClosers(raw)

	if !negated && (text == "AND" || text == "OR") {
		l.emit(Token{Kind: TokBooleanOp, Value: text, Pos: start})
	} else {
		l.emit(Token{Kind: TokFreeText, Negated: negated, Value: text, Pos: start})
	}
	l.emitClosers(closers)
	return nil
}

func (l *Lexer) lexFilter(start int, field string, negated bool) error {
	tok := Token{
		Kind:     TokFieldCondition,
		Field:    field,
		Negated:  negated,
		Operator: l.scanOperator(),
		Pos:      start,
	}

	if l.eof() || unicode.IsSpace(l.input[l.pos]) {
		return l.malformed(start, "missing value for field "+field)
	}

	switch l.input[l.pos] {
	case '[':
		if tok.Operator != expr.OpEq {
			return l.malformed(start, "operator "+string(tok.Operator)+" cannot be applied to a list")
		}
		values, err := l.scanList(start)
		if err != nil {
			return err
		}
		tok.Operator = expr.OpIn
		tok.Values = values
		l.emit(tok)
		return l.expectBoundary(start)
	case '"':
		text, err := l.scanQuoted()
		if err != nil {
			return err
		}
		tok.Value = text
		tok.Quoted = true
		l.emit(tok)
		return l.expectBoundary(start)
	}

	raw, err := l.scanBare(start)
	if err != nil {
		return err
	}
	value, closers := l.splitClosers(raw)
	if value == "" {
		return l.malformed(start, "missing value for field "+field)
	}
	tok.Value = value
	l.emit(tok)
	l.emitClosers(closers)
	return nil
}

// scanField reads a field name terminated by ':'. When the term has no
// field prefix the position is restored and false is returned.
func (l *Lexer) scanField(start int) (string, bool, error) {
	begin := l.pos
	var sb strings.Builder

	for !l.eof() {
		ch := l.input[l.pos]
		switch {
		case ch == ':':
			if sb.Len() == 0 {
				l.pos = begin
				return "", false, nil
			}
			l.pos++
			return sb.String(), true, nil
		case ch == '[':
			end := l.matchBracket(l.pos)
			if end < 0 {
				return "", false, l.malformed(start, "unbalanced '['")
			}
			sb.WriteString(string(l.input[l.pos : end+1]))
			l.pos = end + 1
		case ch == ']':
			return "", false, l.malformed(start, "unbalanced ']'")
		case unicode.IsSpace(ch), ch == '"', ch == '(', ch == ')', ch == '\\':
			l.pos = begin
			return "", false, nil
		default:
			sb.WriteRune(ch)
			l.pos++
		}
	}

	l.pos = begin
	return "", false, nil
}

func (l *Lexer) scanOperator() expr.Op {
	switch {
	case l.hasPrefix(">="):
		l.pos += 2
		return expr.OpGte
	case l.hasPrefix("<="):
		l.pos += 2
		return expr.OpLte
	case l.hasPrefix(">"):
		l.pos++
		return expr.OpGt
	case l.hasPrefix("<"):
		l.pos++
		return expr.OpLt
	case l.hasPrefix("="):
		l.pos++
	}
	return expr.OpEq
}

// scanBare reads an unquoted run up to the next unescaped whitespace.
// Backslash escapes are kept verbatim.
func (l *Lexer) scanBare(start int) (string, error) {
	var sb strings.Builder

	for !l.eof() {
		ch := l.input[l.pos]
		switch {
		case ch == '\\' && l.pos+1 < len(l.input):
			sb.WriteRune(ch)
			sb.WriteRune(l.input[l.pos+1])
			l.pos += 2
		case unicode.IsSpace(ch):
			return sb.String(), nil
		case ch == '[':
			end := l.matchBracket(l.pos)
			if end < 0 {
				return "", l.malformed(start, "unbalanced '['")
			}
			sb.WriteString(string(l.input[l.pos : end+1]))
			l.pos = end + 1
		case ch == ']':
			return "", l.malformed(start, "unbalanced ']'")
		default:
			sb.WriteRune(ch)
			l.pos++
		}
	}
	return sb.String(), nil
}

// scanQuoted reads a double-quoted string. Only `\"` is unescaped here; any
// other escape is left for value normalization.
func (l *Lexer) scanQuoted() (string, error) {
	open := l.pos
	l.pos++ // consume opening quote
	var sb strings.Builder

	for !l.eof() {
		ch := l.input[l.pos]
		if ch == '\\' && l.pos+1 < len(l.input) {
			next := l.input[l.pos+1]
			if next != '"' {
				sb.WriteRune(ch)
			}
			sb.WriteRune(next)
			l.pos += 2
			continue
		}
		l.pos++
		if ch == '"' {
			return sb.String(), nil
		}
		sb.WriteRune(ch)
	}

	return "", l.malformed(open, "unterminated quote")
}

// scanList reads `[v1, v2, ...]`. Elements are trimmed, may be quoted and
// must not be empty.
func (l *Lexer) scanList(start int) ([]string, error) {
	l.pos++ // consume '['
	var (
		values  []string
		sb      strings.Builder
		space   strings.Builder
		quoted  bool
		elemPos = l.pos
	)

	flush := func() error {
		if sb.Len() == 0 && !quoted {
			return l.malformed(elemPos, "empty list element")
		}
		values = append(values, sb.String())
		sb.Reset()
		space.Reset()
		quoted = false
		return nil
	}

	for !l.eof() {
		ch := l.input[l.pos]
		switch {
		case ch == '\\' && l.pos+1 < len(l.input):
			sb.WriteString(space.String())
			space.Reset()
			sb.WriteRune(ch)
			sb.WriteRune(l.input[l.pos+1])
			l.pos += 2
		case ch == '"':
			text, err := l.scanQuoted()
			if err != nil {
				return nil, err
			}
			sb.WriteString(space.String())
			space.Reset()
			sb.WriteString(text)
			quoted = true
		case ch == ',':
			if err := flush(); err != nil {
				return nil, err
			}
			l.pos++
			elemPos = l.pos
		case ch == ']':
			if err := flush(); err != nil {
				return nil, err
			}
			l.pos++
			return values, nil
		case ch == '[':
			return nil, l.malformed(l.pos, "nested '[' in list")
		case unicode.IsSpace(ch):
			if sb.Len() > 0 {
				space.WriteRune(ch)
			}
			l.pos++
		default:
			sb.WriteString(space.String())
			space.Reset()
			sb.WriteRune(ch)
			l.pos++
		}
	}

	return nil, l.malformed(start, "unbalanced '['")
}

// matchBracket returns the offset of the ']' closing the '[' at open, or -1.
func (l *Lexer) matchBracket(open int) int {
	depth := 0
	for i := open; i < len(l.input); i++ {
		switch l.input[i] {
		case '\\':
			i++
		case '[':
			depth++
		case ']':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

// splitClosers peels unescaped trailing ')' off a bare term, at most one per
// open group. The returned offsets are the positions of the peeled parens.
func (l *Lexer) splitClosers(raw string) (string, []int) {
	runes := []rune(raw)
	end := l.pos
	var closers []int

	for len(closers) < len(l.groups) && len(runes) > 0 && runes[len(runes)-1] == ')' {
		if len(runes) > 1 && runes[len(runes)-2] == '\\' {
			break
		}
		runes = runes[:len(runes)-1]
		end--
		closers = append(closers, end)
	}

	// closers were collected right to left
	for i, j := 0, len(closers)-1; i < j; i, j = i+1, j-1 {
		closers[i], closers[j] = closers[j], closers[i]
	}
	return string(runes), closers
}

func (l *Lexer) emitClosers(positions []int) {
	for _, p := range positions {
		l.closeGroup(p)
	}
}

func (l *Lexer) closeGroup(pos int) {
	l.groups = l.groups[:len(l.groups)-1]
	l.emit(Token{Kind: TokGroupClose, Pos: pos})
}

// expectBoundary fails unless the current position ends a term.
func (l *Lexer) expectBoundary(start int) error {
	if l.eof() {
		return nil
	}
	ch := l.input[l.pos]
	if unicode.IsSpace(ch) || ch == ')' {
		return nil
	}
	return l.malformed(start, "unexpected text after closing quote or bracket")
}

func (l *Lexer) emit(tok Token) {
	l.tokens = append(l.tokens, tok)
}

func (l *Lexer) malformed(pos int, reason string) error {
	end := pos + snippetWidth
	if end > len(l.input) {
		end = len(l.input)
	}
	return errors.Malformed(pos, string(l.input[pos:end]), reason)
}

func (l *Lexer) skipWhitespace() {
	for l.pos < len(l.input) && unicode.IsSpace(l.input[l.pos]) {
		l.pos++
	}
}

func (l *Lexer) peek(offset int) rune {
	pos := l.pos + offset
	if pos < len(l.input) {
		return l.input[pos]
	}
	return 0
}

func (l *Lexer) hasPrefix(s string) bool {
	for i, r := range []rune(s) {
		if l.peek(i) != r {
			return false
		}
	}
	return true
}

func (l *Lexer) eof() bool {
	return l.pos >= len(l.input)
}
