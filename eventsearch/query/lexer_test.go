package query

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nonibytes/eventsearch/eventsearch/errors"
	"github.com/nonibytes/eventsearch/eventsearch/expr"
)

func TestParseEmpty(t *testing.T) {
	for _, input := range []string{"", "   ", "\t\n"} {
		tokens, err := Parse(input)
		require.NoError(t, err)
		assert.Empty(t, tokens)
	}
}

func TestParseFieldConditions(t *testing.T) {
	tests := []struct {
		input string
		want  Token
	}{
		{"span.duration:1s", Token{Kind: TokFieldCondition, Field: "span.duration", Operator: expr.OpEq, Value: "1s"}},
		{"span.duration:>1s", Token{Kind: TokFieldCondition, Field: "span.duration", Operator: expr.OpGt, Value: "1s"}},
		{"span.duration:>=1s", Token{Kind: TokFieldCondition, Field: "span.duration", Operator: expr.OpGte, Value: "1s"}},
		{"span.duration:<1s", Token{Kind: TokFieldCondition, Field: "span.duration", Operator: expr.OpLt, Value: "1s"}},
		{"span.duration:<=1s", Token{Kind: TokFieldCondition, Field: "span.duration", Operator: expr.OpLte, Value: "1s"}},
		{"span.op:=db", Token{Kind: TokFieldCondition, Field: "span.op", Operator: expr.OpEq, Value: "db"}},
		{"!foo:*bar*", Token{Kind: TokFieldCondition, Field: "foo", Negated: true, Operator: expr.OpEq, Value: "*bar*"}},
		{`message:*Bar\*`, Token{Kind: TokFieldCondition, Field: "message", Operator: expr.OpEq, Value: `*Bar\*`}},
		{`foo:"a b"`, Token{Kind: TokFieldCondition, Field: "foo", Operator: expr.OpEq, Value: "a b", Quoted: true}},
		{`foo:"say \"hi\""`, Token{Kind: TokFieldCondition, Field: "foo", Operator: expr.OpEq, Value: `say "hi"`, Quoted: true}},
		{"tags[foo]:bar", Token{Kind: TokFieldCondition, Field: "tags[foo]", Operator: expr.OpEq, Value: "bar"}},
		{`foo:a\ b`, Token{Kind: TokFieldCondition, Field: "foo", Operator: expr.OpEq, Value: `a\ b`}},
		{"url:http://x", Token{Kind: TokFieldCondition, Field: "url", Operator: expr.OpEq, Value: "http://x"}},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			tokens, err := Parse(tt.input)
			require.NoError(t, err)
			require.Len(t, tokens, 1)
			assert.Equal(t, tt.want, tokens[0])
		})
	}
}

func TestParseLists(t *testing.T) {
	tests := []struct {
		input  string
		values []string
	}{
		{"span.op:[db,http.client]", []string{"db", "http.client"}},
		{"span.op:[ db , http.client ]", []string{"db", "http.client"}},
		{`span.op:["a,b", c]`, []string{"a,b", "c"}},
		{`span.op:[""]`, []string{""}},
		{"span.op:[db,db]", []string{"db", "db"}},
		{"span.op:[a b,c]", []string{"a b", "c"}},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			tokens, err := Parse(tt.input)
			require.NoError(t, err)
			require.Len(t, tokens, 1)
			assert.True(t, tokens[0].IsList())
			assert.Equal(t, expr.OpIn, tokens[0].Operator)
			assert.Equal(t, tt.values, tokens[0].Values)
		})
	}
}

func TestParseFreeText(t *testing.T) {
	tokens, err := Parse(`span.op:params test "hello world" !nope`)
	require.NoError(t, err)
	require.Len(t, tokens, 4)

	assert.Equal(t, TokFieldCondition, tokens[0].Kind)
	assert.Equal(t, Token{Kind: TokFreeText, Value: "test", Pos: 15}, tokens[1])
	assert.Equal(t, Token{Kind: TokFreeText, Value: "hello world", Quoted: true, Pos: 20}, tokens[2])
	assert.Equal(t, Token{Kind: TokFreeText, Value: "nope", Negated: true, Pos: 34}, tokens[3])
}

func TestParseNonFieldColons(t *testing.T) {
	tokens, err := Parse(":foo")
	require.NoError(t, err)
	require.Len(t, tokens, 1)
	assert.Equal(t, TokFreeText, tokens[0].Kind)
	assert.Equal(t, ":foo", tokens[0].Value)
}

func TestParseBooleanAndGroups(t *testing.T) {
	tokens, err := Parse("(a:1 OR b:2) AND c")
	require.NoError(t, err)

	kinds := make([]TokenKind, len(tokens))
	for i, tok := range tokens {
		kinds[i] = tok.Kind
	}
	assert.Equal(t, []TokenKind{
		TokGroupOpen, TokFieldCondition, TokBooleanOp, TokFieldCondition,
		TokGroupClose, TokBooleanOp, TokFreeText,
	}, kinds)
	assert.Equal(t, "2", tokens[3].Value)
	assert.Equal(t, 11, tokens[4].Pos)
	assert.Equal(t, "OR", tokens[2].Value)
	assert.Equal(t, "AND", tokens[5].Value)
}

func TestParseLowercaseBooleanIsFreeText(t *testing.T) {
	tokens, err := Parse("a and b")
	require.NoError(t, err)
	require.Len(t, tokens, 3)
	for _, tok := range tokens {
		assert.Equal(t, TokFreeText, tok.Kind)
	}
}

func TestParseClosingParenWithoutGroupIsLiteral(t *testing.T) {
	tests := []struct {
		input string
		kind  TokenKind
		value string
	}{
		{"foo:bar)", TokFieldCondition, "bar)"},
		{"bar)", TokFreeText, "bar)"},
		{"bar))", TokFreeText, "bar))"},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			tokens, err := Parse(tt.input)
			require.NoError(t, err)
			require.Len(t, tokens, 1)
			assert.Equal(t, tt.kind, tokens[0].Kind)
			assert.Equal(t, tt.value, tokens[0].Value)
		})
	}

	_, err := Parse(") a")
	require.Error(t, err)
}

func TestParseNestedGroups(t *testing.T) {
	tokens, err := Parse("((a:1))")
	require.NoError(t, err)
	require.Len(t, tokens, 5)
	assert.Equal(t, TokGroupClose, tokens[3].Kind)
	assert.Equal(t, 5, tokens[3].Pos)
	assert.Equal(t, 6, tokens[4].Pos)
}

func TestParseMalformed(t *testing.T) {
	tests := []struct {
		input    string
		position int
		snippet  string
	}{
		{"span.op:[db,http", 0, "span.op:[db,http"},
		{"span.op:db]", 0, "span.op:db]"},
		{"a:1 foo[bar", 4, "foo[bar"},
		{"span.op:[db,,x]", 12, ",x]"},
		{"span.op:[]", 9, "]"},
		{"x:>[1,2]", 0, "x:>[1,2]"},
		{`foo:"open`, 4, `"open`},
		{"(a:1", 0, "(a:1"},
		{") a", 0, ") a"},
		{"foo:", 0, "foo:"},
		{"foo:> 1", 0, "foo:> 1"},
		{"! foo", 0, "! foo"},
		{`foo:"a"b`, 0, `foo:"a"b`},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			_, err := Parse(tt.input)
			require.Error(t, err)

			var mf *errors.MalformedFilterError
			require.ErrorAs(t, err, &mf)
			assert.Equal(t, tt.position, mf.Position)
			assert.Equal(t, tt.snippet, mf.Snippet)
			assert.True(t, errors.IsUserError(err))
		})
	}
}

func TestTokenString(t *testing.T) {
	tokens, err := Parse(`!span.op:[db,http] span.duration:>1s hello`)
	require.NoError(t, err)
	require.Len(t, tokens, 3)
	assert.Equal(t, "!span.op:[db,http]", tokens[0].String())
	assert.Equal(t, "span.duration:>1s", tokens[1].String())
	assert.Equal(t, "hello", tokens[2].String())
}
