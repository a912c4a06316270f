package starlark

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.starlark.net/starlark"

	"github.com/leapstack-labs/sqlunit/internal/annotation"
)

func TestGoToStarlark_Scalars(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want starlark.Value
	}{
		{"nil", nil, starlark.None},
		{"string", "hi", starlark.String("hi")},
		{"int64", int64(42), starlark.MakeInt(42)},
		{"float", 2.5, starlark.Float(2.5)},
		{"bool", true, starlark.Bool(true)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := GoToStarlark(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestGoToStarlark_Sequence(t *testing.T) {
	v, err := GoToStarlark([]any{int64(1), "a", true})
	require.NoError(t, err)

	list, ok := v.(*starlark.List)
	require.True(t, ok)
	assert.Equal(t, 3, list.Len())
}

func TestGoToStarlark_MappingPreservesOrder(t *testing.T) {
	m := annotation.Mapping{
		{Key: "zulu", Value: int64(1)},
		{Key: "alpha", Value: int64(2)},
	}
	v, err := GoToStarlark(m)
	require.NoError(t, err)

	dict, ok := v.(*starlark.Dict)
	require.True(t, ok)

	keys := make([]string, 0, dict.Len())
	for _, kv := range dict.Items() {
		keys = append(keys, string(kv[0].(starlark.String)))
	}
	assert.Equal(t, []string{"zulu", "alpha"}, keys)
}

func TestGoToStarlark_Unsupported(t *testing.T) {
	_, err := GoToStarlark(struct{}{})
	assert.ErrorContains(t, err, "unsupported type")
}

func TestToGo_RoundTrip(t *testing.T) {
	in := map[string]any{
		"n":    int64(7),
		"f":    1.5,
		"s":    "x",
		"b":    false,
		"list": []any{int64(1), int64(2)},
	}
	sv, err := GoToStarlark(in)
	require.NoError(t, err)

	out, err := ToGo(sv)
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestExecutionContext_EvalExpr(t *testing.T) {
	ctx, err := NewExecutionContext(map[string]any{
		"threshold": int64(10),
		"names":     []any{"a", "b"},
	})
	require.NoError(t, err)

	v, err := ctx.EvalExpr("threshold * 2", "test.sql", 1)
	require.NoError(t, err)
	got, err := ToGo(v)
	require.NoError(t, err)
	assert.Equal(t, int64(20), got)

	v, err = ctx.EvalExpr("len(names)", "test.sql", 1)
	require.NoError(t, err)
	got, err = ToGo(v)
	require.NoError(t, err)
	assert.Equal(t, int64(2), got)
}

func TestExecutionContext_EvalExprWithLocals(t *testing.T) {
	ctx, err := NewExecutionContext(map[string]any{"base": int64(100)})
	require.NoError(t, err)

	v, err := ctx.EvalExprWithLocals("base + x", "test.sql", 1, starlark.StringDict{
		"x": starlark.MakeInt(5),
	})
	require.NoError(t, err)
	got, err := ToGo(v)
	require.NoError(t, err)
	assert.Equal(t, int64(105), got)
}

func TestExecutionContext_UndefinedVariable(t *testing.T) {
	ctx, err := NewExecutionContext(nil)
	require.NoError(t, err)

	_, err = ctx.EvalExpr("missing", "test.sql", 3)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "test.sql:3")
	assert.False(t, ctx.Has("missing"))
}
