package duckdb

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/sqlunit/pkg/adapter"
)

func TestParseParams(t *testing.T) {
	tests := []struct {
		name string
		raw  map[string]any
		want *Params
	}{
		{
			"nil map",
			nil,
			&Params{},
		},
		{
			"extensions only",
			map[string]any{"extensions": []any{"httpfs", "json"}},
			&Params{Extensions: []string{"httpfs", "json"}},
		},
		{
			"settings only",
			map[string]any{"settings": map[string]any{"memory_limit": "1GB"}},
			&Params{Settings: map[string]string{"memory_limit": "1GB"}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseParams(tt.raw)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseParams_Invalid(t *testing.T) {
	_, err := ParseParams(map[string]any{"extensions": map[string]any{"not": "a list"}})
	assert.ErrorContains(t, err, "invalid duckdb params")
}

func TestAdapter_InMemoryRoundTrip(t *testing.T) {
	ad := New(nil)
	assert.Equal(t, "duckdb", ad.DialectName())

	ctx := context.Background()
	require.NoError(t, ad.Connect(ctx, adapter.Config{Type: "duckdb"}))
	defer func() { _ = ad.Close() }()

	rows, err := ad.Query(ctx, "select 40 + 2 as answer")
	require.NoError(t, err)
	defer func() { _ = rows.Close() }()

	require.True(t, rows.Next())
	var answer int64
	require.NoError(t, rows.Scan(&answer))
	assert.Equal(t, int64(42), answer)
}

func TestAdapter_Registered(t *testing.T) {
	assert.True(t, adapter.IsRegistered("duckdb"))
}
