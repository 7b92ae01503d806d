package store

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEvaluate(t *testing.T) {
	item := Item{"finalised": false, "claimed_at": "2026-01-01T00:00:00Z", "count": float64(2)}

	cases := []struct {
		name string
		cond Condition
		want bool
	}{
		{"nil", nil, true},
		{"exists", AttributeExists("finalised"), true},
		{"not exists", AttributeNotExists("claim_id"), true},
		{"equal bool", Equal("finalised", false), true},
		{"equal int folds to float", Equal("count", 2), true},
		{"equal missing", Equal("claim_id", "x"), false},
		{"less string", LessThan("claimed_at", "2026-02-01T00:00:00Z"), true},
		{"less mixed types", LessThan("claimed_at", 5), false},
		{"and", And(AttributeExists("finalised"), Equal("count", 3)), false},
		{"or", Or(Equal("finalised", true), AttributeNotExists("claim_id")), true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, Evaluate(tc.cond, item))
		})
	}

	require.True(t, Evaluate(AttributeNotExists("session_id"), nil))
}
