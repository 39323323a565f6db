package rpc

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseInjectionOffenses(t *testing.T) {
	body := []byte(`[{"operation": "opHashX", "error": "..."}, {"operation": "opHashY"}]`)
	got := ParseInjectionOffenses(body)
	require.Equal(t, []string{"opHashX", "opHashY"}, got)
}

func TestParseInjectionOffensesIgnoresUnrelatedBody(t *testing.T) {
	body := []byte(`{"kind": "temporary", "msg": "boom"}`)
	got := ParseInjectionOffenses(body)
	require.Empty(t, got)
}

func TestParseRequiredEndorsements(t *testing.T) {
	body := []byte(`{"required_endorsements": 5}`)
	n, ok := ParseRequiredEndorsements(body)
	require.True(t, ok)
	require.Equal(t, 5, n)

	_, ok = ParseRequiredEndorsements([]byte(`{"kind": "other"}`))
	require.False(t, ok)
}
