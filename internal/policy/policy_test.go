package policy

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEvaluate_AllowsUnmatchedBucket(t *testing.T) {
	ctx := context.Background()
	gate, err := New(ctx, []string{"prod-*", "do-not-delete*"})
	require.NoError(t, err)

	decision, err := gate.Evaluate(ctx, "staging-logs")
	require.NoError(t, err)
	assert.True(t, decision.AllowDelete)
}

func TestEvaluate_BlocksMatchedBucket(t *testing.T) {
	ctx := context.Background()
	gate, err := New(ctx, []string{"prod-*"})
	require.NoError(t, err)

	decision, err := gate.Evaluate(ctx, "prod-assets")
	require.NoError(t, err)
	assert.False(t, decision.AllowDelete)
	assert.Contains(t, decision.Reason, "protected")
}

func TestEvaluate_NoPatternsAllowsEverything(t *testing.T) {
	ctx := context.Background()
	gate, err := New(ctx, nil)
	require.NoError(t, err)

	decision, err := gate.Evaluate(ctx, "anything")
	require.NoError(t, err)
	assert.True(t, decision.AllowDelete)
}
