// Package policy gates bucket deletion through a small Rego policy
// instead of a hardcoded Go conditional, the same role the teacher's
// policy engine plays for its own destructive-action checks: a bucket
// name matching an operator-configured protected pattern is skipped
// automatically rather than ever reaching the delete confirmation
// prompt.
package policy

import (
	"context"
	_ "embed"
	"fmt"

	"github.com/open-policy-agent/opa/v1/rego"
)

//go:embed protected.rego
var protectedPolicySource string

// Gate evaluates the protected-bucket policy for a configured set of
// glob patterns.
type Gate struct {
	query    rego.PreparedEvalQuery
	patterns []string
}

// New compiles the embedded protected-bucket policy with patterns as
// its input data.
func New(ctx context.Context, patterns []string) (*Gate, error) {
	query, err := rego.New(
		rego.Query("data.s3evacuate"),
		rego.Module("protected.rego", protectedPolicySource),
	).PrepareForEval(ctx)
	if err != nil {
		return nil, fmt.Errorf("compile protected bucket policy: %w", err)
	}
	return &Gate{query: query, patterns: patterns}, nil
}

// Decision is the outcome of evaluating the policy for one bucket.
type Decision struct {
	AllowDelete bool
	Reason      string
}

// Evaluate reports whether bucket may proceed to deletion.
func (g *Gate) Evaluate(ctx context.Context, bucket string) (Decision, error) {
	input := map[string]any{
		"bucket":             bucket,
		"protected_patterns": g.patterns,
	}

	results, err := g.query.Eval(ctx, rego.EvalInput(input))
	if err != nil {
		return Decision{}, fmt.Errorf("evaluate protected bucket policy for %s: %w", bucket, err)
	}
	if len(results) == 0 || len(results[0].Expressions) == 0 {
		return Decision{AllowDelete: true}, nil
	}

	doc, ok := results[0].Expressions[0].Value.(map[string]any)
	if !ok {
		return Decision{AllowDelete: true}, nil
	}

	decision := Decision{AllowDelete: true}
	if allow, ok := doc["allow_delete"].(bool); ok {
		decision.AllowDelete = allow
	}
	if reason, ok := doc["reason"].(string); ok {
		decision.Reason = reason
	}
	return decision, nil
}
