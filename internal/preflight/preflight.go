// Package preflight runs a best-effort IAM policy simulation for each
// bucket just before its delete confirmation prompt, so an operator
// missing a required S3 permission sees a warning first. Like
// audit, a failed simulation call never blocks the run: IAM simulation
// itself requires a permission (iam:SimulatePrincipalPolicy) the caller
// may not have, and that absence is not grounds to refuse to migrate.
package preflight

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/iam"
	"github.com/aws/aws-sdk-go-v2/service/iam/types"

	"github.com/SatoshiReport/s3evacuate/internal/telemetry"
)

// Client is the narrow IAM surface preflight needs.
type Client interface {
	SimulatePrincipalPolicy(ctx context.Context, params *iam.SimulatePrincipalPolicyInput, optFns ...func(*iam.Options)) (*iam.SimulatePrincipalPolicyOutput, error)
}

var _ Client = (*iam.Client)(nil)

// RequiredActions are the S3 API calls the migration pipeline issues
// against a source bucket, end to end.
var RequiredActions = []string{
	"s3:ListBucket",
	"s3:GetObject",
	"s3:GetObjectVersion",
	"s3:RestoreObject",
	"s3:DeleteObject",
	"s3:DeleteObjectVersion",
	"s3:ListBucketVersions",
	"s3:ListBucketMultipartUploads",
	"s3:AbortMultipartUpload",
	"s3:DeleteBucket",
}

// Denial describes one simulated action that would be denied.
type Denial struct {
	Action   string
	Resource string
}

// Checker simulates the required S3 permissions for a principal against
// a bucket ARN.
type Checker struct {
	Client      Client
	PrincipalArn string
	Logger      *telemetry.Logger
}

// New builds a Checker.
func New(client Client, principalArn string, logger *telemetry.Logger) *Checker {
	return &Checker{Client: client, PrincipalArn: principalArn, Logger: logger}
}

// CheckBucket simulates RequiredActions against bucket and returns the
// subset that would be denied. A simulation error is logged and treated
// as "nothing to report" rather than propagated, since this check is
// advisory only.
func (c *Checker) CheckBucket(ctx context.Context, bucket string) []Denial {
	resourceArn := fmt.Sprintf("arn:aws:s3:::%s/*", bucket)

	resp, err := c.Client.SimulatePrincipalPolicy(ctx, &iam.SimulatePrincipalPolicyInput{
		PolicySourceArn: aws.String(c.PrincipalArn),
		ActionNames:     RequiredActions,
		ResourceArns:    []string{resourceArn},
	})
	if err != nil {
		if c.Logger != nil {
			c.Logger.Error().Err(err).Str("bucket", bucket).Msg("IAM policy simulation failed, skipping preflight check")
		}
		return nil
	}

	var denials []Denial
	for _, result := range resp.EvaluationResults {
		if result.EvalDecision != types.PolicyEvaluationDecisionTypeAllowed {
			denials = append(denials, Denial{
				Action:   aws.ToString(result.EvalActionName),
				Resource: resourceArn,
			})
		}
	}
	return denials
}
