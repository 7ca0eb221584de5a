// Package audit provides a best-effort CloudTrail lookup that shows a
// bucket's recent activity just before its delete confirmation prompt;
// nothing it finds is stored. Failures here never block a migration: a missing
// or denied CloudTrail permission just means the audit trail is thinner,
// not that deletion should stop.
package audit

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudtrail"
	"github.com/aws/aws-sdk-go-v2/service/cloudtrail/types"

	"github.com/SatoshiReport/s3evacuate/internal/telemetry"
)

// Client is the narrow CloudTrail surface the audit trail needs.
type Client interface {
	LookupEvents(ctx context.Context, params *cloudtrail.LookupEventsInput, optFns ...func(*cloudtrail.Options)) (*cloudtrail.LookupEventsOutput, error)
}

var _ Client = (*cloudtrail.Client)(nil)

// Event is a trimmed view of a CloudTrail record relevant to a bucket's
// lifecycle.
type Event struct {
	EventName string
	EventTime time.Time
	Username  string
}

// Trail queries recent CloudTrail activity for a resource.
type Trail struct {
	Client Client
	Logger *telemetry.Logger
}

// New builds a Trail.
func New(client Client, logger *telemetry.Logger) *Trail {
	return &Trail{Client: client, Logger: logger}
}

// RecentEventsForBucket looks up CloudTrail events referencing bucket
// within the last window, returning nil (not an error) if the lookup
// fails, since this is purely supplementary to the durable state store.
func (t *Trail) RecentEventsForBucket(ctx context.Context, bucket string, window time.Duration) []Event {
	resp, err := t.Client.LookupEvents(ctx, &cloudtrail.LookupEventsInput{
		LookupAttributes: []types.LookupAttribute{
			{AttributeKey: types.LookupAttributeKeyResourceName, AttributeValue: aws.String(bucket)},
		},
		StartTime: aws.Time(time.Now().Add(-window)),
	})
	if err != nil {
		if t.Logger != nil {
			t.Logger.Error().Err(err).Str("bucket", bucket).Msg("cloudtrail lookup failed, continuing without audit trail")
		}
		return nil
	}

	events := make([]Event, 0, len(resp.Events))
	for _, e := range resp.Events {
		events = append(events, Event{
			EventName: aws.ToString(e.EventName),
			EventTime: aws.ToTime(e.EventTime),
			Username:  aws.ToString(e.Username),
		})
	}
	return events
}

// Summary renders events as a short human-readable line for inclusion
// in the deletion confirmation prompt.
func Summary(events []Event) string {
	if len(events) == 0 {
		return "no recent CloudTrail activity found"
	}
	return fmt.Sprintf("%d recent CloudTrail event(s), most recent: %s by %s",
		len(events), events[0].EventName, events[0].Username)
}
