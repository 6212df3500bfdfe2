package media

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/vietddude/genflow/internal/core/domain"
	"github.com/vietddude/genflow/internal/metrics"
	"github.com/vietddude/genflow/internal/retry"
)

// describeAttempts is the fixed per-attachment retry budget.
const describeAttempts = 3

// Pipeline describes a batch of attachments with round-based retries.
type Pipeline struct {
	describer     Describer
	maxConcurrent int
}

// NewPipeline creates a description pipeline.
func NewPipeline(d Describer) *Pipeline {
	return &Pipeline{describer: d}
}

// WithMaxConcurrent caps per-round fan-out. Zero means unbounded.
func (p *Pipeline) WithMaxConcurrent(n int) *Pipeline {
	p.maxConcurrent = n
	return p
}

// DescribeAll describes every attachment, retrying failures up to three
// rounds. It always returns one entry per input. Attachments that fail every
// round get a placeholder description instead of being dropped. Output order
// is not guaranteed to match input order.
func (p *Pipeline) DescribeAll(
	ctx context.Context,
	atts []domain.AttachmentDescriptor,
) []domain.DescribedAttachment {
	results := retry.DoAll(ctx, retry.BatchOptions{
		MaxAttempts:   describeAttempts,
		MaxConcurrent: p.maxConcurrent,
		OperationName: "describe_media",
	}, atts, func(ctx context.Context, att domain.AttachmentDescriptor, _ int) (string, error) {
		return p.describer.Describe(ctx, att)
	})

	out := make([]domain.DescribedAttachment, 0, len(atts))
	for _, r := range results {
		att := atts[r.Index]
		description := r.Value
		if r.Err != nil {
			description = Placeholder(att.Kind, r.Attempts)
			metrics.MediaDescriptionsTotal.WithLabelValues(string(att.Kind), "placeholder").Inc()
			slog.Warn("Media description failed, substituting placeholder",
				"kind", att.Kind,
				"locator", att.Locator,
				"attempts", r.Attempts,
				"error", r.Err)
		} else {
			metrics.MediaDescriptionsTotal.WithLabelValues(string(att.Kind), "ok").Inc()
		}
		out = append(out, domain.DescribedAttachment{
			Kind:          att.Kind,
			Description:   description,
			SourceLocator: att.Locator,
			Descriptor:    att,
		})
	}
	return out
}

// Placeholder builds the synthetic description substituted when every
// attempt to describe an attachment failed.
func Placeholder(kind domain.MediaKind, attempts int) string {
	return fmt.Sprintf("%s description failed after %d attempts", kind.Label(), attempts)
}
