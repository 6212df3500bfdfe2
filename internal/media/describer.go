// Package media turns message attachments into textual descriptions so that
// conversation assembly never has to handle a missing attachment.
package media

import (
	"context"

	"github.com/vietddude/genflow/internal/core/domain"
)

// Describer produces a description or transcription for one attachment.
// Implementations call an external capability: vision description for images,
// speech-to-text for audio.
type Describer interface {
	Describe(ctx context.Context, att domain.AttachmentDescriptor) (string, error)
}
