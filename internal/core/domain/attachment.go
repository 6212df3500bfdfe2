package domain

// MediaKind identifies the type of an attachment.
type MediaKind string

const (
	MediaImage MediaKind = "image"
	MediaAudio MediaKind = "audio"
)

// Label returns the human-readable form used in placeholder text.
func (k MediaKind) Label() string {
	switch k {
	case MediaImage:
		return "Image"
	case MediaAudio:
		return "Audio"
	default:
		return "Attachment"
	}
}

// AttachmentDescriptor points at one attachment to be described.
type AttachmentDescriptor struct {
	Locator     string    `json:"locator"`
	Kind        MediaKind `json:"kind"`
	DisplayName string    `json:"display_name,omitempty"`
}

// DescribedAttachment is the pipeline output for one attachment.
// Description is never empty: a synthetic placeholder is substituted when
// every attempt to produce a real one failed.
type DescribedAttachment struct {
	Kind          MediaKind
	Description   string
	SourceLocator string
	Descriptor    AttachmentDescriptor
}
