package transcript

import (
	"time"
)

// Sender identifies who produced a turn.
type Sender string

const (
	SenderUser      Sender = "user"
	SenderAssistant Sender = "assistant"
	SenderSystem    Sender = "system"
)

// Kind classifies a settled turn for rendering and bookkeeping.
type Kind string

const (
	KindPlain         Kind = "plain"
	KindSummary       Kind = "summary"
	KindSearchResult  Kind = "search-result"
	KindError         Kind = "error"
	KindUploadRequest Kind = "upload-request"
)

// Turn is one message in the transcript. Text is mutable while the turn is
// live (still receiving stream fragments) and immutable once settled.
// Reasoning and DurationSeconds are only ever written at settlement.
type Turn struct {
	ID                string    `json:"id"`
	Text              string    `json:"text"`
	Sender            Sender    `json:"sender"`
	Kind              Kind      `json:"kind"`
	CreatedAt         time.Time `json:"created_at"`
	LastUpdatedAt     time.Time `json:"last_updated_at"`
	AttachmentName    string    `json:"attachment_name,omitempty"`
	AttachmentPayload string    `json:"attachment_payload,omitempty"`
	AttachmentPreview string    `json:"attachment_preview,omitempty"`
	Reasoning         string    `json:"reasoning,omitempty"`
	DurationSeconds   float64   `json:"duration_seconds,omitempty"`
}

// HasImageAttachment reports whether the attachment payload is an inline
// image data URI that can be forwarded to the model as image content.
func (t Turn) HasImageAttachment() bool {
	return len(t.AttachmentPayload) > len("data:image/") && t.AttachmentPayload[:len("data:image/")] == "data:image/"
}
