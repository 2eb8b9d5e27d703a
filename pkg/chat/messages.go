package chat

import (
	"fmt"

	"github.com/wispchat/wisp/pkg/provider"
	"github.com/wispchat/wisp/pkg/transcript"
)

// historyMessages maps the most recent settled turns to role/content pairs
// for the generation request, newest last, at most limit turns. Image
// attachments become multi-part content; any other attachment is flattened
// into a textual description of the file plus its caption.
func historyMessages(turns []transcript.Turn, limit int) []provider.Message {
	if limit <= 0 {
		limit = 10
	}
	if len(turns) > limit {
		turns = turns[len(turns)-limit:]
	}
	out := make([]provider.Message, 0, len(turns))
	for _, t := range turns {
		out = append(out, messageForTurn(t))
	}
	return out
}

func messageForTurn(t transcript.Turn) provider.Message {
	role := "user"
	switch t.Sender {
	case transcript.SenderAssistant:
		role = "assistant"
	case transcript.SenderSystem:
		role = "system"
	}
	if t.AttachmentPayload == "" {
		return provider.TextMessage(role, t.Text)
	}
	if t.HasImageAttachment() {
		return provider.ImageMessage(role, t.Text, t.AttachmentPayload)
	}
	return provider.TextMessage(role, fmt.Sprintf("[Attached file: %s] %s", t.AttachmentName, t.Text))
}
