package chat

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wispchat/wisp/pkg/provider"
	"github.com/wispchat/wisp/pkg/transcript"
)

func TestHistoryMessages_RolesAndAttachments(t *testing.T) {
	turns := []transcript.Turn{
		{Sender: transcript.SenderSystem, Text: "be nice"},
		{Sender: transcript.SenderUser, Text: "look at this", AttachmentName: "cat.png", AttachmentPayload: "data:image/png;base64,AAAA"},
		{Sender: transcript.SenderUser, Text: "and this", AttachmentName: "notes.txt", AttachmentPayload: "data:text/plain;base64,AAAA"},
		{Sender: transcript.SenderAssistant, Text: "a cat and some notes"},
	}
	msgs := historyMessages(turns, 10)
	require.Len(t, msgs, 4)

	assert.Equal(t, "system", msgs[0].Role)

	parts, ok := msgs[1].Content.([]provider.ContentPart)
	require.True(t, ok, "image attachment becomes multi-part content")
	assert.Equal(t, "image_url", parts[1].Type)

	text, ok := msgs[2].Content.(string)
	require.True(t, ok, "non-image attachment is flattened to text")
	assert.Contains(t, text, "notes.txt")
	assert.Contains(t, text, "and this")

	assert.Equal(t, "assistant", msgs[3].Role)
}

func TestHistoryMessages_TrimsOldestFirst(t *testing.T) {
	turns := []transcript.Turn{
		{Sender: transcript.SenderUser, Text: "old"},
		{Sender: transcript.SenderUser, Text: "mid"},
		{Sender: transcript.SenderUser, Text: "new"},
	}
	msgs := historyMessages(turns, 2)
	require.Len(t, msgs, 2)
	assert.Equal(t, "mid", msgs[0].Content)
	assert.Equal(t, "new", msgs[1].Content)
}
