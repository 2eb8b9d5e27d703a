package transcript

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wispchat/wisp/pkg/kvstore"
)

func TestStore_AppendPersistsAndReloads(t *testing.T) {
	kv := kvstore.NewMemoryKV()
	s, err := NewStore(kv)
	require.NoError(t, err)

	require.NoError(t, s.Append(NewTurn(SenderUser, "hello")))
	require.NoError(t, s.Append(NewTurn(SenderAssistant, "hi")))

	reloaded, err := NewStore(kv)
	require.NoError(t, err)
	turns := reloaded.Turns()
	require.Len(t, turns, 2)
	assert.Equal(t, "hello", turns[0].Text)
	assert.Equal(t, SenderAssistant, turns[1].Sender)
}

func TestStore_SingleLiveTurn(t *testing.T) {
	s, err := NewStore(kvstore.NewMemoryKV())
	require.NoError(t, err)

	require.NoError(t, s.StartLive(NewTurn(SenderAssistant, "Thinking…")))
	err = s.StartLive(NewTurn(SenderAssistant, "Thinking…"))
	require.Error(t, err)
}

func TestStore_LiveMutationsAreNotPersistedUntilSettle(t *testing.T) {
	kv := kvstore.NewMemoryKV()
	s, err := NewStore(kv)
	require.NoError(t, err)

	require.NoError(t, s.StartLive(NewTurn(SenderAssistant, "Thinking…")))
	require.NoError(t, s.SetLiveText("partial"))

	_, ok, err := kv.Get(DefaultKey)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.Settle(Settlement{Text: "final", Kind: KindPlain, Reasoning: "done", DurationSeconds: 1.5}))
	raw, ok, err := kv.Get(DefaultKey)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Contains(t, raw, "final")

	_, live := s.Live()
	assert.False(t, live)
}

func TestStore_SettleWithoutLiveFails(t *testing.T) {
	s, err := NewStore(kvstore.NewMemoryKV())
	require.NoError(t, err)
	require.Error(t, s.Settle(Settlement{Text: "x"}))
}

func TestStore_UserTurnsExcludesByID(t *testing.T) {
	s, err := NewStore(kvstore.NewMemoryKV())
	require.NoError(t, err)

	first := NewTurn(SenderUser, "first")
	second := NewTurn(SenderUser, "second")
	require.NoError(t, s.Append(first))
	require.NoError(t, s.Append(NewTurn(SenderAssistant, "answer")))
	require.NoError(t, s.Append(second))

	prior := s.UserTurns(second.ID)
	require.Len(t, prior, 1)
	assert.Equal(t, "first", prior[0].Text)
}

func TestStore_ClearDropsEverything(t *testing.T) {
	kv := kvstore.NewMemoryKV()
	s, err := NewStore(kv)
	require.NoError(t, err)

	require.NoError(t, s.Append(NewTurn(SenderUser, "hello")))
	require.NoError(t, s.Clear())
	assert.Empty(t, s.Turns())

	_, ok, err := kv.Get(DefaultKey)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStore_ClearWhileLiveFails(t *testing.T) {
	s, err := NewStore(kvstore.NewMemoryKV())
	require.NoError(t, err)
	require.NoError(t, s.StartLive(NewTurn(SenderAssistant, "Thinking…")))
	require.Error(t, s.Clear())
}

func TestStore_CorruptPersistedTranscriptIsDiscarded(t *testing.T) {
	kv := kvstore.NewMemoryKV()
	require.NoError(t, kv.Set(DefaultKey, "{not json"))
	s, err := NewStore(kv)
	require.NoError(t, err)
	assert.Empty(t, s.Turns())
}

func TestTurn_HasImageAttachment(t *testing.T) {
	img := Turn{AttachmentPayload: "data:image/png;base64,AAAA"}
	doc := Turn{AttachmentPayload: "data:application/pdf;base64,AAAA"}
	assert.True(t, img.HasImageAttachment())
	assert.False(t, doc.HasImageAttachment())
	assert.False(t, Turn{}.HasImageAttachment())
}
