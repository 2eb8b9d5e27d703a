package transcript

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/wispchat/wisp/pkg/kvstore"
)

// DefaultKey is the KV key the JSON-encoded turn list is stored under.
const DefaultKey = "transcript"

// NewTurn builds a turn with a fresh ID and creation timestamps.
func NewTurn(sender Sender, text string) Turn {
	now := time.Now()
	return Turn{
		ID:            uuid.NewString(),
		Text:          text,
		Sender:        sender,
		Kind:          KindPlain,
		CreatedAt:     now,
		LastUpdatedAt: now,
	}
}

// Store holds the single linear transcript. At most one turn is live at a
// time; live mutations stay in memory and only settled mutations are
// persisted to the backing KV.
type Store struct {
	mu     sync.Mutex
	kv     kvstore.KV
	key    string
	turns  []Turn
	liveID string
}

// NewStore loads the persisted transcript (if any) from kv.
func NewStore(kv kvstore.KV) (*Store, error) {
	if kv == nil {
		return nil, errors.New("transcript store: kv is nil")
	}
	s := &Store{kv: kv, key: DefaultKey}
	raw, ok, err := kv.Get(s.key)
	if err != nil {
		return nil, errors.Wrap(err, "transcript store: load")
	}
	if ok && raw != "" {
		if err := json.Unmarshal([]byte(raw), &s.turns); err != nil {
			// A corrupt transcript should not brick the client.
			log.Warn().Err(err).Str("component", "transcript").Msg("discarding undecodable persisted transcript")
			s.turns = nil
		}
	}
	return s, nil
}

// Append adds a settled turn and persists.
func (s *Store) Append(t Turn) error {
	if s == nil {
		return errors.New("transcript store: nil store")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.turns = append(s.turns, t)
	return s.persistLocked()
}

// StartLive appends t and marks it as the live turn receiving fragments.
func (s *Store) StartLive(t Turn) error {
	if s == nil {
		return errors.New("transcript store: nil store")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.liveID != "" {
		return errors.Errorf("transcript store: turn %s is still live", s.liveID)
	}
	s.turns = append(s.turns, t)
	s.liveID = t.ID
	return nil
}

// SetLiveText replaces the live turn's text in place. Not persisted; the
// settled write at Settle covers it.
func (s *Store) SetLiveText(text string) error {
	if s == nil {
		return errors.New("transcript store: nil store")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.liveIndexLocked()
	if i < 0 {
		return errors.New("transcript store: no live turn")
	}
	s.turns[i].Text = text
	s.turns[i].LastUpdatedAt = time.Now()
	return nil
}

// Settlement fixes the final state of the live turn.
type Settlement struct {
	Text            string
	Kind            Kind
	Reasoning       string
	DurationSeconds float64
}

// Settle finalizes the live turn, clears the live pointer and persists.
func (s *Store) Settle(fin Settlement) error {
	if s == nil {
		return errors.New("transcript store: nil store")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.liveIndexLocked()
	if i < 0 {
		return errors.New("transcript store: no live turn")
	}
	s.turns[i].Text = fin.Text
	s.turns[i].Kind = fin.Kind
	s.turns[i].Reasoning = fin.Reasoning
	s.turns[i].DurationSeconds = fin.DurationSeconds
	s.turns[i].LastUpdatedAt = time.Now()
	s.liveID = ""
	return s.persistLocked()
}

// Live returns a copy of the live turn, if any.
func (s *Store) Live() (Turn, bool) {
	if s == nil {
		return Turn{}, false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.liveIndexLocked()
	if i < 0 {
		return Turn{}, false
	}
	return s.turns[i], true
}

// Turns returns a snapshot copy of the transcript.
func (s *Store) Turns() []Turn {
	if s == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Turn, len(s.turns))
	copy(out, s.turns)
	return out
}

// UserTurns returns the settled user turns in order, excluding the one with
// excludeID (typically the turn currently being answered).
func (s *Store) UserTurns(excludeID string) []Turn {
	if s == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Turn
	for _, t := range s.turns {
		if t.Sender != SenderUser || t.ID == excludeID {
			continue
		}
		out = append(out, t)
	}
	return out
}

// Clear drops the whole transcript. Individual turns are never deleted.
func (s *Store) Clear() error {
	if s == nil {
		return errors.New("transcript store: nil store")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.liveID != "" {
		return errors.New("transcript store: cannot clear while a turn is live")
	}
	s.turns = nil
	return errors.Wrap(s.kv.Delete(s.key), "transcript store: clear")
}

func (s *Store) liveIndexLocked() int {
	if s.liveID == "" {
		return -1
	}
	for i := len(s.turns) - 1; i >= 0; i-- {
		if s.turns[i].ID == s.liveID {
			return i
		}
	}
	return -1
}

func (s *Store) persistLocked() error {
	b, err := json.Marshal(s.turns)
	if err != nil {
		return errors.Wrap(err, "transcript store: encode")
	}
	return errors.Wrap(s.kv.Set(s.key, string(b)), "transcript store: persist")
}
