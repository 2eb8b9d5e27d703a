package settings

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/wispchat/wisp/pkg/kvstore"
)

// Config is the process-wide provider configuration. Last writer wins
// across instances; there is no versioning.
type Config struct {
	Provider   string `json:"provider" yaml:"provider"`
	Model      string `json:"model" yaml:"model"`
	Credential string `json:"credential" yaml:"credential"`
}

// OriginKind tags where a configuration update came from.
type OriginKind string

const (
	OriginLocal  OriginKind = "local"
	OriginRemote OriginKind = "remote"
)

// Origin identifies the source of an update. Remote origins carry the
// broadcasting instance's source ID.
type Origin struct {
	Kind     OriginKind
	SourceID string
}

// update is the broadcast payload carried on the settings topic.
type update struct {
	Type     string `json:"type"`
	SourceID string `json:"sourceId"`
	Payload  Config `json:"payload"`
}

const updateType = "SETTINGS_UPDATE"

// storageKey is the KV key the configuration persists under.
const storageKey = "configuration"

// Service holds the single Configuration, persists every change and keeps
// instances sharing a backend converged. Remotely received updates are
// adopted and persisted but never re-broadcast.
type Service struct {
	mu       sync.Mutex
	current  Config
	kv       kvstore.KV
	backend  Backend
	sourceID string
	subs     []func(Config, Origin)
	cancel   context.CancelFunc
	started  bool
}

// NewService loads the persisted configuration from kv. Call Start to begin
// receiving remote broadcasts.
func NewService(kv kvstore.KV, backend Backend) (*Service, error) {
	if kv == nil {
		return nil, errors.New("settings service: kv is nil")
	}
	if backend == nil {
		return nil, errors.New("settings service: backend is nil")
	}
	s := &Service{kv: kv, backend: backend, sourceID: uuid.NewString()}
	raw, ok, err := kv.Get(storageKey)
	if err != nil {
		return nil, errors.Wrap(err, "settings service: load")
	}
	if ok && raw != "" {
		if err := json.Unmarshal([]byte(raw), &s.current); err != nil {
			log.Warn().Err(err).Str("component", "settings").Msg("discarding undecodable persisted configuration")
		}
	}
	return s, nil
}

// SourceID returns this instance's broadcast identity.
func (s *Service) SourceID() string {
	if s == nil {
		return ""
	}
	return s.sourceID
}

// Get returns the current configuration.
func (s *Service) Get() Config {
	if s == nil {
		return Config{}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// Set applies a locally-originated change: persist, notify subscribers and
// broadcast exactly once to the other instances on the channel.
func (s *Service) Set(cfg Config) error {
	if s == nil {
		return errors.New("settings service: nil service")
	}
	s.mu.Lock()
	s.current = cfg
	subs := append(([]func(Config, Origin))(nil), s.subs...)
	s.mu.Unlock()

	if err := s.persist(cfg); err != nil {
		return err
	}
	for _, fn := range subs {
		fn(cfg, Origin{Kind: OriginLocal})
	}
	return s.broadcast(cfg)
}

// Subscribe registers fn for every adopted update, local or remote.
func (s *Service) Subscribe(fn func(Config, Origin)) {
	if s == nil || fn == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subs = append(s.subs, fn)
}

// Start subscribes to the broadcast topic and adopts remote updates until
// ctx is canceled or Close is called.
func (s *Service) Start(ctx context.Context) error {
	if s == nil {
		return errors.New("settings service: nil service")
	}
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}
	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.started = true
	s.mu.Unlock()

	ch, err := s.backend.Subscriber().Subscribe(runCtx, Topic)
	if err != nil {
		s.Close()
		return errors.Wrap(err, "settings service: subscribe")
	}
	go s.consume(ch)
	return nil
}

func (s *Service) consume(ch <-chan *message.Message) {
	for msg := range ch {
		var u update
		if err := json.Unmarshal(msg.Payload, &u); err != nil {
			log.Warn().Err(err).Str("component", "settings").Msg("failed to decode settings broadcast")
			msg.Ack()
			continue
		}
		msg.Ack()
		if u.Type != updateType || u.SourceID == s.sourceID {
			continue
		}
		s.adoptRemote(u)
	}
	log.Debug().Str("component", "settings").Str("source_id", s.sourceID).Msg("settings consumer stopped")
}

// adoptRemote applies a remote update without re-broadcasting it.
func (s *Service) adoptRemote(u update) {
	s.mu.Lock()
	if s.current == u.Payload {
		s.mu.Unlock()
		return
	}
	s.current = u.Payload
	subs := append(([]func(Config, Origin))(nil), s.subs...)
	s.mu.Unlock()

	if err := s.persist(u.Payload); err != nil {
		log.Warn().Err(err).Str("component", "settings").Msg("failed to persist remote configuration")
	}
	log.Info().Str("component", "settings").Str("from", u.SourceID).Msg("adopted remote configuration")
	for _, fn := range subs {
		fn(u.Payload, Origin{Kind: OriginRemote, SourceID: u.SourceID})
	}
}

func (s *Service) persist(cfg Config) error {
	b, err := json.Marshal(cfg)
	if err != nil {
		return errors.Wrap(err, "settings service: encode")
	}
	return errors.Wrap(s.kv.Set(storageKey, string(b)), "settings service: persist")
}

func (s *Service) broadcast(cfg Config) error {
	b, err := json.Marshal(update{Type: updateType, SourceID: s.sourceID, Payload: cfg})
	if err != nil {
		return errors.Wrap(err, "settings service: encode broadcast")
	}
	msg := message.NewMessage(watermill.NewUUID(), b)
	return errors.Wrap(s.backend.Publisher().Publish(Topic, msg), "settings service: publish")
}

// Close stops the remote consumer. The backend is owned by the caller.
func (s *Service) Close() {
	if s == nil {
		return
	}
	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
	}
	s.cancel = nil
	s.started = false
	s.mu.Unlock()
}
