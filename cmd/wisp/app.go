package main

import (
	"context"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"

	"github.com/wispchat/wisp/pkg/chat"
	"github.com/wispchat/wisp/pkg/describe"
	"github.com/wispchat/wisp/pkg/kvstore"
	"github.com/wispchat/wisp/pkg/provider"
	"github.com/wispchat/wisp/pkg/refine"
	"github.com/wispchat/wisp/pkg/search"
	"github.com/wispchat/wisp/pkg/settings"
	"github.com/wispchat/wisp/pkg/transcript"
	"github.com/wispchat/wisp/pkg/uncertainty"
)

// appConfig is the YAML file read at startup. Runtime configuration
// (provider/model/credential) lives in the settings service instead and is
// only seeded from here on first run.
type appConfig struct {
	BaseURL          string                   `yaml:"base_url"`
	SearchEndpoint   string                   `yaml:"search_endpoint"`
	SummaryEndpoint  string                   `yaml:"summary_endpoint"`
	DescribeEndpoint string                   `yaml:"describe_endpoint"`
	SystemPrompt     string                   `yaml:"system_prompt"`
	ControlPhrase    string                   `yaml:"control_phrase"`
	Elevated         bool                     `yaml:"elevated"`
	Uncertainty      []string                 `yaml:"uncertainty_phrases"`
	Broadcast        settings.BackendSettings `yaml:"broadcast"`
	Seed             settings.Config          `yaml:"seed"`
}

func loadAppConfig(path string) (appConfig, error) {
	cfg := appConfig{BaseURL: "https://api.openai.com/v1"}
	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return cfg, errors.Wrap(err, "read config")
	}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return cfg, errors.Wrap(err, "parse config")
	}
	return cfg, nil
}

// app bundles everything a subcommand needs.
type app struct {
	cfg        appConfig
	kv         kvstore.KV
	transcript *transcript.Store
	settings   *settings.Service
	backend    settings.Backend
}

func newApp(ctx context.Context) (*app, error) {
	cfg, err := loadAppConfig(flagConfig)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(flagDB), 0o755); err != nil {
		return nil, errors.Wrap(err, "create data dir")
	}
	kv, err := kvstore.NewSQLiteKV(flagDB)
	if err != nil {
		return nil, err
	}
	store, err := transcript.NewStore(kv)
	if err != nil {
		_ = kv.Close()
		return nil, err
	}
	svc, backend, err := buildSettings(ctx, cfg, kv)
	if err != nil {
		_ = kv.Close()
		return nil, err
	}
	return &app{cfg: cfg, kv: kv, transcript: store, settings: svc, backend: backend}, nil
}

func buildSettings(ctx context.Context, cfg appConfig, kv kvstore.KV) (*settings.Service, settings.Backend, error) {
	backend, err := settings.NewBackend(ctx, cfg.Broadcast, uuid.NewString())
	if err != nil {
		return nil, nil, err
	}
	svc, err := settings.NewService(kv, backend)
	if err != nil {
		_ = backend.Close()
		return nil, nil, err
	}
	if svc.Get() == (settings.Config{}) && cfg.Seed != (settings.Config{}) {
		if err := svc.Set(cfg.Seed); err != nil {
			log.Warn().Err(err).Msg("failed to seed configuration")
		}
	}
	if err := svc.Start(ctx); err != nil {
		_ = backend.Close()
		return nil, nil, err
	}
	return svc, backend, nil
}

func (a *app) close() {
	if a == nil {
		return
	}
	if a.settings != nil {
		a.settings.Close()
	}
	if a.backend != nil {
		_ = a.backend.Close()
	}
	if a.kv != nil {
		_ = a.kv.Close()
	}
}

func (a *app) orchestrator(onUpdate func(transcript.Turn)) (*chat.Orchestrator, error) {
	cfg := a.settings.Get()
	gen, err := provider.NewClient(a.cfg.BaseURL, cfg.Credential)
	if err != nil {
		return nil, err
	}
	var searcher search.Searcher
	if a.cfg.SearchEndpoint != "" {
		searcher, err = search.NewClient(a.cfg.SearchEndpoint)
		if err != nil {
			return nil, err
		}
	}
	return chat.NewOrchestrator(chat.Options{
		Transcript:    a.transcript,
		Generator:     gen,
		Searcher:      searcher,
		Settings:      a.settings,
		Classifier:    uncertainty.NewClassifier(a.cfg.Uncertainty),
		Refiner:       refine.NewRefiner(),
		Elevated:      a.cfg.Elevated,
		ControlPhrase: a.cfg.ControlPhrase,
		SystemPrompt:  a.cfg.SystemPrompt,
		OnUpdate:      onUpdate,
	})
}

func (a *app) describeClient() (*describe.Client, error) {
	return describe.NewClient(a.cfg.SummaryEndpoint, a.cfg.DescribeEndpoint)
}
