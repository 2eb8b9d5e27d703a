package chat

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/wispchat/wisp/pkg/provider"
	"github.com/wispchat/wisp/pkg/refine"
	"github.com/wispchat/wisp/pkg/search"
	"github.com/wispchat/wisp/pkg/settings"
	"github.com/wispchat/wisp/pkg/sse"
	"github.com/wispchat/wisp/pkg/transcript"
	"github.com/wispchat/wisp/pkg/uncertainty"
)

// State names the orchestrator's position in a run.
type State string

const (
	StateIdle               State = "idle"
	StateAwaitingPrimary    State = "awaiting_primary"
	StateStreamingPrimary   State = "streaming_primary"
	StateClassifying        State = "classifying"
	StateAwaitingSearch     State = "awaiting_search"
	StateSearching          State = "searching"
	StateAwaitingSecondary  State = "awaiting_secondary"
	StateStreamingSecondary State = "streaming_secondary"
	StateSettling           State = "settling"
)

// Generator is the streaming generation collaborator. provider.Client
// implements it; tests substitute their own.
type Generator interface {
	Stream(ctx context.Context, req provider.ChatRequest) (io.ReadCloser, error)
}

// Options wires an Orchestrator.
type Options struct {
	Transcript *transcript.Store
	Generator  Generator
	Searcher   search.Searcher
	Settings   *settings.Service
	Classifier *uncertainty.Classifier
	Refiner    *refine.Refiner

	// Elevated grants the caller the privilege that gates the search
	// augmentation path and the unrestricted-mode control phrase.
	Elevated bool
	// ControlPhrase activates unrestricted mode for the session when sent
	// by an elevated caller. Empty disables the intercept.
	ControlPhrase string
	SystemPrompt  string
	HistoryLimit  int

	// OnUpdate, when set, observes every live mutation of the in-flight
	// turn, including each appended fragment.
	OnUpdate func(transcript.Turn)
}

// Submission is one user turn handed to Send.
type Submission struct {
	Text              string
	AttachmentName    string
	AttachmentPayload string
	AttachmentPreview string
}

// Orchestrator drives one user turn at a time from submission to a settled
// transcript entry: primary generation, uncertainty classification and the
// optional search-and-regenerate round. Single-flight per transcript.
type Orchestrator struct {
	opts Options

	mu           sync.Mutex
	busy         bool
	state        State
	unrestricted bool
}

func NewOrchestrator(opts Options) (*Orchestrator, error) {
	if opts.Transcript == nil {
		return nil, errors.New("orchestrator: transcript store is nil")
	}
	if opts.Generator == nil {
		return nil, errors.New("orchestrator: generator is nil")
	}
	if opts.Classifier == nil {
		opts.Classifier = uncertainty.NewClassifier(nil)
	}
	if opts.Refiner == nil {
		opts.Refiner = refine.NewRefiner()
	}
	if opts.SystemPrompt == "" {
		opts.SystemPrompt = defaultSystemPrompt
	}
	if opts.HistoryLimit <= 0 {
		opts.HistoryLimit = 10
	}
	return &Orchestrator{opts: opts, state: StateIdle}, nil
}

// IsLoading reports whether a run is in flight. The UI layer must refuse
// new submissions while true.
func (o *Orchestrator) IsLoading() bool {
	if o == nil {
		return false
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.busy
}

// State returns the current run state.
func (o *Orchestrator) State() State {
	if o == nil {
		return StateIdle
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// Unrestricted reports whether the session-wide unrestricted mode is on.
func (o *Orchestrator) Unrestricted() bool {
	if o == nil {
		return false
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.unrestricted
}

func (o *Orchestrator) setState(s State) {
	o.mu.Lock()
	o.state = s
	o.mu.Unlock()
}

// Send runs the full state machine for one submission and returns the
// settled assistant turn. Collaborator failures settle as error turns, not
// as returned errors; Send errors only on misuse (empty submission, a run
// already in flight, a corrupted store).
func (o *Orchestrator) Send(ctx context.Context, sub Submission) (transcript.Turn, error) {
	if o == nil {
		return transcript.Turn{}, errors.New("orchestrator: nil orchestrator")
	}
	if strings.TrimSpace(sub.Text) == "" && sub.AttachmentPayload == "" {
		return transcript.Turn{}, errors.New("orchestrator: empty submission")
	}
	o.mu.Lock()
	if o.busy {
		o.mu.Unlock()
		return transcript.Turn{}, errors.New("orchestrator: a run is already in flight")
	}
	o.busy = true
	o.state = StateAwaitingPrimary
	o.mu.Unlock()
	defer func() {
		o.mu.Lock()
		o.busy = false
		o.state = StateIdle
		o.mu.Unlock()
	}()

	run := &runState{start: time.Now()}
	if o.opts.Settings != nil {
		// Read once per run; a broadcast arriving mid-run must not shift
		// the model under an open stream.
		run.cfg = o.opts.Settings.Get()
	}

	userTurn := transcript.NewTurn(transcript.SenderUser, sub.Text)
	userTurn.AttachmentName = sub.AttachmentName
	userTurn.AttachmentPayload = sub.AttachmentPayload
	userTurn.AttachmentPreview = sub.AttachmentPreview
	if sub.AttachmentPayload != "" {
		userTurn.Kind = transcript.KindUploadRequest
	}
	if err := o.opts.Transcript.Append(userTurn); err != nil {
		return transcript.Turn{}, err
	}
	run.userTurn = userTurn

	placeholder := transcript.NewTurn(transcript.SenderAssistant, placeholderText)
	if err := o.opts.Transcript.StartLive(placeholder); err != nil {
		return transcript.Turn{}, err
	}

	if done, turn, err := o.intercept(sub, run); done {
		return turn, err
	}

	o.run(ctx, sub, run)
	return o.settle(run)
}

// runState accumulates everything a single Send pass produces.
type runState struct {
	start    time.Time
	cfg      settings.Config
	userTurn transcript.Turn

	finalText string
	kind      transcript.Kind
	reasoning string
}

// intercept handles the reserved control phrase before any network call.
// The phrase is an exact-match sentinel; anything that merely resembles it
// is an ordinary message.
func (o *Orchestrator) intercept(sub Submission, run *runState) (bool, transcript.Turn, error) {
	phrase := o.opts.ControlPhrase
	if phrase == "" || strings.TrimSpace(sub.Text) != phrase {
		return false, transcript.Turn{}, nil
	}
	if o.opts.Elevated {
		o.mu.Lock()
		o.unrestricted = true
		o.mu.Unlock()
		log.Info().Str("component", "chat").Msg("unrestricted mode activated")
		run.finalText = ackUnrestricted
	} else {
		log.Warn().Str("component", "chat").Msg("control phrase used without privilege")
		run.finalText = warnRestricted
	}
	run.kind = transcript.KindPlain
	run.reasoning = reasonIntercepted
	turn, err := o.settle(run)
	return true, turn, err
}

// run walks the network-facing states and fills run with the final text,
// kind and reasoning. It never returns an error; failures degrade the
// in-flight turn to an error.
func (o *Orchestrator) run(ctx context.Context, sub Submission, run *runState) {
	if strings.TrimSpace(run.cfg.Credential) == "" && o.opts.Settings != nil {
		run.fail("No API key is configured. Set one under settings before chatting.")
		return
	}

	primaryText, err := o.streamRound(ctx, o.primaryRequest(run), StateStreamingPrimary)
	if err != nil {
		run.fail(err.Error())
		return
	}

	o.setState(StateClassifying)
	uncertain := o.opts.Classifier.Uncertain(primaryText)
	if !o.opts.Elevated || sub.AttachmentPayload != "" || !uncertain || o.opts.Searcher == nil {
		run.finalText = primaryText
		run.kind = transcript.KindPlain
		run.reasoning = reasonPrimaryOnly
		return
	}

	o.setState(StateAwaitingSearch)
	prior := o.opts.Transcript.UserTurns(run.userTurn.ID)
	priorTexts := make([]string, 0, len(prior))
	for _, t := range prior {
		priorTexts = append(priorTexts, t.Text)
	}
	query := o.opts.Refiner.Refine(sub.Text, priorTexts)
	o.updateLive(primaryText + searchingNote)

	o.setState(StateSearching)
	log.Info().Str("component", "chat").Str("query", query).Msg("answer sounded uncertain, searching")
	findings, searchErr := o.opts.Searcher.Search(ctx, query)
	if searchErr != nil || !search.Usable(findings) {
		note := strings.TrimSpace(findings)
		if searchErr != nil || note == "" {
			note = search.FallbackNote
		}
		if searchErr != nil {
			log.Warn().Err(searchErr).Str("component", "chat").Msg("search collaborator failed")
		}
		run.finalText = primaryText + "\n\n" + note
		run.kind = transcript.KindSearchResult
		run.reasoning = reasonNoResults
		return
	}

	o.setState(StateAwaitingSecondary)
	secondaryText, err := o.streamRound(ctx, o.secondaryRequest(run, sub.Text, primaryText, findings), StateStreamingSecondary)
	if err != nil {
		run.fail(err.Error())
		return
	}
	block := findingsBlock(findings)
	if strings.TrimSpace(secondaryText) == "" {
		run.finalText = primaryText + noSummaryNote + block
		run.kind = transcript.KindSearchResult
		run.reasoning = reasonNoSummary
		return
	}
	run.finalText = secondaryText + block
	run.kind = transcript.KindSearchResult
	run.reasoning = reasonSearched
}

// streamRound issues one generation request and folds its fragment stream
// into the live turn, replacing the placeholder text on the first fragment
// and appending afterwards. It returns the accumulated text.
func (o *Orchestrator) streamRound(ctx context.Context, req provider.ChatRequest, streaming State) (string, error) {
	body, err := o.opts.Generator.Stream(ctx, req)
	if err != nil {
		return "", err
	}
	dec := sse.NewDecoder(body)
	defer func() { _ = dec.Close() }()

	o.setState(streaming)
	// The first fragment replaces the placeholder text wholesale; later
	// fragments extend the accumulated answer.
	var acc strings.Builder
	for {
		frag, err := dec.Next()
		if errors.Is(err, sse.ErrDone) {
			break
		}
		if err != nil {
			return "", err
		}
		acc.WriteString(frag)
		o.updateLive(acc.String())
	}
	return acc.String(), nil
}

func (o *Orchestrator) updateLive(text string) {
	if err := o.opts.Transcript.SetLiveText(text); err != nil {
		log.Warn().Err(err).Str("component", "chat").Msg("failed to update live turn")
		return
	}
	if o.opts.OnUpdate != nil {
		if live, ok := o.opts.Transcript.Live(); ok {
			o.opts.OnUpdate(live)
		}
	}
}

func (o *Orchestrator) primaryRequest(run *runState) provider.ChatRequest {
	system := o.opts.SystemPrompt
	if o.Unrestricted() {
		system += unrestrictedClause
	}
	msgs := []provider.Message{provider.TextMessage("system", system)}
	history := o.opts.Transcript.Turns()
	// The last two entries are the just-appended user turn and the live
	// placeholder; the placeholder never reaches the model.
	if n := len(history); n >= 2 {
		history = history[:n-2]
	}
	msgs = append(msgs, historyMessages(history, o.opts.HistoryLimit)...)
	msgs = append(msgs, messageForTurn(run.userTurn))
	return provider.ChatRequest{Model: run.cfg.Model, Messages: msgs, Stream: true}
}

func (o *Orchestrator) secondaryRequest(run *runState, question, primaryAnswer, findings string) provider.ChatRequest {
	msgs := []provider.Message{
		provider.TextMessage("system", synthesisPrompt),
		messageForTurn(run.userTurn),
		provider.TextMessage("assistant", primaryAnswer),
		provider.TextMessage("user", "Here is what a web search found:\n\n"+findings),
		provider.TextMessage("user", "Using those findings, answer the original question: "+question),
	}
	return provider.ChatRequest{Model: run.cfg.Model, Messages: msgs, Stream: true}
}

func (run *runState) fail(msg string) {
	run.finalText = msg
	run.kind = transcript.KindError
	run.reasoning = reasonError
}

// settle stamps duration and reasoning, converts an empty result to an
// error turn and commits the live turn.
func (o *Orchestrator) settle(run *runState) (transcript.Turn, error) {
	o.setState(StateSettling)
	if strings.TrimSpace(run.finalText) == "" && run.kind != transcript.KindError {
		run.finalText = noResponseText
		run.kind = transcript.KindError
		run.reasoning = reasonError
	}
	if run.kind == "" {
		run.kind = transcript.KindPlain
	}
	err := o.opts.Transcript.Settle(transcript.Settlement{
		Text:            run.finalText,
		Kind:            run.kind,
		Reasoning:       run.reasoning,
		DurationSeconds: time.Since(run.start).Seconds(),
	})
	if err != nil {
		return transcript.Turn{}, err
	}
	turns := o.opts.Transcript.Turns()
	settled := turns[len(turns)-1]
	if o.opts.OnUpdate != nil {
		o.opts.OnUpdate(settled)
	}
	log.Debug().Str("component", "chat").Str("kind", string(settled.Kind)).Float64("duration_s", settled.DurationSeconds).Msg("turn settled")
	return settled, nil
}

func findingsBlock(findings string) string {
	return fmt.Sprintf("\n\n<details>\n<summary>Search findings</summary>\n\n%s\n\n</details>", strings.TrimSpace(findings))
}
