package advisor

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/khanglvm/study-advisor/internal/cache"
	"github.com/khanglvm/study-advisor/internal/fingerprint"
	"github.com/khanglvm/study-advisor/internal/knowledge"
	"github.com/khanglvm/study-advisor/internal/learning"
	"github.com/khanglvm/study-advisor/internal/llm"
	"github.com/khanglvm/study-advisor/internal/profile"
	"github.com/khanglvm/study-advisor/internal/prompts"
	"github.com/khanglvm/study-advisor/internal/relay"
	"github.com/khanglvm/study-advisor/internal/stage"
	"github.com/khanglvm/study-advisor/internal/templates"
)

// Defaults for Options.
const (
	DefaultLLMTimeout       = 400 * time.Second
	DefaultChatTimeout      = 180 * time.Second
	DefaultMaxQueries       = 3
	DefaultSnippetsPerQuery = 2
	DefaultMinScore         = knowledge.DefaultMinScore
)

const setupStage = "setup"

// KnowledgeBase is the retrieval side of the knowledge index.
type KnowledgeBase interface {
	Search(ctx context.Context, query string, topK int, minScore float64) ([]knowledge.Result, error)
	AddSuccessfulCase(ctx context.Context, p *profile.Profile, stageKey, text string, score int) (knowledge.Document, error)
}

// Deps are the collaborators of an Orchestrator. Cache, Matcher, Knowledge
// and Tracker are optional; a nil value turns the feature off.
type Deps struct {
	Builder   *prompts.Builder
	Generator llm.Generator
	Cache     *cache.Store
	Matcher   *templates.Matcher
	Knowledge KnowledgeBase
	Tracker   *learning.Tracker
}

// Options tune an Orchestrator.
type Options struct {
	LLMTimeout       time.Duration
	ChatTimeout      time.Duration
	MaxQueries       int
	SnippetsPerQuery int
	MinScore         float64
}

func (o *Options) applyDefaults() {
	if o.LLMTimeout <= 0 {
		o.LLMTimeout = DefaultLLMTimeout
	}
	if o.ChatTimeout <= 0 {
		o.ChatTimeout = DefaultChatTimeout
	}
	if o.MaxQueries <= 0 {
		o.MaxQueries = DefaultMaxQueries
	}
	if o.SnippetsPerQuery <= 0 {
		o.SnippetsPerQuery = DefaultSnippetsPerQuery
	}
	if o.MinScore <= 0 {
		o.MinScore = DefaultMinScore
	}
}

// Orchestrator runs analyses. It is safe for concurrent use by many
// sessions.
type Orchestrator struct {
	deps   Deps
	opts   Options
	relay  *relay.Relay
	logger *zap.Logger
	flight singleflight.Group
}

// New creates an Orchestrator. Builder and Generator are required.
func New(deps Deps, opts Options, logger *zap.Logger) *Orchestrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	opts.applyDefaults()
	return &Orchestrator{
		deps:   deps,
		opts:   opts,
		relay:  relay.New(deps.Generator, logger),
		logger: logger,
	}
}

// Run drives the session through all three stages, emitting events as it
// goes. It stops at the first failed stage after emitting
// {status: error_stageN}; on success it emits {status: all_done}.
func (o *Orchestrator) Run(ctx context.Context, s *Session, emitter relay.Emitter) error {
	out := relay.NewDetachable(emitter)
	defer s.Touch()

	if err := checkSetup(s.Profile); err != nil {
		s.setState(StateError)
		o.emit(out, relay.Event{Stage: setupStage, Error: err.Error()})
		return err
	}

	id := stage.Survey
	for {
		s.setState(stateOf(id))
		if _, err := o.step(ctx, s, id, out); err != nil {
			s.setState(StateError)
			o.emit(out, relay.Event{Status: id.ErrorStatus()})
			return err
		}

		next, ok := id.Next()
		if !ok {
			break
		}
		if err := ctx.Err(); err != nil {
			o.logger.Info("analysis abandoned by client",
				zap.String("session", s.ID),
				zap.String("next_stage", next.Key()))
			return err
		}
		id = next
	}

	s.setState(StateDone)
	o.emit(out, relay.Event{Status: relay.StatusAllDone})
	return nil
}

func checkSetup(p *profile.Profile) error {
	switch {
	case p == nil:
		return &SetupError{Reason: "no learner profile"}
	case !p.HasSurvey():
		return &SetupError{Reason: "survey data is empty"}
	case !p.HasTranscript():
		return &SetupError{Reason: "transcript data is empty"}
	}
	return nil
}

// step runs one stage: cache lookup, template short-circuit for stage 1, or
// a streamed generation. A failed stage records an error placeholder.
func (o *Orchestrator) step(ctx context.Context, s *Session, id stage.ID, out *relay.Detachable) (StageResult, error) {
	started := time.Now()
	in, err := stageInput(s, id)
	if err != nil {
		return o.fail(s, id, "", err, out, started)
	}
	sig := signature(s, id)
	log := o.logger.With(zap.String("session", s.ID), zap.String("stage", id.Key()))

	if o.deps.Cache != nil {
		if entry, ok := o.deps.Cache.Get(sig, id); ok {
			log.Debug("stage served from cache", zap.Float64("confidence", entry.Confidence))
			res := StageResult{
				Stage:      id,
				Text:       entry.Text,
				Source:     learning.SourceCache,
				Confidence: entry.Confidence,
				Signature:  sig,
			}
			return o.complete(ctx, s, in, nil, res, out, started), nil
		}
	}

	if id == stage.Survey && o.deps.Matcher != nil {
		if resp, ok := o.deps.Matcher.Respond(templates.FromProfile(s.Profile)); ok {
			log.Debug("stage answered by template", zap.String("template", resp.Template))
			res := StageResult{
				Stage:      id,
				Text:       resp.Text,
				Source:     learning.SourceTemplate,
				Confidence: float64(resp.Confidence),
				Template:   resp.Template,
				Gap:        resp.Gap,
				Signature:  sig,
			}
			return o.complete(ctx, s, in, nil, res, out, started), nil
		}
	}

	req, augmented, err := o.request(ctx, s, id, in)
	if err != nil {
		return o.fail(s, id, sig, err, out, started)
	}

	var history *relay.History
	if id == stage.Synthesis {
		history = s.history
	}

	leader := false
	v, err, _ := o.flight.Do(string(sig)+":"+id.Key(), func() (any, error) {
		leader = true
		gctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), o.opts.LLMTimeout)
		defer cancel()

		text, err := o.relay.StreamStage(gctx, id, req, history, out)
		if err != nil {
			return "", err
		}
		if o.deps.Cache != nil {
			if err := o.deps.Cache.Put(sig, id, text, cache.GeneratedConfidence); err != nil {
				log.Warn("failed to cache stage result", zap.Error(err))
			}
		}
		return text, nil
	})
	if err != nil {
		if leader {
			// the relay already reported the failure to the client
			return o.fail(s, id, sig, err, nil, started)
		}
		return o.fail(s, id, sig, err, out, started)
	}

	res := StageResult{
		Stage:         id,
		Text:          v.(string),
		Source:        learning.SourceGenerated,
		Confidence:    cache.GeneratedConfidence,
		Signature:     sig,
		KnowledgeUsed: augmented,
	}
	if leader {
		res.Elapsed = time.Since(started)
		s.setResult(res)
		o.track(s, res)
		return res, nil
	}
	res.Source = learning.SourceShared
	return o.complete(ctx, s, in, &req, res, out, started), nil
}

// request builds the prompt for a stage with retrieved knowledge appended
// to its system message, and reports whether any was found.
func (o *Orchestrator) request(ctx context.Context, s *Session, id stage.ID, in stage.Input) (llm.ChatRequest, bool, error) {
	req, err := o.deps.Builder.Build(in)
	if err != nil {
		return llm.ChatRequest{}, false, err
	}
	snippets := o.retrieve(ctx, id, s.Profile)
	if len(snippets) == 0 {
		return req, false, nil
	}
	return prompts.Augment(req, snippets), true, nil
}

// complete records a result that was not streamed and sends it to the
// client as a single done event. A nil req is rebuilt when the synthesis
// history needs it.
func (o *Orchestrator) complete(ctx context.Context, s *Session, in stage.Input, req *llm.ChatRequest, res StageResult, out *relay.Detachable, started time.Time) StageResult {
	if res.Stage == stage.Synthesis {
		o.rebuildHistory(ctx, s, in, req, res.Text)
	}
	res.Elapsed = time.Since(started)
	s.setResult(res)
	o.emit(out, relay.Event{
		Stage:        res.Stage.Key(),
		Status:       relay.StatusDone,
		FullResponse: res.Text,
		Source:       res.Source,
	})
	o.track(s, res)
	return res
}

// rebuildHistory seeds the chat history with the synthesis prompt, as sent
// to the backend, and its answer.
func (o *Orchestrator) rebuildHistory(ctx context.Context, s *Session, in stage.Input, req *llm.ChatRequest, text string) {
	answer := llm.Message{Role: llm.RoleAssistant, Content: text}
	if req == nil {
		built, _, err := o.request(ctx, s, stage.Synthesis, in)
		if err != nil {
			s.history.Replace([]llm.Message{answer})
			return
		}
		req = &built
	}
	s.history.Replace(append(req.Clone().Messages, answer))
}

// fail records the error placeholder for a stage. A nil out means the
// failure was already reported.
func (o *Orchestrator) fail(s *Session, id stage.ID, sig fingerprint.Signature, err error, out *relay.Detachable, started time.Time) (StageResult, error) {
	o.logger.Warn("stage failed",
		zap.String("session", s.ID),
		zap.String("stage", id.Key()),
		zap.Error(err))

	res := StageResult{
		Stage:     id,
		Text:      "⚠️ " + err.Error(),
		Source:    learning.SourceError,
		Signature: sig,
		Elapsed:   time.Since(started),
	}
	s.setResult(res)
	o.track(s, res)
	if out != nil {
		o.emit(out, relay.Event{Stage: id.Key(), Error: err.Error()})
	}
	return res, &StageError{Stage: id.Key(), Err: err}
}

func (o *Orchestrator) track(s *Session, res StageResult) {
	o.deps.Tracker.Track(learning.StageEvent{
		SessionID:     s.ID,
		Signature:     string(res.Signature),
		Stage:         res.Stage,
		Source:        res.Source,
		Template:      res.Template,
		KnowledgeUsed: res.KnowledgeUsed,
		Elapsed:       res.Elapsed,
	})
}

func (o *Orchestrator) emit(out *relay.Detachable, e relay.Event) {
	if err := out.Emit(e); err != nil {
		o.logger.Warn("client detached", zap.Error(err))
	}
}

func stageInput(s *Session, id stage.ID) (stage.Input, error) {
	switch id {
	case stage.Survey:
		return stage.SurveyInput{Profile: s.Profile}, nil
	case stage.Transcript:
		return stage.TranscriptInput{Profile: s.Profile}, nil
	case stage.Synthesis:
		survey, ok1 := s.Result(stage.Survey)
		grades, ok2 := s.Result(stage.Transcript)
		if !ok1 || !ok2 || survey.Failed() || grades.Failed() {
			return nil, errors.New("earlier stages have no usable result")
		}
		return stage.SynthesisInput{Profile: s.Profile, SurveyText: survey.Text, GradesText: grades.Text}, nil
	}
	return nil, errors.New("unknown stage " + id.Key())
}

func signature(s *Session, id stage.ID) fingerprint.Signature {
	switch id {
	case stage.Survey:
		return fingerprint.Of(s.Profile)
	case stage.Transcript:
		return fingerprint.WithTranscript(s.Profile)
	default:
		survey, _ := s.Result(stage.Survey)
		grades, _ := s.Result(stage.Transcript)
		return fingerprint.WithUpstream(fingerprint.WithTranscript(s.Profile), survey.Text, grades.Text)
	}
}

// Chat answers a follow-up question using the session history.
func (o *Orchestrator) Chat(ctx context.Context, s *Session, message string, emitter relay.Emitter) (string, error) {
	defer s.Touch()
	if strings.TrimSpace(message) == "" {
		out := relay.NewDetachable(emitter)
		o.emit(out, relay.Event{Error: ErrEmptyMessage.Error()})
		return "", ErrEmptyMessage
	}
	cctx, cancel := context.WithTimeout(ctx, o.opts.ChatTimeout)
	defer cancel()
	return o.relay.Chat(cctx, s.history, o.deps.Builder.Model(), message, emitter)
}
