/*
Package advisor runs the three-stage analysis for one learner.

A Session holds everything one analysis produces: the stage results, the
follow-up chat history, and the current state. The Orchestrator drives a
session through SETUP, the three stages, and DONE, answering each stage from
the cache, from a matched template, or by streaming a generation, and halts
in ERROR on the first stage that fails.
*/
package advisor

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/khanglvm/study-advisor/internal/fingerprint"
	"github.com/khanglvm/study-advisor/internal/learning"
	"github.com/khanglvm/study-advisor/internal/llm"
	"github.com/khanglvm/study-advisor/internal/profile"
	"github.com/khanglvm/study-advisor/internal/relay"
	"github.com/khanglvm/study-advisor/internal/stage"
	"github.com/khanglvm/study-advisor/internal/templates"
)

// State is the position of a session in the analysis.
type State int

const (
	StateSetup State = iota
	StateStage1
	StateStage2
	StateStage3
	StateDone
	StateError
)

var stateNames = map[State]string{
	StateSetup:  "SETUP",
	StateStage1: "STAGE1",
	StateStage2: "STAGE2",
	StateStage3: "STAGE3",
	StateDone:   "DONE",
	StateError:  "ERROR",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// ParseState resolves a state name.
func ParseState(name string) (State, error) {
	for state, n := range stateNames {
		if n == name {
			return state, nil
		}
	}
	return 0, fmt.Errorf("unknown session state %q", name)
}

func stateOf(id stage.ID) State {
	return StateStage1 + State(id-stage.Survey)
}

// StageResult is the outcome of one stage.
type StageResult struct {
	Stage         stage.ID              `json:"stage"`
	Key           string                `json:"key"`
	Text          string                `json:"text"`
	Source        string                `json:"source"`
	Confidence    float64               `json:"confidence"`
	Template      string                `json:"template,omitempty"`
	Signature     fingerprint.Signature `json:"signature"`
	KnowledgeUsed bool                  `json:"knowledge_used,omitempty"`
	Gap           *templates.RenderGap  `json:"gap,omitempty"`
	Elapsed       time.Duration         `json:"elapsed"`
}

// Failed reports whether the stage ended in an error placeholder.
func (r StageResult) Failed() bool {
	return r.Source == learning.SourceError
}

// Session is one learner's analysis.
type Session struct {
	ID        string
	Profile   *profile.Profile
	CreatedAt time.Time

	mu         sync.Mutex
	state      State
	results    map[stage.ID]StageResult
	history    *relay.History
	lastActive time.Time
}

// NewSession creates a session in SETUP with a fresh id.
func NewSession(p *profile.Profile, maxHistory int) *Session {
	now := time.Now()
	return &Session{
		ID:         uuid.New().String(),
		Profile:    p,
		CreatedAt:  now,
		results:    make(map[stage.ID]StageResult),
		history:    relay.NewHistory(maxHistory),
		lastActive: now,
	}
}

// Touch marks the session as used now.
func (s *Session) Touch() {
	s.mu.Lock()
	s.lastActive = time.Now()
	s.mu.Unlock()
}

// LastActive returns when the session was last used.
func (s *Session) LastActive() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastActive
}

// Running reports whether a stage is in progress.
func (s *Session) Running() bool {
	switch s.State() {
	case StateStage1, StateStage2, StateStage3:
		return true
	}
	return false
}

// State returns the current state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) setState(state State) {
	s.mu.Lock()
	s.state = state
	s.mu.Unlock()
}

// Result returns the result of a stage.
func (s *Session) Result(id stage.ID) (StageResult, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.results[id]
	return r, ok
}

// Results returns the stage results in stage order.
func (s *Session) Results() []StageResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]StageResult, 0, len(s.results))
	for _, r := range s.results {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Stage < out[j].Stage })
	return out
}

func (s *Session) setResult(r StageResult) {
	r.Key = r.Stage.Key()
	s.mu.Lock()
	s.results[r.Stage] = r
	s.mu.Unlock()
}

// History returns the follow-up chat history.
func (s *Session) History() *relay.History {
	return s.history
}

// Snapshot is the serializable form of a session.
type Snapshot struct {
	ID        string           `json:"id"`
	CreatedAt time.Time        `json:"created_at"`
	State     string           `json:"state"`
	Profile   *profile.Profile `json:"profile"`
	Results   []StageResult    `json:"results"`
	History   []llm.Message    `json:"history"`
}

// Snapshot captures the session for persistence.
func (s *Session) Snapshot() Snapshot {
	return Snapshot{
		ID:        s.ID,
		CreatedAt: s.CreatedAt,
		State:     s.State().String(),
		Profile:   s.Profile,
		Results:   s.Results(),
		History:   s.history.Messages(),
	}
}

// Restore rebuilds a session from a snapshot.
func Restore(snap Snapshot, maxHistory int) (*Session, error) {
	state, err := ParseState(snap.State)
	if err != nil {
		return nil, err
	}
	s := &Session{
		ID:        snap.ID,
		Profile:   snap.Profile,
		CreatedAt:  snap.CreatedAt,
		state:      state,
		results:    make(map[stage.ID]StageResult, len(snap.Results)),
		history:    relay.NewHistory(maxHistory),
		lastActive: time.Now(),
	}
	if s.ID == "" {
		s.ID = uuid.New().String()
	}
	for _, r := range snap.Results {
		if !r.Stage.Valid() {
			return nil, fmt.Errorf("invalid stage %d in snapshot", int(r.Stage))
		}
		s.results[r.Stage] = r
	}
	s.history.Replace(snap.History)
	return s, nil
}
