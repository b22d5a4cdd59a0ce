/*
Package stage defines the three analysis stages and their typed inputs.

Every stage is identified by an ID from a closed set. Stage-specific payloads
implement the sealed Input interface so prompt builders and the orchestrator
dispatch on concrete types instead of string keys.
*/
package stage

import (
	"fmt"

	"github.com/khanglvm/study-advisor/internal/profile"
)

// ID identifies one of the three analysis stages.
type ID int

const (
	// Survey analyses the learning-skill survey.
	Survey ID = 1
	// Transcript analyses specialised subject grades.
	Transcript ID = 2
	// Synthesis combines both reports into recommendations.
	Synthesis ID = 3
)

// All lists the stages in execution order.
var All = []ID{Survey, Transcript, Synthesis}

// Key returns the wire key used in stream events.
func (id ID) Key() string {
	switch id {
	case Survey:
		return "stage1_khaosat"
	case Transcript:
		return "stage2_diem"
	case Synthesis:
		return "stage3_tonghop"
	default:
		return fmt.Sprintf("stage%d", int(id))
	}
}

// Number returns the 1-based stage number.
func (id ID) Number() int {
	return int(id)
}

// Valid reports whether id is one of the three known stages.
func (id ID) Valid() bool {
	return id >= Survey && id <= Synthesis
}

// String implements fmt.Stringer.
func (id ID) String() string {
	return id.Key()
}

// ErrorStatus returns the halt status emitted when this stage fails.
func (id ID) ErrorStatus() string {
	return fmt.Sprintf("error_stage%d", int(id))
}

// Next returns the stage after id and false when id is the last stage.
func (id ID) Next() (ID, bool) {
	if id >= Synthesis {
		return 0, false
	}
	return id + 1, true
}

// Parse resolves a stage number or wire key.
func Parse(s string) (ID, error) {
	for _, id := range All {
		if s == id.Key() || s == fmt.Sprint(int(id)) || s == fmt.Sprintf("stage%d", int(id)) {
			return id, nil
		}
	}
	return 0, fmt.Errorf("unknown stage: %q", s)
}

// Input is the payload a stage prompt is built from.
type Input interface {
	Stage() ID
	Learner() *profile.Profile
	sealed()
}

// SurveyInput feeds stage 1.
type SurveyInput struct {
	Profile *profile.Profile
}

// TranscriptInput feeds stage 2.
type TranscriptInput struct {
	Profile *profile.Profile
}

// SynthesisInput feeds stage 3 with the text of the two earlier stages.
type SynthesisInput struct {
	Profile    *profile.Profile
	SurveyText string
	GradesText string
}

func (SurveyInput) Stage() ID     { return Survey }
func (TranscriptInput) Stage() ID { return Transcript }
func (SynthesisInput) Stage() ID  { return Synthesis }

func (in SurveyInput) Learner() *profile.Profile     { return in.Profile }
func (in TranscriptInput) Learner() *profile.Profile { return in.Profile }
func (in SynthesisInput) Learner() *profile.Profile  { return in.Profile }

func (SurveyInput) sealed()     {}
func (TranscriptInput) sealed() {}
func (SynthesisInput) sealed()  {}
