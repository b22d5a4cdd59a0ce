/*
Package fingerprint derives stable cache signatures from learner profiles.

Scores are bucketed before hashing so that learners with similar survey
results and a similar grade distribution share a signature. The hashed form is
the JSON encoding of a struct whose fields are declared in key order, which
keeps the output independent of map iteration.
*/
package fingerprint

import (
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"math"

	"github.com/khanglvm/study-advisor/internal/profile"
)

// Signature is a 32-character lowercase hex md5 digest.
type Signature string

// String implements fmt.Stringer.
func (s Signature) String() string { return string(s) }

// Prefix returns the first n characters, used to group related signatures.
func (s Signature) Prefix(n int) string {
	if n >= len(s) {
		return string(s)
	}
	return string(s[:n])
}

// MissingSkill marks a survey area with no score.
const MissingSkill = -1

// dominantShare is the percentage a grade tier must exceed to enter the pattern.
const dominantShare = 30

// features is the canonical hashed form. Field order equals sorted key order.
type features struct {
	GradePattern *[]int `json:"grade_pattern,omitempty"`
	Department   string `json:"khoa"`
	SkillPattern []int  `json:"skills_pattern"`
}

// SkillBucket maps a percentage to one of five buckets.
func SkillBucket(score float64) int {
	if score >= 85 {
		return 4
	}
	b := int(math.Floor(score / 20))
	if b < 0 {
		return 0
	}
	if b > 4 {
		return 4
	}
	return b
}

// SkillPattern returns the bucket of every survey area in canonical order.
func SkillPattern(p *profile.Profile) []int {
	pattern := make([]int, len(profile.SkillAreas))
	for i, area := range profile.SkillAreas {
		score, ok := p.SkillScore(area)
		if !ok {
			pattern[i] = MissingSkill
			continue
		}
		pattern[i] = SkillBucket(score)
	}
	return pattern
}

// GradePattern returns the indices of the grade tiers holding more than 30%
// of the subjects, in ascending tier order.
func GradePattern(subjects []profile.Subject) []int {
	var counts [profile.TierCount]int
	total := 0
	for _, s := range subjects {
		if s.Grade == "" {
			continue
		}
		counts[profile.GradeTier(s.Grade)]++
		total++
	}

	pattern := []int{}
	if total == 0 {
		return pattern
	}
	for tier, n := range counts {
		pct := math.Round(float64(n) / float64(total) * 100)
		if pct > dominantShare {
			pattern = append(pattern, tier)
		}
	}
	return pattern
}

// Of computes the survey-only signature used by stage 1.
func Of(p *profile.Profile) Signature {
	return hash(features{
		Department:   p.Department(),
		SkillPattern: SkillPattern(p),
	})
}

// WithTranscript computes the signature used by stage 2. Profiles without a
// transcript fall back to the survey-only form.
func WithTranscript(p *profile.Profile) Signature {
	f := features{
		Department:   p.Department(),
		SkillPattern: SkillPattern(p),
	}
	if p.HasTranscript() {
		grades := GradePattern(p.Subjects)
		f.GradePattern = &grades
	}
	return hash(f)
}

// WithUpstream derives the stage-3 signature from the stage-2 signature and
// the text of both earlier stages.
func WithUpstream(sig Signature, surveyText, gradesText string) Signature {
	upstream := md5Hex(surveyText + "\x00" + gradesText)
	return Signature(md5Hex(string(sig) + ":" + upstream))
}

func hash(f features) Signature {
	data, err := json.Marshal(f)
	if err != nil {
		// features holds only ints and a string
		panic(err)
	}
	return Signature(md5Hex(string(data)))
}

func md5Hex(s string) string {
	sum := md5.Sum([]byte(s))
	return hex.EncodeToString(sum[:])
}
