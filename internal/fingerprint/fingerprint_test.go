package fingerprint

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/khanglvm/study-advisor/internal/profile"
)

var hexSig = regexp.MustCompile(`^[0-9a-f]{32}$`)

func newProfile(dept string, skills map[string]float64, grades ...string) *profile.Profile {
	p := &profile.Profile{
		Personal: profile.Personal{Department: dept},
		Skills:   skills,
	}
	for i, g := range grades {
		p.Subjects = append(p.Subjects, profile.Subject{Name: string(rune('A' + i)), Grade: g})
	}
	return p
}

func TestSkillBucket(t *testing.T) {
	tests := []struct {
		score float64
		want  int
	}{
		{0, 0}, {19.9, 0}, {20, 1}, {45, 2}, {60, 3}, {79.9, 3},
		{80, 4}, {84.9, 4}, {85, 4}, {100, 4}, {-5, 0},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, SkillBucket(tt.score), "score %v", tt.score)
	}
}

func TestOfSameBucketsSameSignature(t *testing.T) {
	a := newProfile("CNTT", map[string]float64{profile.SkillSelfStudy: 61, profile.SkillTimeManage: 41})
	b := newProfile("CNTT", map[string]float64{profile.SkillSelfStudy: 79, profile.SkillTimeManage: 59})

	sa, sb := Of(a), Of(b)
	assert.Equal(t, sa, sb)
	assert.Regexp(t, hexSig, sa.String())
}

func TestOfDifferentBucketOrDepartment(t *testing.T) {
	base := newProfile("CNTT", map[string]float64{profile.SkillSelfStudy: 61})
	otherBucket := newProfile("CNTT", map[string]float64{profile.SkillSelfStudy: 81})
	otherDept := newProfile("Kinh tế", map[string]float64{profile.SkillSelfStudy: 61})

	assert.NotEqual(t, Of(base), Of(otherBucket))
	assert.NotEqual(t, Of(base), Of(otherDept))
}

func TestOfIsDeterministic(t *testing.T) {
	skills := map[string]float64{}
	for i, area := range profile.SkillAreas {
		skills[area] = float64(i * 10)
	}
	p := newProfile("CNTT", skills)
	first := Of(p)
	for i := 0; i < 20; i++ {
		assert.Equal(t, first, Of(p))
	}
}

func TestSkillPatternMissing(t *testing.T) {
	p := newProfile("CNTT", map[string]float64{profile.SkillAttitude: 90})
	pattern := SkillPattern(p)
	assert.Len(t, pattern, 10)
	assert.Equal(t, 4, pattern[0])
	for _, b := range pattern[1:] {
		assert.Equal(t, MissingSkill, b)
	}
}

func TestGradePattern(t *testing.T) {
	subjects := newProfile("", nil, "A", "A+", "B", "C", "F", "A").Subjects
	// A tier holds 3/6 = 50%, the rest 17% each.
	assert.Equal(t, []int{5}, GradePattern(subjects))

	assert.Equal(t, []int{}, GradePattern(nil))
	assert.Equal(t, []int{1, 2}, GradePattern(newProfile("", nil, "D", "D+", "C", "C+").Subjects))
}

func TestWithTranscript(t *testing.T) {
	skills := map[string]float64{profile.SkillSelfStudy: 70}
	noGrades := newProfile("CNTT", skills)
	withGrades := newProfile("CNTT", skills, "A", "A")

	assert.Equal(t, Of(noGrades), WithTranscript(noGrades))
	assert.NotEqual(t, Of(withGrades), WithTranscript(withGrades))
	assert.Equal(t, WithTranscript(withGrades), WithTranscript(newProfile("CNTT", skills, "A+", "A")))
}

func TestWithUpstream(t *testing.T) {
	sig := Signature("0123456789abcdef0123456789abcdef")
	a := WithUpstream(sig, "survey", "grades")
	assert.Regexp(t, hexSig, a.String())
	assert.Equal(t, a, WithUpstream(sig, "survey", "grades"))
	assert.NotEqual(t, a, WithUpstream(sig, "surveyg", "rades"))
	assert.NotEqual(t, a, WithUpstream(sig, "survey", "grades!"))
}

func TestPrefix(t *testing.T) {
	sig := Signature("0123456789abcdef0123456789abcdef")
	assert.Equal(t, "01234567", sig.Prefix(8))
	assert.Equal(t, string(sig), sig.Prefix(64))
}
