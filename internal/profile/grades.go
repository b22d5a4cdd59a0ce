package profile

import "strings"

// gradeTiers collapses letter grades into the six ordinal tiers used by
// fingerprints: 0=F, 1=D, 2=C, 3=B, 4=B+, 5=A.
var gradeTiers = map[string]int{
	"A+": 5, "A": 5,
	"B+": 4,
	"B":  3,
	"C+": 2, "C": 2,
	"D+": 1, "D": 1,
	"F":  0,
}

// gradeValues maps letter grades to a 0-100 scale for averaging.
var gradeValues = map[string]float64{
	"A+": 95, "A": 90, "B+": 85, "B": 80, "C+": 75,
	"C": 70, "D+": 65, "D": 60, "F": 0,
}

// gradeGPA maps letter grades to the 4-point scale.
var gradeGPA = map[string]float64{
	"A+": 4.0, "A": 3.7, "B+": 3.5, "B": 3.0, "C+": 2.5,
	"C": 2.0, "D+": 1.5, "D": 1.0, "F": 0.0,
}

// TierCount is the number of grade tiers.
const TierCount = 6

// NormalizeGrade upper-cases and trims a letter grade.
func NormalizeGrade(grade string) string {
	return strings.ToUpper(strings.TrimSpace(grade))
}

// GradeTier returns the ordinal tier of a letter grade; unknown grades fall to 0.
func GradeTier(grade string) int {
	return gradeTiers[NormalizeGrade(grade)]
}

// GradeValue returns the 0-100 value of a letter grade and whether it is known.
func GradeValue(grade string) (float64, bool) {
	v, ok := gradeValues[NormalizeGrade(grade)]
	return v, ok
}

// GradeGPA converts a letter grade to the 4-point scale; unknown grades are 0.
func GradeGPA(grade string) float64 {
	return gradeGPA[NormalizeGrade(grade)]
}

// IsBelowC reports whether a grade is D+, D or F.
func IsBelowC(grade string) bool {
	switch NormalizeGrade(grade) {
	case "D+", "D", "F":
		return true
	}
	return false
}

// NeedsImprovement reports whether a grade is C or lower.
func NeedsImprovement(grade string) bool {
	switch NormalizeGrade(grade) {
	case "C", "D+", "D", "F":
		return true
	}
	return false
}

var generalEducationKeywords = []string{
	"thể chất", "quốc phòng", "an ninh", "chính trị", "mác - lênin",
	"tư tưởng hồ chí minh", "chủ nghĩa xã hội", "pháp luật đại cương",
	"tiếng anh", "hóa học đại cương", "vật lý đại cương", "đường lối",
	"quân sự", "kinh tế chính trị", "lịch sử đảng", "nhập môn ngành",
	"kỹ thuật bắn súng",
}

// IsGeneralEducation reports whether a subject belongs to the shared
// general-education block rather than the learner's major.
func IsGeneralEducation(name string) bool {
	lower := strings.ToLower(name)
	for _, kw := range generalEducationKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}
