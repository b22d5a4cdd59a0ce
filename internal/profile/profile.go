/*
Package profile holds the learner snapshot an analysis runs against.

A Profile combines personal information, the ten survey skill areas scored as
percentages, and the ordered subject list of the academic transcript. Profiles
are built once per request and treated as read-only afterwards.
*/
package profile

import (
	"sort"
	"strings"
)

// Survey skill areas in canonical order.
const (
	SkillAttitude      = "Thai_do_hoc_tap"
	SkillSocialMedia   = "Su_dung_mang_xa_hoi"
	SkillFamily        = "Gia_dinh_Xa_hoi"
	SkillFriends       = "Ban_be"
	SkillEnvironment   = "Moi_truong_hoc_tap"
	SkillTimeManage    = "Quan_ly_thoi_gian"
	SkillSelfStudy     = "Tu_hoc"
	SkillTeamwork      = "Hop_tac_nhom"
	SkillCriticalThink = "Tu_duy_phan_bien"
	SkillAbsorption    = "Tiep_thu_xu_ly_kien_thuc"
)

// SkillAreas lists the survey areas in the order they are fingerprinted.
var SkillAreas = []string{
	SkillAttitude,
	SkillSocialMedia,
	SkillFamily,
	SkillFriends,
	SkillEnvironment,
	SkillTimeManage,
	SkillSelfStudy,
	SkillTeamwork,
	SkillCriticalThink,
	SkillAbsorption,
}

// Personal is the identifying part of a survey record.
type Personal struct {
	StudentID  string `json:"ma_so_sinh_vien,omitempty"`
	Name       string `json:"ho_ten,omitempty"`
	Gender     string `json:"gioi_tinh,omitempty"`
	Department string `json:"khoa,omitempty"`
	Year       string `json:"nam_hoc,omitempty"`
}

// Subject is one graded course from the transcript.
type Subject struct {
	Name    string  `json:"ten_mon"`
	Score   float64 `json:"diem_tk_so"`
	Grade   string  `json:"diem_tk_chu"`
	Credits string  `json:"so_tin_chi,omitempty"`
}

// Profile is the learner snapshot consumed by every stage.
type Profile struct {
	Personal Personal `json:"thong_tin_ca_nhan"`

	// Skills maps a survey area to its percentage score.
	Skills map[string]float64 `json:"skills"`

	// Subjects is the transcript, most recent semester first.
	Subjects []Subject `json:"subjects"`

	// CurrentGPA is the latest cumulative 4-point GPA as printed on the transcript.
	CurrentGPA string `json:"current_gpa,omitempty"`
}

// Department returns the learner's faculty or "unknown".
func (p *Profile) Department() string {
	if p == nil || strings.TrimSpace(p.Personal.Department) == "" {
		return "unknown"
	}
	return p.Personal.Department
}

// SkillScore returns the percentage for a survey area.
func (p *Profile) SkillScore(area string) (float64, bool) {
	if p == nil || p.Skills == nil {
		return 0, false
	}
	score, ok := p.Skills[area]
	return score, ok
}

// HasSurvey reports whether at least one skill score is present.
func (p *Profile) HasSurvey() bool {
	return p != nil && len(p.Skills) > 0
}

// HasTranscript reports whether the transcript lists any subject.
func (p *Profile) HasTranscript() bool {
	return p != nil && len(p.Subjects) > 0
}

// SkillNames returns the scored areas, canonical areas first, extras sorted.
func (p *Profile) SkillNames() []string {
	if p == nil {
		return nil
	}
	names := make([]string, 0, len(p.Skills))
	seen := make(map[string]bool, len(p.Skills))
	for _, area := range SkillAreas {
		if _, ok := p.Skills[area]; ok {
			names = append(names, area)
			seen[area] = true
		}
	}
	var extra []string
	for name := range p.Skills {
		if !seen[name] {
			extra = append(extra, name)
		}
	}
	sort.Strings(extra)
	return append(names, extra...)
}

// SpecializedSubjects returns the subjects that are not general education.
func (p *Profile) SpecializedSubjects() []Subject {
	if p == nil {
		return nil
	}
	out := make([]Subject, 0, len(p.Subjects))
	for _, s := range p.Subjects {
		if !IsGeneralEducation(s.Name) {
			out = append(out, s)
		}
	}
	return out
}

// DisplaySkill turns an area key into a readable label.
func DisplaySkill(area string) string {
	return strings.ReplaceAll(area, "_", " ")
}
