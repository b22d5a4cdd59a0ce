package profile

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// ErrEmptySurvey is returned when a survey export holds no record.
var ErrEmptySurvey = errors.New("survey export is empty")

// SurveyRecord is one row of the survey export.
type SurveyRecord struct {
	Personal Personal
	Skills   map[string]float64
}

type skillSection struct {
	Questions  int         `json:"tong_so_cau_hoi"`
	Percentage json.Number `json:"phan_tram_diem"`
}

// ParseSurvey decodes a survey export. The export is either a JSON array whose
// first element is used, or a single object.
func ParseSurvey(data []byte) (*SurveyRecord, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, ErrEmptySurvey
	}

	var raw map[string]json.RawMessage
	if data[0] == '[' {
		var list []map[string]json.RawMessage
		if err := json.Unmarshal(data, &list); err != nil {
			return nil, fmt.Errorf("failed to parse survey: %w", err)
		}
		if len(list) == 0 {
			return nil, ErrEmptySurvey
		}
		raw = list[0]
	} else if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse survey: %w", err)
	}

	rec := &SurveyRecord{Skills: make(map[string]float64)}
	if personal, ok := raw["thong_tin_ca_nhan"]; ok {
		var p struct {
			Personal
			FullName string `json:"ho_va_ten"`
		}
		if err := json.Unmarshal(personal, &p); err != nil {
			return nil, fmt.Errorf("failed to parse personal info: %w", err)
		}
		rec.Personal = p.Personal
		if rec.Personal.Name == "" {
			rec.Personal.Name = p.FullName
		}
	}

	for _, area := range SkillAreas {
		section, ok := raw[area]
		if !ok {
			continue
		}
		var s skillSection
		if err := json.Unmarshal(section, &s); err != nil {
			// Flat numeric form: {"Tu_hoc": 72}
			var n float64
			if err := json.Unmarshal(section, &n); err != nil {
				continue
			}
			rec.Skills[area] = n
			continue
		}
		if s.Percentage == "" {
			continue
		}
		if v, err := s.Percentage.Float64(); err == nil {
			rec.Skills[area] = v
		}
	}

	return rec, nil
}

// Transcript is the parsed grade export.
type Transcript struct {
	Subjects   []Subject
	CurrentGPA string
}

type transcriptExport struct {
	Data struct {
		Semesters []struct {
			Name     string            `json:"ten_hoc_ky"`
			GPA      string            `json:"dtb_tich_luy_he_4"`
			Subjects []json.RawMessage `json:"ds_diem_mon_hoc"`
		} `json:"ds_diem_hocky"`
	} `json:"data"`
}

type rawSubject struct {
	Name    string          `json:"ten_mon"`
	Score   json.RawMessage `json:"diem_tk_so"`
	Grade   string          `json:"diem_tk_chu"`
	Credits json.RawMessage `json:"so_tin_chi"`
}

// ParseTranscript decodes the semester-grouped grade export, flattening all
// semesters into one subject list in export order.
func ParseTranscript(data []byte) (*Transcript, error) {
	var export transcriptExport
	if err := json.Unmarshal(data, &export); err != nil {
		return nil, fmt.Errorf("failed to parse transcript: %w", err)
	}

	t := &Transcript{}
	for i, sem := range export.Data.Semesters {
		if i == 0 {
			t.CurrentGPA = strings.TrimSpace(strings.TrimSuffix(sem.GPA, "-Điểm"))
		}
		for _, item := range sem.Subjects {
			var rs rawSubject
			if err := json.Unmarshal(item, &rs); err != nil {
				continue
			}
			t.Subjects = append(t.Subjects, Subject{
				Name:    rs.Name,
				Score:   parseLooseFloat(rs.Score),
				Grade:   NormalizeGrade(rs.Grade),
				Credits: looseString(rs.Credits),
			})
		}
	}
	return t, nil
}

// Load builds a Profile from survey and transcript export files.
func Load(surveyPath, transcriptPath string) (*Profile, error) {
	surveyData, err := os.ReadFile(surveyPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read survey: %w", err)
	}
	survey, err := ParseSurvey(surveyData)
	if err != nil {
		return nil, err
	}

	var transcript *Transcript
	if transcriptPath != "" {
		transcriptData, err := os.ReadFile(transcriptPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read transcript: %w", err)
		}
		transcript, err = ParseTranscript(transcriptData)
		if err != nil {
			return nil, err
		}
	}

	return New(survey, transcript), nil
}

// New combines parsed exports into a Profile. Either argument may be nil.
func New(survey *SurveyRecord, transcript *Transcript) *Profile {
	p := &Profile{Skills: make(map[string]float64)}
	if survey != nil {
		p.Personal = survey.Personal
		for k, v := range survey.Skills {
			p.Skills[k] = v
		}
	}
	if transcript != nil {
		p.Subjects = append([]Subject(nil), transcript.Subjects...)
		p.CurrentGPA = transcript.CurrentGPA
	}
	return p
}

// parseLooseFloat accepts numbers and strings such as "7,6".
func parseLooseFloat(raw json.RawMessage) float64 {
	if len(raw) == 0 {
		return 0
	}
	var n float64
	if err := json.Unmarshal(raw, &n); err == nil {
		return n
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return 0
	}
	v, err := strconv.ParseFloat(strings.ReplaceAll(strings.TrimSpace(s), ",", "."), 64)
	if err != nil {
		return 0
	}
	return v
}

func looseString(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return strings.TrimSpace(string(raw))
}
