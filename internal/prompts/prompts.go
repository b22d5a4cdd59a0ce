/*
Package prompts builds the chat requests sent to the generation backend for
each analysis stage and for follow-up chat.

Prompt texts live in embedded templates; the Builder fills them from the
learner profile and pairs them with the sampling options of the stage.
*/
package prompts

import (
	"embed"
	"fmt"
	"strings"
	"text/template"

	"github.com/khanglvm/study-advisor/internal/llm"
	"github.com/khanglvm/study-advisor/internal/profile"
	"github.com/khanglvm/study-advisor/internal/stage"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

const (
	unknownDepartment = "Chưa rõ thông tin khoa"
	unknownField      = "N/A"
	defaultName       = "Sinh viên"
)

var stageOptions = map[stage.ID]llm.Options{
	stage.Survey:     {Temperature: 0.3, NumCtx: 3072},
	stage.Transcript: {Temperature: 0.1, NumCtx: 3072},
	stage.Synthesis:  {Temperature: 0.5, NumCtx: 4096},
}

// ChatOptions are the sampling options of follow-up chat turns.
var ChatOptions = llm.Options{Temperature: 0.7, NumCtx: 2048}

// StageOptions returns the sampling options used for a stage.
func StageOptions(id stage.ID) llm.Options {
	return stageOptions[id]
}

// Builder turns stage inputs into chat requests for one model.
type Builder struct {
	model     string
	templates *template.Template
}

// NewBuilder parses the embedded prompt templates.
func NewBuilder(model string) (*Builder, error) {
	tmpl, err := template.New("prompts").ParseFS(templateFS, "templates/*.tmpl")
	if err != nil {
		return nil, fmt.Errorf("failed to parse prompt templates: %w", err)
	}
	return &Builder{model: model, templates: tmpl}, nil
}

// Model returns the model name requests are addressed to.
func (b *Builder) Model() string { return b.model }

type skillLine struct {
	Area  string
	Score float64
}

type subjectLine struct {
	Name    string
	GPA     float64
	Grade   string
	Credits string
}

type promptData struct {
	Name       string
	StudentID  string
	Department string
	Year       string
	CurrentGPA string
	Skills     []skillLine
	Subjects   []subjectLine
	SurveyText string
	GradesText string
}

// Build renders the system and user prompts for a stage input.
func (b *Builder) Build(in stage.Input) (llm.ChatRequest, error) {
	p := in.Learner()
	if p == nil {
		return llm.ChatRequest{}, fmt.Errorf("%s: no learner profile", in.Stage())
	}

	var data promptData
	var prefix string
	switch in := in.(type) {
	case stage.SurveyInput:
		prefix = "stage1"
		data = surveyData(p)
	case stage.TranscriptInput:
		prefix = "stage2"
		data = transcriptData(p)
	case stage.SynthesisInput:
		prefix = "stage3"
		data = promptData{
			Name:       orDefault(p.Personal.Name, defaultName),
			Department: orDefault(p.Personal.Department, unknownDepartment),
			SurveyText: in.SurveyText,
			GradesText: in.GradesText,
		}
	default:
		return llm.ChatRequest{}, fmt.Errorf("unsupported stage input %T", in)
	}

	system, err := b.render(prefix+"_system.tmpl", data)
	if err != nil {
		return llm.ChatRequest{}, err
	}
	user, err := b.render(prefix+"_user.tmpl", data)
	if err != nil {
		return llm.ChatRequest{}, err
	}

	return llm.ChatRequest{
		Model: b.model,
		Messages: []llm.Message{
			{Role: llm.RoleSystem, Content: system},
			{Role: llm.RoleUser, Content: user},
		},
		Options: StageOptions(in.Stage()),
	}, nil
}

// Chat wraps a conversation history in a chat request.
func (b *Builder) Chat(history []llm.Message) llm.ChatRequest {
	return llm.ChatRequest{
		Model:    b.model,
		Messages: append([]llm.Message(nil), history...),
		Options:  ChatOptions,
	}
}

func (b *Builder) render(name string, data promptData) (string, error) {
	var sb strings.Builder
	if err := b.templates.ExecuteTemplate(&sb, name, data); err != nil {
		return "", fmt.Errorf("failed to render %s: %w", name, err)
	}
	return strings.TrimSpace(sb.String()), nil
}

func surveyData(p *profile.Profile) promptData {
	data := promptData{
		Name:       orDefault(p.Personal.Name, unknownField),
		StudentID:  orDefault(p.Personal.StudentID, unknownField),
		Department: orDefault(p.Personal.Department, unknownField),
		Year:       orDefault(p.Personal.Year, unknownField),
	}
	for _, area := range p.SkillNames() {
		data.Skills = append(data.Skills, skillLine{Area: area, Score: p.Skills[area]})
	}
	return data
}

func transcriptData(p *profile.Profile) promptData {
	data := promptData{
		Department: orDefault(p.Personal.Department, unknownDepartment),
		CurrentGPA: strings.TrimSpace(p.CurrentGPA),
	}
	for _, s := range p.SpecializedSubjects() {
		data.Subjects = append(data.Subjects, subjectLine{
			Name:    s.Name,
			GPA:     profile.GradeGPA(s.Grade),
			Grade:   s.Grade,
			Credits: orDefault(s.Credits, unknownField),
		})
	}
	return data
}

func orDefault(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}
