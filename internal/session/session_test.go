package session

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/khanglvm/study-advisor/internal/advisor"
	"github.com/khanglvm/study-advisor/internal/learning"
	"github.com/khanglvm/study-advisor/internal/llm"
	"github.com/khanglvm/study-advisor/internal/profile"
	"github.com/khanglvm/study-advisor/internal/stage"
)

func newManager(t *testing.T) *Manager {
	t.Helper()
	m, err := NewManager(filepath.Join(t.TempDir(), "sessions"), nil)
	require.NoError(t, err)
	return m
}

func finishedSession(t *testing.T) *advisor.Session {
	t.Helper()
	snap := advisor.Snapshot{
		ID:        "s-1",
		CreatedAt: time.Date(2026, 10, 1, 9, 0, 0, 0, time.UTC),
		State:     "DONE",
		Profile: &profile.Profile{
			Personal: profile.Personal{Name: "Nguyễn Văn A", Department: "Công nghệ thông tin"},
			Skills:   map[string]float64{profile.SkillAttitude: 72},
		},
		Results: []advisor.StageResult{
			{Stage: stage.Survey, Key: stage.Survey.Key(), Text: "survey report", Source: learning.SourceGenerated},
			{Stage: stage.Transcript, Key: stage.Transcript.Key(), Text: "grades report", Source: learning.SourceCache},
			{Stage: stage.Synthesis, Key: stage.Synthesis.Key(), Text: "synthesis report", Source: learning.SourceGenerated},
		},
		History: []llm.Message{
			{Role: llm.RoleSystem, Content: "stage 3 system"},
			{Role: llm.RoleUser, Content: "stage 3 prompt"},
			{Role: llm.RoleAssistant, Content: "synthesis report"},
			{Role: llm.RoleUser, Content: "Tôi nên học gì trước?"},
			{Role: llm.RoleAssistant, Content: "Bắt đầu với cấu trúc dữ liệu."},
		},
	}
	s, err := advisor.Restore(snap, 10)
	require.NoError(t, err)
	return s
}

func TestSaveLoadRoundTrip(t *testing.T) {
	m := newManager(t)
	s := finishedSession(t)

	path, err := m.Save(Record{Name: "an-k20", Model: "gemma3:12b", Advisor: s.Snapshot()})
	require.NoError(t, err)
	assert.FileExists(t, path)

	rec, err := m.Load("an-k20")
	require.NoError(t, err)
	assert.Equal(t, TypeGeneral, rec.Type)
	assert.Equal(t, "gemma3:12b", rec.Model)
	assert.False(t, rec.SavedAt.IsZero())
	require.Len(t, rec.Advisor.Results, 3)
	assert.Equal(t, "grades report", rec.Advisor.Results[1].Text)
	assert.Len(t, rec.Advisor.History, 5)
}

func TestListNewestFirst(t *testing.T) {
	m := newManager(t)
	base := time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC)

	for i, name := range []string{"old", "newest", "middle"} {
		offsets := []time.Duration{0, 2 * time.Hour, time.Hour}
		_, err := m.Save(Record{Name: name, SavedAt: base.Add(offsets[i])})
		require.NoError(t, err)
	}
	_, err := m.Export(Record{Name: "newest", SavedAt: base}, FormatJSON)
	require.NoError(t, err)

	infos, err := m.List()
	require.NoError(t, err)

	var names []string
	for _, info := range infos {
		names = append(names, info.Name)
	}
	assert.Equal(t, []string{"newest", "middle", "old"}, names)
}

func TestListSkipsCorruptFiles(t *testing.T) {
	m := newManager(t)
	_, err := m.Save(Record{Name: "good"})
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(m.Dir(), "bad.json"), []byte("{"), 0644))

	infos, err := m.List()
	require.NoError(t, err)
	require.Len(t, infos, 1)
	assert.Equal(t, "good", infos[0].Name)
}

func TestDelete(t *testing.T) {
	m := newManager(t)
	_, err := m.Save(Record{Name: "gone"})
	require.NoError(t, err)

	require.NoError(t, m.Delete("gone"))

	_, err = m.Load("gone")
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.True(t, errors.Is(m.Delete("gone"), ErrNotFound))
}

func TestInvalidNames(t *testing.T) {
	m := newManager(t)
	for _, name := range []string{"", "../escape", ".hidden", "a/b"} {
		_, err := m.Save(Record{Name: name})
		assert.Error(t, err, name)
	}
}

func TestMarkdownExport(t *testing.T) {
	m := newManager(t)
	s := finishedSession(t)

	path, err := m.Export(Record{Name: "an-k20", Model: "gemma3:12b", Type: "career_guidance", Advisor: s.Snapshot()}, FormatMarkdown)
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(path, "an-k20_export.md"))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	md := string(data)

	assert.Contains(t, md, "# Session: an-k20")
	assert.Contains(t, md, "**Type:** career_guidance")
	assert.Contains(t, md, "**Department:** Công nghệ thông tin")
	assert.Contains(t, md, "### Stage 2 (cache)")
	assert.Contains(t, md, "**User:** Tôi nên học gì trước?")
	assert.Contains(t, md, "**Assistant:** Bắt đầu với cấu trúc dữ liệu.")
	assert.NotContains(t, md, "stage 3 prompt")
	assert.Equal(t, 1, strings.Count(md, "synthesis report"))
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat("MD")
	require.NoError(t, err)
	assert.Equal(t, FormatMarkdown, f)

	f, err = ParseFormat("")
	require.NoError(t, err)
	assert.Equal(t, FormatJSON, f)

	_, err = ParseFormat("pdf")
	assert.Error(t, err)
}

func TestLookupPreset(t *testing.T) {
	assert.Equal(t, []string{"career_guidance", "education_consultation", "skills_analysis"}, PresetNames())

	p, err := LookupPreset("skills_analysis")
	require.NoError(t, err)
	assert.Equal(t, 0.1, p.Options.Temperature)
	assert.Equal(t, 30, p.Options.TopK)

	_, err = LookupPreset("astrology")
	assert.ErrorContains(t, err, "available")
}

func TestCommandsSaveListLoad(t *testing.T) {
	m := newManager(t)
	cmds := NewCommands(m, finishedSession(t), "gemma3:12b", 10)

	res, err := cmds.Execute("/template career_guidance")
	require.NoError(t, err)
	assert.Equal(t, "Template career_guidance loaded", res.Message)
	msgs := cmds.Session().History().Messages()
	assert.Equal(t, llm.RoleSystem, msgs[len(msgs)-1].Role)

	res, err = cmds.Execute("/save consult1")
	require.NoError(t, err)
	assert.FileExists(t, res.Path)

	res, err = cmds.Execute("/list")
	require.NoError(t, err)
	require.Len(t, res.Sessions, 1)
	assert.Equal(t, "career_guidance", res.Sessions[0].Type)

	res, err = cmds.Execute("/clear")
	require.NoError(t, err)
	assert.Equal(t, 0, cmds.Session().History().Len())

	_, err = cmds.Execute("/load consult1")
	require.NoError(t, err)
	assert.Equal(t, 6, cmds.Session().History().Len())
	assert.Equal(t, "career_guidance", cmds.Record("x").Type)
}

func TestCommandsExportCurrent(t *testing.T) {
	m := newManager(t)
	cmds := NewCommands(m, finishedSession(t), "gemma3:12b", 10)

	res, err := cmds.Execute("/export current markdown")
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(res.Path, "current_export.md"))

	_, err = cmds.Execute("/export missing")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestCommandsErrors(t *testing.T) {
	cmds := NewCommands(newManager(t), finishedSession(t), "gemma3:12b", 10)

	_, err := cmds.Execute("/save")
	assert.ErrorContains(t, err, "missing parameters")

	_, err = cmds.Execute("/finetune x y")
	assert.ErrorContains(t, err, "unknown command")

	_, err = cmds.Execute("hello")
	assert.Error(t, err)

	assert.True(t, IsCommand("  /list"))
	assert.False(t, IsCommand("what next?"))
}
