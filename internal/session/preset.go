package session

import (
	"fmt"
	"sort"
	"strings"

	"github.com/khanglvm/study-advisor/internal/advisor"
	"github.com/khanglvm/study-advisor/internal/llm"
)

// TypeGeneral is the session type when no preset is applied.
const TypeGeneral = "general"

// Preset is a named consultation style.
type Preset struct {
	Name          string      `json:"name"`
	SystemContext string      `json:"system_context"`
	Options       llm.Options `json:"parameters"`
}

var presets = map[string]Preset{
	"education_consultation": {
		Name: "education_consultation",
		SystemContext: "Bạn là hệ thống tư vấn giáo dục chuyên nghiệp cho sinh viên Việt Nam. " +
			"Hãy duy trì ngữ cảnh về học sinh và cung cấp lời khuyên nhất quán qua toàn bộ phiên tư vấn.",
		Options: llm.Options{Temperature: 0.3, TopP: 0.9, TopK: 40},
	},
	"skills_analysis": {
		Name: "skills_analysis",
		SystemContext: "Bạn là chuyên gia phân tích kỹ năng học tập với 15+ năm kinh nghiệm. " +
			"Tập trung vào việc đánh giá chính xác và đưa ra roadmap cải thiện cụ thể.",
		Options: llm.Options{Temperature: 0.1, TopP: 0.8, TopK: 30},
	},
	"career_guidance": {
		Name: "career_guidance",
		SystemContext: "Bạn là cố vấn nghề nghiệp chuyên về thị trường lao động Việt Nam. " +
			"Hãy đưa ra lời khuyên dựa trên xu hướng ngành và cơ hội thực tế.",
		Options: llm.Options{Temperature: 0.4, TopP: 0.9, TopK: 50},
	},
}

// PresetNames returns the preset names sorted.
func PresetNames() []string {
	names := make([]string, 0, len(presets))
	for name := range presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// LookupPreset returns the named preset.
func LookupPreset(name string) (Preset, error) {
	p, ok := presets[name]
	if !ok {
		return Preset{}, fmt.Errorf("unknown preset %q (available: %s)", name, strings.Join(PresetNames(), ", "))
	}
	return p, nil
}

// Apply adds the preset's system context to the session's chat history.
func (p Preset) Apply(s *advisor.Session) {
	s.History().Append(llm.Message{Role: llm.RoleSystem, Content: p.SystemContext})
}
