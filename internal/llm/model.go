package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Parameter is one PARAMETER line of a Modelfile.
type Parameter struct {
	Key   string
	Value string
}

// ModelSpec describes a custom advising model.
type ModelSpec struct {
	Base        string
	Description string
	System      string
	Parameters  []Parameter
}

// DefaultBaseModel is the base of the built-in model presets.
const DefaultBaseModel = "gemma3:latest"

var defaultParameters = []Parameter{
	{"temperature", "0.3"},
	{"top_p", "0.9"},
	{"top_k", "40"},
	{"repeat_penalty", "1.1"},
}

// ModelPresets are the built-in custom model definitions.
var ModelPresets = map[string]ModelSpec{
	"education_consultant": {
		Base:        DefaultBaseModel,
		Description: "Vietnamese education consultant",
		System: "Bạn là chuyên gia tư vấn giáo dục với 15+ năm kinh nghiệm tại Việt Nam. " +
			"Hãy cung cấp lời khuyên chuyên nghiệp, thực tế và phù hợp với bối cảnh giáo dục Việt Nam. " +
			"Luôn sử dụng tiếng Việt và tham khảo các chuẩn giáo dục trong nước.",
		Parameters: []Parameter{
			{"temperature", "0.3"}, {"top_p", "0.9"}, {"top_k", "40"},
			{"repeat_penalty", "1.1"}, {"num_ctx", "4096"},
		},
	},
	"skills_analyzer": {
		Base:        DefaultBaseModel,
		Description: "Learning skills analysis and improvement",
		System: "Bạn là chuyên gia phân tích kỹ năng học tập. " +
			"Hãy đưa ra phân tích chính xác và kế hoạch cải thiện cụ thể.",
		Parameters: []Parameter{
			{"temperature", "0.1"}, {"top_p", "0.8"}, {"top_k", "30"},
			{"repeat_penalty", "1.15"}, {"num_ctx", "3072"},
		},
	},
	"career_advisor": {
		Base:        DefaultBaseModel,
		Description: "Career guidance for Vietnamese students",
		System: "Bạn là cố vấn nghề nghiệp chuyên về thị trường lao động Việt Nam. " +
			"Hãy đưa ra lời khuyên nghề nghiệp thực tế và roadmap phát triển cụ thể.",
		Parameters: []Parameter{
			{"temperature", "0.4"}, {"top_p", "0.9"}, {"top_k", "50"},
			{"repeat_penalty", "1.1"}, {"num_ctx", "6144"},
		},
	},
}

// PresetNames returns the preset names sorted.
func PresetNames() []string {
	names := make([]string, 0, len(ModelPresets))
	for name := range ModelPresets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// BuildModelfile renders spec as a Modelfile. Default parameters are added
// for any key the ModelSpec does not set.
func BuildModelfile(spec ModelSpec) string {
	base := spec.Base
	if base == "" {
		base = DefaultBaseModel
	}

	var b strings.Builder
	fmt.Fprintf(&b, "FROM %s\n", base)
	if spec.System != "" {
		fmt.Fprintf(&b, "SYSTEM \"\"\"%s\"\"\"\n", spec.System)
	}

	set := make(map[string]bool, len(spec.Parameters))
	for _, p := range spec.Parameters {
		fmt.Fprintf(&b, "PARAMETER %s %s\n", p.Key, p.Value)
		set[p.Key] = true
	}
	for _, p := range defaultParameters {
		if !set[p.Key] {
			fmt.Fprintf(&b, "PARAMETER %s %s\n", p.Key, p.Value)
		}
	}
	return b.String()
}

// WriteModelfile saves a Modelfile as <dir>/<name>.Modelfile.
func WriteModelfile(dir, name, modelfile string) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create models directory: %w", err)
	}
	path := filepath.Join(dir, name+".Modelfile")
	if err := os.WriteFile(path, []byte(modelfile), 0644); err != nil {
		return "", fmt.Errorf("failed to write modelfile: %w", err)
	}
	return path, nil
}

type createRequest struct {
	Name      string `json:"name"`
	Modelfile string `json:"modelfile"`
	Stream    bool   `json:"stream"`
}

// CreateModel registers a model built from modelfile on the backend.
func (c *Client) CreateModel(ctx context.Context, name, modelfile string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("model name is required")
	}
	body, err := json.Marshal(createRequest{Name: name, Modelfile: modelfile})
	if err != nil {
		return fmt.Errorf("failed to marshal create request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/create", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &TransportError{Op: "create", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return &TransportError{Op: "create", StatusCode: resp.StatusCode, Err: readErrorDetail(resp.Body)}
	}
	return nil
}
