package prompts

import (
	"embed"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed templates/*.yaml
var templateFS embed.FS

const (
	Interviewer = "interviewer"
	Feedback    = "feedback"
)

// loaded prompt template
type PromptTemplate struct {
	BasePrompt string   `yaml:"base_prompt"`
	Rules      []string `yaml:"rules"`
}

type PromptManager struct {
	prompts map[string]string
}

// creates a new prompt manager and loads templates
func NewPromptManager() (*PromptManager, error) {
	pm := &PromptManager{prompts: make(map[string]string)}
	if err := pm.loadPrompts(); err != nil {
		return nil, fmt.Errorf("failed to load prompt templates: %w", err)
	}
	return pm, nil
}

// BuildPrompt fills {{.Key}} placeholders of the named template. Unknown
// placeholders are left untouched so a missing value is visible in logs.
func (pm *PromptManager) BuildPrompt(name string, vars map[string]string) (string, error) {
	tmpl, ok := pm.prompts[name]
	if !ok {
		return "", fmt.Errorf("template not found: %s", name)
	}
	pairs := make([]string, 0, len(vars)*2)
	for k, v := range vars {
		pairs = append(pairs, "{{."+k+"}}", v)
	}
	return strings.NewReplacer(pairs...).Replace(tmpl), nil
}

func (pm *PromptManager) loadPrompts() error {
	entries, err := templateFS.ReadDir("templates")
	if err != nil {
		return fmt.Errorf("failed to read templates directory: %w", err)
	}

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".yaml") {
			continue
		}
		data, err := templateFS.ReadFile("templates/" + entry.Name())
		if err != nil {
			return fmt.Errorf("failed to read template file %s: %w", entry.Name(), err)
		}

		var tmpl PromptTemplate
		if err := yaml.Unmarshal(data, &tmpl); err != nil {
			return fmt.Errorf("failed to parse template file %s: %w", entry.Name(), err)
		}

		var full strings.Builder
		full.WriteString(strings.TrimSpace(tmpl.BasePrompt))
		if len(tmpl.Rules) > 0 {
			full.WriteString("\n\nRules:\n")
			for _, rule := range tmpl.Rules {
				full.WriteString("- ")
				full.WriteString(rule)
				full.WriteString("\n")
			}
		}
		pm.prompts[strings.TrimSuffix(entry.Name(), ".yaml")] = strings.TrimSpace(full.String())
	}
	return nil
}
