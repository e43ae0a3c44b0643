package advisor

import (
	_ "embed"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"text/template"

	"gopkg.in/yaml.v3"
)

// Template ids.
const (
	TemplateCore          = "sustainability_core_v2"
	TemplateTechnology    = "technology_focused_v1"
	TemplateManufacturing = "manufacturing_focused_v1"
	TemplateRetail        = "retail_focused_v1"
	TemplateHealthcare    = "healthcare_focused_v1"
	TemplateSmallBusiness = "small_business_v1"
	TemplateEnterprise    = "enterprise_v1"
	TemplateCarbonNeutral = "carbon_neutral_v1"
	TemplateCostOptimize  = "cost_optimization_v1"
)

//go:embed prompts.yaml
var promptsYAML []byte

// outputContract is appended to every user prompt so the reply parses.
const outputContract = `
Respond with a JSON object of the form {"recommendations": [...]} where each
recommendation has: title, description, category, estimated_cost_savings
(USD per year), estimated_co2_reduction (tons per year), roi_months,
difficulty (Easy, Medium or Hard), priority_score (0 to 1),
implementation_steps (list of strings) and reasoning.`

// Template is one prompt variant.
type Template struct {
	ID          string   `yaml:"id"`
	Name        string   `yaml:"name"`
	Version     string   `yaml:"version"`
	Industries  []string `yaml:"industries"`
	Temperature float64  `yaml:"temperature"`
	MaxTokens   int      `yaml:"max_tokens"`
	System      string   `yaml:"system"`
	User        string   `yaml:"user"`
	Example     string   `yaml:"example"`

	user *template.Template
}

// Prompt is a rendered template ready to send.
type Prompt struct {
	TemplateID  string
	System      string
	User        string
	Temperature float64
	MaxTokens   int
}

// Library holds the parsed prompt templates.
type Library struct {
	templates map[string]*Template
}

// LoadLibrary parses the embedded templates.
func LoadLibrary() (*Library, error) {
	return ParseLibrary(promptsYAML)
}

// ParseLibrary parses templates from YAML. The core template must be present.
func ParseLibrary(data []byte) (*Library, error) {
	var doc struct {
		Templates []*Template `yaml:"templates"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse prompts: %w", err)
	}
	lib := &Library{templates: make(map[string]*Template, len(doc.Templates))}
	for _, t := range doc.Templates {
		if t.ID == "" {
			return nil, errors.New("prompt template without id")
		}
		tmpl, err := template.New(t.ID).Option("missingkey=error").Parse(t.User)
		if err != nil {
			return nil, fmt.Errorf("prompt %s: %w", t.ID, err)
		}
		t.user = tmpl
		lib.templates[t.ID] = t
	}
	if _, ok := lib.templates[TemplateCore]; !ok {
		return nil, fmt.Errorf("prompt %s missing", TemplateCore)
	}
	return lib, nil
}

// Template returns the template with id, or nil.
func (l *Library) Template(id string) *Template {
	return l.templates[id]
}

// Select picks the template for req. Goals win over industry, industry over
// company size; the core template is the fallback.
func (l *Library) Select(req Request) *Template {
	for _, id := range []string{goalTemplate(req.Goals), industryTemplate(req.Profile.Industry), sizeTemplate(req.Profile.CompanySize)} {
		if t := l.templates[id]; t != nil {
			return t
		}
	}
	return l.templates[TemplateCore]
}

func goalTemplate(goals []string) string {
	text := strings.ToLower(strings.Join(goals, " "))
	switch {
	case strings.Contains(text, "carbon neutral"), strings.Contains(text, "net zero"):
		return TemplateCarbonNeutral
	case strings.Contains(text, "cost"), strings.Contains(text, "savings"), strings.Contains(text, "budget"):
		return TemplateCostOptimize
	}
	return ""
}

func industryTemplate(industry string) string {
	s := strings.ToLower(industry)
	switch {
	case strings.Contains(s, "tech"), strings.Contains(s, "software"):
		return TemplateTechnology
	case strings.Contains(s, "manufacturing"), strings.Contains(s, "industrial"):
		return TemplateManufacturing
	case strings.Contains(s, "retail"), strings.Contains(s, "store"):
		return TemplateRetail
	case strings.Contains(s, "health"), strings.Contains(s, "medical"):
		return TemplateHealthcare
	}
	return ""
}

func sizeTemplate(size string) string {
	s := strings.ToLower(size)
	switch {
	case strings.Contains(s, "1-50"), strings.Contains(s, "small"):
		return TemplateSmallBusiness
	case strings.Contains(s, "1000+"), strings.Contains(s, "enterprise"):
		return TemplateEnterprise
	}
	return ""
}

type promptData struct {
	BusinessName  string
	Industry      string
	CompanySize   string
	Location      string
	MonthlyKWh    string
	MonthlyTherms string
	Goals         string
	Context       []string
}

// Render fills t with req.
func (t *Template) Render(req Request) (Prompt, error) {
	data := promptData{
		BusinessName:  orDefault(req.BusinessName, "the business"),
		Industry:      req.Profile.Industry,
		CompanySize:   req.Profile.CompanySize,
		Location:      req.Profile.Location,
		MonthlyKWh:    strconv.FormatFloat(req.Usage.MonthlyKWh, 'f', -1, 64),
		MonthlyTherms: strconv.FormatFloat(req.Usage.MonthlyTherms, 'f', -1, 64),
		Goals:         orDefault(strings.Join(req.Goals, ", "), "general sustainability improvement"),
	}
	if len(req.Challenges) > 0 {
		data.Context = append(data.Context, "**Current challenges:** "+strings.Join(req.Challenges, ", "))
	}
	if len(req.PreviousInitiatives) > 0 {
		data.Context = append(data.Context, "**Previous initiatives:** "+strings.Join(req.PreviousInitiatives, ", "))
	}
	if req.Budget != "" {
		data.Context = append(data.Context, "**Budget:** "+req.Budget)
	}
	if req.Timeline != "" {
		data.Context = append(data.Context, "**Timeline:** "+req.Timeline)
	}

	var b strings.Builder
	if err := t.user.Execute(&b, data); err != nil {
		return Prompt{}, fmt.Errorf("render %s: %w", t.ID, err)
	}
	b.WriteString(outputContract)
	if t.Example != "" {
		b.WriteString("\n\nExample response:\n")
		b.WriteString(strings.TrimSpace(t.Example))
	}
	return Prompt{
		TemplateID:  t.ID,
		System:      strings.TrimSpace(t.System),
		User:        b.String(),
		Temperature: t.Temperature,
		MaxTokens:   t.MaxTokens,
	}, nil
}

func orDefault(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}
