package prompt

import (
	"bytes"
	"embed"
	"fmt"
	"strings"
	"text/template"

	"github.com/ahrav/go-grader/internal/domain"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

var templateFiles = map[domain.ProcessType]string{
	domain.ProcessGenerateRubric:          "templates/rubric.tmpl",
	domain.ProcessGenerateStudentFeedback: "templates/student_feedback.tmpl",
	domain.ProcessGenerateSummaryFeedback: "templates/summary.tmpl",
}

// Renderer turns an Input into prompt text.
type Renderer interface {
	Render(in Input) (string, error)
}

// TemplateRenderer renders inputs with the embedded templates.
type TemplateRenderer struct {
	templates map[domain.ProcessType]*template.Template
}

// NewTemplateRenderer parses the embedded templates.
func NewTemplateRenderer() (*TemplateRenderer, error) {
	r := &TemplateRenderer{templates: make(map[domain.ProcessType]*template.Template, len(templateFiles))}
	funcs := template.FuncMap{
		"inc":   func(i int) int { return i + 1 },
		"trim":  strings.TrimSpace,
		"upper": strings.ToUpper,
	}
	for pt, name := range templateFiles {
		content, err := templateFS.ReadFile(name)
		if err != nil {
			return nil, fmt.Errorf("failed to read template %s: %w", name, err)
		}
		tmpl, err := template.New(name).Funcs(funcs).Option("missingkey=error").Parse(string(content))
		if err != nil {
			return nil, fmt.Errorf("failed to parse template %s: %w", name, err)
		}
		r.templates[pt] = tmpl
	}
	return r, nil
}

// Render implements Renderer.
func (r *TemplateRenderer) Render(in Input) (string, error) {
	tmpl, ok := r.templates[in.ProcessType]
	if !ok {
		return "", fmt.Errorf("%w: no template for %s", ErrUnsupportedProcess, in.ProcessType)
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, in); err != nil {
		return "", fmt.Errorf("failed to render template %s: %w", in.ProcessType, err)
	}
	return strings.TrimSpace(buf.String()), nil
}

// JSONReminder is appended to a prompt when the previous response could not
// be parsed.
const JSONReminder = "\n\nYour previous reply was not valid JSON. Respond with valid JSON only, " +
	"matching the requested structure exactly, with no commentary before or after it."

// MustNewTemplateRenderer is like NewTemplateRenderer but panics on error.
// The templates are embedded, so a failure is a build defect.
func MustNewTemplateRenderer() *TemplateRenderer {
	r, err := NewTemplateRenderer()
	if err != nil {
		panic(err)
	}
	return r
}
