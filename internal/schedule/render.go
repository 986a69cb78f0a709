package schedule

import (
	"bytes"
	"fmt"
	"text/template"
)

// TemplateRenderer renders expressions with text/template, exposing the
// variable set as the template data. It is the default renderer wired by
// the scheduler daemon; hosts with their own expression language supply
// their own VariableRenderer.
type TemplateRenderer struct{}

// NewTemplateRenderer returns a renderer ready for use.
func NewTemplateRenderer() *TemplateRenderer { return &TemplateRenderer{} }

// Render evaluates one templated string against the variables.
func (r *TemplateRenderer) Render(expr string, vars map[string]any) (string, error) {
	tmpl, err := template.New("").Option("missingkey=error").Parse(expr)
	if err != nil {
		return "", fmt.Errorf("parse template %q: %w", expr, err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, vars); err != nil {
		return "", fmt.Errorf("render template %q: %w", expr, err)
	}
	return buf.String(), nil
}

// RenderMap renders every string value of the map, leaving other values
// untouched. Nested maps are rendered recursively.
func (r *TemplateRenderer) RenderMap(m map[string]any, vars map[string]any) (map[string]any, error) {
	out := make(map[string]any, len(m))
	for k, v := range m {
		switch value := v.(type) {
		case string:
			rendered, err := r.Render(value, vars)
			if err != nil {
				return nil, err
			}
			out[k] = rendered
		case map[string]any:
			rendered, err := r.RenderMap(value, vars)
			if err != nil {
				return nil, err
			}
			out[k] = rendered
		default:
			out[k] = v
		}
	}
	return out, nil
}
