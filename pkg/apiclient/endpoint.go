package apiclient

import (
	"fmt"
	"strconv"

	"github.com/yosida95/uritemplate/v3"
)

// Endpoint is a parsed RFC 6570 path template such as "/games/{id}/".
type Endpoint struct {
	raw  string
	tmpl *uritemplate.Template
}

// NewEndpoint parses a path template.
func NewEndpoint(template string) (Endpoint, error) {
	tmpl, err := uritemplate.New(template)
	if err != nil {
		return Endpoint{}, fmt.Errorf("invalid endpoint template %q: %w", template, err)
	}
	return Endpoint{raw: template, tmpl: tmpl}, nil
}

// MustEndpoint is NewEndpoint for package-level templates.
func MustEndpoint(template string) Endpoint {
	e, err := NewEndpoint(template)
	if err != nil {
		panic(err)
	}
	return e
}

// String returns the template text.
func (e Endpoint) String() string {
	return e.raw
}

// Path expands the template. Values may be strings or integers.
func (e Endpoint) Path(vars map[string]any) (string, error) {
	values := uritemplate.Values{}
	for name, v := range vars {
		switch val := v.(type) {
		case string:
			values.Set(name, uritemplate.String(val))
		case int:
			values.Set(name, uritemplate.String(strconv.Itoa(val)))
		case int64:
			values.Set(name, uritemplate.String(strconv.FormatInt(val, 10)))
		default:
			values.Set(name, uritemplate.String(fmt.Sprint(val)))
		}
	}
	path, err := e.tmpl.Expand(values)
	if err != nil {
		return "", fmt.Errorf("expanding %q: %w", e.raw, err)
	}
	return path, nil
}

// Varnames returns the template's variable names.
func (e Endpoint) Varnames() []string {
	return e.tmpl.Varnames()
}

// Match extracts variables from a concrete path. It returns nil when path
// does not fit the template.
func (e Endpoint) Match(path string) map[string]string {
	m := e.tmpl.Match(path)
	if m == nil {
		return nil
	}
	out := make(map[string]string, len(e.tmpl.Varnames()))
	for _, name := range e.tmpl.Varnames() {
		out[name] = m.Get(name).String()
	}
	return out
}
