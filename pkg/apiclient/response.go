package apiclient

import (
	"encoding/json"
	"fmt"
	"html"
	"mime"
	"net/http"
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"
)

const (
	contentTypeJSON = "application/json"
	contentTypeHTML = "text/html"

	// maxErrorText bounds raw text copied into error values.
	maxErrorText = 500
)

var (
	djangoExceptionRe  = regexp.MustCompile(`(?s)<pre class="exception_value">(.*?)</pre>`)
	djangoValidationRe = regexp.MustCompile(`ValidationError: \[(.*?)\]`)
)

// Response is a completed HTTP exchange. A non-2xx status is not an error at
// this level; callers check OK or Err.
type Response struct {
	StatusCode  int
	Header      http.Header
	ContentType string
	Raw         []byte

	// Malformed is set when the body was declared JSON but failed to parse.
	// The raw text is then available as a synthetic {"error": text} payload.
	Malformed bool

	payload json.RawMessage
}

func newResponse(status int, header http.Header, raw []byte) *Response {
	r := &Response{
		StatusCode: status,
		Header:     header,
		Raw:        raw,
	}
	if mt, _, err := mime.ParseMediaType(header.Get("Content-Type")); err == nil {
		r.ContentType = mt
	}

	if !r.declaredJSON() || len(strings.TrimSpace(string(raw))) == 0 {
		return r
	}
	if json.Valid(raw) {
		r.payload = raw
		return r
	}

	r.Malformed = true
	synthetic, _ := json.Marshal(map[string]string{"error": truncate(strings.TrimSpace(string(raw)))})
	r.payload = synthetic
	return r
}

// OK reports a 2xx status.
func (r *Response) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// IsJSON reports whether a JSON payload is available, including the
// synthetic payload of a malformed body.
func (r *Response) IsJSON() bool {
	return len(r.payload) > 0
}

// Text returns the body as text.
func (r *Response) Text() string {
	return string(r.Raw)
}

// Decode unmarshals the JSON body into v.
func (r *Response) Decode(v any) error {
	if r.Malformed {
		return fmt.Errorf("%w: %s", ErrMalformed, truncate(r.Text()))
	}
	if !r.IsJSON() {
		return fmt.Errorf("%w: expected JSON body, got %q", ErrMalformed, r.ContentType)
	}
	if err := json.Unmarshal(r.payload, v); err != nil {
		return fmt.Errorf("%w: decoding body: %w", ErrMalformed, err)
	}
	return nil
}

// Err returns nil for 2xx responses and an *APIError otherwise. fallback is
// used when the body carries no recognizable message.
func (r *Response) Err(fallback string) error {
	if r.OK() {
		return nil
	}
	msgs := r.Messages()
	msg := fallback
	if len(msgs) > 0 {
		msg = strings.Join(msgs, "\n")
	}
	return &APIError{
		StatusCode: r.StatusCode,
		Message:    msg,
		Messages:   msgs,
		Malformed:  r.Malformed,
	}
}

// Messages extracts human-readable error messages from the body.
func (r *Response) Messages() []string {
	switch {
	case r.IsJSON():
		return jsonMessages(r.payload)
	case r.ContentType == contentTypeHTML:
		return djangoMessages(r.Text())
	default:
		if text := strings.TrimSpace(r.Text()); text != "" {
			return []string{truncate(text)}
		}
		return nil
	}
}

func (r *Response) declaredJSON() bool {
	return r.ContentType == contentTypeJSON || strings.HasSuffix(r.ContentType, "+json")
}

// jsonMessages reads error, detail, message and non_field_errors in that
// order, then falls back to a field map rendered as "field: msg".
func jsonMessages(payload json.RawMessage) []string {
	var list []string
	if err := json.Unmarshal(payload, &list); err == nil {
		return nonEmpty(list)
	}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal(payload, &obj); err != nil {
		return nil
	}

	for _, key := range []string{"error", "detail", "message", "non_field_errors"} {
		if raw, ok := obj[key]; ok {
			if msgs := stringOrList(raw); len(msgs) > 0 {
				return msgs
			}
		}
	}

	fields := make([]string, 0, len(obj))
	for k := range obj {
		fields = append(fields, k)
	}
	sort.Strings(fields)

	var out []string
	for _, field := range fields {
		for _, m := range stringOrList(obj[field]) {
			out = append(out, field+": "+m)
		}
	}
	return out
}

func stringOrList(raw json.RawMessage) []string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return nonEmpty([]string{s})
	}
	var list []string
	if err := json.Unmarshal(raw, &list); err == nil {
		return nonEmpty(list)
	}
	return nil
}

// djangoMessages pulls the exception text out of a Django debug page.
func djangoMessages(page string) []string {
	m := djangoExceptionRe.FindStringSubmatch(page)
	if m == nil {
		return nil
	}
	decoded := strings.TrimSpace(html.UnescapeString(m[1]))

	if v := djangoValidationRe.FindStringSubmatch(decoded); v != nil {
		parts := strings.Split(v[1], ",")
		msgs := make([]string, 0, len(parts))
		for _, p := range parts {
			msgs = append(msgs, strings.TrimSpace(strings.NewReplacer(`'`, "", `"`, "").Replace(p)))
		}
		return nonEmpty(msgs)
	}
	if strings.Contains(decoded, "ValidationError") {
		return nonEmpty([]string{strings.TrimSpace(strings.Replace(decoded, "ValidationError:", "", 1))})
	}
	return nonEmpty([]string{decoded})
}

func nonEmpty(in []string) []string {
	out := in[:0]
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func truncate(s string) string {
	if len(s) <= maxErrorText {
		return s
	}
	cut := maxErrorText
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}
