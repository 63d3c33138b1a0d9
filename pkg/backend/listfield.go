package backend

import (
	"encoding/json"
	"fmt"
	"strings"
)

// summaryLimit is how many entries a card summary shows.
const summaryLimit = 3

// List is an ordered list of names. The backend sends these either as JSON
// arrays or as Python-style strings like "['Action', 'RPG']".
type List []string

// ParseList decodes a quoted-bracket string. Strict parsing swaps single
// quotes for double quotes and reads a JSON array; when that fails the
// brackets are trimmed and the text split on commas, and ok is false.
func ParseList(s string) (l List, ok bool) {
	s = strings.TrimSpace(s)
	if s == "" || s == "[]" {
		return List{}, true
	}

	var strict []string
	if err := json.Unmarshal([]byte(strings.ReplaceAll(s, "'", `"`)), &strict); err == nil {
		return cleanList(strict), true
	}

	inner := strings.TrimSuffix(strings.TrimPrefix(s, "["), "]")
	parts := strings.Split(inner, ",")
	for i, p := range parts {
		parts[i] = strings.Trim(strings.TrimSpace(p), `'"`)
	}
	return cleanList(parts), false
}

// UnmarshalJSON accepts null, a JSON array, or a quoted-bracket string.
func (l *List) UnmarshalJSON(data []byte) error {
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "null" {
		*l = List{}
		return nil
	}

	if strings.HasPrefix(trimmed, "[") {
		var raw []any
		if err := json.Unmarshal(data, &raw); err != nil {
			return fmt.Errorf("decoding list: %w", err)
		}
		out := make([]string, 0, len(raw))
		for _, v := range raw {
			out = append(out, listEntry(v))
		}
		*l = cleanList(out)
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("decoding list: %w", err)
	}
	*l, _ = ParseList(s)
	return nil
}

// Summary joins the first three entries with ", " and marks truncation
// with " ...".
func (l List) Summary() string {
	if len(l) <= summaryLimit {
		return strings.Join(l, ", ")
	}
	return strings.Join(l[:summaryLimit], ", ") + " ..."
}

// Contains reports whether name is in the list.
func (l List) Contains(name string) bool {
	for _, v := range l {
		if v == name {
			return true
		}
	}
	return false
}

// listEntry flattens objects such as {"name": "PC"} or {"image": url}.
func listEntry(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case map[string]any:
		for _, key := range []string{"name", "image", "url"} {
			if s, ok := val[key].(string); ok {
				return s
			}
		}
	}
	return fmt.Sprint(v)
}

func cleanList(in []string) List {
	out := make(List, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
