// Package entry parses and validates model output into journal entries.
package entry

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/kalambet/journal-ai/internal/provider"
)

var (
	// ErrMalformedOutput indicates no usable JSON object was found or a
	// field had the wrong type.
	ErrMalformedOutput = errors.New("malformed output")

	// ErrMissingField indicates title or content is absent or blank.
	ErrMissingField = errors.New("missing field")
)

const (
	DefaultMaxTags        = 10
	DefaultMaxTitleLength = 120
)

// Entry is a validated journal entry. Title and Content are never empty.
type Entry struct {
	Title   string      `json:"title"`
	Content string      `json:"content"`
	Tags    []string    `json:"tags"`
	Source  provider.ID `json:"source"`
}

// Options bounds the normalized entry. Non-positive values use the defaults.
type Options struct {
	MaxTags        int
	MaxTitleLength int
}

func (o Options) withDefaults() Options {
	if o.MaxTags <= 0 {
		o.MaxTags = DefaultMaxTags
	}
	if o.MaxTitleLength <= 0 {
		o.MaxTitleLength = DefaultMaxTitleLength
	}
	return o
}

// Parse extracts the first JSON object in raw and validates it into an
// Entry. Surrounding prose and markdown code fences are ignored. The
// returned entry has no Source; the caller sets it.
func Parse(raw string, opts Options) (Entry, error) {
	opts = opts.withDefaults()

	fields, ok := firstObject(raw)
	if !ok {
		return Entry{}, fmt.Errorf("%w: no JSON object in %q", ErrMalformedOutput, snippet(raw))
	}

	title, err := stringField(fields, "title")
	if err != nil {
		return Entry{}, err
	}
	content, err := stringField(fields, "content")
	if err != nil {
		return Entry{}, err
	}
	tags, err := tagsField(fields)
	if err != nil {
		return Entry{}, err
	}

	title = strings.Join(strings.Fields(title), " ")
	content = strings.TrimSpace(content)
	switch {
	case title == "":
		return Entry{}, fmt.Errorf("%w: title", ErrMissingField)
	case content == "":
		return Entry{}, fmt.Errorf("%w: content", ErrMissingField)
	}

	return Entry{
		Title:   truncateTitle(title, opts.MaxTitleLength),
		Content: content,
		Tags:    NormalizeTags(tags, opts.MaxTags),
	}, nil
}

// firstObject scans raw for the first '{' that starts a complete JSON object.
func firstObject(raw string) (map[string]json.RawMessage, bool) {
	for i := 0; i < len(raw); i++ {
		if raw[i] != '{' {
			continue
		}
		var obj map[string]json.RawMessage
		if err := json.NewDecoder(strings.NewReader(raw[i:])).Decode(&obj); err == nil {
			return obj, true
		}
	}
	return nil, false
}

// stringField returns a string field. Absent and null read as empty; any
// other non-string type is malformed.
func stringField(fields map[string]json.RawMessage, name string) (string, error) {
	v, ok := fields[name]
	if !ok || isNull(v) {
		return "", nil
	}
	var s string
	if err := json.Unmarshal(v, &s); err != nil {
		return "", fmt.Errorf("%w: %s is not a string", ErrMalformedOutput, name)
	}
	return s, nil
}

// tagsField accepts an array of strings or a single comma-separated string.
func tagsField(fields map[string]json.RawMessage) ([]string, error) {
	v, ok := fields["tags"]
	if !ok || isNull(v) {
		return nil, nil
	}
	var list []string
	if err := json.Unmarshal(v, &list); err == nil {
		return list, nil
	}
	var joined string
	if err := json.Unmarshal(v, &joined); err == nil {
		return strings.Split(joined, ","), nil
	}
	return nil, fmt.Errorf("%w: tags is not a list of strings", ErrMalformedOutput)
}

// NormalizeTags trims, strips a leading '#', lowercases, drops empties and
// duplicates (keeping first-seen order) and keeps at most limit tags.
// A non-positive limit keeps all of them.
func NormalizeTags(tags []string, limit int) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]bool, len(tags))
	for _, t := range tags {
		t = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(t), "#")))
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
		if len(out) == limit {
			break
		}
	}
	return out
}

// truncateTitle cuts title to at most limit runes, backing off to the last
// word boundary when the cut lands inside a word.
func truncateTitle(title string, limit int) string {
	if utf8.RuneCountInString(title) <= limit {
		return title
	}
	runes := []rune(title)
	cut := string(runes[:limit])
	if runes[limit] != ' ' {
		if i := strings.LastIndexByte(cut, ' '); i > 0 {
			cut = cut[:i]
		}
	}
	return strings.TrimSpace(cut)
}

func isNull(v json.RawMessage) bool {
	return strings.TrimSpace(string(v)) == "null"
}

func snippet(s string) string {
	s = strings.TrimSpace(s)
	if utf8.RuneCountInString(s) > 80 {
		return string([]rune(s)[:80]) + "..."
	}
	return s
}
