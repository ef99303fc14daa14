// Package extract recovers a structured JSON object from free-form model
// output.
package extract

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/rotisserie/eris"
)

// SnippetLimit is the maximum number of characters of the offending text
// carried by a MalformedOutputError.
const SnippetLimit = 500

// ErrMalformedOutput matches every MalformedOutputError via errors.Is.
var ErrMalformedOutput = errors.New("malformed output")

// MalformedOutputError reports text from which no JSON object could be
// recovered.
type MalformedOutputError struct {
	// Snippet holds at most SnippetLimit characters of the original text.
	Snippet string
}

func (e *MalformedOutputError) Error() string {
	return fmt.Sprintf("extract: no JSON object found in model output: %q", e.Snippet)
}

// Is makes errors.Is(err, ErrMalformedOutput) hold.
func (e *MalformedOutputError) Is(target error) bool {
	return target == ErrMalformedOutput
}

// Object is a decoded top-level JSON object keyed by field name.
type Object map[string]json.RawMessage

// fenced matches the first ``` or ```json block whose body is an object.
// Non-greedy, so a later fence cannot extend the match.
var fenced = regexp.MustCompile("(?s)```(?:json)?\\s*(\\{.*?\\})\\s*```")

// Parse extracts a JSON object from text using, in order: a direct parse of
// the whole text, the first fenced code block holding an object, and the span
// from the first '{' to the last '}'. The first tier that yields an object
// wins. Arrays, scalars and null never satisfy a tier.
func Parse(text string) (Object, error) {
	if obj, ok := parseObject(text); ok {
		return obj, nil
	}

	if m := fenced.FindStringSubmatch(text); m != nil {
		if obj, ok := parseObject(m[1]); ok {
			return obj, nil
		}
	}

	if start, end := strings.Index(text, "{"), strings.LastIndex(text, "}"); start >= 0 && end > start {
		if obj, ok := parseObject(text[start : end+1]); ok {
			return obj, nil
		}
	}

	return nil, &MalformedOutputError{Snippet: truncate(text, SnippetLimit)}
}

func parseObject(s string) (Object, bool) {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "{") {
		return nil, false
	}
	var obj Object
	if err := json.Unmarshal([]byte(s), &obj); err != nil || obj == nil {
		return nil, false
	}
	return obj, true
}

// Records decodes the value under key into dst, which must point to a slice.
// An absent or null key leaves dst untouched and reports zero records; a
// value of the wrong shape is an error.
func (o Object) Records(key string, dst any) error {
	raw, ok := o[key]
	if !ok || bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		return nil
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return eris.Wrapf(err, "extract: decode %q", key)
	}
	return nil
}

// Has reports whether key is present and non-null.
func (o Object) Has(key string) bool {
	raw, ok := o[key]
	return ok && !bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
