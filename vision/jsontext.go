package vision

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// ErrMalformedResponse is returned when model text holds no parseable JSON object
var ErrMalformedResponse = errors.New("malformed model response")

// ExtractJSON strips optional markdown fencing (```json ... ``` or ``` ... ```)
// from model output
func ExtractJSON(text string) string {
	for _, fence := range []string{"```json", "```"} {
		i := strings.Index(text, fence)
		if i < 0 {
			continue
		}
		body := text[i+len(fence):]
		if j := strings.Index(body, "```"); j >= 0 {
			body = body[:j]
		}
		return strings.TrimSpace(body)
	}
	return strings.TrimSpace(text)
}

// DecodeJSON unfences text and decodes it into v. If the cleaned text is not
// valid JSON, the span from the first '{' to the last '}' is tried.
func DecodeJSON(text string, v interface{}) error {
	candidate := ExtractJSON(text)
	if !json.Valid([]byte(candidate)) {
		start, end := strings.Index(candidate, "{"), strings.LastIndex(candidate, "}")
		if start >= 0 && end > start && json.Valid([]byte(candidate[start:end+1])) {
			candidate = candidate[start : end+1]
		}
	}

	if err := json.Unmarshal([]byte(candidate), v); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	return nil
}

// stringList accepts a JSON array of strings, a single string or null.
// Array items that are not strings are skipped.
type stringList []string

func (l *stringList) UnmarshalJSON(data []byte) error {
	var items []interface{}
	if err := json.Unmarshal(data, &items); err == nil {
		out := make([]string, 0, len(items))
		for _, item := range items {
			// non-string items are off-schema and dropped
			if v, ok := item.(string); ok {
				if s := strings.TrimSpace(v); s != "" {
					out = append(out, s)
				}
			}
		}
		*l = out
		return nil
	}

	var single *string
	if err := json.Unmarshal(data, &single); err != nil {
		return err
	}
	if single == nil || strings.TrimSpace(*single) == "" {
		*l = []string{}
		return nil
	}
	*l = []string{strings.TrimSpace(*single)}
	return nil
}

var leadingNumber = regexp.MustCompile(`-?\d+(\.\d+)?`)

// flexScore accepts 8, 8.0, "8" or "8/10"; anything unreadable is 0
type flexScore int

func (s *flexScore) UnmarshalJSON(data []byte) error {
	var f float64
	if err := json.Unmarshal(data, &f); err == nil {
		*s = flexScore(math.Round(f))
		return nil
	}

	var str string
	if err := json.Unmarshal(data, &str); err == nil {
		if m := leadingNumber.FindString(str); m != "" {
			if f, err := strconv.ParseFloat(m, 64); err == nil {
				*s = flexScore(math.Round(f))
				return nil
			}
		}
	}

	*s = 0
	return nil
}

// clampScore keeps scores inside 0..10
func clampScore(score int) int {
	switch {
	case score < 0:
		return 0
	case score > 10:
		return 10
	default:
		return score
	}
}
