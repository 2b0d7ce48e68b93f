package llm

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

var ErrNoItems = errors.New("no items found in response")

// Extract trims whitespace and a surrounding markdown code fence, which some
// models emit even in JSON mode.
func Extract(content string) string {
	s := strings.TrimSpace(content)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		s = s[nl+1:]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

// DecodeStrict decodes a single JSON value, rejecting unknown fields and
// trailing data.
func DecodeStrict(content string, v any) error {
	dec := json.NewDecoder(strings.NewReader(Extract(content)))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("parse response: %w", err)
	}
	if dec.More() {
		return fmt.Errorf("parse response: trailing data after JSON value")
	}
	return nil
}

// DecodeArray accepts either a bare JSON array or an object wrapping one
// array under one of keys. Items are decoded strictly in both shapes.
func DecodeArray[T any](content string, keys []string) ([]T, error) {
	raw := []byte(Extract(content))
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil, ErrEmptyResponse
	}

	if raw[0] == '[' {
		var direct []T
		if err := DecodeStrict(string(raw), &direct); err != nil {
			return nil, err
		}
		if len(direct) == 0 {
			return nil, ErrNoItems
		}
		return direct, nil
	}

	var wrapped map[string]json.RawMessage
	if err := json.Unmarshal(raw, &wrapped); err != nil {
		return nil, fmt.Errorf("parse response: %w", err)
	}
	if len(wrapped) != 1 {
		return nil, fmt.Errorf("parse response: expected one wrapping key, got %d", len(wrapped))
	}

	for _, key := range keys {
		if body, ok := wrapped[key]; ok {
			var items []T
			if err := DecodeStrict(string(body), &items); err != nil {
				return nil, err
			}
			if len(items) == 0 {
				return nil, ErrNoItems
			}
			return items, nil
		}
	}

	return nil, fmt.Errorf("parse response: unexpected wrapping key")
}
