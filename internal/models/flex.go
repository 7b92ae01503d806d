package models

import (
	"bytes"
	"encoding/json"
	"strings"
	"time"
)

// TimestampLayout is fixed width so timestamps sort lexically.
const TimestampLayout = "2006-01-02T15:04:05.000000000Z"

// FormatTime renders t in UTC with TimestampLayout.
func FormatTime(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

// FlexString accepts a JSON string, number or bool and keeps its text
// verbatim, trimmed. null and objects decode to "".
type FlexString string

func (f *FlexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*f = ""
		return nil
	}
	switch data[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = FlexString(strings.TrimSpace(s))
	case '{', '[':
		*f = ""
	default:
		*f = FlexString(string(data))
	}
	return nil
}

func (f FlexString) String() string { return string(f) }

// FlexBool accepts true/false, "true"/"yes"/"1" and numbers.
type FlexBool bool

func (b *FlexBool) UnmarshalJSON(data []byte) error {
	var s FlexString
	if err := s.UnmarshalJSON(data); err != nil {
		return err
	}
	switch strings.ToLower(string(s)) {
	case "true", "yes", "y", "1":
		*b = true
	default:
		*b = false
	}
	return nil
}

// FlexList decodes a JSON array, skipping elements that fail to decode. A
// missing, null or non-array value decodes to an empty list.
type FlexList[T any] []T

func (l *FlexList[T]) UnmarshalJSON(data []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		*l = nil
		return nil
	}
	out := make(FlexList[T], 0, len(raw))
	for _, r := range raw {
		var v T
		if err := json.Unmarshal(r, &v); err != nil {
			continue
		}
		out = append(out, v)
	}
	*l = out
	return nil
}
