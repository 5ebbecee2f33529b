package service

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

const (
	topicHardwareSegment   = 3
	topicSensorTypeSegment = 4
)

// decodePayload parses a JSON object, keeping numbers as json.Number.
func decodePayload(payload []byte) (map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader(payload))
	dec.UseNumber()

	var doc map[string]any
	if err := dec.Decode(&doc); err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, errors.New("payload is not an object")
	}
	if dec.More() {
		return nil, errors.New("trailing data after payload object")
	}
	return doc, nil
}

// topicSegment returns segment i of a "/"-separated topic, or "".
func topicSegment(topic string, i int) string {
	parts := strings.Split(topic, "/")
	if i < len(parts) {
		return parts[i]
	}
	return ""
}

// textField returns the first non-empty value among keys rendered as text.
func textField(doc map[string]any, keys ...string) string {
	for _, k := range keys {
		v, ok := doc[k]
		if !ok || v == nil {
			continue
		}
		var s string
		switch t := v.(type) {
		case string:
			s = t
		case json.Number:
			s = t.String()
		default:
			s = fmt.Sprint(t)
		}
		if s != "" {
			return s
		}
	}
	return ""
}

// parseValue accepts a JSON number or numeric text. Text may carry a
// trailing Celsius marker ("23.5C", "23.5 c").
func parseValue(v any) (float64, error) {
	var s string
	switch t := v.(type) {
	case json.Number:
		s = t.String()
	case string:
		s = strings.TrimSpace(t)
		s = strings.TrimSpace(strings.TrimRight(s, "cC"))
	default:
		return 0, fmt.Errorf("unsupported value type %T", v)
	}
	if digits := strings.TrimLeft(s, "+-"); len(digits) > 1 && (digits[:2] == "0x" || digits[:2] == "0X") {
		return 0, fmt.Errorf("hexadecimal value %q", s)
	}

	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("non-finite value %q", s)
	}
	return f, nil
}

var zonedLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02T15:04:05.999999999Z0700",
	"2006-01-02 15:04:05.999999999Z0700",
}

var localLayouts = []string{
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04",
	"2006-01-02",
}

// parseTimestamp parses an ISO 8601 date-time. Values without a zone are
// read as local time.
func parseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range zonedLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	for _, layout := range localLayouts {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}
