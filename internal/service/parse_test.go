package service

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseValue(t *testing.T) {
	ok := map[any]float64{
		"23.5C":              23.5,
		"23.5c":              23.5,
		" 21.0 C ":           21.0,
		"-4":                 -4,
		"1e3":                1000,
		json.Number("12.75"): 12.75,
	}
	for in, want := range ok {
		got, err := parseValue(in)
		require.NoError(t, err, "%v", in)
		assert.Equal(t, want, got, "%v", in)
	}

	for _, in := range []any{"", "abc", "Inf", "12,5", "0x1p4", "-0X10", "0x_1p4C", true, 3.5, nil} {
		_, err := parseValue(in)
		assert.Error(t, err, "%v", in)
	}
}

func TestParseTimestamp(t *testing.T) {
	cases := map[string]time.Time{
		"2024-06-01T10:00:00Z":          time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC),
		"2024-06-01T10:00:00.123+02:00": time.Date(2024, 6, 1, 8, 0, 0, 123e6, time.UTC),
		"2024-06-01 10:00:00+00:00":     time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC),
		"2024-06-01T10:00:00+0200":      time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC),
		"2024-06-01 10:00:00.25-0130":   time.Date(2024, 6, 1, 11, 30, 0, 25e7, time.UTC),
		"2024-06-01T10:00:00":           time.Date(2024, 6, 1, 10, 0, 0, 0, time.Local),
		"2024-06-01 10:00:00.5":         time.Date(2024, 6, 1, 10, 0, 0, 5e8, time.Local),
		"2024-06-01T10:00":              time.Date(2024, 6, 1, 10, 0, 0, 0, time.Local),
		"2024-06-01":                    time.Date(2024, 6, 1, 0, 0, 0, 0, time.Local),
	}
	for in, want := range cases {
		got, err := parseTimestamp(in)
		require.NoError(t, err, in)
		assert.True(t, want.Equal(got), "%s: got %s", in, got)
	}

	for _, in := range []string{"", "yesterday", "2024-13-01", "01/06/2024"} {
		_, err := parseTimestamp(in)
		assert.Error(t, err, in)
	}
}

func TestTopicSegment(t *testing.T) {
	assert.Equal(t, "AB12", topicSegment("site/bld/zone/AB12/temperature", topicHardwareSegment))
	assert.Equal(t, "temperature", topicSegment("site/bld/zone/AB12/temperature", topicSensorTypeSegment))
	assert.Equal(t, "", topicSegment("site/bld", topicHardwareSegment))
}

func TestDecodePayload(t *testing.T) {
	doc, err := decodePayload([]byte(` {"value": 1.50, "hardwareId": 1234} `))
	require.NoError(t, err)
	assert.Equal(t, json.Number("1.50"), doc["value"])
	assert.Equal(t, "1234", textField(doc, "hardwareId"))
}
