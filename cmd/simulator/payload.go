package main

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"time"

	"github.com/ANIKETSHETTY47/digital-twin-ingestor/internal/sensortype"
)

type reading struct {
	HardwareID string `json:"hardwareId"`
	SensorType string `json:"sensorType"`
	Value      any    `json:"value"`
	Timestamp  string `json:"timestamp"`
}

// sample returns the topic and payload for the i-th simulated message.
// Sensor types rotate; temperature is sent as text with a unit suffix the
// way field devices report it.
func sample(rng *rand.Rand, prefix, hardwareID string, i int, now time.Time) (string, []byte, error) {
	types := sensortype.Allowed()
	st := types[i%len(types)]

	var value any
	switch st {
	case sensortype.Temperature:
		value = fmt.Sprintf("%.1fC", 18+rng.Float64()*8)
	case sensortype.Humidity:
		value = 30 + rng.Float64()*40
	default:
		value = rng.Intn(1000)
	}

	payload, err := json.Marshal(reading{
		HardwareID: hardwareID,
		SensorType: string(st),
		Value:      value,
		Timestamp:  now.UTC().Format(time.RFC3339),
	})
	if err != nil {
		return "", nil, err
	}
	return fmt.Sprintf("%s/%s/%s", prefix, hardwareID, st), payload, nil
}
