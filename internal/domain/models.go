package domain

import (
	"time"

	"github.com/ANIKETSHETTY47/digital-twin-ingestor/internal/sensortype"
)

type Twin struct {
	ID        int64  `db:"twin_id" json:"twin_id"`
	ShortName string `db:"twin_short_name" json:"twin_short_name"`
	Active    bool   `db:"status" json:"status"`
}

type Zone struct {
	ID        int64  `db:"zone_id" json:"zone_id"`
	TwinID    int64  `db:"twin_id" json:"twin_id"`
	ShortName string `db:"zone_short_name" json:"zone_short_name"`
}

type Sensor struct {
	ID         int64           `db:"sensor_id" json:"sensor_id"`
	ZoneID     int64           `db:"zone_id" json:"zone_id"`
	SensorType sensortype.Type `db:"sensor_type" json:"sensor_type"`
}

// Reading is one observation ready for insertion. SensorType picks the
// destination table.
type Reading struct {
	SensorID   int64           `json:"sensor_id"`
	SensorType sensortype.Type `json:"sensor_type"`
	Value      float64         `json:"value"`
	Timestamp  time.Time       `json:"timestamp"`
}

// HardwareLocation is where a physical device lives in the twin hierarchy.
type HardwareLocation struct {
	TwinShortName string `mapstructure:"twinShortName" json:"twinShortName"`
	ZoneShortName string `mapstructure:"zoneShortName" json:"zoneShortName"`
}

// DeadLetter is a message the pipeline refused, kept for inspection or replay.
type DeadLetter struct {
	Topic      string    `json:"topic"`
	Payload    string    `json:"payload"`
	Reason     string    `json:"reason"`
	Detail     string    `json:"detail,omitempty"`
	Error      string    `json:"error,omitempty"`
	ReceivedAt time.Time `json:"received_at"`
}
