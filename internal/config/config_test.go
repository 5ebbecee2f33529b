package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ANIKETSHETTY47/digital-twin-ingestor/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_DefaultValues(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "localhost", cfg.Database.Host)
	assert.Equal(t, 5432, cfg.Database.Port)
	assert.Equal(t, "postgres", cfg.Database.User)
	assert.Equal(t, "admin", cfg.Database.Password)
	assert.Equal(t, "DigitalTwin", cfg.Database.Name)
	assert.Equal(t, "disable", cfg.Database.SSLMode)
	assert.Equal(t, 10*time.Second, cfg.Database.QueryTimeout)

	assert.Equal(t, "localhost", cfg.Broker.Host)
	assert.Equal(t, 1883, cfg.Broker.Port)
	assert.Equal(t, "+/+/+/+/+", cfg.Broker.Topic)
	assert.Equal(t, "pg-subscriber", cfg.Broker.ClientID)
	assert.Equal(t, byte(1), cfg.Broker.QoS)
	assert.Equal(t, 60*time.Second, cfg.Broker.KeepAlive)

	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, ":9100", cfg.HTTP.Addr)
	assert.Empty(t, cfg.HardwareMapping)
	assert.False(t, cfg.DeadLetter.Enabled())
}

func TestLoad_YAMLFile(t *testing.T) {
	path := writeFile(t, "config.yaml", `
database:
  host: db.internal
  port: 6543
  user: ingest
  password: secret
  name: twins
  queryTimeout: 3s
broker:
  host: mqtt.internal
  port: 8883
  topic: "plant/+/+/+/+"
hardwareMapping:
  AB12:
    twinShortName: T1
    zoneShortName: Z1
  "0x1a ":
    twinShortName: T2
    zoneShortName: Z9
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "db.internal", cfg.Database.Host)
	assert.Equal(t, 6543, cfg.Database.Port)
	assert.Equal(t, "twins", cfg.Database.Name)
	assert.Equal(t, 3*time.Second, cfg.Database.QueryTimeout)
	assert.Equal(t, "tcp://mqtt.internal:8883", cfg.Broker.URL())
	assert.Equal(t, "plant/+/+/+/+", cfg.Broker.Topic)

	require.Len(t, cfg.HardwareMapping, 2)
	assert.Equal(t, domain.HardwareLocation{TwinShortName: "T1", ZoneShortName: "Z1"}, cfg.HardwareMapping["AB12"])
	assert.Equal(t, domain.HardwareLocation{TwinShortName: "T2", ZoneShortName: "Z9"}, cfg.HardwareMapping["1A"])
}

func TestLoad_JSONFile(t *testing.T) {
	path := writeFile(t, "config.json", `{
  "broker": {"host": "broker", "port": 1884},
  "hardwareMapping": {"cafe": {"twinShortName": "T1"}}
}`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 1884, cfg.Broker.Port)
	assert.Equal(t, domain.HardwareLocation{TwinShortName: "T1"}, cfg.HardwareMapping["CAFE"])
}

func TestLoad_EnvironmentVariables(t *testing.T) {
	t.Setenv("INGESTOR_DATABASE_HOST", "env-host")
	t.Setenv("INGESTOR_BROKER_TOPIC", "a/+/+/+/+")
	t.Setenv("INGESTOR_LOG_LEVEL", "debug")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "env-host", cfg.Database.Host)
	assert.Equal(t, "a/+/+/+/+", cfg.Broker.Topic)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoad_MalformedFile(t *testing.T) {
	path := writeFile(t, "config.yaml", "database: [unterminated\n")
	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoad_MappingCollision(t *testing.T) {
	path := writeFile(t, "config.yaml", `
hardwareMapping:
  ab12: {twinShortName: T1, zoneShortName: Z1}
  "0xAB12": {twinShortName: T1, zoneShortName: Z2}
`)
	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "collides")
}

func TestValidate(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	cfg.Broker.Port = 0
	cfg.Broker.QoS = 3
	cfg.Broker.Topic = " "
	err = cfg.Validate()
	require.ErrorIs(t, err, ErrInvalidConfig)
	assert.Contains(t, err.Error(), "broker.port 0 out of range")
	assert.Contains(t, err.Error(), "broker.qos 3")
	assert.Contains(t, err.Error(), "broker.topic is empty")
}

func TestValidate_QoSZeroRejected(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	cfg.Broker.QoS = 0
	err = cfg.Validate()
	require.ErrorIs(t, err, ErrInvalidConfig)
	assert.Contains(t, err.Error(), "broker.qos 0 not in 1..2")

	t.Setenv("INGESTOR_BROKER_QOS", "0")
	_, err = Load("")
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestLoad_DottedHardwareID(t *testing.T) {
	path := writeFile(t, "config.yaml", `
hardwareMapping:
  AB.12: {twinShortName: T1, zoneShortName: Z1}
  cd34: {twinShortName: T2, zoneShortName: Z2}
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, map[string]domain.HardwareLocation{
		"AB.12": {TwinShortName: "T1", ZoneShortName: "Z1"},
		"CD34":  {TwinShortName: "T2", ZoneShortName: "Z2"},
	}, cfg.HardwareMapping)
	assert.NotContains(t, cfg.HardwareMapping, "AB")
}

func TestDatabaseConfig_DSN(t *testing.T) {
	c := DatabaseConfig{Host: "h", Port: 5432, User: "u", Password: "p w'd", Name: "DigitalTwin", SSLMode: "disable"}
	assert.Equal(t, `host=h port=5432 user=u password='p w\'d' dbname=DigitalTwin sslmode=disable`, c.DSN())
}

func TestLoad_DeadLetter(t *testing.T) {
	path := writeFile(t, "config.yaml", `
deadLetter:
  bucket: twin-dlq
  endpoint: http://localhost:9000
  timeout: 2s
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.True(t, cfg.DeadLetter.Enabled())
	assert.Equal(t, "twin-dlq", cfg.DeadLetter.Bucket)
	assert.Equal(t, "us-east-1", cfg.DeadLetter.Region)
	assert.Equal(t, "dead-letter", cfg.DeadLetter.Prefix)
	assert.Equal(t, "http://localhost:9000", cfg.DeadLetter.Endpoint)
	assert.Equal(t, 2*time.Second, cfg.DeadLetter.Timeout)
}
