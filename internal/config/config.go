package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ANIKETSHETTY47/digital-twin-ingestor/internal/domain"
	"github.com/spf13/viper"
)

const envPrefix = "INGESTOR"

// keyDelim separates nested keys. Hardware ids may contain dots, so the
// default "." delimiter would split hardwareMapping entries.
const keyDelim = "::"

type Config struct {
	Database        DatabaseConfig                     `mapstructure:"database"`
	Broker          BrokerConfig                       `mapstructure:"broker"`
	HardwareMapping map[string]domain.HardwareLocation `mapstructure:"hardwareMapping"`
	Log             LogConfig                          `mapstructure:"log"`
	HTTP            HTTPConfig                         `mapstructure:"http"`
	DeadLetter      DeadLetterConfig                   `mapstructure:"deadLetter"`
}

type DatabaseConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	User         string        `mapstructure:"user"`
	Password     string        `mapstructure:"password"`
	Name         string        `mapstructure:"name"`
	SSLMode      string        `mapstructure:"sslMode"`
	QueryTimeout time.Duration `mapstructure:"queryTimeout"`
}

// DSN renders a keyword/value connection string for the pgx stdlib driver.
func (c DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		quoteDSN(c.Host), c.Port, quoteDSN(c.User), quoteDSN(c.Password), quoteDSN(c.Name), quoteDSN(c.SSLMode))
}

func quoteDSN(v string) string {
	if v != "" && !strings.ContainsAny(v, ` '\`) {
		return v
	}
	v = strings.ReplaceAll(v, `\`, `\\`)
	v = strings.ReplaceAll(v, `'`, `\'`)
	return "'" + v + "'"
}

type BrokerConfig struct {
	Host      string        `mapstructure:"host"`
	Port      int           `mapstructure:"port"`
	Topic     string        `mapstructure:"topic"`
	ClientID  string        `mapstructure:"clientId"`
	Username  string        `mapstructure:"username"`
	Password  string        `mapstructure:"password"`
	KeepAlive time.Duration `mapstructure:"keepAlive"`
	QoS       byte          `mapstructure:"qos"`
}

func (c BrokerConfig) URL() string {
	return fmt.Sprintf("tcp://%s:%d", c.Host, c.Port)
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type HTTPConfig struct {
	Addr string `mapstructure:"addr"`
}

// DeadLetterConfig points at the S3 bucket that receives dropped messages.
// The archive is off while Bucket is empty.
type DeadLetterConfig struct {
	Bucket   string        `mapstructure:"bucket"`
	Region   string        `mapstructure:"region"`
	Prefix   string        `mapstructure:"prefix"`
	Endpoint string        `mapstructure:"endpoint"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

func (c DeadLetterConfig) Enabled() bool { return c.Bucket != "" }

func setDefaults(v *viper.Viper) {
	v.SetDefault("database::host", "localhost")
	v.SetDefault("database::port", 5432)
	v.SetDefault("database::user", "postgres")
	v.SetDefault("database::password", "admin")
	v.SetDefault("database::name", "DigitalTwin")
	v.SetDefault("database::sslMode", "disable")
	v.SetDefault("database::queryTimeout", 10*time.Second)

	v.SetDefault("broker::host", "localhost")
	v.SetDefault("broker::port", 1883)
	v.SetDefault("broker::topic", "+/+/+/+/+")
	v.SetDefault("broker::clientId", "pg-subscriber")
	v.SetDefault("broker::username", "")
	v.SetDefault("broker::password", "")
	v.SetDefault("broker::keepAlive", 60*time.Second)
	v.SetDefault("broker::qos", 1)

	v.SetDefault("log::level", "info")
	v.SetDefault("log::format", "json")

	v.SetDefault("http::addr", ":9100")

	v.SetDefault("deadLetter::bucket", "")
	v.SetDefault("deadLetter::region", "us-east-1")
	v.SetDefault("deadLetter::prefix", "dead-letter")
	v.SetDefault("deadLetter::endpoint", "")
	v.SetDefault("deadLetter::timeout", 5*time.Second)
}

// Load reads the config file at path (YAML or JSON, by extension) and applies
// INGESTOR_* environment overrides. An empty path loads defaults and env only.
func Load(path string) (*Config, error) {
	v := viper.NewWithOptions(viper.KeyDelimiter(keyDelim))
	setDefaults(v)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(keyDelim, "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	mapping, err := normalizeMapping(cfg.HardwareMapping)
	if err != nil {
		return nil, err
	}
	cfg.HardwareMapping = mapping

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// normalizeMapping rekeys the hardware mapping by normalized hardware id.
// viper lowercases keys, so this is also what restores the canonical form.
func normalizeMapping(in map[string]domain.HardwareLocation) (map[string]domain.HardwareLocation, error) {
	out := make(map[string]domain.HardwareLocation, len(in))
	for raw, loc := range in {
		id := domain.NormalizeHardwareID(raw)
		if id == "" {
			return nil, fmt.Errorf("hardwareMapping: empty hardware id %q", raw)
		}
		if _, dup := out[id]; dup {
			return nil, fmt.Errorf("hardwareMapping: %q collides with another entry after normalization", raw)
		}
		out[id] = loc
	}
	return out, nil
}

var ErrInvalidConfig = errors.New("invalid configuration")

func (c *Config) Validate() error {
	var problems []string
	if c.Database.Host == "" {
		problems = append(problems, "database.host is empty")
	}
	if c.Database.Port <= 0 || c.Database.Port > 65535 {
		problems = append(problems, fmt.Sprintf("database.port %d out of range", c.Database.Port))
	}
	if c.Database.Name == "" {
		problems = append(problems, "database.name is empty")
	}
	if c.Database.QueryTimeout < 0 {
		problems = append(problems, "database.queryTimeout is negative")
	}
	if c.Broker.Host == "" {
		problems = append(problems, "broker.host is empty")
	}
	if c.Broker.Port <= 0 || c.Broker.Port > 65535 {
		problems = append(problems, fmt.Sprintf("broker.port %d out of range", c.Broker.Port))
	}
	if strings.TrimSpace(c.Broker.Topic) == "" {
		problems = append(problems, "broker.topic is empty")
	}
	if c.DeadLetter.Enabled() && c.DeadLetter.Region == "" {
		problems = append(problems, "deadLetter.region is empty")
	}
	if c.Broker.QoS < 1 || c.Broker.QoS > 2 {
		problems = append(problems, fmt.Sprintf("broker.qos %d not in 1..2", c.Broker.QoS))
	}
	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(problems, "; "))
	}
	return nil
}
