package main

import (
	"math/rand"
	"os"
	"strings"
	"time"

	"github.com/ANIKETSHETTY47/digital-twin-ingestor/internal/config"
	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var (
	cfgFile    string
	count      int
	interval   time.Duration
	hardwareID string
	prefix     string
)

var rootCmd = &cobra.Command{
	Use:   "simulator",
	Short: "Publishes synthetic sensor readings to the broker",
	Args:  cobra.NoArgs,
	Run:   func(*cobra.Command, []string) { run() },
}

func init() {
	f := rootCmd.Flags()
	f.StringVarP(&cfgFile, "config", "c", "", "config file with broker settings")
	f.IntVar(&count, "count", 30, "number of readings to publish")
	f.DurationVar(&interval, "interval", 500*time.Millisecond, "delay between readings")
	f.StringVar(&hardwareID, "hardware-id", "A1B2C3", "hardware id to report")
	// The ingestor subscribes five levels deep, so the prefix has three.
	f.StringVar(&prefix, "prefix", "site/building/zone", "topic levels before hardware id and sensor type")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func run() {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		log.Fatal().Err(err).Msg("config load failed")
	}
	prefix = strings.Trim(prefix, "/")

	opts := mqtt.NewClientOptions().AddBroker(cfg.Broker.URL())
	opts.SetClientID("sensor-simulator-" + uuid.NewString())
	if cfg.Broker.Username != "" {
		opts.SetUsername(cfg.Broker.Username)
		opts.SetPassword(cfg.Broker.Password)
	}
	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		log.Fatal().Err(token.Error()).Msg("mqtt connect")
	}
	defer client.Disconnect(250)

	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	for i := 0; i < count; i++ {
		topic, payload, err := sample(rng, prefix, hardwareID, i, time.Now())
		if err != nil {
			log.Fatal().Err(err).Msg("encode reading")
		}
		token := client.Publish(topic, 1, false, payload)
		token.Wait()
		if err := token.Error(); err != nil {
			log.Error().Err(err).Str("topic", topic).Msg("publish failed")
		} else {
			log.Debug().Str("topic", topic).RawJSON("payload", payload).Msg("published")
		}
		time.Sleep(interval)
	}
	log.Info().Int("count", count).Msg("simulation done")
}
