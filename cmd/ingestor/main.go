package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/ANIKETSHETTY47/digital-twin-ingestor/internal/broker"
	"github.com/ANIKETSHETTY47/digital-twin-ingestor/internal/cloud"
	"github.com/ANIKETSHETTY47/digital-twin-ingestor/internal/config"
	"github.com/ANIKETSHETTY47/digital-twin-ingestor/internal/database"
	httpHandlers "github.com/ANIKETSHETTY47/digital-twin-ingestor/internal/http"
	"github.com/ANIKETSHETTY47/digital-twin-ingestor/internal/logging"
	"github.com/ANIKETSHETTY47/digital-twin-ingestor/internal/sensortype"
	"github.com/ANIKETSHETTY47/digital-twin-ingestor/internal/service"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "ingestor",
	Short: "Stores MQTT sensor telemetry in the digital twin database",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, _ []string) {
		run(cmd.Context())
	},
}

func init() {
	rootCmd.Flags().StringVarP(&cfgFile, "config", "c", "", "config file (YAML or JSON); defaults and INGESTOR_* env when empty")
}

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(parent context.Context) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		log.Fatal().Err(err).Msg("config load failed")
	}

	logger, err := logging.New(cfg.Log, "ingestor")
	if err != nil {
		log.Fatal().Err(err).Msg("logger init failed")
	}
	log.Logger = logger

	registry, err := sensortype.NewRegistry(sensortype.DefaultDestinations())
	if err != nil {
		log.Fatal().Err(err).Msg("sensor type registry check failed")
	}

	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.Connect(ctx, cfg.Database)
	if stopRequested(ctx, err) {
		log.Info().Msg("stop requested during startup")
		return
	}
	if err != nil {
		log.Fatal().Err(err).Msg("db connect failed")
	}
	log.Info().Str("host", cfg.Database.Host).Str("db", cfg.Database.Name).Msg("connected to postgres")

	svcs := service.New(db, registry, cfg.HardwareMapping, cfg.Database.QueryTimeout, logger)
	if cfg.DeadLetter.Enabled() {
		archive, err := cloud.NewS3Archive(ctx, cfg.DeadLetter)
		if stopRequested(ctx, err) {
			db.Close()
			log.Info().Msg("stop requested during startup")
			return
		}
		if err != nil {
			log.Fatal().Err(err).Msg("dead letter archive init failed")
		}
		svcs.Readings.SetDeadLetter(archive, cfg.DeadLetter.Timeout)
		log.Info().Str("bucket", cfg.DeadLetter.Bucket).Str("prefix", cfg.DeadLetter.Prefix).Msg("dead letter archive enabled")
	}

	mgr := broker.NewManager(cfg.Broker, svcs.Readings.FromMQTT, logger.With().Str("component", "broker").Logger())

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return mgr.Run(gctx) })
	if cfg.HTTP.Addr != "" {
		app := httpHandlers.New()
		httpHandlers.Register(app, svcs.Repos, mgr)
		g.Go(func() error { return httpHandlers.Serve(gctx, app, cfg.HTTP.Addr, logger) })
	}

	log.Info().Msg("ingestor running; Ctrl+C to stop")
	err = g.Wait()
	stop()
	mgr.Shutdown()

	if cerr := db.Close(); cerr != nil {
		log.Error().Err(cerr).Msg("error closing postgres connection")
	}
	if err != nil {
		log.Fatal().Err(err).Msg("ingestor stopped with error")
	}
	log.Info().Msg("ingestor stopped")
}

// stopRequested reports whether a startup error came from a shutdown signal
// cancelling ctx rather than from a real failure.
func stopRequested(ctx context.Context, err error) bool {
	return err != nil && ctx.Err() != nil
}
