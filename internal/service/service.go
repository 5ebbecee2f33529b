package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/ANIKETSHETTY47/digital-twin-ingestor/internal/domain"
	"github.com/ANIKETSHETTY47/digital-twin-ingestor/internal/metrics"
	"github.com/ANIKETSHETTY47/digital-twin-ingestor/internal/repository"
	"github.com/ANIKETSHETTY47/digital-twin-ingestor/internal/sensortype"
	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog"
)

type Services struct {
	Repos    *repository.Repos
	Readings *ReadingService
}

func New(db *sqlx.DB, registry *sensortype.Registry, mapping map[string]domain.HardwareLocation, queryTimeout time.Duration, log zerolog.Logger) *Services {
	repos := repository.New(db, registry, log.With().Str("component", "repository").Logger())
	return &Services{
		Repos:    repos,
		Readings: NewReadingService(repos, mapping, queryTimeout, log.With().Str("component", "pipeline").Logger()),
	}
}

// Store is the subset of the persistence gateway the pipeline needs.
type Store interface {
	ResolveTwin(ctx context.Context, shortName string) (int64, bool, error)
	ResolveZone(ctx context.Context, twinID int64, shortName string) (int64, bool, error)
	ResolveSensor(ctx context.Context, zoneID int64, sensorType sensortype.Type) (int64, bool, error)
	InsertReading(ctx context.Context, rd domain.Reading) error
}

// DeadLetter receives every dropped message. Failures are logged only.
type DeadLetter interface {
	Archive(ctx context.Context, dl domain.DeadLetter) error
}

// ReadingService validates, resolves and stores one broker message at a time.
type ReadingService struct {
	store        Store
	mapping      map[string]domain.HardwareLocation
	queryTimeout time.Duration
	log          zerolog.Logger
	now          func() time.Time

	deadLetter        DeadLetter
	deadLetterTimeout time.Duration
}

// NewReadingService expects mapping keys already normalized with
// domain.NormalizeHardwareID. A zero queryTimeout disables per-call timeouts.
func NewReadingService(store Store, mapping map[string]domain.HardwareLocation, queryTimeout time.Duration, log zerolog.Logger) *ReadingService {
	if len(mapping) == 0 {
		log.Warn().Msg("no hardware mapping configured; every message will be dropped")
	}
	return &ReadingService{
		store:        store,
		mapping:      mapping,
		queryTimeout: queryTimeout,
		log:          log,
		now:          time.Now,
	}
}

// SetDeadLetter enables archiving of dropped messages. Call before the first
// message is delivered.
func (s *ReadingService) SetDeadLetter(dl DeadLetter, timeout time.Duration) {
	s.deadLetter = dl
	s.deadLetterTimeout = timeout
}

// FromMQTT handles one message. It returns nil when a reading was stored and
// a *DropError otherwise; nothing, including a panic, escapes as anything else.
func (s *ReadingService) FromMQTT(ctx context.Context, topic string, payload []byte) (err error) {
	start := time.Now()
	metrics.MessagesReceived.Inc()

	defer func() {
		if rec := recover(); rec != nil {
			err = dropErr(ReasonInternal, fmt.Errorf("panic: %v", rec), "topic %s", topic)
		}
		metrics.MessageDuration.Observe(time.Since(start).Seconds())

		var de *DropError
		if err == nil {
			return
		}
		if !errors.As(err, &de) {
			de = dropErr(ReasonInternal, err, "topic %s", topic)
			err = de
		}
		metrics.MessagesDropped.WithLabelValues(string(de.Reason)).Inc()
		ev := s.log.Warn()
		if de.Err != nil {
			ev = s.log.Error().Err(de.Err)
		}
		ev.Str("topic", topic).Str("reason", string(de.Reason)).Str("detail", de.Detail).Msg("message dropped")
		s.archive(ctx, topic, payload, de)
	}()

	s.log.Debug().Str("topic", topic).Int("payload_size", len(payload)).Msg("received message")
	return s.process(ctx, topic, payload)
}

func (s *ReadingService) process(ctx context.Context, topic string, payload []byte) error {
	doc, err := decodePayload(payload)
	if err != nil {
		return drop(ReasonInvalidPayload, "%v", err)
	}

	hwRaw := textField(doc, "hardwareId", "hardware_id")
	if hwRaw == "" {
		hwRaw = topicSegment(topic, topicHardwareSegment)
	}
	hardwareID := domain.NormalizeHardwareID(hwRaw)
	if hardwareID == "" {
		return drop(ReasonNoHardwareID, "no hardware id in payload or topic %q", topic)
	}

	typeRaw := textField(doc, "sensorType", "sensor_type")
	if typeRaw == "" {
		typeRaw = topicSegment(topic, topicSensorTypeSegment)
	}
	sensorType, ok := sensortype.Parse(typeRaw)
	if !ok {
		return drop(ReasonInvalidSensorType, "%q", typeRaw)
	}

	loc, ok := s.mapping[hardwareID]
	if !ok {
		if e := s.log.Debug(); e.Enabled() {
			e.Strs("available", s.mappedIDs()).Str("hardware_id", hardwareID).Msg("unmapped hardware id")
		}
		return drop(ReasonNoMapping, "hardware id %s", hardwareID)
	}
	if loc.TwinShortName == "" || loc.ZoneShortName == "" {
		return drop(ReasonInvalidMapping, "hardware id %s: twin=%q zone=%q", hardwareID, loc.TwinShortName, loc.ZoneShortName)
	}

	twinID, err := s.lookup(ctx, func(ctx context.Context) (int64, bool, error) {
		return s.store.ResolveTwin(ctx, loc.TwinShortName)
	})
	if err != nil {
		return dropErr(ReasonLookupFailed, err, "twin %s", loc.TwinShortName)
	}
	if twinID == nil {
		return drop(ReasonTwinNotFound, "twin %s", loc.TwinShortName)
	}

	zoneID, err := s.lookup(ctx, func(ctx context.Context) (int64, bool, error) {
		return s.store.ResolveZone(ctx, *twinID, loc.ZoneShortName)
	})
	if err != nil {
		return dropErr(ReasonLookupFailed, err, "zone %s in twin %s", loc.ZoneShortName, loc.TwinShortName)
	}
	if zoneID == nil {
		return drop(ReasonZoneNotFound, "zone %s in twin %s", loc.ZoneShortName, loc.TwinShortName)
	}

	raw, ok := doc["value"]
	if !ok || raw == nil {
		return drop(ReasonMissingValue, "hardware id %s", hardwareID)
	}
	value, err := parseValue(raw)
	if err != nil {
		return drop(ReasonInvalidValue, "%v", err)
	}

	ts := s.timestamp(doc, topic)

	sensorID, err := s.lookup(ctx, func(ctx context.Context) (int64, bool, error) {
		return s.store.ResolveSensor(ctx, *zoneID, sensorType)
	})
	if err != nil {
		return dropErr(ReasonLookupFailed, err, "sensor %s in zone %d", sensorType, *zoneID)
	}
	if sensorID == nil {
		return drop(ReasonSensorNotFound, "zone_id=%d sensor_type=%s", *zoneID, sensorType)
	}

	rd := domain.Reading{SensorID: *sensorID, SensorType: sensorType, Value: value, Timestamp: ts}
	opCtx, cancel := s.opContext(ctx)
	defer cancel()
	if err := s.store.InsertReading(opCtx, rd); err != nil {
		return dropErr(ReasonInsertFailed, err, "sensor_id=%d", *sensorID)
	}

	metrics.ReadingsPersisted.WithLabelValues(string(sensorType)).Inc()
	s.log.Info().
		Float64("value", value).
		Str("type", string(sensorType)).
		Str("hw", hardwareID).
		Str("twin", loc.TwinShortName).
		Str("zone", loc.ZoneShortName).
		Msg("inserted reading")
	return nil
}

func (s *ReadingService) archive(ctx context.Context, topic string, payload []byte, de *DropError) {
	if s.deadLetter == nil {
		return
	}
	dl := domain.DeadLetter{
		Topic:      topic,
		Payload:    string(payload),
		Reason:     string(de.Reason),
		Detail:     de.Detail,
		ReceivedAt: s.now(),
	}
	if de.Err != nil {
		dl.Error = de.Err.Error()
	}

	actx, cancel := withTimeout(ctx, s.deadLetterTimeout)
	defer cancel()
	if err := s.deadLetter.Archive(actx, dl); err != nil {
		metrics.DeadLettersArchived.WithLabelValues("failure").Inc()
		s.log.Error().Err(err).Str("topic", topic).Msg("dead letter archive failed")
		return
	}
	metrics.DeadLettersArchived.WithLabelValues("success").Inc()
}

// lookup runs one identity query under the per-operation timeout and returns
// nil when the row does not exist.
func (s *ReadingService) lookup(ctx context.Context, fn func(context.Context) (int64, bool, error)) (*int64, error) {
	opCtx, cancel := s.opContext(ctx)
	defer cancel()
	id, found, err := fn(opCtx)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, nil
	}
	return &id, nil
}

func (s *ReadingService) opContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return withTimeout(ctx, s.queryTimeout)
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d > 0 {
		return context.WithTimeout(ctx, d)
	}
	return context.WithCancel(ctx)
}

// timestamp never fails: a missing or unparseable value falls back to now.
func (s *ReadingService) timestamp(doc map[string]any, topic string) time.Time {
	raw, ok := doc["timestamp"]
	if !ok || raw == nil {
		s.log.Warn().Str("topic", topic).Msg("no timestamp provided; using current time")
		metrics.TimestampFallbacks.Inc()
		return s.now()
	}
	str, isText := raw.(string)
	if !isText || str == "" {
		s.log.Warn().Str("topic", topic).Interface("timestamp", raw).Msg("timestamp is not a date-time string; using current time")
		metrics.TimestampFallbacks.Inc()
		return s.now()
	}
	ts, err := parseTimestamp(str)
	if err != nil {
		s.log.Warn().Err(err).Str("topic", topic).Msg("failed to parse timestamp; using current time")
		metrics.TimestampFallbacks.Inc()
		return s.now()
	}
	return ts
}

func (s *ReadingService) mappedIDs() []string {
	ids := make([]string, 0, len(s.mapping))
	for id := range s.mapping {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
