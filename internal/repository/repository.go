package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/ANIKETSHETTY47/digital-twin-ingestor/internal/domain"
	"github.com/ANIKETSHETTY47/digital-twin-ingestor/internal/sensortype"
	"github.com/jackc/pgx/v5"
	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog"
)

// Repos is the persistence gateway. Lookups only read; "not found" is
// reported as found == false with a nil error.
type Repos struct {
	db       *sqlx.DB
	registry *sensortype.Registry
	log      zerolog.Logger
}

func New(db *sqlx.DB, registry *sensortype.Registry, log zerolog.Logger) *Repos {
	return &Repos{db: db, registry: registry, log: log}
}

func (r *Repos) ResolveTwin(ctx context.Context, shortName string) (int64, bool, error) {
	var tw domain.Twin
	err := r.db.GetContext(ctx, &tw,
		`SELECT twin_id, twin_short_name, status FROM digital_twins WHERE twin_short_name = $1 AND status = true LIMIT 1`,
		shortName)
	return found(tw.ID, err, "twin")
}

func (r *Repos) ResolveZone(ctx context.Context, twinID int64, shortName string) (int64, bool, error) {
	var z domain.Zone
	err := r.db.GetContext(ctx, &z,
		`SELECT zone_id, twin_id, zone_short_name FROM zones WHERE twin_id = $1 AND zone_short_name = $2 LIMIT 1`,
		twinID, shortName)
	return found(z.ID, err, "zone")
}

func (r *Repos) ResolveSensor(ctx context.Context, zoneID int64, sensorType sensortype.Type) (int64, bool, error) {
	var s domain.Sensor
	err := r.db.GetContext(ctx, &s,
		`SELECT sensor_id, zone_id, sensor_type FROM sensors WHERE zone_id = $1 AND sensor_type = $2 LIMIT 1`,
		zoneID, string(sensorType))
	return found(s.ID, err, "sensor")
}

func found(id int64, err error, what string) (int64, bool, error) {
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("query %s: %w", what, err)
	}
	return id, true, nil
}

// InsertReading writes one row into the reading table for rd.SensorType.
// Table and column come from the registry and are quoted as identifiers;
// everything else is a bind parameter.
func (r *Repos) InsertReading(ctx context.Context, rd domain.Reading) error {
	dest, err := r.registry.Resolve(rd.SensorType)
	if err != nil {
		return err
	}
	query := fmt.Sprintf(`INSERT INTO %s (sensor_id, %s, created_date) VALUES ($1, $2, $3)`,
		pgx.Identifier{dest.Table}.Sanitize(), pgx.Identifier{dest.Column}.Sanitize())

	if _, err := r.db.ExecContext(ctx, query, rd.SensorID, rd.Value, rd.Timestamp); err != nil {
		return fmt.Errorf("insert into %s: %w", dest.Table, err)
	}
	r.log.Debug().
		Str("table", dest.Table).
		Int64("sensor_id", rd.SensorID).
		Float64("value", rd.Value).
		Time("ts", rd.Timestamp).
		Msg("inserted sensor reading")
	return nil
}

func (r *Repos) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}
