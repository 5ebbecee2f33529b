package sensortype

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Type is a lowercase sensor type name.
type Type string

const (
	Temperature Type = "temperature"
	Humidity    Type = "humidity"
	Light       Type = "light"
)

var allowed = []Type{Temperature, Humidity, Light}

var ErrUnknownType = errors.New("unknown sensor type")

// Allowed returns the canonical set of sensor types the ingestor accepts.
func Allowed() []Type {
	out := make([]Type, len(allowed))
	copy(out, allowed)
	return out
}

// Parse lowercases s and reports whether it names an allowed sensor type.
func Parse(s string) (Type, bool) {
	t := Type(strings.ToLower(strings.TrimSpace(s)))
	for _, a := range allowed {
		if a == t {
			return t, true
		}
	}
	return t, false
}

// Destination is the reading table and value column for one sensor type.
type Destination struct {
	Table  string
	Column string
}

func DefaultDestinations() map[Type]Destination {
	return map[Type]Destination{
		Temperature: {Table: "temperature_sensor_data", Column: "temperature_value"},
		Humidity:    {Table: "humidity_sensor_data", Column: "humidity_value"},
		Light:       {Table: "light_sensor_data", Column: "light_value"},
	}
}

// Registry maps every allowed sensor type to its storage destination.
// It is immutable once built.
type Registry struct {
	dest map[Type]Destination
}

// NewRegistry validates that the keys of dest are exactly the allowed types
// and that every destination names a table and a column.
func NewRegistry(dest map[Type]Destination) (*Registry, error) {
	var missing, extra, blank []string
	want := make(map[Type]bool, len(allowed))
	for _, t := range allowed {
		want[t] = true
		if _, ok := dest[t]; !ok {
			missing = append(missing, string(t))
		}
	}
	for t, d := range dest {
		if !want[t] {
			extra = append(extra, string(t))
			continue
		}
		if strings.TrimSpace(d.Table) == "" || strings.TrimSpace(d.Column) == "" {
			blank = append(blank, string(t))
		}
	}

	if len(missing) > 0 || len(extra) > 0 || len(blank) > 0 {
		sort.Strings(missing)
		sort.Strings(extra)
		sort.Strings(blank)
		return nil, fmt.Errorf("sensor type registry mismatch: missing=%v extra=%v blank=%v", missing, extra, blank)
	}

	r := &Registry{dest: make(map[Type]Destination, len(dest))}
	for t, d := range dest {
		r.dest[t] = d
	}
	return r, nil
}

// Resolve returns the destination for t. An error here means a caller skipped
// type validation.
func (r *Registry) Resolve(t Type) (Destination, error) {
	d, ok := r.dest[t]
	if !ok {
		return Destination{}, fmt.Errorf("%w: %q", ErrUnknownType, t)
	}
	return d, nil
}
