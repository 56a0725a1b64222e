// Package config loads daemon settings from a YAML file, falling
// back to defaults for anything unset.
package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the full daemon configuration.
type Config struct {
	// DBPath is the SQLite database location.
	DBPath string `yaml:"db_path"`

	// DayStartOffsetSeconds shifts where the local day boundary
	// falls, so a session running past midnight still counts as the
	// previous day. Range is minus 6 to plus 6 hours.
	DayStartOffsetSeconds int `yaml:"day_start_offset_seconds"`

	// WeekStart is the first day of the week, 0 for Monday through 6
	// for Sunday.
	WeekStart int `yaml:"week_start"`

	// OtherActivityID is the reserved activity used for cancellation
	// markers. It must exist and must never be deleted.
	OtherActivityID int64 `yaml:"other_activity_id"`

	// PingURL, when set, receives a GET once per local day.
	PingURL string `yaml:"ping_url"`

	// SyncURL, when set, is the websocket address of the paired
	// device endpoint.
	SyncURL string `yaml:"sync_url"`

	// SnapshotIntervalsLimit bounds interval history in snapshots
	// sent to the peer. Zero means unbounded.
	SnapshotIntervalsLimit int `yaml:"snapshot_intervals_limit"`

	// OverdueDelaySeconds is how long after a deadline passes before
	// the overdue notification fires.
	OverdueDelaySeconds int `yaml:"overdue_delay_seconds"`
}

const maxDayStartOffset = 6 * 3600

func Default() Config {
	return Config{
		DBPath:                 "tempod.db",
		OtherActivityID:        1,
		SnapshotIntervalsLimit: 1000,
		OverdueDelaySeconds:    60,
	}
}

// Load reads path and overlays it on the defaults. A missing file is
// not an error; the defaults apply.
func Load(path string) (Config, error) {
	cfg := Default()
	raw, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return Config{}, fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if c.DBPath == "" {
		return errors.New("config: db_path is required")
	}
	if c.DayStartOffsetSeconds < -maxDayStartOffset || c.DayStartOffsetSeconds > maxDayStartOffset {
		return fmt.Errorf("config: day_start_offset_seconds %d out of range", c.DayStartOffsetSeconds)
	}
	if c.WeekStart < 0 || c.WeekStart > 6 {
		return fmt.Errorf("config: week_start %d out of range", c.WeekStart)
	}
	if c.OtherActivityID <= 0 {
		return errors.New("config: other_activity_id is required")
	}
	if c.SnapshotIntervalsLimit < 0 {
		return errors.New("config: snapshot_intervals_limit must not be negative")
	}
	if c.OverdueDelaySeconds < 0 {
		return errors.New("config: overdue_delay_seconds must not be negative")
	}
	return nil
}
