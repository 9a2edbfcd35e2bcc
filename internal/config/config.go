package config

import (
	"database/sql"
	"log/slog"
	"strconv"
	"sync"
)

// Config provides thread-safe access to key-value settings stored in
// SQLite, overlaid on top of the compiled-in Defaults(). The cache/Get/Set
// contract is unchanged from the teacher's internal/config: persisted
// overrides win, an unset key falls back to whatever the caller passes in.
type Config struct {
	db    *sql.DB
	cache map[string]string
	mu    sync.RWMutex
}

// New creates a Config backed by the given database.
func New(db *sql.DB) *Config {
	c := &Config{
		db:    db,
		cache: make(map[string]string),
	}
	c.loadAll()
	return c
}

// Get returns the value for the given key, or the fallback if not found.
func (c *Config) Get(key, fallback string) string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if v, ok := c.cache[key]; ok {
		return v
	}
	return fallback
}

// Set persists a key-value pair to the database and updates the cache.
func (c *Config) Set(key, value string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	_, err := c.db.Exec(
		`INSERT INTO config (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		key, value,
	)
	if err != nil {
		return err
	}
	c.cache[key] = value
	return nil
}

// All returns a copy of every config entry.
func (c *Config) All() map[string]string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[string]string, len(c.cache))
	for k, v := range c.cache {
		out[k] = v
	}
	return out
}

func (c *Config) loadAll() {
	rows, err := c.db.Query("SELECT key, value FROM config")
	if err != nil {
		slog.Error("failed to load config", "error", err)
		return
	}
	defer rows.Close()

	c.mu.Lock()
	defer c.mu.Unlock()
	for rows.Next() {
		var k, v string
		if rows.Scan(&k, &v) == nil {
			c.cache[k] = v
		}
	}
	if err := rows.Err(); err != nil {
		slog.Error("config rows iteration error", "error", err)
	}
}

// Tunables returns spec §6's tunable set, starting from Defaults() and
// overriding any field with a persisted value found in the database.
// Persisted keys match the yaml tags in Tunables (e.g. "seek_debounce_ms").
func (c *Config) Tunables() Tunables {
	t := Defaults()

	getFloat := func(key string, dst *float64) {
		if v, ok := c.lookup(key); ok {
			if f, err := strconv.ParseFloat(v, 64); err == nil {
				*dst = f
			} else {
				slog.Warn("config: ignoring unparsable tunable", "key", key, "value", v)
			}
		}
	}
	getInt64 := func(key string, dst *int64) {
		if v, ok := c.lookup(key); ok {
			if n, err := strconv.ParseInt(v, 10, 64); err == nil {
				*dst = n
			} else {
				slog.Warn("config: ignoring unparsable tunable", "key", key, "value", v)
			}
		}
	}
	getInt := func(key string, dst *int) {
		if v, ok := c.lookup(key); ok {
			if n, err := strconv.Atoi(v); err == nil {
				*dst = n
			} else {
				slog.Warn("config: ignoring unparsable tunable", "key", key, "value", v)
			}
		}
	}

	getFloat("seek_min_diff_seconds", &t.SeekMinDiffSeconds)
	getInt64("seek_debounce_ms", &t.SeekDebounceMS)
	getInt("seek_max_history", &t.SeekMaxHistory)
	getInt64("load_time_capture_delay_ms", &t.LoadTimeCaptureDelayMS)
	getInt64("ready_for_tracking_delay_ms", &t.ReadyForTrackingDelayMS)
	getInt64("stable_time_delay_ms", &t.StableTimeDelayMS)
	getInt64("keyboard_seek_flag_timeout_ms", &t.KeyboardSeekFlagTimeoutMS)
	getInt64("keyboard_seek_flag_timeout_no_video_ms", &t.KeyboardSeekFlagTimeoutNoVideoMS)

	t.hydrateDurations()
	return t
}

func (c *Config) lookup(key string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.cache[key]
	return v, ok
}
