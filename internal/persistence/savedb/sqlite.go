// Package savedb keeps a queryable index of saves and the event ledger
// in SQLite. The snapshot files remain the source of truth; the index
// exists so tooling can find the latest save and grep events without
// scanning compressed logs.
package savedb

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	_ "modernc.org/sqlite"

	"aethernexus.forge/internal/protocol"
	"aethernexus.forge/internal/sim/catalogs"
)

type SQLiteIndex struct {
	db *sql.DB

	ch   chan req
	wg   sync.WaitGroup
	once sync.Once

	closed atomic.Bool
}

type reqKind int

const (
	reqEvent reqKind = iota + 1
	reqSave
)

type req struct {
	kind  reqKind
	event protocol.Event
	save  saveRow
}

type saveRow struct {
	Tick   uint64
	Path   string
	Digest string
	Seed   string
	Level  int
	DCoin  float64
	RP     int64
}

func Open(path string) (*SQLiteIndex, error) {
	if path == "" {
		return nil, fmt.Errorf("empty db path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := initPragmas(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	s := &SQLiteIndex{
		db: db,
		ch: make(chan req, 65536),
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.loop()
	}()
	return s, nil
}

func initPragmas(db *sql.DB) error {
	// WAL suits the append-style workload; NORMAL durability is fine
	// for a secondary index.
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
		"PRAGMA temp_store=MEMORY;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return err
		}
	}
	return nil
}

func initSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS meta (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS catalogs (
			name TEXT PRIMARY KEY,
			digest TEXT NOT NULL,
			updated_at TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS saves (
			tick INTEGER PRIMARY KEY,
			path TEXT NOT NULL,
			digest TEXT NOT NULL,
			seed TEXT NOT NULL,
			level INTEGER NOT NULL,
			dcoin REAL NOT NULL,
			rp INTEGER NOT NULL,
			saved_at TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS events (
			tick INTEGER NOT NULL,
			seq INTEGER NOT NULL,
			type TEXT NOT NULL,
			severity TEXT NOT NULL,
			raw_json TEXT NOT NULL,
			PRIMARY KEY (tick, seq)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_events_type_tick ON events(type, tick);`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLiteIndex) Close() error {
	var err error
	s.once.Do(func() {
		s.closed.Store(true)
		close(s.ch)
		s.wg.Wait()
		err = s.db.Close()
	})
	return err
}

// WriteEvent indexes one domain event. Drops under backpressure; the
// JSONL ledger keeps the complete record.
func (s *SQLiteIndex) WriteEvent(ev protocol.Event) error {
	if s == nil || s.closed.Load() {
		return nil
	}
	select {
	case s.ch <- req{kind: reqEvent, event: ev}:
	default:
	}
	return nil
}

// RecordSave indexes a written snapshot. Queued like events so the
// engine goroutine never blocks on the database.
func (s *SQLiteIndex) RecordSave(path, digest, seed string, tick uint64, level int, dcoin float64, rp int64) {
	if s == nil || s.closed.Load() {
		return
	}
	select {
	case s.ch <- req{kind: reqSave, save: saveRow{
		Tick: tick, Path: path, Digest: digest, Seed: seed, Level: level, DCoin: dcoin, RP: rp,
	}}:
	default:
	}
}

// UpsertCatalogs records the active catalog digests so a save can be
// matched against the data it was played on.
func (s *SQLiteIndex) UpsertCatalogs(cats *catalogs.Catalogs) error {
	if s == nil {
		return nil
	}
	now := time.Now().UTC().Format(time.RFC3339)
	rows := map[string]string{
		"resources": cats.Resources.Digest,
		"recipes":   cats.Recipes.Digest,
		"workers":   cats.Workers.Digest,
		"upgrades":  cats.Upgrades.Digest,
		"coupons":   cats.Coupons.Digest,
	}
	for name, digest := range rows {
		_, err := s.db.Exec(
			`INSERT INTO catalogs(name, digest, updated_at) VALUES(?,?,?)
			 ON CONFLICT(name) DO UPDATE SET digest=excluded.digest, updated_at=excluded.updated_at`,
			name, digest, now)
		if err != nil {
			return err
		}
	}
	return nil
}

// LatestSave returns the path and tick of the newest indexed save, or
// ok=false when none exists.
func (s *SQLiteIndex) LatestSave() (path string, tick uint64, ok bool, err error) {
	row := s.db.QueryRow(`SELECT path, tick FROM saves ORDER BY tick DESC LIMIT 1`)
	switch err = row.Scan(&path, &tick); err {
	case nil:
		return path, tick, true, nil
	case sql.ErrNoRows:
		return "", 0, false, nil
	default:
		return "", 0, false, err
	}
}

// EventsByType returns the raw JSON of indexed events of one type,
// oldest first, up to limit.
func (s *SQLiteIndex) EventsByType(evType string, limit int) ([]string, error) {
	rows, err := s.db.Query(
		`SELECT raw_json FROM events WHERE type = ? ORDER BY tick, seq LIMIT ?`, evType, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, err
		}
		out = append(out, raw)
	}
	return out, rows.Err()
}

func (s *SQLiteIndex) loop() {
	var seq uint64
	var lastTick uint64
	for r := range s.ch {
		switch r.kind {
		case reqEvent:
			if r.event.Tick != lastTick {
				lastTick = r.event.Tick
				seq = 0
			}
			seq++
			raw, err := json.Marshal(r.event)
			if err != nil {
				continue
			}
			_, _ = s.db.Exec(
				`INSERT OR IGNORE INTO events(tick, seq, type, severity, raw_json) VALUES(?,?,?,?,?)`,
				r.event.Tick, seq, r.event.Type, string(r.event.Severity), string(raw))
		case reqSave:
			_, _ = s.db.Exec(
				`INSERT INTO saves(tick, path, digest, seed, level, dcoin, rp, saved_at) VALUES(?,?,?,?,?,?,?,?)
				 ON CONFLICT(tick) DO UPDATE SET path=excluded.path, digest=excluded.digest, saved_at=excluded.saved_at`,
				r.save.Tick, r.save.Path, r.save.Digest, r.save.Seed, r.save.Level, r.save.DCoin, r.save.RP,
				time.Now().UTC().Format(time.RFC3339))
		}
	}
}
