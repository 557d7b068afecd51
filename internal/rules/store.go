package rules

import (
	"database/sql"
	"fmt"
	"log/slog"
	"sync"

	"github.com/psford/t-tracker/internal/logging"

	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

// StopChecker reports whether a stop id exists in the current stop
// catalog. Rules pointing at unknown stops are filtered out at load time
// so stale configuration cannot crash matching.
type StopChecker interface {
	Known(stopID string) bool
}

// Store is the durable rule set. All reads are served from memory; writes
// go to memory first and then to SQLite. A storage write failure is logged
// and swallowed, leaving the in-memory state authoritative for the session.
type Store struct {
	db     *sql.DB
	logger *slog.Logger

	mu     sync.RWMutex
	rules  []Rule
	paused bool
}

// Open opens (creating if needed) the rule database at path and loads the
// rule set. ":memory:" gives an ephemeral store for tests.
func Open(path string, catalog StopChecker, logger *slog.Logger) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("error opening rule database: %w", err)
	}
	if path == ":memory:" {
		// Every pooled connection would otherwise see its own empty database.
		db.SetMaxOpenConns(1)
	}
	if err := createTables(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	s := &Store{
		db:     db,
		logger: logger.With(slog.String("component", "rule_store")),
	}
	s.load(catalog)
	return s, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func createTables(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS notification_rules (
			id TEXT PRIMARY KEY,
			checkpoint_stop_id TEXT NOT NULL,
			route_id TEXT NOT NULL,
			direction_id INTEGER NOT NULL,
			terminus INTEGER NOT NULL DEFAULT 0,
			position INTEGER NOT NULL
		);
		CREATE TABLE IF NOT EXISTS settings (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);
	`)
	if err != nil {
		return fmt.Errorf("error creating rule tables: %w", err)
	}
	return nil
}

// load populates the in-memory cache. Unreadable rows and rules whose
// checkpoint stop is not in the catalog are discarded, not fatal.
func (s *Store) load(catalog StopChecker) {
	rows, err := s.db.Query(`
		SELECT id, checkpoint_stop_id, route_id, direction_id, terminus
		FROM notification_rules ORDER BY position`)
	if err != nil {
		logging.LogError(s.logger, "failed to load rules, starting empty", err)
		return
	}
	defer logging.SafeCloseWithLogging(rows, s.logger, "load_rules")

	var loaded []Rule
	dropped := 0
	for rows.Next() {
		var r Rule
		if err := rows.Scan(&r.ID, &r.CheckpointStopID, &r.RouteID, &r.DirectionID, &r.Terminus); err != nil {
			dropped++
			continue
		}
		if len(loaded) >= MaxRules {
			dropped++
			continue
		}
		if catalog != nil && !catalog.Known(r.CheckpointStopID) {
			s.logger.Warn("dropping rule with unknown checkpoint stop",
				slog.String("rule_id", r.ID),
				slog.String("stop_id", r.CheckpointStopID))
			dropped++
			continue
		}
		loaded = append(loaded, r)
	}
	if err := rows.Err(); err != nil {
		logging.LogError(s.logger, "error reading rule rows", err)
	}

	s.mu.Lock()
	s.rules = loaded
	s.mu.Unlock()

	var pausedValue string
	err = s.db.QueryRow(`SELECT value FROM settings WHERE key = 'paused'`).Scan(&pausedValue)
	if err == nil && pausedValue == "1" {
		s.mu.Lock()
		s.paused = true
		s.mu.Unlock()
	}

	logging.LogOperation(s.logger, "rules_loaded",
		slog.Int("rules", len(loaded)),
		slog.Int("dropped", dropped))
}

// Add appends a rule. It assigns an id when the rule has none, and returns
// ErrRuleLimit, ErrDuplicate, or ErrInvalid as structured rejections.
func (s *Store) Add(r Rule) (Rule, error) {
	if r.CheckpointStopID == "" || r.RouteID == "" {
		return Rule{}, ErrInvalid
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.rules) >= MaxRules {
		return Rule{}, ErrRuleLimit
	}
	for _, existing := range s.rules {
		if existing.SameTriple(r) {
			return Rule{}, ErrDuplicate
		}
	}

	if r.ID == "" {
		r.ID = newRuleID()
	}
	position := len(s.rules)
	s.rules = append(s.rules, r)

	_, err := s.db.Exec(`
		INSERT INTO notification_rules (id, checkpoint_stop_id, route_id, direction_id, terminus, position)
		VALUES (?, ?, ?, ?, ?, ?)`,
		r.ID, r.CheckpointStopID, r.RouteID, r.DirectionID, r.Terminus, position)
	if err != nil {
		logging.LogError(s.logger, "failed to persist rule", err,
			slog.String("rule_id", r.ID))
	}
	return r, nil
}

// Remove deletes a rule by id. Removing an unknown id is a no-op returning
// false.
func (s *Store) Remove(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := -1
	for i, r := range s.rules {
		if r.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return false
	}
	s.rules = append(s.rules[:idx], s.rules[idx+1:]...)

	if _, err := s.db.Exec(`DELETE FROM notification_rules WHERE id = ?`, id); err != nil {
		logging.LogError(s.logger, "failed to delete persisted rule", err,
			slog.String("rule_id", id))
	}
	return true
}

// List returns a copy of the current rules in configured order.
func (s *Store) List() []Rule {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Rule, len(s.rules))
	copy(out, s.rules)
	return out
}

// SetPaused flips the global pause flag. Paused rules are retained but no
// matching or firing happens while the flag is set.
func (s *Store) SetPaused(paused bool) {
	s.mu.Lock()
	s.paused = paused
	s.mu.Unlock()

	value := "0"
	if paused {
		value = "1"
	}
	_, err := s.db.Exec(`
		INSERT INTO settings (key, value) VALUES ('paused', ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value`, value)
	if err != nil {
		logging.LogError(s.logger, "failed to persist pause flag", err)
	}
}

// Paused reports the global pause flag.
func (s *Store) Paused() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.paused
}
