package db

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/surge-tracker/pkg/config"
)

const schema = `
CREATE TABLE IF NOT EXISTS address_labels (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    address TEXT NOT NULL,
    chain TEXT NOT NULL,
    label TEXT NOT NULL DEFAULT '',
    category TEXT NOT NULL DEFAULT 'unknown',
    source TEXT NOT NULL DEFAULT 'remote',
    query_count INTEGER NOT NULL DEFAULT 0,
    resolved_at TIMESTAMP NOT NULL,
    created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
    UNIQUE(address, chain)
);

CREATE TABLE IF NOT EXISTS surge_alerts (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    address TEXT NOT NULL,
    chain TEXT NOT NULL,
    token TEXT NOT NULL,
    old_balance TEXT NOT NULL,
    new_balance TEXT NOT NULL,
    delta TEXT NOT NULL,
    growth_ratio TEXT NOT NULL DEFAULT '0',
    unbounded BOOLEAN NOT NULL DEFAULT FALSE,
    label TEXT NOT NULL DEFAULT '',
    window_start TIMESTAMP,
    window_end TIMESTAMP,
    created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_label_addr ON address_labels(address, chain);
CREATE INDEX IF NOT EXISTS idx_label_resolved ON address_labels(resolved_at);
CREATE INDEX IF NOT EXISTS idx_alert_addr ON surge_alerts(address);
CREATE INDEX IF NOT EXISTS idx_alert_time ON surge_alerts(created_at);
`

type Store struct {
	db *sql.DB
}

func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("init schema: %w", err)
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// ---- Address Labels ----

// GetLabel returns the cached label for an address, or nil when none exists.
// Every hit bumps query_count.
func (s *Store) GetLabel(address string, chain config.Chain) (*AddressLabel, error) {
	var l AddressLabel
	var ch string
	err := s.db.QueryRow(`
		SELECT id, address, chain, label, category, source, query_count, resolved_at
		FROM address_labels WHERE address=? AND chain=?`,
		address, string(chain)).Scan(
		&l.ID, &l.Address, &ch, &l.Label, &l.Category, &l.Source, &l.QueryCount, &l.ResolvedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	l.Chain = config.Chain(ch)

	s.db.Exec("UPDATE address_labels SET query_count = query_count + 1 WHERE id=?", l.ID)
	return &l, nil
}

// PutLabel stores a resolution result. Concurrent writers race benignly:
// whichever lands last wins, both carrying fresh data.
func (s *Store) PutLabel(l AddressLabel) error {
	if l.ResolvedAt.IsZero() {
		l.ResolvedAt = time.Now().UTC()
	}
	_, err := s.db.Exec(`
		INSERT INTO address_labels (address, chain, label, category, source, resolved_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(address, chain) DO UPDATE SET
			label=excluded.label,
			category=excluded.category,
			source=excluded.source,
			resolved_at=excluded.resolved_at`,
		l.Address, string(l.Chain), l.Label, l.Category, l.Source, l.ResolvedAt)
	return err
}

// CountLabels reports cache size, split by category.
func (s *Store) CountLabels(chain config.Chain) (map[string]int64, error) {
	rows, err := s.db.Query(
		"SELECT category, COUNT(*) FROM address_labels WHERE chain=? GROUP BY category", string(chain))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := map[string]int64{}
	for rows.Next() {
		var cat string
		var n int64
		if err := rows.Scan(&cat, &n); err != nil {
			continue
		}
		counts[cat] = n
	}
	return counts, nil
}

// PruneLabels drops entries older than the TTL. Run opportunistically; stale
// entries are also ignored at read time.
func (s *Store) PruneLabels(ttl time.Duration) (int64, error) {
	res, err := s.db.Exec("DELETE FROM address_labels WHERE resolved_at < ?", time.Now().UTC().Add(-ttl))
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// ---- Surge Alerts ----

func (s *Store) InsertSurgeAlert(a SurgeAlert) error {
	_, err := s.db.Exec(`
		INSERT INTO surge_alerts
		(address, chain, token, old_balance, new_balance, delta, growth_ratio, unbounded, label, window_start, window_end)
		VALUES (?,?,?,?,?,?,?,?,?,?,?)`,
		a.Address, string(a.Chain), a.Token,
		a.OldBalance.String(), a.NewBalance.String(), a.Delta.String(), a.GrowthRatio.String(),
		a.Unbounded, a.Label, a.WindowStart, a.WindowEnd)
	return err
}

func (s *Store) RecentSurgeAlerts(limit int) ([]SurgeAlert, error) {
	rows, err := s.db.Query(`
		SELECT id, address, chain, token, old_balance, new_balance, delta, growth_ratio, unbounded, label, window_start, window_end, created_at
		FROM surge_alerts ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var alerts []SurgeAlert
	for rows.Next() {
		var a SurgeAlert
		var ch, oldBal, newBal, delta, ratio string
		if err := rows.Scan(&a.ID, &a.Address, &ch, &a.Token, &oldBal, &newBal, &delta, &ratio,
			&a.Unbounded, &a.Label, &a.WindowStart, &a.WindowEnd, &a.CreatedAt); err != nil {
			continue
		}
		a.Chain = config.Chain(ch)
		a.OldBalance, _ = decimalFromDB(oldBal)
		a.NewBalance, _ = decimalFromDB(newBal)
		a.Delta, _ = decimalFromDB(delta)
		a.GrowthRatio, _ = decimalFromDB(ratio)
		alerts = append(alerts, a)
	}
	return alerts, nil
}
