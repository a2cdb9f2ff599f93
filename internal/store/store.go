// Package store is the sqlite persistence collaborator: it supplies the
// position list at tick start and accepts price updates and alert
// records at tick end.
package store

import (
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"

	"OptionSentinel/internal/model"
)

const dateLayout = "2006-01-02"

// Store wraps the sqlite database. All writes are serialized.
type Store struct {
	db  *sql.DB
	mu  sync.Mutex
	log zerolog.Logger
}

// Open opens (or creates) the database and runs migrations.
func Open(dbPath string, log zerolog.Logger) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// WAL mode for concurrent reads while the tick writes.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	s := &Store{db: db, log: log.With().Str("component", "store").Logger()}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	s.log.Info().Str("path", dbPath).Msg("sqlite store opened")
	return s, nil
}

func (s *Store) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS option_positions (
			id              INTEGER PRIMARY KEY AUTOINCREMENT,
			underlying      TEXT NOT NULL,
			option_kind     TEXT NOT NULL,
			strike          REAL NOT NULL,
			expiration_date TEXT NOT NULL,
			entry_date      TEXT NOT NULL,
			entry_price     REAL NOT NULL,
			quantity        INTEGER,
			current_price   REAL,
			last_price_update INTEGER,
			max_profit_pct  REAL NOT NULL DEFAULT 0,
			created_at      INTEGER NOT NULL
		)`,

		`CREATE TABLE IF NOT EXISTS alert_logs (
			id                INTEGER PRIMARY KEY AUTOINCREMENT,
			alert_id          TEXT NOT NULL,
			triggered_at      INTEGER NOT NULL,
			rule_name         TEXT NOT NULL,
			category          TEXT NOT NULL,
			severity          TEXT NOT NULL,
			message           TEXT NOT NULL,
			trigger_condition TEXT NOT NULL,
			position_id       INTEGER,
			sent_successfully INTEGER NOT NULL,
			error_message     TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_alerts_ts ON alert_logs(triggered_at)`,

		`CREATE TABLE IF NOT EXISTS daily_index_data (
			id          INTEGER PRIMARY KEY AUTOINCREMENT,
			date        TEXT UNIQUE NOT NULL,
			close_price REAL,
			high_price  REAL,
			fetched_at  INTEGER NOT NULL
		)`,
	}

	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("exec %q: %w", stmt[:40], err)
		}
	}
	return nil
}

// Positions returns all open positions.
func (s *Store) Positions() ([]*model.Position, error) {
	rows, err := s.db.Query(`SELECT id, underlying, option_kind, strike,
		expiration_date, entry_date, entry_price, quantity,
		current_price, last_price_update, max_profit_pct
		FROM option_positions ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query positions: %w", err)
	}
	defer rows.Close()

	var positions []*model.Position
	for rows.Next() {
		var (
			p          model.Position
			kind       string
			expStr     string
			entryStr   string
			qty        sql.NullInt64
			current    sql.NullFloat64
			lastUpdate sql.NullInt64
		)
		if err := rows.Scan(&p.ID, &p.Underlying, &kind, &p.Strike,
			&expStr, &entryStr, &p.EntryPrice, &qty,
			&current, &lastUpdate, &p.MaxProfitPct); err != nil {
			return nil, fmt.Errorf("scan position: %w", err)
		}
		p.Kind = model.OptionKind(kind)
		if p.Expiration, err = time.Parse(dateLayout, expStr); err != nil {
			return nil, fmt.Errorf("parse expiration for position %d: %w", p.ID, err)
		}
		if p.EntryDate, err = time.Parse(dateLayout, entryStr); err != nil {
			return nil, fmt.Errorf("parse entry date for position %d: %w", p.ID, err)
		}
		if qty.Valid {
			p.Quantity = int(qty.Int64)
		}
		if current.Valid {
			v := current.Float64
			p.CurrentPrice = &v
		}
		if lastUpdate.Valid {
			p.LastPriceUpdate = time.Unix(lastUpdate.Int64, 0)
		}
		positions = append(positions, &p)
	}
	return positions, rows.Err()
}

// AddPosition inserts a position and returns its id. The admin surface
// calls this; the tick cycle never does.
func (s *Store) AddPosition(p *model.Position) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.Exec(`INSERT INTO option_positions
		(underlying, option_kind, strike, expiration_date, entry_date,
		 entry_price, quantity, max_profit_pct, created_at)
		VALUES (?,?,?,?,?,?,?,?,?)`,
		p.Underlying, string(p.Kind), p.Strike,
		p.Expiration.Format(dateLayout), p.EntryDate.Format(dateLayout),
		p.EntryPrice, p.Quantity, p.MaxProfitPct, time.Now().Unix(),
	)
	if err != nil {
		return 0, fmt.Errorf("insert position: %w", err)
	}
	return res.LastInsertId()
}

// DeletePosition removes a position.
func (s *Store) DeletePosition(id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(`DELETE FROM option_positions WHERE id = ?`, id)
	return err
}

// UpdatePositionPrice writes back this tick's price and high-water mark.
func (s *Store) UpdatePositionPrice(id int64, price, maxProfitPct float64, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(`UPDATE option_positions
		SET current_price = ?, max_profit_pct = ?, last_price_update = ?
		WHERE id = ?`,
		price, maxProfitPct, at.Unix(), id)
	return err
}

// LogAlert appends a dispatched alert with its delivery outcome.
func (s *Store) LogAlert(evt *model.AlertEvent, delivered bool, errMsg string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var posID any
	if evt.PositionID != nil {
		posID = *evt.PositionID
	}
	var errCol any
	if errMsg != "" {
		errCol = errMsg
	}
	_, err := s.db.Exec(`INSERT INTO alert_logs
		(alert_id, triggered_at, rule_name, category, severity,
		 message, trigger_condition, position_id, sent_successfully, error_message)
		VALUES (?,?,?,?,?,?,?,?,?,?)`,
		evt.ID, evt.At.Unix(), evt.RuleName, string(evt.Category), string(evt.Severity),
		evt.Message, evt.TriggerCondition, posID, delivered, errCol)
	return err
}

// UpsertDailyIndexData records the day's index close and high.
func (s *Store) UpsertDailyIndexData(date time.Time, closePrice, highPrice float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(`INSERT INTO daily_index_data (date, close_price, high_price, fetched_at)
		VALUES (?,?,?,?)
		ON CONFLICT(date) DO UPDATE SET
			close_price = excluded.close_price,
			high_price = excluded.high_price,
			fetched_at = excluded.fetched_at`,
		date.Format(dateLayout), closePrice, highPrice, time.Now().Unix())
	return err
}

// PurgeOld deletes alert logs and daily index rows past their retention
// windows, returning the row counts removed.
func (s *Store) PurgeOld(alertRetentionDays, indexRetentionDays int, now time.Time) (alerts, indexRows int64, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.Exec(`DELETE FROM alert_logs WHERE triggered_at < ?`,
		now.AddDate(0, 0, -alertRetentionDays).Unix())
	if err != nil {
		return 0, 0, fmt.Errorf("purge alert logs: %w", err)
	}
	alerts, _ = res.RowsAffected()

	res, err = s.db.Exec(`DELETE FROM daily_index_data WHERE fetched_at < ?`,
		now.AddDate(0, 0, -indexRetentionDays).Unix())
	if err != nil {
		return alerts, 0, fmt.Errorf("purge index data: %w", err)
	}
	indexRows, _ = res.RowsAffected()
	return alerts, indexRows, nil
}

// Close closes the database.
func (s *Store) Close() error {
	s.log.Info().Msg("closing sqlite store")
	return s.db.Close()
}
