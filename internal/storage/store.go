package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/glebarez/go-sqlite"
	"github.com/shopspring/decimal"
)

// SQLiteJournal mirrors the trade log into SQLite. Rows are only ever
// inserted; there is no update or delete path.
type SQLiteJournal struct {
	db *sql.DB
}

// OpenSQLite opens the database with WAL mode enabled and creates the tables.
func OpenSQLite(dbPath string) (*SQLiteJournal, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA cache_size=-2000;", // 2MB cache
	}

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to set pragma %s: %w", pragma, err)
		}
	}

	// Decimals are stored as TEXT to keep them exact.
	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS trades (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			ts INTEGER NOT NULL,
			order_id TEXT NOT NULL,
			symbol TEXT NOT NULL,
			side TEXT NOT NULL,
			quantity TEXT NOT NULL,
			price TEXT NOT NULL,
			balance_after TEXT NOT NULL,
			realized_pnl TEXT NOT NULL
		);
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create trades table: %w", err)
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS events (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			ts INTEGER NOT NULL,
			event TEXT NOT NULL,
			balance TEXT NOT NULL
		);
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create events table: %w", err)
	}

	return &SQLiteJournal{db: db}, nil
}

func (s *SQLiteJournal) RecordTrade(ctx context.Context, rec TradeRecord) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO trades (ts, order_id, symbol, side, quantity, price, balance_after, realized_pnl)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.Timestamp.UnixMicro(), rec.OrderID, rec.Symbol, rec.Side,
		rec.Quantity.String(), rec.Price.String(), rec.BalanceAfter.String(), rec.RealizedPnL.String(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert trade: %w", err)
	}
	return nil
}

func (s *SQLiteJournal) RecordEvent(ctx context.Context, rec EventRecord) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO events (ts, event, balance) VALUES (?, ?, ?)",
		rec.Timestamp.UnixMicro(), rec.Event, rec.Balance.String(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert event: %w", err)
	}
	return nil
}

// LoadTrades returns trades in insertion order, optionally for one symbol.
func (s *SQLiteJournal) LoadTrades(ctx context.Context, symbol string) ([]TradeRecord, error) {
	query := "SELECT ts, order_id, symbol, side, quantity, price, balance_after, realized_pnl FROM trades"
	var args []any
	if symbol != "" {
		query += " WHERE symbol = ?"
		args = append(args, symbol)
	}
	query += " ORDER BY id ASC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query trades: %w", err)
	}
	defer rows.Close()

	var trades []TradeRecord
	for rows.Next() {
		var (
			ts                            int64
			rec                           TradeRecord
			qty, price, balance, realized string
		)
		if err := rows.Scan(&ts, &rec.OrderID, &rec.Symbol, &rec.Side, &qty, &price, &balance, &realized); err != nil {
			return nil, fmt.Errorf("failed to scan trade: %w", err)
		}
		rec.Timestamp = time.UnixMicro(ts).UTC()
		if rec.Quantity, err = decimal.NewFromString(qty); err != nil {
			return nil, fmt.Errorf("trade %s: bad quantity: %w", rec.OrderID, err)
		}
		if rec.Price, err = decimal.NewFromString(price); err != nil {
			return nil, fmt.Errorf("trade %s: bad price: %w", rec.OrderID, err)
		}
		if rec.BalanceAfter, err = decimal.NewFromString(balance); err != nil {
			return nil, fmt.Errorf("trade %s: bad balance: %w", rec.OrderID, err)
		}
		if rec.RealizedPnL, err = decimal.NewFromString(realized); err != nil {
			return nil, fmt.Errorf("trade %s: bad realized pnl: %w", rec.OrderID, err)
		}
		trades = append(trades, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return trades, nil
}

// CountEvents returns how many lifecycle rows carry the given name.
func (s *SQLiteJournal) CountEvents(ctx context.Context, name string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM events WHERE event = ?", name).Scan(&n)
	return n, err
}

// Close closes the database connection.
func (s *SQLiteJournal) Close() error {
	return s.db.Close()
}
