package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"clinic_booking_bot/internal/storage/models"
	"clinic_booking_bot/pkg/errors"
	"clinic_booking_bot/pkg/metrics"

	_ "modernc.org/sqlite"
)

const backend = "sqlite"

// SQLiteStorage хранит журнал записей в SQLite
type SQLiteStorage struct {
	db *sql.DB
}

// New создает новое подключение к SQLite базе данных
func New(dbPath string) (*SQLiteStorage, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite поддерживает только одно write-подключение
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	storage := &SQLiteStorage{db: db}

	if err := storage.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migration failed: %w", err)
	}

	return storage, nil
}

// migrate выполняет миграции базы данных
func (s *SQLiteStorage) migrate() error {
	if _, err := s.db.Exec(`PRAGMA journal_mode=WAL`); err != nil {
		return fmt.Errorf("failed to set WAL mode: %w", err)
	}

	queries := []string{
		`CREATE TABLE IF NOT EXISTS bookings (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT NOT NULL,
			date TEXT NOT NULL,
			time TEXT NOT NULL,
			remarks TEXT,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_bookings_date ON bookings(date)`,
	}

	for _, query := range queries {
		if _, err := s.db.Exec(query); err != nil {
			return fmt.Errorf("failed to execute migration query: %w", err)
		}
	}

	return nil
}

// Close закрывает подключение к базе данных
func (s *SQLiteStorage) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Ping проверяет подключение к базе данных
func (s *SQLiteStorage) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Load читает все записи в порядке добавления
func (s *SQLiteStorage) Load(ctx context.Context) ([]models.Booking, error) {
	bookings, err := s.load(ctx)
	if err != nil {
		metrics.RecordStorageOperation("load", backend, "error")
		return nil, errors.ErrStorageRead.WithError(err)
	}
	metrics.RecordStorageOperation("load", backend, "success")
	return bookings, nil
}

func (s *SQLiteStorage) load(ctx context.Context) ([]models.Booking, error) {
	query := `SELECT name, date, time, remarks FROM bookings ORDER BY id`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query bookings: %w", err)
	}
	defer rows.Close()

	var bookings []models.Booking
	for rows.Next() {
		var (
			b       models.Booking
			remarks sql.NullString
		)
		if err := rows.Scan(&b.Name, &b.Date, &b.Time, &remarks); err != nil {
			return nil, fmt.Errorf("failed to scan booking: %w", err)
		}
		b.Remarks = remarks.String
		bookings = append(bookings, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate bookings: %w", err)
	}

	return bookings, nil
}

// Save заменяет все записи одной транзакцией
func (s *SQLiteStorage) Save(ctx context.Context, bookings []models.Booking) error {
	if err := s.save(ctx, bookings); err != nil {
		metrics.RecordStorageOperation("save", backend, "error")
		return errors.ErrStorageWrite.WithError(err)
	}
	metrics.RecordStorageOperation("save", backend, "success")
	return nil
}

func (s *SQLiteStorage) save(ctx context.Context, bookings []models.Booking) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM bookings`); err != nil {
		return fmt.Errorf("failed to clear bookings: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO bookings (name, date, time, remarks) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, b := range bookings {
		var remarks sql.NullString
		if b.Remarks != "" {
			remarks = sql.NullString{String: b.Remarks, Valid: true}
		}
		if _, err := stmt.ExecContext(ctx, b.Name, b.Date, b.Time, remarks); err != nil {
			return fmt.Errorf("failed to insert booking: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}
