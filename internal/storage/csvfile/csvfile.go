package csvfile

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"clinic_booking_bot/internal/storage/models"
	"clinic_booking_bot/pkg/errors"
	"clinic_booking_bot/pkg/metrics"
)

const backend = "csv"

// Header заголовок файла журнала
var Header = []string{"name", "date", "time", "remarks"}

// Store хранит журнал записей в CSV файле
type Store struct {
	path string
	mu   sync.Mutex
}

// New создает хранилище для файла path. Файл не создается.
func New(path string) *Store {
	return &Store{path: path}
}

// Path возвращает путь к файлу журнала
func (s *Store) Path() string {
	return s.path
}

// Init создает пустой журнал с заголовком, если файла еще нет
func (s *Store) Init(ctx context.Context) error {
	if _, err := os.Stat(s.path); err == nil {
		return nil
	} else if !os.IsNotExist(err) {
		return errors.ErrStorageRead.WithError(err)
	}
	return s.Save(ctx, nil)
}

// Load читает все записи из файла
func (s *Store) Load(ctx context.Context) ([]models.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	bookings, err := s.load()
	if err != nil {
		metrics.RecordStorageOperation("load", backend, "error")
		return nil, errors.ErrStorageRead.WithError(err).WithContext(map[string]interface{}{
			"path": s.path,
		})
	}

	metrics.RecordStorageOperation("load", backend, "success")
	return bookings, nil
}

func (s *Store) load() ([]models.Booking, error) {
	f, err := os.Open(s.path)
	if err != nil {
		return nil, fmt.Errorf("failed to open ledger file: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.TrimLeadingSpace = true

	header, err := r.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("ledger file is empty")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	idx, err := columnIndex(header)
	if err != nil {
		return nil, err
	}

	var bookings []models.Booking
	for {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read row: %w", err)
		}

		b := models.Booking{
			Name: row[idx["name"]],
			Date: row[idx["date"]],
			Time: row[idx["time"]],
		}
		if i, ok := idx["remarks"]; ok {
			b.Remarks = row[i]
		}
		bookings = append(bookings, b)
	}

	return bookings, nil
}

// columnIndex сопоставляет названия колонок с позициями; remarks необязательна
func columnIndex(header []string) (map[string]int, error) {
	idx := make(map[string]int, len(header))
	for i, col := range header {
		idx[strings.ToLower(strings.TrimSpace(strings.TrimPrefix(col, "\ufeff")))] = i
	}
	for _, required := range Header[:3] {
		if _, ok := idx[required]; !ok {
			return nil, fmt.Errorf("ledger header is missing column %q", required)
		}
	}
	return idx, nil
}

// Save записывает журнал во временный файл и переименовывает его поверх
// основного, так что файл всегда содержит либо старый, либо новый журнал
func (s *Store) Save(ctx context.Context, bookings []models.Booking) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return errors.ErrStorageWrite.WithError(err)
	}

	if err := s.save(bookings); err != nil {
		metrics.RecordStorageOperation("save", backend, "error")
		return errors.ErrStorageWrite.WithError(err).WithContext(map[string]interface{}{
			"path": s.path,
		})
	}

	metrics.RecordStorageOperation("save", backend, "success")
	return nil
}

func (s *Store) save(bookings []models.Booking) (err error) {
	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()

	w := csv.NewWriter(tmp)
	if err := w.Write(Header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	for _, b := range bookings {
		if err := w.Write([]string{b.Name, b.Date, b.Time, b.Remarks}); err != nil {
			return fmt.Errorf("failed to write row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("failed to flush rows: %w", err)
	}

	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("failed to sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("failed to replace ledger file: %w", err)
	}
	return nil
}

// Ping проверяет, что каталог журнала доступен
func (s *Store) Ping(ctx context.Context) error {
	info, err := os.Stat(filepath.Dir(s.path))
	if err != nil {
		return fmt.Errorf("ledger directory unavailable: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("ledger directory %s is not a directory", filepath.Dir(s.path))
	}
	return nil
}

// Close ничего не делает: файл открывается только на время операции
func (s *Store) Close() error {
	return nil
}
