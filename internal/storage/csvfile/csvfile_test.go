package csvfile

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"clinic_booking_bot/internal/storage/models"
	"clinic_booking_bot/pkg/errors"
)

func TestStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "bookings.csv")
	store := New(path)

	in := []models.Booking{
		models.NewBooking("Alice Tan", "2025-06-03", 10, "first visit"),
		models.NewBooking("Bob, Jr.", "2025-06-03", 13, ""),
		models.NewBooking("Chen \"CJ\" Li", "2025-06-07", 11, "needs x-ray\nand cleaning"),
	}

	require.NoError(t, store.Save(ctx, in))

	out, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestStore_LoadMissingFile(t *testing.T) {
	store := New(filepath.Join(t.TempDir(), "missing.csv"))

	_, err := store.Load(context.Background())

	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrStorageRead))
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestStore_LoadCorruptFile(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"empty", ""},
		{"wrong header", "who,when\nAlice,2025-06-03\n"},
		{"ragged row", "name,date,time,remarks\nAlice,2025-06-03\n"},
		{"bad quoting", "name,date,time,remarks\n\"Alice,2025-06-03,10,\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "bookings.csv")
			require.NoError(t, os.WriteFile(path, []byte(tt.content), 0o644))

			_, err := New(path).Load(context.Background())

			require.Error(t, err)
			assert.True(t, errors.Is(err, errors.ErrStorageRead))
		})
	}
}

func TestStore_LoadWithoutRemarksColumn(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bookings.csv")
	require.NoError(t, os.WriteFile(path, []byte("name,date,time\nAlice,2025-06-03,10\n"), 0o644))

	out, err := New(path).Load(context.Background())

	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "", out[0].Remarks)
	hour, err := out[0].Hour()
	require.NoError(t, err)
	assert.Equal(t, 10, hour)
}

func TestStore_InitCreatesHeaderOnly(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "bookings.csv")
	store := New(path)

	require.NoError(t, store.Init(ctx))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "name,date,time,remarks\n", string(data))

	out, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestStore_InitKeepsExistingFile(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "bookings.csv")
	store := New(path)
	require.NoError(t, store.Save(ctx, []models.Booking{models.NewBooking("Alice", "2025-06-03", 9, "")}))

	require.NoError(t, store.Init(ctx))

	out, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Len(t, out, 1)
}

func TestStore_SaveFailureKeepsPreviousFile(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	path := filepath.Join(dir, "bookings.csv")
	store := New(path)
	require.NoError(t, store.Save(ctx, []models.Booking{models.NewBooking("Alice", "2025-06-03", 9, "")}))

	// каталог не существует, временный файл создать нельзя
	broken := New(filepath.Join(dir, "nope", "bookings.csv"))
	err := broken.Save(ctx, []models.Booking{models.NewBooking("Bob", "2025-06-03", 10, "")})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrStorageWrite))

	out, err := store.Load(ctx)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "Alice", out[0].Name)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temp files should be left behind")
}

func TestStore_SaveCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := New(filepath.Join(t.TempDir(), "bookings.csv")).Save(ctx, nil)

	assert.True(t, errors.Is(err, errors.ErrStorageWrite))
}

func TestStore_Ping(t *testing.T) {
	dir := t.TempDir()
	assert.NoError(t, New(filepath.Join(dir, "bookings.csv")).Ping(context.Background()))
	assert.Error(t, New(filepath.Join(dir, "missing", "bookings.csv")).Ping(context.Background()))
}
