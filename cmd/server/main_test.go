package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetArgs(args)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func ledgerEnv(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "bookings.csv")
	if content != "" {
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
	t.Setenv("LEDGER_PATH", path)
	t.Setenv("LOG_LEVEL", "error")
	return path
}

func TestSlotsCommand(t *testing.T) {
	ledgerEnv(t, "name,date,time,remarks\nAlice,2030-06-04,9,\nBob,2030-06-04,13,\n")

	out, err := execute(t, "", "slots", "--date", "2030-06-04")

	require.NoError(t, err)
	assert.Contains(t, out, "Here are the available time slots for 2030-06-04:")
	assert.Contains(t, out, "10 AM")
	assert.NotContains(t, out, "9 AM")
	assert.NotContains(t, out, "1 PM ")
}

func TestSlotsCommand_ClosedDay(t *testing.T) {
	ledgerEnv(t, "name,date,time,remarks\n")

	out, err := execute(t, "", "slots", "--date", "2030-06-02")

	require.NoError(t, err)
	assert.Contains(t, out, "No available slots for 2030-06-02.")
}

func TestBookingsCommand(t *testing.T) {
	ledgerEnv(t, "name,date,time,remarks\nAlice,2030-06-04,9,first visit\n")

	out, err := execute(t, "", "bookings")

	require.NoError(t, err)
	assert.Contains(t, out, "Name: Alice")
	assert.Contains(t, out, "Time: 9 AM")
	assert.Contains(t, out, "Remarks: first visit")
}

func TestMissingLedgerNeedsInit(t *testing.T) {
	path := ledgerEnv(t, "")

	_, err := execute(t, "", "bookings")
	require.Error(t, err)

	out, err := execute(t, "", "--init-ledger", "bookings")
	require.NoError(t, err)
	assert.Contains(t, out, "No bookings.")
	assert.FileExists(t, path)
}

func TestChatCommand_Exit(t *testing.T) {
	ledgerEnv(t, "name,date,time,remarks\n")

	out, err := execute(t, "what are your prices?\nexit\n", "chat")

	require.NoError(t, err)
	assert.Contains(t, out, "Welcome to BrightSmile Dental Clinic!")
	assert.Contains(t, out, "Please contact us at BrightSmile Dental Clinic")
}
