package extractor

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRules_Name(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"My name is alice tan", "Alice Tan"},
		{"I'm Bob and I'd like an appointment", "Bob"},
		{"this is Chen Wei", "Chen Wei"},
		{"call me Dana please", "Dana"},
		{"Erin", "Erin"},
		{"erin o'neil", "Erin O'neil"},
		{"I don't want to tell you", ""},
		{"tomorrow", ""},
		{"12345", ""},
		{"", ""},
	}

	x := NewRules()
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			res, err := x.Extract(context.Background(), NameRequest{Utterance: tt.in})
			require.NoError(t, err)
			assert.Equal(t, tt.want, res.Name)
		})
	}
}

func TestRules_Date(t *testing.T) {
	// ref: вторник 2025-06-03
	tests := []struct {
		in   string
		want string
	}{
		{"2025-06-10", "2025-06-10"},
		{"on 5/6 please", "2025-06-05"},
		{"04/06/2025", "2025-06-04"},
		{"1/6", "2026-06-01"},
		{"the 12th of June", "2025-06-12"},
		{"June 20", "2025-06-20"},
		{"jan 3rd", "2026-01-03"},
		{"tomorrow", "2025-06-04"},
		{"day after tomorrow", "2025-06-05"},
		{"in 3 days", "2025-06-06"},
		{"in two weeks", "2025-06-17"},
		{"next friday", "2025-06-06"},
		{"Tuesday", "2025-06-10"},
		{"sat", "2025-06-07"},
		{"31/02", ""},
		{"whenever", ""},
	}

	x := NewRules()
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			res, err := x.Extract(context.Background(), DateRequest{Utterance: tt.in, Reference: ref})
			require.NoError(t, err)
			assert.Equal(t, tt.want, res.Date)
		})
	}
}

func TestRules_NameDate(t *testing.T) {
	tests := []struct {
		in       string
		wantName string
		wantDate string
	}{
		{"I'm Alice, next friday", "Alice", "2025-06-06"},
		{"Bob Lee, 2025-06-10", "Bob Lee", "2025-06-10"},
		{"my name is Carol and I'd like tomorrow", "Carol", "2025-06-04"},
		{"next monday", "", "2025-06-09"},
		{"Dave", "", ""},
	}

	x := NewRules()
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			res, err := x.Extract(context.Background(), NameDateRequest{Utterance: tt.in, Reference: ref})
			require.NoError(t, err)
			assert.Equal(t, tt.wantName, res.Name)
			assert.Equal(t, tt.wantDate, res.Date)
		})
	}
}

func TestRules_Time(t *testing.T) {
	tests := []struct {
		in   string
		want int
		ok   bool
	}{
		{"10am", 10, true},
		{"10 AM", 10, true},
		{"3 p.m.", 15, true},
		{"12pm", 12, true},
		{"12am", 0, true},
		{"15:00", 15, true},
		{"at 9", 9, true},
		{"2", 14, true},
		{"four o'clock", 16, true},
		{"eleven", 11, true},
		{"noon", 12, true},
		{"whatever works", 0, false},
		{"99", 0, false},
	}

	x := NewRules()
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			res, err := x.Extract(context.Background(), TimeRequest{Utterance: tt.in})
			require.NoError(t, err)
			if !tt.ok {
				assert.False(t, res.HasHour())
				return
			}
			require.True(t, res.HasHour())
			assert.Equal(t, tt.want, res.HourValue())
		})
	}
}

func TestRules_Intent(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"I want to book an appointment", true},
		{"Can I schedule a cleaning?", true},
		{"yes", true},
		{"I don't want to book anything", false},
		{"What are your opening hours?", false},
		{"What should I bring to my appointment?", false},
		{"hello", false},
	}

	x := NewRules()
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			res, err := x.Extract(context.Background(), IntentRequest{Utterance: tt.in})
			require.NoError(t, err)
			assert.Equal(t, tt.want, res.BookingIntent)
		})
	}
}
