package service

import (
	"context"
	stderrors "errors"
	"sync"
	"testing"
	"time"

	"github.com/go-telegram/bot"
	tgmodels "github.com/go-telegram/bot/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"clinic_booking_bot/internal/availability"
	"clinic_booking_bot/internal/calendar"
	"clinic_booking_bot/internal/config"
	"clinic_booking_bot/internal/dialogue"
	"clinic_booking_bot/internal/extractor"
	"clinic_booking_bot/internal/ledger"
	"clinic_booking_bot/internal/scheduler"
	"clinic_booking_bot/internal/session/memory"
	"clinic_booking_bot/internal/storage/models"
	"clinic_booking_bot/internal/testutil"
	"clinic_booking_bot/pkg/errors"
)

const chatID int64 = 42

// вторник 2025-06-03, 10:00 UTC
var now = time.Date(2025, 6, 3, 10, 0, 0, 0, time.UTC)

type fakeSender struct {
	mu        sync.Mutex
	messages  []*bot.SendMessageParams
	callbacks []*bot.AnswerCallbackQueryParams
	err       error
}

func (s *fakeSender) SendMessage(ctx context.Context, params *bot.SendMessageParams) (*tgmodels.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = append(s.messages, params)
	if s.err != nil {
		return nil, s.err
	}
	return &tgmodels.Message{ID: len(s.messages)}, nil
}

func (s *fakeSender) AnswerCallbackQuery(ctx context.Context, params *bot.AnswerCallbackQueryParams) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.callbacks = append(s.callbacks, params)
	return true, nil
}

func (s *fakeSender) texts() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []string
	for _, m := range s.messages {
		out = append(out, m.Text)
	}
	return out
}

func (s *fakeSender) last() *bot.SendMessageParams {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.messages[len(s.messages)-1]
}

func (s *fakeSender) reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = nil
	s.callbacks = nil
}

type fakeScheduler struct {
	scheduled []scheduler.Reminder
	stopped   bool
}

func (f *fakeScheduler) Schedule(ctx context.Context, r scheduler.Reminder) error {
	f.scheduled = append(f.scheduled, r)
	return nil
}
func (f *fakeScheduler) Cancel(ctx context.Context, key string) error { return nil }
func (f *fakeScheduler) Start(ctx context.Context) error             { return nil }
func (f *fakeScheduler) Stop() error {
	f.stopped = true
	return nil
}

type fixture struct {
	service   *Service
	sender    *fakeSender
	sessions  *memory.Store
	scheduler *fakeScheduler
	store     *testutil.MemoryStore
}

func newFixture(t *testing.T, existing ...models.Booking) *fixture {
	t.Helper()
	log := testutil.SetupTestLogger()
	store := testutil.NewMemoryStore(existing...)
	l, err := ledger.Open(testutil.TestContext(), store, log)
	require.NoError(t, err)

	x := extractor.NewGuard(extractor.NewRules(), time.Second, log)
	resolver := availability.NewResolver(l, calendar.DefaultRules(), log)
	engine := dialogue.NewEngine(l, resolver, x, log,
		dialogue.WithClock(testutil.FixedClock(now)),
		dialogue.WithLocation(time.UTC),
	)

	cfg := &config.Config{
		Clinic:   config.ClinicConfig{Name: "BrightSmile Dental Clinic", Timezone: "UTC"},
		Schedule: config.ScheduleConfig{ReminderMins: 60},
	}

	sender := &fakeSender{}
	sessions := memory.New(time.Hour)
	sched := &fakeScheduler{}
	return &fixture{
		service:   NewService(sender, engine, sessions, x, sched, cfg, log),
		sender:    sender,
		sessions:  sessions,
		scheduler: sched,
		store:     store,
	}
}

func TestService_FullBookingOverTelegram(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.service.StartBooking(ctx, chatID)
	assert.Equal(t, []string{"Please tell me your name and preferred date."}, f.sender.texts())

	f.sender.reset()
	f.service.HandleText(ctx, chatID, "I'm Dana, next friday")
	kb, ok := f.sender.last().ReplyMarkup.(*tgmodels.InlineKeyboardMarkup)
	require.True(t, ok, "slot keyboard expected on the last message")
	assert.Equal(t, "SLOT:9", kb.InlineKeyboard[0][0].CallbackData)

	f.service.HandleChoice(ctx, chatID, "cb-1", "SLOT:14")
	require.Len(t, f.sender.callbacks, 1)
	assert.Equal(t, "cb-1", f.sender.callbacks[0].CallbackQueryID)

	f.service.HandleText(ctx, chatID, "first visit")
	_, ok = f.sender.last().ReplyMarkup.(*tgmodels.InlineKeyboardMarkup)
	assert.True(t, ok, "confirm keyboard expected")

	f.sender.reset()
	f.service.HandleChoice(ctx, chatID, "cb-2", "CONFIRM:yes")

	assert.Contains(t, f.sender.texts(), "Your booking has been successfully made.")
	assert.Equal(t, msgAfterEnd, f.sender.last().Text)
	assert.Equal(t, []models.Booking{models.NewBooking("Dana", "2025-06-06", 14, "first visit")}, f.store.Saved())
	assert.Equal(t, 0, f.sessions.Len())

	require.Len(t, f.scheduler.scheduled, 1)
	r := f.scheduler.scheduled[0]
	assert.Equal(t, chatID, r.ChatID)
	assert.True(t, r.At.Equal(time.Date(2025, 6, 6, 13, 0, 0, 0, time.UTC)))
}

func TestService_IntentStartsSession(t *testing.T) {
	f := newFixture(t)

	f.service.HandleText(context.Background(), chatID, "I'd like to book an appointment")

	assert.Equal(t, []string{
		"It seems like you want to book an appointment. Let me help you with that.",
		"Please tell me your name and preferred date.",
	}, f.sender.texts())
	assert.Equal(t, 1, f.sessions.Len())
}

func TestService_NoIntentGetsFallback(t *testing.T) {
	f := newFixture(t)

	f.service.HandleText(context.Background(), chatID, "what are your prices?")

	texts := f.sender.texts()
	require.Len(t, texts, 2)
	assert.Contains(t, texts[0], "Please contact us at BrightSmile Dental Clinic")
	assert.Equal(t, 0, f.sessions.Len())
}

func TestService_CancelBooking(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.service.CancelBooking(ctx, chatID)
	assert.Equal(t, []string{msgNoSession}, f.sender.texts())

	f.service.StartBooking(ctx, chatID)
	f.sender.reset()
	f.service.CancelBooking(ctx, chatID)

	assert.Equal(t, 0, f.sessions.Len())
	assert.Equal(t, msgAfterEnd, f.sender.last().Text)
	assert.Empty(t, f.store.Saved())
}

func TestService_DeclinedBookingIsNotScheduled(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.service.StartBooking(ctx, chatID)
	f.service.HandleText(ctx, chatID, "I'm Dana, next friday")
	f.service.HandleText(ctx, chatID, "2 pm")
	f.service.HandleText(ctx, chatID, "")
	f.service.HandleChoice(ctx, chatID, "cb", "CONFIRM:no")

	assert.Contains(t, f.sender.texts(), "Booking cancelled.")
	assert.Empty(t, f.store.Saved())
	assert.Empty(t, f.scheduler.scheduled)
}

func TestService_UnknownCallback(t *testing.T) {
	f := newFixture(t)

	f.service.HandleChoice(context.Background(), chatID, "cb", "DATE:2025-06-10")

	require.Len(t, f.sender.callbacks, 1)
	assert.Equal(t, msgBadChoice, f.sender.callbacks[0].Text)
	assert.Empty(t, f.sender.texts())
}

func TestService_SendMessageWrapsTelegramError(t *testing.T) {
	f := newFixture(t)
	f.sender.err = stderrors.New("forbidden")

	err := f.service.SendSimpleMessage(context.Background(), chatID, "hi")

	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrTelegramAPI))
}

func TestService_Close(t *testing.T) {
	f := newFixture(t)

	require.NoError(t, f.service.Close())
	assert.True(t, f.scheduler.stopped)
}

func TestReminderSender(t *testing.T) {
	sender := &fakeSender{}
	rs := NewReminderSender(sender, "BrightSmile Dental Clinic")
	r := scheduler.Reminder{ChatID: 7, Booking: models.NewBooking("Dana", "2025-06-06", 14, "")}

	require.NoError(t, rs.SendReminder(context.Background(), r))
	assert.Equal(t, "Reminder: Dana, your appointment at BrightSmile Dental Clinic is on 2025-06-06 at 2 PM.", sender.last().Text)

	sender.err = stderrors.New("blocked")
	err := rs.SendReminder(context.Background(), r)
	assert.True(t, errors.Is(err, errors.ErrTelegramAPI))
}
