package dialogue

import (
	"context"
	stderrors "errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"clinic_booking_bot/internal/availability"
	"clinic_booking_bot/internal/calendar"
	"clinic_booking_bot/internal/extractor"
	"clinic_booking_bot/internal/ledger"
	"clinic_booking_bot/internal/storage/models"
	"clinic_booking_bot/internal/testutil"
	"clinic_booking_bot/pkg/errors"
)

// now: вторник 2025-06-03, 10:00
var now = time.Date(2025, 6, 3, 10, 0, 0, 0, time.UTC)

const (
	tuesday  = "2025-06-10"
	friday   = "2025-06-06"
	saturday = "2025-06-07"
	sunday   = "2025-06-08"
)

// script детерминированный извлекатель: ответ по точному тексту реплики
type script map[string]extractor.Result

func (s script) Extract(ctx context.Context, req extractor.Request) (extractor.Result, error) {
	return s[req.Text()], nil
}

type fixture struct {
	engine *Engine
	ledger *ledger.Ledger
	store  *testutil.MemoryStore
}

func newFixture(t *testing.T, x extractor.Extractor, existing ...models.Booking) *fixture {
	t.Helper()
	log := testutil.SetupTestLogger()
	store := testutil.NewMemoryStore(existing...)
	l, err := ledger.Open(testutil.TestContext(), store, log)
	require.NoError(t, err)

	resolver := availability.NewResolver(l, calendar.DefaultRules(), log)
	e := NewEngine(l, resolver, x, log,
		WithClock(testutil.FixedClock(now)),
		WithLocation(time.UTC),
	)
	return &fixture{engine: e, ledger: l, store: store}
}

func (f *fixture) step(t *testing.T, st *State, input string) Reply {
	t.Helper()
	return f.engine.Step(context.Background(), st, input)
}

var standard = script{
	"Alice, next tuesday": {Name: "Alice", Date: tuesday},
	"I'm Alice":           {Name: "Alice"},
	"Alice":               {Name: "Alice"},
	"next tuesday":        {Date: tuesday},
	"saturday":            {Date: saturday},
	"sunday":              {Date: sunday},
	"yesterday":           {Date: "2025-06-02"},
	"today":               {Date: "2025-06-03"},
	"10am":                {Hour: extractor.Hour(10)},
	"noon":                {Hour: extractor.Hour(12)},
}

// toTime проводит сессию до выбора времени на вторник
func (f *fixture) toTime(t *testing.T) *State {
	t.Helper()
	st, _ := f.engine.Start()
	r := f.step(t, st, "Alice, next tuesday")
	require.Equal(t, PhaseCollectTime, r.Phase)
	return st
}

// toConfirm проводит сессию до подтверждения записи на вторник 10:00
func (f *fixture) toConfirm(t *testing.T) *State {
	t.Helper()
	st := f.toTime(t)
	require.Equal(t, PhaseCollectRemarks, f.step(t, st, "10am").Phase)
	require.Equal(t, PhaseConfirm, f.step(t, st, "wheelchair access").Phase)
	return st
}

func TestEngine_HappyPath(t *testing.T) {
	f := newFixture(t, standard)

	st, r := f.engine.Start()
	assert.Equal(t, PhaseCollectNameDate, r.Phase)
	assert.Equal(t, []string{msgAskNameDate}, r.Messages)
	assert.NotEmpty(t, st.ID)

	r = f.step(t, st, "Alice, next tuesday")
	assert.Equal(t, PhaseCollectTime, r.Phase)
	assert.Equal(t, []int{9, 10, 11, 13, 14, 15, 16}, r.Slots)
	require.Len(t, r.Messages, 2)
	assert.Contains(t, r.Messages[0], "Here are the available time slots for 2025-06-10:")
	assert.Contains(t, r.Messages[0], "9 AM            | 10 AM")
	assert.Equal(t, msgAskTime, r.Messages[1])

	r = f.step(t, st, "10am")
	assert.Equal(t, PhaseCollectRemarks, r.Phase)
	assert.Equal(t, []string{
		"Got it! Alice, Your appointment will be on 2025-06-10 at 10 AM.",
		msgAskRemarks,
	}, r.Messages)

	r = f.step(t, st, "")
	assert.Equal(t, PhaseConfirm, r.Phase)
	assert.Equal(t, "Booking Summary:\nName: Alice\nDate: 2025-06-10\nTime: 10 AM\nRemarks: ", r.Messages[0])
	assert.Equal(t, msgAskConfirm, r.Messages[1])

	r = f.step(t, st, "YES")
	assert.Equal(t, PhaseCommitted, r.Phase)
	assert.True(t, r.Done)
	assert.Equal(t, []string{msgBooked}, r.Messages)
	require.NotNil(t, r.Outcome)
	assert.True(t, r.Outcome.Committed)
	assert.NoError(t, r.Outcome.PersistErr)

	want := models.NewBooking("Alice", tuesday, 10, "")
	assert.Equal(t, want, r.Outcome.Booking)
	assert.Equal(t, []models.Booking{want}, f.store.Saved())
}

func TestEngine_AffirmativeTokens(t *testing.T) {
	for _, token := range []string{"yes", "Y", " confirm "} {
		t.Run(token, func(t *testing.T) {
			f := newFixture(t, standard)
			st := f.toConfirm(t)

			r := f.step(t, st, token)

			assert.Equal(t, PhaseCommitted, r.Phase)
			assert.Equal(t, 1, f.ledger.Len())
		})
	}
}

func TestEngine_NameDateRoutesToMissingField(t *testing.T) {
	t.Run("name only", func(t *testing.T) {
		f := newFixture(t, standard)
		st, _ := f.engine.Start()

		r := f.step(t, st, "I'm Alice")

		assert.Equal(t, PhaseCollectDate, r.Phase)
		assert.Equal(t, []string{msgAskDate}, r.Messages)
		assert.Equal(t, "Alice", st.Name)
	})

	t.Run("date only", func(t *testing.T) {
		f := newFixture(t, standard)
		st, _ := f.engine.Start()

		r := f.step(t, st, "next tuesday")

		assert.Equal(t, PhaseCollectName, r.Phase)
		assert.Equal(t, []string{msgAskName}, r.Messages)
		assert.Equal(t, tuesday, st.Date)

		r = f.step(t, st, "Alice")
		assert.Equal(t, PhaseCollectTime, r.Phase)
	})

	t.Run("empty input", func(t *testing.T) {
		f := newFixture(t, standard)
		st, _ := f.engine.Start()

		r := f.step(t, st, "   ")

		assert.Equal(t, PhaseCollectName, r.Phase)
	})

	t.Run("closed day discarded, name kept", func(t *testing.T) {
		x := script{"Bob on sunday": {Name: "Bob", Date: sunday}}
		f := newFixture(t, x)
		st, _ := f.engine.Start()

		r := f.step(t, st, "Bob on sunday")

		assert.Equal(t, PhaseCollectDate, r.Phase)
		assert.Equal(t, []string{"Sorry, we are closed on Sundays.", msgAskDate}, r.Messages)
		assert.Equal(t, "Bob", st.Name)
		assert.Empty(t, st.Date)
	})

	t.Run("past date discarded", func(t *testing.T) {
		x := script{"Bob yesterday": {Name: "Bob", Date: "2025-06-01"}}
		f := newFixture(t, x)
		st, _ := f.engine.Start()

		r := f.step(t, st, "Bob yesterday")

		assert.Equal(t, PhaseCollectDate, r.Phase)
		assert.Equal(t, msgPastDate, r.Messages[0])
		assert.Empty(t, st.Date)
	})
}

func TestEngine_NameLoopRepeatsUntilDeterminate(t *testing.T) {
	x := script{
		"hmm":   {Name: "false"},
		"Carol": {Name: "Carol"},
	}
	f := newFixture(t, x)
	st, _ := f.engine.Start()
	f.step(t, st, "")

	for _, in := range []string{"hmm", "", "???"} {
		r := f.step(t, st, in)
		assert.Equal(t, PhaseCollectName, r.Phase)
		assert.Equal(t, []string{msgAskName}, r.Messages)
	}

	r := f.step(t, st, "Carol")
	assert.Equal(t, PhaseCollectDate, r.Phase)
	assert.Equal(t, "Carol", st.Name)
}

func TestEngine_DateLoopReasons(t *testing.T) {
	f := newFixture(t, standard)
	st, _ := f.engine.Start()
	f.step(t, st, "I'm Alice")

	tests := []struct {
		in   string
		want string
	}{
		{"", msgEmptyDate},
		{"whenever", msgUnknownDate},
		{"yesterday", msgPastDate},
		{"today", msgPastDate},
		{"sunday", "Sorry, we are closed on Sundays."},
	}
	for _, tt := range tests {
		r := f.step(t, st, tt.in)
		assert.Equal(t, PhaseCollectDate, r.Phase, tt.in)
		assert.Equal(t, []string{tt.want, msgAskDate}, r.Messages, tt.in)
		assert.Empty(t, st.Date)
	}

	r := f.step(t, st, "saturday")
	assert.Equal(t, PhaseCollectTime, r.Phase)
	assert.Equal(t, []int{10, 11, 13}, r.Slots)
}

func TestEngine_DateWithoutSlotsStaysInDateLoop(t *testing.T) {
	f := newFixture(t, standard,
		models.NewBooking("X", saturday, 10, ""),
		models.NewBooking("Y", saturday, 11, ""),
		models.NewBooking("Z", saturday, 13, ""),
	)
	st, _ := f.engine.Start()
	f.step(t, st, "I'm Alice")

	r := f.step(t, st, "saturday")

	assert.Equal(t, PhaseCollectDate, r.Phase)
	assert.Equal(t, []string{
		"Sorry, there are no available slots for 2025-06-07. Please choose another date.",
		msgAskDate,
	}, r.Messages)
	assert.Empty(t, st.Date)
	assert.Empty(t, r.Slots)
}

func TestEngine_BackReturnsToDateAndRecomputesSlots(t *testing.T) {
	for _, token := range []string{"back", "Go Back", "CANCEL"} {
		t.Run(token, func(t *testing.T) {
			f := newFixture(t, standard)
			st := f.toTime(t)

			r := f.step(t, st, token)

			assert.Equal(t, PhaseCollectDate, r.Phase)
			assert.Equal(t, []string{msgAskDate}, r.Messages)
			assert.Empty(t, st.Date)
			assert.Nil(t, st.Slots)

			r = f.step(t, st, "saturday")
			assert.Equal(t, PhaseCollectTime, r.Phase)
			assert.Equal(t, []int{10, 11, 13}, r.Slots)
			assert.Equal(t, saturday, st.Date)
		})
	}
}

func TestEngine_TimeOutsideSlotsIsRejected(t *testing.T) {
	f := newFixture(t, standard)
	st := f.toTime(t)

	r := f.step(t, st, "noon")

	assert.Equal(t, PhaseCollectTime, r.Phase)
	assert.Equal(t, msgTimeTaken, r.Messages[0])
	assert.Equal(t, msgAskTime, r.Messages[len(r.Messages)-1])
	assert.Nil(t, st.Hour)

	r = f.step(t, st, "no idea")
	assert.Equal(t, PhaseCollectTime, r.Phase)
	assert.Equal(t, msgUnknownTime, r.Messages[0])

	r = f.step(t, st, " ")
	assert.Equal(t, PhaseCollectTime, r.Phase)
	assert.Equal(t, msgEmptyTime, r.Messages[0])
}

func TestEngine_SlotsRecomputedEachTurn(t *testing.T) {
	f := newFixture(t, standard)
	st := f.toTime(t)
	require.Contains(t, st.Slots, 10)

	require.NoError(t, f.ledger.Append(models.NewBooking("Bob", tuesday, 10, "")))

	r := f.step(t, st, "10am")

	assert.Equal(t, PhaseCollectTime, r.Phase)
	assert.Equal(t, msgTimeTaken, r.Messages[0])
	assert.Equal(t, []int{9, 11, 13, 14, 15, 16}, r.Slots)
}

func TestEngine_LastSlotTakenWhileChoosingTime(t *testing.T) {
	f := newFixture(t, standard)
	st, _ := f.engine.Start()
	f.step(t, st, "I'm Alice")
	require.Equal(t, PhaseCollectTime, f.step(t, st, "saturday").Phase)

	for _, h := range []int{10, 11, 13} {
		require.NoError(t, f.ledger.Append(models.NewBooking("X", saturday, h, "")))
	}

	r := f.step(t, st, "10am")

	assert.Equal(t, PhaseCollectDate, r.Phase)
	assert.Empty(t, st.Date)
	assert.Contains(t, r.Messages[0], "no available slots")
}

func TestEngine_ConfirmDeclinedLeavesLedgerUnchanged(t *testing.T) {
	for _, in := range []string{"no", "", "maybe", "yes please"} {
		t.Run(in, func(t *testing.T) {
			f := newFixture(t, standard)
			st := f.toConfirm(t)

			r := f.step(t, st, in)

			assert.Equal(t, PhaseCancelled, r.Phase)
			assert.True(t, r.Done)
			assert.Equal(t, []string{msgCancelled}, r.Messages)
			require.NotNil(t, r.Outcome)
			assert.Equal(t, ReasonDeclined, r.Outcome.Reason)
			assert.False(t, r.Outcome.Committed)
			assert.Equal(t, 0, f.ledger.Len())
			assert.Equal(t, 0, f.store.SaveCalls)
		})
	}
}

func TestEngine_DuplicateAtCommitCancels(t *testing.T) {
	f := newFixture(t, standard)
	st := f.toConfirm(t)
	require.NoError(t, f.ledger.Append(models.NewBooking("Bob", tuesday, 10, "")))

	r := f.step(t, st, "yes")

	assert.Equal(t, PhaseCancelled, r.Phase)
	assert.Equal(t, []string{msgSlotJustTaken, msgCancelled}, r.Messages)
	require.NotNil(t, r.Outcome)
	assert.Equal(t, ReasonDuplicate, r.Outcome.Reason)
	assert.Equal(t, 1, f.ledger.Len())
	assert.Equal(t, "Bob", f.ledger.Snapshot()[0].Name)
}

func TestEngine_SaveFailureIsSurfaced(t *testing.T) {
	f := newFixture(t, standard)
	st := f.toConfirm(t)
	f.store.SetSaveErr(stderrors.New("disk full"))

	r := f.step(t, st, "yes")

	assert.Equal(t, PhaseCommitted, r.Phase)
	assert.Equal(t, []string{msgBooked, msgNotPersisted}, r.Messages)
	require.NotNil(t, r.Outcome)
	assert.True(t, r.Outcome.Committed)
	require.Error(t, r.Outcome.PersistErr)
	assert.True(t, errors.Is(r.Outcome.PersistErr, errors.ErrStorageWrite))

	// без отката: запись осталась в памяти
	assert.Equal(t, 1, f.ledger.Len())
	assert.Empty(t, f.store.Saved())
}

func TestEngine_ExpiredDateAtConfirmation(t *testing.T) {
	clock := now
	log := testutil.SetupTestLogger()
	l, err := ledger.Open(testutil.TestContext(), testutil.NewMemoryStore(), log)
	require.NoError(t, err)
	e := NewEngine(l, availability.NewResolver(l, calendar.DefaultRules(), log), standard, log,
		WithClock(func() time.Time { return clock }),
		WithLocation(time.UTC),
	)

	st, _ := e.Start()
	e.Step(context.Background(), st, "Alice, next tuesday")
	e.Step(context.Background(), st, "10am")
	e.Step(context.Background(), st, "")

	clock = time.Date(2025, 6, 10, 8, 0, 0, 0, time.UTC)
	r := e.Step(context.Background(), st, "yes")

	assert.Equal(t, PhaseCancelled, r.Phase)
	assert.Equal(t, ReasonInvalid, r.Outcome.Reason)
	assert.Equal(t, 0, l.Len())
}

func TestEngine_ExtractorErrorIsUndeterminable(t *testing.T) {
	failing := extractor.Func(func(ctx context.Context, req extractor.Request) (extractor.Result, error) {
		return extractor.Result{Name: "Mallory"}, stderrors.New("upstream 500")
	})
	f := newFixture(t, failing)
	st, _ := f.engine.Start()

	r := f.step(t, st, "I'm Mallory")

	assert.Equal(t, PhaseCollectName, r.Phase)
	assert.Empty(t, st.Name)
}

func TestEngine_AbandonAndTerminalSteps(t *testing.T) {
	f := newFixture(t, standard)
	st := f.toTime(t)

	r := f.engine.Abandon(st, "")
	assert.Equal(t, PhaseCancelled, r.Phase)
	assert.True(t, r.Done)
	assert.Equal(t, ReasonAbandoned, r.Outcome.Reason)

	r = f.step(t, st, "10am")
	assert.True(t, r.Done)
	assert.Empty(t, r.Messages)
	assert.Equal(t, 0, f.ledger.Len())

	r = f.engine.Abandon(st, "exit")
	assert.Nil(t, r.Outcome)
}

func TestEngine_WithRulesExtractor(t *testing.T) {
	x := extractor.NewGuard(extractor.NewRules(), time.Second, testutil.SetupTestLogger())
	f := newFixture(t, x)
	st, _ := f.engine.Start()

	r := f.step(t, st, "I'm Dana, next friday")
	require.Equal(t, PhaseCollectTime, r.Phase)
	assert.Equal(t, friday, st.Date)

	r = f.step(t, st, "2 pm")
	require.Equal(t, PhaseCollectRemarks, r.Phase)
	assert.Equal(t, 14, *st.Hour)

	f.step(t, st, "first visit")
	r = f.step(t, st, "y")
	assert.Equal(t, PhaseCommitted, r.Phase)
	assert.Equal(t, models.NewBooking("Dana", friday, 14, "first visit"), r.Outcome.Booking)
}
