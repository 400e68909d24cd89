// Package dialogue ведет пошаговый диалог записи на прием: собирает имя,
// дату, время и пожелания, проверяет их по расписанию и свободным слотам
// и по подтверждению фиксирует запись в журнале.
package dialogue

import (
	"context"
	"strings"
	"time"

	"clinic_booking_bot/internal/calendar"
	"clinic_booking_bot/internal/extractor"
	"clinic_booking_bot/internal/storage/models"
	"clinic_booking_bot/internal/validation"
	"clinic_booking_bot/pkg/errors"
	"clinic_booking_bot/pkg/logger"
	"clinic_booking_bot/pkg/metrics"
)

// Ledger фиксирует подтвержденные записи
type Ledger interface {
	Commit(ctx context.Context, b models.Booking) error
}

// SlotSource вычисляет свободные часы на дату
type SlotSource interface {
	AvailableSlots(date string) ([]int, error)
	Rules() calendar.WeeklyRules
}

// Engine конечный автомат диалога записи. Сам по себе состояния не хранит:
// все данные сессии живут в State, поэтому один Engine обслуживает
// любое количество разговоров.
type Engine struct {
	ledger    Ledger
	slots     SlotSource
	extractor extractor.Extractor
	clock     func() time.Time
	location  *time.Location
	logger    *logger.Logger
}

// Option настраивает Engine
type Option func(*Engine)

// WithClock подменяет источник текущего времени
func WithClock(clock func() time.Time) Option {
	return func(e *Engine) {
		e.clock = clock
	}
}

// WithLocation задает часовой пояс клиники
func WithLocation(loc *time.Location) Option {
	return func(e *Engine) {
		if loc != nil {
			e.location = loc
		}
	}
}

// NewEngine создает движок диалога. Извлекатель должен быть обернут
// в extractor.Guard; ошибки извлечения движок все равно трактует как
// неопределенный результат.
func NewEngine(ledger Ledger, slots SlotSource, x extractor.Extractor, log *logger.Logger, opts ...Option) *Engine {
	e := &Engine{
		ledger:    ledger,
		slots:     slots,
		extractor: x,
		clock:     time.Now,
		location:  time.Local,
		logger:    log,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Start открывает новую сессию
func (e *Engine) Start() (*State, Reply) {
	st := newState(e.clock())
	e.logger.Debug("Booking session started", logger.String("session_id", st.ID))
	return st, Reply{
		Messages: []string{msgAskNameDate},
		Phase:    st.Phase,
	}
}

// Step обрабатывает одну реплику пользователя
func (e *Engine) Step(ctx context.Context, st *State, input string) Reply {
	if st.Done() {
		return Reply{Phase: st.Phase, Done: true}
	}

	from := st.Phase
	metrics.RecordTurn(string(from))

	var r Reply
	switch st.Phase {
	case PhaseCollectNameDate:
		e.collectNameDate(ctx, st, input, &r)
	case PhaseCollectName:
		e.collectName(ctx, st, input, &r)
	case PhaseCollectDate:
		e.collectDate(ctx, st, input, &r)
	case PhaseCollectTime:
		e.collectTime(ctx, st, input, &r)
	case PhaseCollectRemarks:
		e.collectRemarks(st, input, &r)
	case PhaseConfirm:
		e.confirm(ctx, st, input, &r)
	default:
		e.logger.Error("Unknown dialogue phase, restarting", logger.String("phase", string(st.Phase)))
		st.Phase = PhaseCollectNameDate
		r.say(msgAskNameDate)
	}

	r.Phase = st.Phase
	r.Done = st.Done()
	if st.Phase == PhaseCollectTime {
		r.Slots = append([]int(nil), st.Slots...)
	}

	if from != st.Phase {
		e.logger.Debug("Dialogue transition",
			logger.String("session_id", st.ID),
			logger.String("from", string(from)),
			logger.String("to", string(st.Phase)),
		)
	}
	return r
}

// Abandon прерывает сессию (выход пользователя, /cancel)
func (e *Engine) Abandon(st *State, reason string) Reply {
	if st.Done() {
		return Reply{Phase: st.Phase, Done: true}
	}
	if reason == "" {
		reason = ReasonAbandoned
	}
	st.Phase = PhaseCancelled
	metrics.RecordCancel(reason)
	e.logger.Info("Booking session abandoned",
		logger.String("session_id", st.ID),
		logger.String("reason", reason),
	)
	return Reply{
		Messages: []string{msgCancelled},
		Phase:    st.Phase,
		Done:     true,
		Outcome:  &Outcome{Reason: reason},
	}
}

func (e *Engine) today() time.Time {
	return calendar.Today(e.clock(), e.location)
}

// extract вызывает извлекатель; любая ошибка означает "не определено"
func (e *Engine) extract(ctx context.Context, req extractor.Request) extractor.Result {
	res, err := e.extractor.Extract(ctx, req)
	if err != nil {
		e.logger.Warn("Extractor returned error",
			logger.String("kind", string(req.Kind())),
			logger.Error(err),
		)
		return extractor.Result{}
	}
	return res
}

func (e *Engine) collectNameDate(ctx context.Context, st *State, input string, r *Reply) {
	input = strings.TrimSpace(input)
	if input != "" {
		res := e.extract(ctx, extractor.NameDateRequest{Utterance: input, Reference: e.today()})
		if validation.ValidateName(res.Name) == nil {
			st.Name = strings.TrimSpace(res.Name)
		}
		if res.HasDate() {
			if msg, ok := e.checkDate(res.Date); ok {
				st.Date = res.Date
			} else {
				r.say(msg)
			}
		}
	}
	e.advance(st, r)
}

func (e *Engine) collectName(ctx context.Context, st *State, input string, r *Reply) {
	res := e.extract(ctx, extractor.NameRequest{Utterance: strings.TrimSpace(input)})
	if validation.ValidateName(res.Name) != nil {
		r.say(msgAskName)
		return
	}
	st.Name = strings.TrimSpace(res.Name)
	e.advance(st, r)
}

func (e *Engine) collectDate(ctx context.Context, st *State, input string, r *Reply) {
	input = strings.TrimSpace(input)
	if input == "" {
		r.say(msgEmptyDate, msgAskDate)
		return
	}

	res := e.extract(ctx, extractor.DateRequest{Utterance: input, Reference: e.today()})
	if !res.HasDate() {
		r.say(msgUnknownDate, msgAskDate)
		return
	}

	msg, ok := e.checkDate(res.Date)
	if !ok {
		r.say(msg, msgAskDate)
		return
	}

	st.Date = res.Date
	e.advance(st, r)
}

// checkDate проверяет дату по правилам клиники и возвращает текст отказа
func (e *Engine) checkDate(date string) (string, bool) {
	_, err := validation.ValidateDate(date, e.today(), e.slots.Rules())
	switch {
	case err == nil:
		return "", true
	case errors.Is(err, errors.ErrDateInPast):
		return msgPastDate, false
	case errors.Is(err, errors.ErrClosedDay):
		return closedDayMessage(e.slots.Rules()), false
	default:
		return msgUnknownDate, false
	}
}

// advance переводит сессию к первому незаполненному полю
func (e *Engine) advance(st *State, r *Reply) {
	switch {
	case st.Name == "":
		st.Phase = PhaseCollectName
		r.say(msgAskName)
	case st.Date == "":
		st.Phase = PhaseCollectDate
		r.say(msgAskDate)
	default:
		e.enterTime(st, r)
	}
}

// enterTime вычисляет свободные часы на выбранную дату. Если их нет,
// дата сбрасывается и диалог возвращается к выбору даты.
func (e *Engine) enterTime(st *State, r *Reply) bool {
	slots, err := e.slots.AvailableSlots(st.Date)
	if err != nil {
		e.logger.Warn("Failed to compute available slots",
			logger.String("date", st.Date),
			logger.Error(err),
		)
	}
	if len(slots) == 0 {
		r.say(noSlotsMessage(st.Date), msgAskDate)
		st.Date = ""
		st.Slots = nil
		st.Phase = PhaseCollectDate
		return false
	}

	st.Slots = slots
	st.Phase = PhaseCollectTime
	r.say(SlotTable(st.Date, slots), msgAskTime)
	return true
}

func isBack(input string) bool {
	switch strings.ToLower(strings.TrimSpace(input)) {
	case "back", "go back", "cancel":
		return true
	}
	return false
}

func (e *Engine) collectTime(ctx context.Context, st *State, input string, r *Reply) {
	if isBack(input) {
		st.Date = ""
		st.Slots = nil
		st.Hour = nil
		st.Phase = PhaseCollectDate
		r.say(msgAskDate)
		return
	}

	input = strings.TrimSpace(input)
	if input == "" {
		r.say(msgEmptyTime)
		e.enterTime(st, r)
		return
	}

	// Слоты пересчитываются на каждом ходе: журнал мог измениться
	var pre Reply
	if !e.enterTime(st, &pre) {
		r.say(pre.Messages...)
		return
	}

	res := e.extract(ctx, extractor.TimeRequest{Utterance: input})
	if !res.HasHour() {
		r.say(msgUnknownTime)
		r.say(pre.Messages...)
		return
	}

	hour := res.HourValue()
	if !containsHour(st.Slots, hour) {
		r.say(msgTimeTaken)
		r.say(pre.Messages...)
		return
	}

	st.Hour = extractor.Hour(hour)
	st.Phase = PhaseCollectRemarks
	r.say(gotItMessage(st.Name, st.Date, hour), msgAskRemarks)
}

func containsHour(slots []int, hour int) bool {
	for _, h := range slots {
		if h == hour {
			return true
		}
	}
	return false
}

func (e *Engine) collectRemarks(st *State, input string, r *Reply) {
	st.Remarks = strings.TrimSpace(input)
	st.Phase = PhaseConfirm
	r.say(Summary(st.Name, st.Date, *st.Hour, st.Remarks), msgAskConfirm)
}

func isAffirmative(input string) bool {
	switch strings.ToLower(strings.TrimSpace(input)) {
	case "yes", "y", "confirm":
		return true
	}
	return false
}

func (e *Engine) confirm(ctx context.Context, st *State, input string, r *Reply) {
	if !isAffirmative(input) {
		e.cancel(st, r, ReasonDeclined, models.Booking{}, msgCancelled)
		return
	}

	b := models.NewBooking(st.Name, st.Date, *st.Hour, st.Remarks)
	if err := validation.ValidateBooking(b, e.today(), e.slots.Rules()); err != nil {
		e.logger.Warn("Booking failed validation at confirmation",
			logger.String("session_id", st.ID),
			logger.Error(err),
		)
		e.cancel(st, r, ReasonInvalid, b, msgNoLongerValid, msgCancelled)
		return
	}

	err := e.ledger.Commit(ctx, b)
	switch {
	case err == nil:
		st.Phase = PhaseCommitted
		metrics.RecordCommit(true)
		e.logger.Info("Booking committed",
			logger.String("session_id", st.ID),
			logger.String("date", b.Date),
			logger.String("time", b.Time),
		)
		r.say(msgBooked)
		r.Outcome = &Outcome{Booking: b, Committed: true}

	case errors.Is(err, errors.ErrDuplicateSlot):
		e.cancel(st, r, ReasonDuplicate, b, msgSlotJustTaken, msgCancelled)

	case errors.Is(err, errors.ErrStorageWrite):
		// Запись осталась в журнале в памяти, пользователь предупреждается
		st.Phase = PhaseCommitted
		metrics.RecordCommit(false)
		r.say(msgBooked, msgNotPersisted)
		r.Outcome = &Outcome{Booking: b, Committed: true, PersistErr: err}

	default:
		e.logger.Error("Booking commit failed",
			logger.String("session_id", st.ID),
			logger.Error(err),
		)
		e.cancel(st, r, ReasonError, b, msgBookingError, msgCancelled)
	}
}

func (e *Engine) cancel(st *State, r *Reply, reason string, b models.Booking, msgs ...string) {
	st.Phase = PhaseCancelled
	metrics.RecordCancel(reason)
	r.say(msgs...)
	r.Outcome = &Outcome{Booking: b, Reason: reason}
}
