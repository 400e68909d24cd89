package service

import (
	"context"
	"fmt"
	"sync"

	"github.com/go-telegram/bot"
	tgmodels "github.com/go-telegram/bot/models"

	"clinic_booking_bot/internal/bot/keyboard"
	"clinic_booking_bot/internal/config"
	"clinic_booking_bot/internal/dialogue"
	"clinic_booking_bot/internal/extractor"
	"clinic_booking_bot/internal/scheduler"
	"clinic_booking_bot/internal/session"
	"clinic_booking_bot/pkg/errors"
	"clinic_booking_bot/pkg/logger"
	"clinic_booking_bot/pkg/metrics"
)

// Sender часть Telegram API, которой пользуется сервис. *bot.Bot ему удовлетворяет.
type Sender interface {
	SendMessage(ctx context.Context, params *bot.SendMessageParams) (*tgmodels.Message, error)
	AnswerCallbackQuery(ctx context.Context, params *bot.AnswerCallbackQueryParams) (bool, error)
}

const (
	msgWelcome = "Welcome to %s!\n" +
		"I am your virtual assistant. I can help you with your queries and set up appointments.\n" +
		"Send /book to make an appointment or /cancel to stop a booking in progress."
	msgFallback   = "Sorry, I don't have enough information to answer that question. Please contact us at %s for more information."
	msgBookHint   = "If you would like an appointment, just send /book."
	msgAfterEnd   = "Do you have any additional queries or wish to set up an appointment?"
	msgNoSession  = "There is no booking in progress."
	msgTextOnly   = "Please send your answer as a text message."
	msgInternal   = "Sorry, something went wrong on our side. Please try again."
	msgBadChoice  = "This option is no longer available."
	msgChoiceSeen = "Got it"
)

// Service представляет основной сервис Telegram бота
type Service struct {
	sender    Sender
	engine    *dialogue.Engine
	sessions  session.Store
	intent    extractor.Extractor
	scheduler scheduler.ReminderScheduler
	config    *config.Config
	logger    *logger.Logger
	locks     chatLocks
}

// NewService создает новый экземпляр сервиса бота. scheduler может быть nil,
// тогда напоминания не отправляются.
func NewService(
	sender Sender,
	engine *dialogue.Engine,
	sessions session.Store,
	intent extractor.Extractor,
	scheduler scheduler.ReminderScheduler,
	config *config.Config,
	log *logger.Logger,
) *Service {
	return &Service{
		sender:    sender,
		engine:    engine,
		sessions:  sessions,
		intent:    intent,
		scheduler: scheduler,
		config:    config,
		logger:    log,
		locks:     chatLocks{locks: make(map[int64]*chatLock)},
	}
}

// Welcome отправляет приветствие
func (s *Service) Welcome(ctx context.Context, chatID int64) {
	s.sendOrLog(ctx, chatID, fmt.Sprintf(msgWelcome, s.config.Clinic.Name), nil)
}

// StartBooking начинает новую сессию записи, прерывая незавершенную
func (s *Service) StartBooking(ctx context.Context, chatID int64) {
	unlock := s.locks.lock(chatID)
	defer unlock()

	s.startLocked(ctx, chatID)
}

func (s *Service) startLocked(ctx context.Context, chatID int64) {
	if prev, err := s.sessions.Get(ctx, chatID); err == nil && prev != nil {
		s.engine.Abandon(prev, "restarted")
	}

	st, reply := s.engine.Start()
	metrics.RecordSessionStart("telegram")
	s.logger.Info("Booking session started",
		logger.Int64("chat_id", chatID),
		logger.String("session_id", st.ID),
	)

	if err := s.sessions.Put(ctx, chatID, st); err != nil {
		s.storeFailed(ctx, chatID, "put", err)
		return
	}
	s.sendReply(ctx, chatID, reply)
}

// CancelBooking прерывает сессию по команде пользователя
func (s *Service) CancelBooking(ctx context.Context, chatID int64) {
	unlock := s.locks.lock(chatID)
	defer unlock()

	st, err := s.sessions.Get(ctx, chatID)
	if err != nil {
		s.storeFailed(ctx, chatID, "get", err)
		return
	}
	if st == nil {
		s.sendOrLog(ctx, chatID, msgNoSession, nil)
		return
	}

	reply := s.engine.Abandon(st, dialogue.ReasonAbandoned)
	if err := s.sessions.Delete(ctx, chatID); err != nil {
		s.logger.Warn("Failed to delete session", logger.Int64("chat_id", chatID), logger.Error(err))
	}
	s.sendReply(ctx, chatID, reply)
}

// HandleText обрабатывает текстовое сообщение: продолжает активную сессию,
// начинает новую при намерении записаться или отвечает заглушкой
func (s *Service) HandleText(ctx context.Context, chatID int64, text string) {
	unlock := s.locks.lock(chatID)
	defer unlock()

	st, err := s.sessions.Get(ctx, chatID)
	if err != nil {
		s.storeFailed(ctx, chatID, "get", err)
		return
	}

	if st == nil {
		if dialogue.WantsBooking(ctx, s.intent, text) {
			s.sendOrLog(ctx, chatID, dialogue.BookingRequested(), nil)
			s.startLocked(ctx, chatID)
			return
		}
		s.sendOrLog(ctx, chatID, fmt.Sprintf(msgFallback, s.config.Clinic.Name), nil)
		s.sendOrLog(ctx, chatID, msgBookHint, nil)
		return
	}

	reply := s.engine.Step(ctx, st, text)

	if reply.Done {
		if err := s.sessions.Delete(ctx, chatID); err != nil {
			s.logger.Warn("Failed to delete finished session", logger.Int64("chat_id", chatID), logger.Error(err))
		}
	} else if err := s.sessions.Put(ctx, chatID, st); err != nil {
		s.storeFailed(ctx, chatID, "put", err)
		return
	}

	if reply.Outcome != nil && reply.Outcome.Committed {
		s.scheduleReminder(ctx, chatID, reply.Outcome)
	}

	s.sendReply(ctx, chatID, reply)
}

// HandleChoice обрабатывает нажатие inline-кнопки
func (s *Service) HandleChoice(ctx context.Context, chatID int64, callbackID, data string) {
	input, ok := keyboard.ParseCallback(data)
	if !ok {
		s.answer(ctx, callbackID, msgBadChoice)
		return
	}
	s.answer(ctx, callbackID, msgChoiceSeen)
	s.HandleText(ctx, chatID, input)
}

// HandleNonText отвечает на сообщения без текста
func (s *Service) HandleNonText(ctx context.Context, chatID int64) {
	s.sendOrLog(ctx, chatID, msgTextOnly, nil)
}

func (s *Service) scheduleReminder(ctx context.Context, chatID int64, out *dialogue.Outcome) {
	lead := s.config.ReminderLead()
	if s.scheduler == nil || lead <= 0 {
		return
	}

	loc, err := s.config.Location()
	if err != nil {
		s.logger.Warn("Clinic timezone unavailable, reminder skipped", logger.Error(err))
		return
	}

	r, err := scheduler.NewReminder(chatID, out.Booking, loc, lead)
	if err != nil {
		s.logger.Warn("Failed to build reminder", logger.Error(err))
		return
	}
	if err := s.scheduler.Schedule(ctx, r); err != nil {
		// Запись уже сделана, напоминание не критично
		s.logger.Warn("Failed to schedule reminder",
			logger.Int64("chat_id", chatID),
			logger.String("slot", r.Key()),
			logger.Error(err),
		)
	}
}

// sendReply отправляет сообщения движка; клавиатура прикрепляется к последнему
func (s *Service) sendReply(ctx context.Context, chatID int64, reply dialogue.Reply) {
	var markup tgmodels.ReplyMarkup
	switch reply.Phase {
	case dialogue.PhaseCollectTime:
		markup = keyboard.CreateSlotSelectionKeyboard(reply.Slots)
	case dialogue.PhaseConfirm:
		markup = keyboard.CreateConfirmKeyboard()
	}

	for i, msg := range reply.Messages {
		var m tgmodels.ReplyMarkup
		if i == len(reply.Messages)-1 {
			m = markup
		}
		s.sendOrLog(ctx, chatID, msg, m)
	}

	if reply.Done {
		s.sendOrLog(ctx, chatID, msgAfterEnd, nil)
	}
}

// SendMessage отправляет сообщение пользователю
func (s *Service) SendMessage(ctx context.Context, chatID int64, text string, replyMarkup tgmodels.ReplyMarkup) error {
	params := &bot.SendMessageParams{
		ChatID:      chatID,
		Text:        text,
		ReplyMarkup: replyMarkup,
	}

	_, err := s.sender.SendMessage(ctx, params)
	if err != nil {
		return errors.ErrTelegramAPI.WithError(err)
	}
	return nil
}

// SendSimpleMessage отправляет простое текстовое сообщение
func (s *Service) SendSimpleMessage(ctx context.Context, chatID int64, text string) error {
	return s.SendMessage(ctx, chatID, text, nil)
}

// SendError отправляет сообщение об ошибке пользователю
func (s *Service) SendError(ctx context.Context, chatID int64, message string) {
	s.sendOrLog(ctx, chatID, message, nil)
}

func (s *Service) sendOrLog(ctx context.Context, chatID int64, text string, markup tgmodels.ReplyMarkup) {
	if err := s.SendMessage(ctx, chatID, text, markup); err != nil {
		s.logger.Error("Failed to send message", logger.Int64("chat_id", chatID), logger.Error(err))
		metrics.RecordError("telegram", "send_message")
	}
}

func (s *Service) answer(ctx context.Context, callbackID, text string) {
	if callbackID == "" {
		return
	}
	params := &bot.AnswerCallbackQueryParams{
		CallbackQueryID: callbackID,
		Text:            text,
	}
	if _, err := s.sender.AnswerCallbackQuery(ctx, params); err != nil {
		s.logger.Warn("Failed to answer callback query", logger.Error(err))
	}
}

func (s *Service) storeFailed(ctx context.Context, chatID int64, op string, err error) {
	s.logger.Error("Session store failure",
		logger.Int64("chat_id", chatID),
		logger.String("operation", op),
		logger.Error(err),
	)
	metrics.RecordError("session", op)
	s.SendError(ctx, chatID, msgInternal)
}

// Close закрывает соединения сервиса
func (s *Service) Close() error {
	var errs []error

	if s.scheduler != nil {
		if err := s.scheduler.Stop(); err != nil {
			errs = append(errs, fmt.Errorf("failed to stop scheduler: %w", err))
		}
	}

	if err := s.sessions.Close(); err != nil {
		errs = append(errs, fmt.Errorf("failed to close session store: %w", err))
	}

	if len(errs) > 0 {
		return fmt.Errorf("multiple errors during close: %v", errs)
	}

	return nil
}

// chatLocks сериализует обработку обновлений одного чата
type chatLocks struct {
	mu    sync.Mutex
	locks map[int64]*chatLock
}

type chatLock struct {
	mu   sync.Mutex
	refs int
}

func (c *chatLocks) lock(chatID int64) func() {
	c.mu.Lock()
	l, ok := c.locks[chatID]
	if !ok {
		l = &chatLock{}
		c.locks[chatID] = l
	}
	l.refs++
	c.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		c.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(c.locks, chatID)
		}
		c.mu.Unlock()
	}
}
