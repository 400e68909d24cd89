package dialogue

import (
	"time"

	"github.com/google/uuid"

	"clinic_booking_bot/internal/storage/models"
)

// Phase этап диалога записи
type Phase string

const (
	PhaseCollectNameDate Phase = "collect_name_date"
	PhaseCollectName     Phase = "collect_name"
	PhaseCollectDate     Phase = "collect_date"
	PhaseCollectTime     Phase = "collect_time"
	PhaseCollectRemarks  Phase = "collect_remarks"
	PhaseConfirm         Phase = "confirm"
	PhaseCommitted       Phase = "committed"
	PhaseCancelled       Phase = "cancelled"
)

// Terminal сообщает, завершен ли диалог
func (p Phase) Terminal() bool {
	return p == PhaseCommitted || p == PhaseCancelled
}

// Причины отмены сессии
const (
	ReasonDeclined  = "declined"
	ReasonDuplicate = "duplicate"
	ReasonInvalid   = "invalid"
	ReasonError     = "error"
	ReasonAbandoned = "abandoned"
)

// State состояние одной сессии записи. Сериализуется в JSON, чтобы
// транспорт мог хранить его между сообщениями.
type State struct {
	ID        string    `json:"id"`
	Phase     Phase     `json:"phase"`
	Name      string    `json:"name,omitempty"`
	Date      string    `json:"date,omitempty"`
	Hour      *int      `json:"hour,omitempty"`
	Remarks   string    `json:"remarks,omitempty"`
	Slots     []int     `json:"slots,omitempty"`
	StartedAt time.Time `json:"started_at"`
}

func newState(now time.Time) *State {
	return &State{
		ID:        uuid.NewString(),
		Phase:     PhaseCollectNameDate,
		StartedAt: now,
	}
}

// Done сообщает, что сессия завершена
func (s *State) Done() bool {
	return s.Phase.Terminal()
}

// Reply ответ движка на один ход пользователя
type Reply struct {
	Messages []string
	Phase    Phase
	// Slots свободные часы, показанные пользователю на этапе выбора времени
	Slots   []int
	Done    bool
	Outcome *Outcome
}

// Outcome итог завершенной сессии
type Outcome struct {
	Booking   models.Booking
	Committed bool
	Reason    string
	// PersistErr ошибка сохранения журнала; запись при этом остается в памяти
	PersistErr error
}

func (r *Reply) say(msg ...string) {
	r.Messages = append(r.Messages, msg...)
}
