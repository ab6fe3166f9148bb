package entity

// OperatorState состояние оператора в диалоге с ботом
type OperatorState string

const (
	StateIdle              OperatorState = "idle"                // Ждёт команду
	StateAwaitingSessionID OperatorState = "awaiting_session_id" // Ждёт id сессии
)

// Operator представляет исследователя, который смотрит результаты через бота
type Operator struct {
	ID         int64         // Telegram User ID
	ChatID     int64         // Telegram Chat ID
	State      OperatorState // Текущее состояние диалога
	Subscribed bool          // Получает уведомления о завершённых опросах
}

// NewOperator создаёт оператора с начальным состоянием
func NewOperator(userID, chatID int64) *Operator {
	return &Operator{
		ID:     userID,
		ChatID: chatID,
		State:  StateIdle,
	}
}

// SetState обновляет состояние оператора
func (o *Operator) SetState(state OperatorState) {
	o.State = state
}
