package domain

// FlowState — шаг диалога, на котором находится пользователь.
// Отсутствие записи в хранилище сессий означает Idle.
type FlowState int

const (
	StateIdle FlowState = iota
	StateAwaitCheckCategory
	StateAwaitUpdate
	StateAwaitOutcome
	StateAwaitDelete
	StateAwaitDescription
	StateAwaitCategory
	StateAwaitUnit
	StateAwaitLow50
	StateAwaitHigh50
	StateAwaitLow90
	StateAwaitHigh90
	StateAwaitConfirm
)

// Session — состояние диалога одного пользователя вместе с черновиком.
type Session struct {
	State FlowState `json:"state"`
	Draft Draft     `json:"draft"`
}
