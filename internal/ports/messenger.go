package ports

import "github.com/kubanez-create/Calibration/internal/domain"

// Messenger — шлюз к мессенджеру: отправка сообщений с клавиатурами
// и поток входящих событий.
type Messenger interface {
	Send(ownerID int64, text string, kb *domain.Keyboard) error
	AnswerCallback(callbackID int64) error
	Listen() (<-chan domain.Event, error)
}
