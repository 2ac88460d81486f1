package ports

import (
	"context"

	"github.com/kubanez-create/Calibration/internal/domain"
)

// SessionStore хранит состояние диалога по id пользователя.
// Отсутствие записи — нормальная ситуация (пользователь вне диалога).
type SessionStore interface {
	Get(ctx context.Context, ownerID int64) (domain.Session, bool, error)
	Put(ctx context.Context, ownerID int64, s domain.Session) error
	Delete(ctx context.Context, ownerID int64) error
}
