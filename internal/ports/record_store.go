package ports

import (
	"context"

	"github.com/kubanez-create/Calibration/internal/domain"
)

// RecordStore — персистентное хранилище предсказаний.
// Каждая операция фильтрует строки по ownerID: чужие предсказания
// недостижимы даже по угаданному номеру. Мутации возвращают число
// затронутых строк; ноль означает "не найдено", а не ошибку.
type RecordStore interface {
	Insert(ctx context.Context, p domain.Prediction) (int64, error)
	UpdateBounds(ctx context.Context, ownerID, id int64, low50, high50, low90, high90 float64) (int64, error)
	SetOutcome(ctx context.Context, ownerID, id int64, outcome float64) (int64, error)
	Delete(ctx context.Context, ownerID, id int64) (int64, error)

	// ListByOwner отдает предсказания в порядке внесения (по возрастанию id).
	ListByOwner(ctx context.Context, ownerID int64, onlyMissingOutcome bool, offset, limit int) ([]domain.Prediction, error)
	CountByOwner(ctx context.Context, ownerID int64, onlyMissingOutcome bool) (int64, error)
	DistinctCategories(ctx context.Context, ownerID int64) ([]string, error)

	// ListResolved отдает предсказания с известным итогом; category
	// сравнивается без учета регистра, пустая строка снимает фильтр.
	ListResolved(ctx context.Context, ownerID int64, category string) ([]domain.Prediction, error)
}
