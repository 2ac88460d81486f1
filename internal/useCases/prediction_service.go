package useCases

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/kubanez-create/Calibration/internal/calibration"
	"github.com/kubanez-create/Calibration/internal/domain"
	"github.com/kubanez-create/Calibration/internal/ports"
)

const storeTimeout = 5 * time.Second

// PredictionService — бизнес-логика над хранилищем предсказаний.
// Ноль затронутых строк превращает в domain.ErrNotFound, чтобы
// вызывающий отличал "не найдено" от недоступного хранилища.
type PredictionService struct {
	store  ports.RecordStore
	logger *slog.Logger
	now    func() time.Time
}

func NewPredictionService(store ports.RecordStore, logger *slog.Logger) *PredictionService {
	return &PredictionService{
		store:  store,
		logger: logger,
		now:    time.Now,
	}
}

// Create собирает предсказание из черновика и сохраняет его.
// Категория приводится к нижнему регистру, итог еще неизвестен.
func (s *PredictionService) Create(ctx context.Context, ownerID int64, d domain.Draft) (int64, error) {
	pred, err := d.Build(ownerID, s.now())
	if err != nil {
		return 0, err
	}
	pred.Category = strings.ToLower(pred.Category)

	ctx, cancel := context.WithTimeout(ctx, storeTimeout)
	defer cancel()

	id, err := s.store.Insert(ctx, pred)
	if err != nil {
		return 0, fmt.Errorf("insert prediction: %w", err)
	}
	s.logger.Debug("prediction inserted", "owner_id", ownerID, "id", id)
	return id, nil
}

// UpdateBounds заменяет четыре границы у предсказания пользователя.
func (s *PredictionService) UpdateBounds(ctx context.Context, ownerID, id int64, low50, high50, low90, high90 float64) error {
	ctx, cancel := context.WithTimeout(ctx, storeTimeout)
	defer cancel()

	affected, err := s.store.UpdateBounds(ctx, ownerID, id, low50, high50, low90, high90)
	if err != nil {
		return fmt.Errorf("update bounds: %w", err)
	}
	if affected == 0 {
		return domain.ErrNotFound
	}
	s.logger.Debug("prediction updated", "owner_id", ownerID, "id", id)
	return nil
}

// EnterOutcome записывает реальный итог предсказания.
func (s *PredictionService) EnterOutcome(ctx context.Context, ownerID, id int64, outcome float64) error {
	ctx, cancel := context.WithTimeout(ctx, storeTimeout)
	defer cancel()

	affected, err := s.store.SetOutcome(ctx, ownerID, id, outcome)
	if err != nil {
		return fmt.Errorf("set outcome: %w", err)
	}
	if affected == 0 {
		return domain.ErrNotFound
	}
	s.logger.Debug("outcome entered", "owner_id", ownerID, "id", id)
	return nil
}

// Delete удаляет предсказание пользователя по номеру.
func (s *PredictionService) Delete(ctx context.Context, ownerID, id int64) error {
	ctx, cancel := context.WithTimeout(ctx, storeTimeout)
	defer cancel()

	affected, err := s.store.Delete(ctx, ownerID, id)
	if err != nil {
		return fmt.Errorf("delete prediction: %w", err)
	}
	if affected == 0 {
		return domain.ErrNotFound
	}
	s.logger.Debug("prediction deleted", "owner_id", ownerID, "id", id)
	return nil
}

// List отдает страницу предсказаний в порядке внесения и общее их
// число — для расчета кнопок пагинации.
func (s *PredictionService) List(ctx context.Context, ownerID int64, onlyMissingOutcome bool, offset, limit int) ([]domain.Prediction, int64, error) {
	ctx, cancel := context.WithTimeout(ctx, storeTimeout)
	defer cancel()

	rows, err := s.store.ListByOwner(ctx, ownerID, onlyMissingOutcome, offset, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("list predictions: %w", err)
	}
	total, err := s.store.CountByOwner(ctx, ownerID, onlyMissingOutcome)
	if err != nil {
		return nil, 0, fmt.Errorf("count predictions: %w", err)
	}
	return rows, total, nil
}

// Categories отдает уникальные категории пользователя.
func (s *PredictionService) Categories(ctx context.Context, ownerID int64) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, storeTimeout)
	defer cancel()

	cats, err := s.store.DistinctCategories(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("distinct categories: %w", err)
	}
	return cats, nil
}

// Calibration считает калибровку по предсказаниям с известным итогом.
// Ключевое слово "all" (в любом регистре) снимает фильтр по категории.
// nil без ошибки означает, что считать пока не на чем.
func (s *PredictionService) Calibration(ctx context.Context, ownerID int64, category string) (*calibration.Result, error) {
	category = strings.ToLower(category)
	if category == calibration.AllCategories {
		category = ""
	}

	ctx, cancel := context.WithTimeout(ctx, storeTimeout)
	defer cancel()

	rows, err := s.store.ListResolved(ctx, ownerID, category)
	if err != nil {
		return nil, fmt.Errorf("list resolved predictions: %w", err)
	}
	res, ok := calibration.Compute(rows)
	if !ok {
		return nil, nil
	}
	return &res, nil
}
