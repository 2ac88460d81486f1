package domain

import (
	"errors"
	"time"
)

// ErrIncompleteDraft возвращается при попытке собрать предсказание
// из незаполненного черновика.
var ErrIncompleteDraft = errors.New("draft is missing required fields")

// Draft — черновик предсказания, накапливаемый по шагам диалога.
// Числовые поля — указатели, чтобы отличать "не внесено" от нуля.
type Draft struct {
	Description string   `json:"description,omitempty"`
	Category    string   `json:"category,omitempty"`
	Unit        string   `json:"unit,omitempty"`
	Low50       *float64 `json:"low_50,omitempty"`
	High50      *float64 `json:"high_50,omitempty"`
	Low90       *float64 `json:"low_90,omitempty"`
	High90      *float64 `json:"high_90,omitempty"`
}

// Complete сообщает, заполнены ли все обязательные поля.
func (d Draft) Complete() bool {
	return d.Description != "" && d.Category != "" && d.Unit != "" &&
		d.Low50 != nil && d.High50 != nil && d.Low90 != nil && d.High90 != nil
}

// Build собирает неизменяемое предсказание из черновика.
func (d Draft) Build(ownerID int64, now time.Time) (Prediction, error) {
	if !d.Complete() {
		return Prediction{}, ErrIncompleteDraft
	}
	return Prediction{
		OwnerID:     ownerID,
		CreatedAt:   now,
		Description: d.Description,
		Category:    d.Category,
		Unit:        d.Unit,
		Low50:       *d.Low50,
		High50:      *d.High50,
		Low90:       *d.Low90,
		High90:      *d.High90,
	}, nil
}
