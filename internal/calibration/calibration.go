// Package calibration считает калибровку: долю предсказаний, чей
// реальный итог попал в заявленный интервал, отдельно для 50% и 90%
// уровней уверенности.
package calibration

import "github.com/kubanez-create/Calibration/internal/domain"

// AllCategories — ключевое слово, снимающее фильтр по категории.
const AllCategories = "all"

// Result — итог расчета по предсказаниям с известным исходом.
type Result struct {
	Ratio50 float64
	Ratio90 float64
	Total   int // сколько предсказаний участвовало в расчете
}

// hit50 проверяет попадание итога в 50%-интервал.
func hit50(p domain.Prediction) bool {
	return p.Low50 <= *p.Outcome && p.High50 >= *p.Outcome
}

// hit90 проверяет попадание итога в 90%-интервал.
func hit90(p domain.Prediction) bool {
	return p.Low90 <= *p.Outcome && p.High90 >= *p.Outcome
}

// Compute сворачивает предсказания в пару коэффициентов. Строки без
// итога пропускаются. Второе значение false означает "данных нет" —
// этот случай никогда не смешивается с нулевой калибровкой.
// Свертка детерминирована и не зависит от порядка строк.
func Compute(rows []domain.Prediction) (Result, bool) {
	var n, acc50, acc90 int
	for _, p := range rows {
		if !p.Resolved() {
			continue
		}
		n++
		if hit50(p) {
			acc50++
		}
		if hit90(p) {
			acc90++
		}
	}
	if n == 0 {
		return Result{}, false
	}
	return Result{
		Ratio50: float64(acc50) / float64(n),
		Ratio90: float64(acc90) / float64(n),
		Total:   n,
	}, true
}
