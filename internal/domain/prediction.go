package domain

import "time"

// Prediction — одно сохраненное предсказание пользователя.
type Prediction struct {
	ID          int64     // выдается хранилищем, AUTO_INCREMENT
	OwnerID     int64     // telegram id автора, все запросы фильтруются по нему
	CreatedAt   time.Time // дата внесения, при обновлениях не меняется
	Description string    // что именно предсказано, до 200 символов
	Category    string    // категория одним словом, до 50 символов
	Unit        string    // единица измерения, до 30 символов
	Low50       float64   // нижняя граница для 50% уверенности
	High50      float64   // верхняя граница для 50% уверенности
	Low90       float64   // нижняя граница для 90% уверенности
	High90      float64   // верхняя граница для 90% уверенности
	Outcome     *float64  // nil пока реальный итог неизвестен
}

// Resolved сообщает, внесен ли уже реальный итог.
func (p Prediction) Resolved() bool {
	return p.Outcome != nil
}
