package domain

import "errors"

// ErrNotFound — предсказание с таким номером у данного пользователя
// отсутствует. Ноль затронутых строк в хранилище — это он.
var ErrNotFound = errors.New("prediction is not present")
