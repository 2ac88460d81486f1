// Package validation содержит чистые предикаты для проверки
// пользовательского ввода. Предикаты не имеют побочных эффектов и
// никогда не паникуют: не подошло — false, подсказку шлет вызывающий.
package validation

import "regexp"

// Классы символов те же, что принимал исходный бот: латиница,
// кириллица, цифры и базовая пунктуация в описании. Разделитель
// полей — строго "; " (точка с запятой и один пробел), десятичная
// часть отделяется точкой, не запятой.
const (
	descClass = `[0-9A-Za-zА-Яа-яЁё_.?,!'\s]{1,200}`
	catClass  = `[0-9A-Za-zА-Яа-яЁё_]{1,50}`
	unitClass = `[0-9A-Za-zА-Яа-яЁё_]{1,30}`
	number    = `[+-]?(\d*\.)?\d+`
)

var (
	creationRe = regexp.MustCompile(
		`^` + descClass + `; ` + catClass + `; ` + unitClass +
			`; ` + number + `; ` + number + `; ` + number + `; ` + number + `$`)
	updateRe   = regexp.MustCompile(`^\d+; ` + number + `; ` + number + `; ` + number + `; ` + number + `$`)
	outcomeRe  = regexp.MustCompile(`^\d+; ` + number + `$`)
	deletionRe = regexp.MustCompile(`^\d+$`)
	categoryRe = regexp.MustCompile(`^` + catClass + `$`)
	unitRe     = regexp.MustCompile(`^` + unitClass + `$`)
	numberRe   = regexp.MustCompile(`^` + number + `$`)
	descRe     = regexp.MustCompile(`^` + descClass + `$`)
)

// ValidCreation проверяет однострочное предсказание: описание,
// категория, единица измерения и четыре числа-границы.
// Например: "How long will it take?; work; hours; 2; 8; 1; 16".
func ValidCreation(s string) bool { return creationRe.MatchString(s) }

// ValidUpdate проверяет строку обновления: номер предсказания
// и четыре новые границы.
func ValidUpdate(s string) bool { return updateRe.MatchString(s) }

// ValidOutcome проверяет строку итога: номер предсказания и число.
func ValidOutcome(s string) bool { return outcomeRe.MatchString(s) }

// ValidDeletion проверяет, что прислан голый номер предсказания.
func ValidDeletion(s string) bool { return deletionRe.MatchString(s) }

// ValidCategory проверяет категорию: одно слово до 50 символов.
func ValidCategory(s string) bool { return categoryRe.MatchString(s) }

// ValidUnit проверяет единицу измерения: одно слово до 30 символов.
func ValidUnit(s string) bool { return unitRe.MatchString(s) }

// ValidNumber проверяет одиночное число с опциональным знаком
// и дробной частью.
func ValidNumber(s string) bool { return numberRe.MatchString(s) }

// ValidDescription проверяет текст предсказания до 200 символов.
func ValidDescription(s string) bool { return descRe.MatchString(s) }
