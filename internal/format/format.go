// Package format собирает все пользовательские тексты бота: подсказки
// шагов диалога, сообщения об ошибках и табличные представления
// выборок. Ядро отдает сюда готовые данные и не знает о разметке.
package format

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/kubanez-create/Calibration/internal/calibration"
	"github.com/kubanez-create/Calibration/internal/domain"
)

const dateLayout = "02/01/2006"

// Приветствие и справка.
const (
	Greeting = "Hello, let's make predictions, bwah! I mean let's improve" +
		" ourselves at least in part where our calibration is considered!" +
		" Press the 'Help' button - it'll help. Maybe."

	Help = "Goal of this bot is to collect (preferably a lot of) your" +
		" predictions and store them safely ever after so you can check how" +
		" well calibrated you are overall or in some categories you are" +
		" interested in.\n" +
		"- To add a new prediction - press the 'Make prediction' button;\n" +
		"- Every time you need to know an id of your previously made" +
		" prediction (when you wish to delete, update it or enter outcome)" +
		" - press the 'Show predictions' button;\n" +
		"- To update your previous prediction - press the 'Update" +
		" prediction' button;\n" +
		"- If you screwed up completely adding your prediction - just go" +
		" and see what an id of this prediction is and then press the" +
		" button 'Delete prediction'. Then you'll be able to add your" +
		" prediction anew;\n" +
		"- After you've learned an actual outcome of your predicted event" +
		" - press the 'Enter outcome' button;\n" +
		"- And at last but not least you may wish to check how well" +
		" calibrated you are based on your previous predictions. In this" +
		" case just press the 'Check calibration' button."
)

// Подсказки, открывающие каждый диалог.
const (
	PromptDescription = "Send a text of your prediction - what exactly is" +
		" going to happen in your opinion (not longer than 200 characters," +
		" so try to be concise).\n\nThen follow further prompts."
	PromptCategory = "Send a category of your prediction so you could later" +
		" check your calibration not only overall but in this particular" +
		" area as well. One word, please."
	PromptUnit = "Send a unit of measure, whether it is minutes, days," +
		" persons or chickens. One word, please."
	PromptLow50  = "Send a lower bound your predicted value may take with a 50 percent confidence. One number and nothing else."
	PromptHigh50 = "Send an upper bound your predicted value may take with a 50 percent confidence. One number and nothing else."
	PromptLow90  = "Send a lower bound your predicted value may take with a 90 percent confidence. One number and nothing else."
	PromptHigh90 = "Send an upper bound your predicted value may take with a 90 percent confidence. One number and nothing else."

	PromptUpdate = "If it is time to shift your beliefs in accordance with" +
		" a new evidence or you've just changed your mind here what you" +
		" need to do:\nenter the id of your prediction; new lower and upper" +
		" bounds on it with 50 and 90 percent confidence.\n" +
		"For example: 1; 3; 5; 1; 8"
	PromptOutcome = "Has reality surprised you this time, eh? Anyway just" +
		" enter the id of your prediction; and an actual outcome of an" +
		" event. For example: 1; 7"
	PromptDelete = "Enter an id for a prediction you are going to delete"
	PromptCheck  = "Type 'all' and then enter if you'd like to get your" +
		" current overall calibration. In case you're after some specific" +
		" area of your life's calibration just type the category and press" +
		" enter. So either enter 'all' or e.g. 'work' as one word without" +
		" any punctuation."
	PromptListKind = "Which list would you like to see?"
	PromptConfirm  = "Please check the resulting prediction. If everything" +
		" is correct - press 'Save', otherwise press 'Enter again'.\n\n"
)

// Поправки на невалидный ввод; состояние шага при этом сохраняется,
// пользователь может просто прислать исправленный вариант.
const (
	BadDescription = "Sorry but your input isn't valid. Please check that" +
		" your description consists of text and/or punctuation marks" +
		" ('.', ',', '?', '!') and isn't longer than 200 characters."
	BadCategory = "Sorry but your input isn't valid. Please make sure it" +
		" consists of a single word without any punctuation marks."
	BadUnit = "Sorry but your input isn't valid. Please send a single word" +
		" for a unit of measure, no longer than 30 characters."
	BadNumber = "Sorry but your input isn't valid. Please send one number" +
		" with an optional sign and a decimal part separated by a dot (.)" +
		" not a comma (,)."
	BadUpdate = "Sorry but your input isn't valid. Please check that your" +
		" update message consists of 5 numbers separated by semicolon and" +
		" whitespace and also make sure your first number is an integer."
	BadOutcome = "Sorry but your input isn't valid. Please check that your" +
		" message consists of 2 numbers separated by semicolon and" +
		" whitespace and also make sure your first number is an integer."
	BadDeletion = "Sorry but your input isn't valid. Please make sure it" +
		" consists of a single integer and nothing else."
	BadConfirm = "Please use the buttons: press 'Save' to keep the" +
		" prediction or 'Enter again' to start over."

	Unrecognized = "I'm afraid I don't understand this message. Press one" +
		" of the menu buttons to start."
	NoPredictions = "You have made no predictions so far. Give it a try!" +
		" It is for free."
	NoCategoryData = "There's currently nothing your calibration might" +
		" possibly be calculated on. Make at least one prediction and then" +
		" enter an actual outcome for it."
	GenericFailure = "Something went wrong, please try again"
)

// Saved подтверждает сохранение нового предсказания.
func Saved(id int64) string {
	return fmt.Sprintf("Prediction correctly inserted with id %d", id)
}

// Updated подтверждает обновление границ.
func Updated(id int64) string {
	return fmt.Sprintf("Prediction with id %d correctly updated", id)
}

// OutcomeSaved подтверждает внесение итога.
func OutcomeSaved(id int64) string {
	return fmt.Sprintf("An actual outcome of an event with id %d correctly saved", id)
}

// Deleted подтверждает удаление.
func Deleted(id int64) string {
	return fmt.Sprintf("Prediction with id %d correctly deleted", id)
}

// NotFound — предсказание с таким номером пользователю не принадлежит.
func NotFound(id int64) string {
	return fmt.Sprintf("Prediction with id %d is not present", id)
}

func num(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// Predictions строит текстовую таблицу страницы предсказаний.
func Predictions(rows []domain.Prediction) string {
	var b strings.Builder
	b.WriteString("You have made predictions:\n\n")
	b.WriteString("id | date | description | category | unit | 50 low | 50 high | 90 low | 90 high | outcome\n")
	for _, p := range rows {
		outcome := "-"
		if p.Resolved() {
			outcome = num(*p.Outcome)
		}
		fmt.Fprintf(&b, "%d | %s | %s | %s | %s | %s | %s | %s | %s | %s\n",
			p.ID, p.CreatedAt.Format(dateLayout), p.Description, p.Category,
			p.Unit, num(p.Low50), num(p.High50), num(p.Low90), num(p.High90),
			outcome)
	}
	return b.String()
}

// Categories строит строку со списком категорий пользователя.
func Categories(cats []string) string {
	return "Your categories: " + strings.Join(cats, "; ")
}

// Calibration строит отчет по рассчитанной калибровке.
func Calibration(res calibration.Result) string {
	return fmt.Sprintf(
		"Your calibration so far (%d predictions with a known outcome):\n"+
			"for a 50 percent confidence level - %.2f\n"+
			"for a 90 percent confidence level - %.2f",
		res.Total, res.Ratio50, res.Ratio90)
}

// DraftSummary строит сводку черновика для шага подтверждения.
// Незаполненные поля не печатает.
func DraftSummary(d domain.Draft) string {
	var b strings.Builder
	fmt.Fprintf(&b, "description: %s\ncategory: %s\nunit: %s\n",
		d.Description, d.Category, d.Unit)
	if d.Low50 != nil && d.High50 != nil {
		fmt.Fprintf(&b, "50%% interval: [%s, %s]\n", num(*d.Low50), num(*d.High50))
	}
	if d.Low90 != nil && d.High90 != nil {
		fmt.Fprintf(&b, "90%% interval: [%s, %s]", num(*d.Low90), num(*d.High90))
	}
	return b.String()
}
