package domain

// EventKind различает обычное сообщение и нажатие inline-кнопки.
type EventKind int

const (
	EventMessage EventKind = iota
	EventCallback
)

// Event — входящее событие от мессенджера.
type Event struct {
	Kind       EventKind
	OwnerID    int64  // id отправителя
	Text       string // текст сообщения, пустой для callback
	Data       string // payload callback-кнопки, пустой для сообщения
	CallbackID int64  // id callback-запроса для подтверждения
}

// Button — кнопка клавиатуры. Data пустой у обычных reply-кнопок.
type Button struct {
	Label string
	Data  string
}

// Keyboard прикладывается к исходящему сообщению.
type Keyboard struct {
	Inline bool // inline под сообщением либо reply вместо клавиатуры
	Rows   [][]Button
}
