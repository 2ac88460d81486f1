package tdlib

import (
	"log/slog"

	"github.com/zelenin/go-tdlib/client"

	"github.com/kubanez-create/Calibration/internal/domain"
)

// Gateway реализует ports.Messenger через go-tdlib.
type Gateway struct {
	client *client.Client
	logger *slog.Logger
	selfId int64
}

// NewGateway создает и авторизует TDLib-клиента по токену бота.
func NewGateway(apiID int32, apiHash, botToken string, logger *slog.Logger) (*Gateway, error) {
	tdParams := &client.SetTdlibParametersRequest{
		ApiId:              apiID,
		ApiHash:            apiHash,
		SystemLanguageCode: "en",
		DeviceModel:        "CalibrationBot",
		ApplicationVersion: "1.0",
		UseMessageDatabase: false,
		UseFileDatabase:    false,
		DatabaseDirectory:  "./tdlib-db",
		FilesDirectory:     "./tdlib-files",
	}
	if _, err := client.SetLogVerbosityLevel(&client.SetLogVerbosityLevelRequest{
		NewVerbosityLevel: 1,
	}); err != nil {
		logger.Error("TDLib SetLogVerbosity level", "error", err)
	}

	authorizer := client.BotAuthorizer(tdParams, botToken)

	tdClient, err := client.NewClient(authorizer)
	if err != nil {
		logger.Error("TDLib NewClient error", "error", err)
		return nil, err
	}
	me, err := tdClient.GetMe()
	if err != nil {
		logger.Error("GetMe failed", "error", err)
		return nil, err
	}
	logger.Info("TDLib client initialized and authorized", "self_id", me.Id)
	return &Gateway{client: tdClient, logger: logger, selfId: me.Id}, nil
}

// Send отправляет текст, опционально с reply- либо inline-клавиатурой.
func (g *Gateway) Send(ownerID int64, text string, kb *domain.Keyboard) error {
	_, err := g.client.SendMessage(&client.SendMessageRequest{
		ChatId: ownerID,
		InputMessageContent: &client.InputMessageText{
			Text: &client.FormattedText{Text: text},
		},
		ReplyMarkup: buildMarkup(kb),
	})
	if err != nil {
		g.logger.Error("SendMessage failed", "chat_id", ownerID, "error", err)
	}
	return err
}

// AnswerCallback гасит "часики" на нажатой inline-кнопке.
func (g *Gateway) AnswerCallback(callbackID int64) error {
	_, err := g.client.AnswerCallbackQuery(&client.AnswerCallbackQueryRequest{
		CallbackQueryId: client.JsonInt64(callbackID),
	})
	return err
}

// Listen возвращает канал доменных событий и запускает обработку
// обновлений TDLib.
func (g *Gateway) Listen() (<-chan domain.Event, error) {
	out := make(chan domain.Event)

	listener := g.client.GetListener()
	go func() {
		defer close(out)
		for update := range listener.Updates {
			switch upd := update.(type) {
			case *client.UpdateNewMessage:
				g.processNewMessage(out, upd)
			case *client.UpdateNewCallbackQuery:
				g.processCallback(out, upd)
			}
		}
	}()

	return out, nil
}

func (g *Gateway) processNewMessage(out chan domain.Event, upd *client.UpdateNewMessage) {
	msg := upd.Message
	if msg.IsOutgoing {
		return
	}
	content, ok := msg.Content.(*client.MessageText)
	if !ok {
		g.logger.Debug("skipping non-text message", "type", msg.Content.MessageContentType())
		return
	}
	ownerID := msg.ChatId
	if sender, ok := msg.SenderId.(*client.MessageSenderUser); ok {
		ownerID = sender.UserId
	}
	out <- domain.Event{
		Kind:    domain.EventMessage,
		OwnerID: ownerID,
		Text:    content.Text.Text,
	}
}

func (g *Gateway) processCallback(out chan domain.Event, upd *client.UpdateNewCallbackQuery) {
	payload, ok := upd.Payload.(*client.CallbackQueryPayloadData)
	if !ok {
		g.logger.Debug("skipping non-data callback payload")
		return
	}
	out <- domain.Event{
		Kind:       domain.EventCallback,
		OwnerID:    upd.SenderUserId,
		Data:       string(payload.Data),
		CallbackID: int64(upd.Id),
	}
}

func buildMarkup(kb *domain.Keyboard) client.ReplyMarkup {
	if kb == nil {
		return nil
	}
	if kb.Inline {
		rows := make([][]*client.InlineKeyboardButton, 0, len(kb.Rows))
		for _, row := range kb.Rows {
			btns := make([]*client.InlineKeyboardButton, 0, len(row))
			for _, b := range row {
				btns = append(btns, &client.InlineKeyboardButton{
					Text: b.Label,
					Type: &client.InlineKeyboardButtonTypeCallback{Data: []byte(b.Data)},
				})
			}
			rows = append(rows, btns)
		}
		return &client.ReplyMarkupInlineKeyboard{Rows: rows}
	}

	rows := make([][]*client.KeyboardButton, 0, len(kb.Rows))
	for _, row := range kb.Rows {
		btns := make([]*client.KeyboardButton, 0, len(row))
		for _, b := range row {
			btns = append(btns, &client.KeyboardButton{
				Text: b.Label,
				Type: &client.KeyboardButtonTypeText{},
			})
		}
		rows = append(rows, btns)
	}
	return &client.ReplyMarkupShowKeyboard{
		Rows:           rows,
		ResizeKeyboard: true,
	}
}
