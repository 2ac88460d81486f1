// Package conversation реализует машину состояний диалога: ведет
// пользователя по многошаговым сценариям (внесение, обновление,
// удаление, итог, проверка калибровки) и накапливает черновик
// предсказания между сообщениями.
package conversation

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/kubanez-create/Calibration/internal/calibration"
	"github.com/kubanez-create/Calibration/internal/domain"
	"github.com/kubanez-create/Calibration/internal/format"
	"github.com/kubanez-create/Calibration/internal/metrics"
	"github.com/kubanez-create/Calibration/internal/ports"
)

// ChunkSize — сколько предсказаний помещается на одну страницу списка.
const ChunkSize = 10

// Подписи кнопок главного меню. Любая из них прерывает текущий диалог
// и начинает свой — так застрявший пользователь всегда может выйти.
const (
	CmdStart       = "/start"
	CmdMake        = "Make prediction"
	CmdShow        = "Show predictions"
	CmdUpdate      = "Update prediction"
	CmdDelete      = "Delete prediction"
	CmdOutcome     = "Enter outcome"
	CmdCheck       = "Check calibration"
	CmdCategories  = "My categories"
	CmdHelp        = "Help"
	BtnSave        = "Save"
	BtnAgain       = "Enter again"
	BtnWholeList   = "Whole list"
	BtnWithoutList = "Without outcome"
	BtnPrev        = "Previous"
	BtnNext        = "Next"
)

// Payload'ы inline-кнопок.
const (
	cbSave      = "add_save"
	cbAgain     = "add_again"
	cbListWhole = "list_whole"
	cbListEmpty = "list_empty"
	pagePrefixFull = "page_full_"
	pagePrefixOpen = "page_open_"
)

// Service — срез PredictionService, который нужен машине диалогов.
type Service interface {
	Create(ctx context.Context, ownerID int64, d domain.Draft) (int64, error)
	UpdateBounds(ctx context.Context, ownerID, id int64, low50, high50, low90, high90 float64) error
	EnterOutcome(ctx context.Context, ownerID, id int64, outcome float64) error
	Delete(ctx context.Context, ownerID, id int64) error
	List(ctx context.Context, ownerID int64, onlyMissingOutcome bool, offset, limit int) ([]domain.Prediction, int64, error)
	Categories(ctx context.Context, ownerID int64) ([]string, error)
	Calibration(ctx context.Context, ownerID int64, category string) (*calibration.Result, error)
}

// Machine обрабатывает входящие события по одному на пользователя:
// секция "прочитать состояние — проверить ввод — изменить хранилище —
// продвинуть состояние" закрыта замком конкретного владельца, разные
// пользователи друг другу не мешают.
type Machine struct {
	svc      Service
	sessions ports.SessionStore
	gateway  ports.Messenger
	logger   *slog.Logger

	mu    sync.Mutex
	locks map[int64]*sync.Mutex
}

func NewMachine(svc Service, sessions ports.SessionStore, gateway ports.Messenger, logger *slog.Logger) *Machine {
	return &Machine{
		svc:      svc,
		sessions: sessions,
		gateway:  gateway,
		logger:   logger,
		locks:    make(map[int64]*sync.Mutex),
	}
}

func (m *Machine) ownerLock(ownerID int64) *sync.Mutex {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.locks[ownerID]
	if !ok {
		l = &sync.Mutex{}
		m.locks[ownerID] = l
	}
	return l
}

// HandleEvent — единая точка входа для сообщений и нажатий кнопок.
func (m *Machine) HandleEvent(ctx context.Context, ev domain.Event) {
	log := m.logger.With("owner_id", ev.OwnerID, "correlation_id", uuid.NewString())

	l := m.ownerLock(ev.OwnerID)
	l.Lock()
	defer l.Unlock()

	var err error
	switch ev.Kind {
	case domain.EventCallback:
		err = m.handleCallback(ctx, log, ev)
	default:
		err = m.handleMessage(ctx, log, ev)
	}
	if err != nil {
		metrics.EventsFailed.Inc()
		log.Error("event handling failed", "err", err)
		return
	}
	metrics.EventsHandled.Inc()
}

// handleMessage сначала проверяет команды меню: команда всегда
// побеждает и перезапускает свой сценарий, отбрасывая прежнее
// состояние и черновик. Только когда команда не распознана, сообщение
// трактуется как ответ на ожидаемый шаг.
func (m *Machine) handleMessage(ctx context.Context, log *slog.Logger, ev domain.Event) error {
	switch ev.Text {
	case CmdStart:
		if err := m.sessions.Delete(ctx, ev.OwnerID); err != nil {
			return err
		}
		log.Info("looks like we have a new user")
		return m.gateway.Send(ev.OwnerID, format.Greeting, mainKeyboard())
	case CmdHelp:
		if err := m.sessions.Delete(ctx, ev.OwnerID); err != nil {
			return err
		}
		return m.gateway.Send(ev.OwnerID, format.Help, nil)
	case CmdCategories:
		if err := m.sessions.Delete(ctx, ev.OwnerID); err != nil {
			return err
		}
		return m.showCategories(ctx, ev.OwnerID)
	case CmdShow:
		if err := m.sessions.Delete(ctx, ev.OwnerID); err != nil {
			return err
		}
		return m.gateway.Send(ev.OwnerID, format.PromptListKind, &domain.Keyboard{
			Inline: true,
			Rows: [][]domain.Button{{
				{Label: BtnWholeList, Data: cbListWhole},
				{Label: BtnWithoutList, Data: cbListEmpty},
			}},
		})
	case CmdMake:
		return m.startFlow(ctx, ev.OwnerID, domain.StateAwaitDescription, format.PromptDescription)
	case CmdUpdate:
		return m.startFlow(ctx, ev.OwnerID, domain.StateAwaitUpdate, format.PromptUpdate)
	case CmdOutcome:
		return m.startFlow(ctx, ev.OwnerID, domain.StateAwaitOutcome, format.PromptOutcome)
	case CmdDelete:
		return m.startFlow(ctx, ev.OwnerID, domain.StateAwaitDelete, format.PromptDelete)
	case CmdCheck:
		return m.startFlow(ctx, ev.OwnerID, domain.StateAwaitCheckCategory, format.PromptCheck)
	}

	sess, found, err := m.sessions.Get(ctx, ev.OwnerID)
	if err != nil {
		return err
	}
	if !found {
		// вне диалога свободный текст ничего не значит
		return m.gateway.Send(ev.OwnerID, format.Unrecognized, nil)
	}
	return m.continueFlow(ctx, log, ev, sess)
}

// startFlow перезапускает сценарий с чистым черновиком.
func (m *Machine) startFlow(ctx context.Context, ownerID int64, st domain.FlowState, prompt string) error {
	if err := m.sessions.Put(ctx, ownerID, domain.Session{State: st}); err != nil {
		return err
	}
	return m.gateway.Send(ownerID, prompt, nil)
}

func (m *Machine) showCategories(ctx context.Context, ownerID int64) error {
	cats, err := m.svc.Categories(ctx, ownerID)
	if err != nil {
		if sendErr := m.gateway.Send(ownerID, format.GenericFailure, nil); sendErr != nil {
			return sendErr
		}
		return err
	}
	if len(cats) == 0 {
		return m.gateway.Send(ownerID, format.NoPredictions, nil)
	}
	return m.gateway.Send(ownerID, format.Categories(cats), nil)
}

func mainKeyboard() *domain.Keyboard {
	return &domain.Keyboard{
		Rows: [][]domain.Button{
			{{Label: CmdMake}, {Label: CmdShow}},
			{{Label: CmdUpdate}, {Label: CmdDelete}},
			{{Label: CmdOutcome}, {Label: CmdCheck}},
			{{Label: CmdCategories}, {Label: CmdHelp}},
		},
	}
}

// fail отправляет пользователю нейтральное сообщение об отказе и
// снимает состояние: застрявший навсегда диалог хуже прерванного.
func (m *Machine) fail(ctx context.Context, ownerID int64, cause error) error {
	if err := m.sessions.Delete(ctx, ownerID); err != nil {
		m.logger.Error("session cleanup failed", "owner_id", ownerID, "err", err)
	}
	if err := m.gateway.Send(ownerID, format.GenericFailure, nil); err != nil {
		return errors.Join(cause, err)
	}
	return cause
}
