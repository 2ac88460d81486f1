package conversation

import (
	"context"
	"log/slog"
	"strconv"
	"strings"

	"github.com/kubanez-create/Calibration/internal/domain"
	"github.com/kubanez-create/Calibration/internal/format"
)

// handleCallback обрабатывает нажатия inline-кнопок: подтверждение
// черновика и пагинацию списков.
func (m *Machine) handleCallback(ctx context.Context, log *slog.Logger, ev domain.Event) error {
	if err := m.gateway.AnswerCallback(ev.CallbackID); err != nil {
		// телеграм перестанет крутить "часики" сам, работу не прерываем
		log.Warn("callback answer failed", "err", err)
	}

	switch {
	case ev.Data == cbSave:
		return m.commitDraft(ctx, log, ev)
	case ev.Data == cbAgain:
		// начать ввод заново, прежний черновик отбрасывается
		return m.startFlow(ctx, ev.OwnerID, domain.StateAwaitDescription, format.PromptDescription)
	case ev.Data == cbListWhole:
		return m.sendPage(ctx, ev.OwnerID, false, 0)
	case ev.Data == cbListEmpty:
		return m.sendPage(ctx, ev.OwnerID, true, 0)
	case strings.HasPrefix(ev.Data, pagePrefixFull):
		return m.sendNumberedPage(ctx, log, ev.OwnerID, false, strings.TrimPrefix(ev.Data, pagePrefixFull))
	case strings.HasPrefix(ev.Data, pagePrefixOpen):
		return m.sendNumberedPage(ctx, log, ev.OwnerID, true, strings.TrimPrefix(ev.Data, pagePrefixOpen))
	default:
		log.Warn("unknown callback payload", "data", ev.Data)
		return nil
	}
}

// commitDraft — терминальный шаг сценария добавления. Неполный
// черновик здесь означает нарушение внутреннего инварианта: сценарий
// прерывается, как при отказе хранилища. При настоящем отказе
// хранилища состояние сохраняется — повторное нажатие "Save" имеет
// смысл.
func (m *Machine) commitDraft(ctx context.Context, log *slog.Logger, ev domain.Event) error {
	sess, found, err := m.sessions.Get(ctx, ev.OwnerID)
	if err != nil {
		return err
	}
	if !found || sess.State != domain.StateAwaitConfirm {
		log.Warn("save pressed outside of confirmation step")
		return m.gateway.Send(ev.OwnerID, format.Unrecognized, nil)
	}
	if !sess.Draft.Complete() {
		return m.fail(ctx, ev.OwnerID, domain.ErrIncompleteDraft)
	}

	id, err := m.svc.Create(ctx, ev.OwnerID, sess.Draft)
	if err != nil {
		if sendErr := m.gateway.Send(ev.OwnerID, format.GenericFailure, nil); sendErr != nil {
			return sendErr
		}
		return err
	}
	if err := m.sessions.Delete(ctx, ev.OwnerID); err != nil {
		return err
	}
	log.Debug("someone just added a prediction", "id", id)
	return m.gateway.Send(ev.OwnerID, format.Saved(id), nil)
}

func (m *Machine) sendNumberedPage(ctx context.Context, log *slog.Logger, ownerID int64, onlyMissing bool, rawPage string) error {
	page, err := strconv.Atoi(rawPage)
	if err != nil || page < 0 {
		log.Warn("bad page token", "raw", rawPage)
		return nil
	}
	return m.sendPage(ctx, ownerID, onlyMissing, page)
}

// sendPage отправляет страницу списка с навигационными кнопками.
func (m *Machine) sendPage(ctx context.Context, ownerID int64, onlyMissing bool, page int) error {
	rows, total, err := m.svc.List(ctx, ownerID, onlyMissing, page*ChunkSize, ChunkSize)
	if err != nil {
		if sendErr := m.gateway.Send(ownerID, format.GenericFailure, nil); sendErr != nil {
			return sendErr
		}
		return err
	}
	if total == 0 {
		return m.gateway.Send(ownerID, format.NoPredictions, nil)
	}

	prefix := pagePrefixFull
	if onlyMissing {
		prefix = pagePrefixOpen
	}
	var nav []domain.Button
	if page > 0 {
		nav = append(nav, domain.Button{Label: BtnPrev, Data: prefix + strconv.Itoa(page-1)})
	}
	if int64((page+1)*ChunkSize) < total {
		nav = append(nav, domain.Button{Label: BtnNext, Data: prefix + strconv.Itoa(page+1)})
	}

	var kb *domain.Keyboard
	if len(nav) > 0 {
		kb = &domain.Keyboard{Inline: true, Rows: [][]domain.Button{nav}}
	}
	return m.gateway.Send(ownerID, format.Predictions(rows), kb)
}
