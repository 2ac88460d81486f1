package conversation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/kubanez-create/Calibration/internal/domain"
	"github.com/kubanez-create/Calibration/internal/format"
	"github.com/kubanez-create/Calibration/internal/validation"
)

// continueFlow трактует сообщение как ответ на ожидаемый шаг.
// Невалидный ввод не снимает состояние: пользователь получает
// поправку и может сразу прислать исправленный вариант. Состояние
// снимается на "не найдено" и на ошибках хранилища.
func (m *Machine) continueFlow(ctx context.Context, log *slog.Logger, ev domain.Event, sess domain.Session) error {
	switch sess.State {
	case domain.StateAwaitCheckCategory:
		return m.stepCheckCategory(ctx, ev)
	case domain.StateAwaitUpdate:
		return m.stepUpdate(ctx, ev)
	case domain.StateAwaitOutcome:
		return m.stepOutcome(ctx, ev)
	case domain.StateAwaitDelete:
		return m.stepDelete(ctx, ev)
	case domain.StateAwaitDescription,
		domain.StateAwaitCategory,
		domain.StateAwaitUnit,
		domain.StateAwaitLow50,
		domain.StateAwaitHigh50,
		domain.StateAwaitLow90,
		domain.StateAwaitHigh90:
		return m.stepAdd(ctx, ev, sess)
	case domain.StateAwaitConfirm:
		// свободный текст здесь не принимается, только кнопки
		return m.gateway.Send(ev.OwnerID, format.BadConfirm, nil)
	default:
		log.Warn("unknown flow state, dropping session", "state", sess.State)
		return m.fail(ctx, ev.OwnerID, fmt.Errorf("unknown flow state %d", sess.State))
	}
}

func (m *Machine) stepCheckCategory(ctx context.Context, ev domain.Event) error {
	if !validation.ValidCategory(ev.Text) {
		return m.gateway.Send(ev.OwnerID, format.BadCategory, nil)
	}
	res, err := m.svc.Calibration(ctx, ev.OwnerID, ev.Text)
	if err != nil {
		return m.fail(ctx, ev.OwnerID, err)
	}
	if err := m.sessions.Delete(ctx, ev.OwnerID); err != nil {
		return err
	}
	if res == nil {
		return m.gateway.Send(ev.OwnerID, format.NoCategoryData, nil)
	}
	return m.gateway.Send(ev.OwnerID, format.Calibration(*res), nil)
}

func (m *Machine) stepUpdate(ctx context.Context, ev domain.Event) error {
	if !validation.ValidUpdate(ev.Text) {
		return m.gateway.Send(ev.OwnerID, format.BadUpdate, nil)
	}
	parts := strings.Split(ev.Text, "; ")
	id, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		return m.fail(ctx, ev.OwnerID, err)
	}
	nums, err := parseFloats(parts[1:])
	if err != nil {
		return m.fail(ctx, ev.OwnerID, err)
	}
	return m.finishMutation(ctx, ev.OwnerID, id,
		m.svc.UpdateBounds(ctx, ev.OwnerID, id, nums[0], nums[1], nums[2], nums[3]),
		format.Updated(id))
}

func (m *Machine) stepOutcome(ctx context.Context, ev domain.Event) error {
	if !validation.ValidOutcome(ev.Text) {
		return m.gateway.Send(ev.OwnerID, format.BadOutcome, nil)
	}
	parts := strings.Split(ev.Text, "; ")
	id, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		return m.fail(ctx, ev.OwnerID, err)
	}
	outcome, err := strconv.ParseFloat(parts[1], 64)
	if err != nil {
		return m.fail(ctx, ev.OwnerID, err)
	}
	return m.finishMutation(ctx, ev.OwnerID, id,
		m.svc.EnterOutcome(ctx, ev.OwnerID, id, outcome),
		format.OutcomeSaved(id))
}

func (m *Machine) stepDelete(ctx context.Context, ev domain.Event) error {
	if !validation.ValidDeletion(ev.Text) {
		return m.gateway.Send(ev.OwnerID, format.BadDeletion, nil)
	}
	id, err := strconv.ParseInt(ev.Text, 10, 64)
	if err != nil {
		return m.fail(ctx, ev.OwnerID, err)
	}
	return m.finishMutation(ctx, ev.OwnerID, id,
		m.svc.Delete(ctx, ev.OwnerID, id),
		format.Deleted(id))
}

// finishMutation завершает одношаговый сценарий: "не найдено" и успех
// снимают состояние, отказ хранилища уходит через fail.
func (m *Machine) finishMutation(ctx context.Context, ownerID, id int64, opErr error, success string) error {
	if opErr != nil {
		if !errors.Is(opErr, domain.ErrNotFound) {
			return m.fail(ctx, ownerID, opErr)
		}
		if err := m.sessions.Delete(ctx, ownerID); err != nil {
			return err
		}
		return m.gateway.Send(ownerID, format.NotFound(id), nil)
	}
	if err := m.sessions.Delete(ctx, ownerID); err != nil {
		return err
	}
	return m.gateway.Send(ownerID, success, nil)
}

// stepAdd продвигает пошаговый ввод предсказания. На первом шаге
// принимается и однострочный вариант целиком — привычка пользователей
// старой версии бота.
func (m *Machine) stepAdd(ctx context.Context, ev domain.Event, sess domain.Session) error {
	switch sess.State {
	case domain.StateAwaitDescription:
		if validation.ValidCreation(ev.Text) {
			d, err := parseCreationLine(ev.Text)
			if err != nil {
				return m.fail(ctx, ev.OwnerID, err)
			}
			sess.Draft = d
			return m.askConfirmation(ctx, ev.OwnerID, sess)
		}
		if !validation.ValidDescription(ev.Text) {
			return m.gateway.Send(ev.OwnerID, format.BadDescription, nil)
		}
		sess.Draft.Description = ev.Text
		return m.advance(ctx, ev.OwnerID, sess, domain.StateAwaitCategory, format.PromptCategory)

	case domain.StateAwaitCategory:
		if !validation.ValidCategory(ev.Text) {
			return m.gateway.Send(ev.OwnerID, format.BadCategory, nil)
		}
		sess.Draft.Category = ev.Text
		return m.advance(ctx, ev.OwnerID, sess, domain.StateAwaitUnit, format.PromptUnit)

	case domain.StateAwaitUnit:
		if !validation.ValidUnit(ev.Text) {
			return m.gateway.Send(ev.OwnerID, format.BadUnit, nil)
		}
		sess.Draft.Unit = ev.Text
		return m.advance(ctx, ev.OwnerID, sess, domain.StateAwaitLow50, format.PromptLow50)

	case domain.StateAwaitLow50:
		v, ok := parseNumber(ev.Text)
		if !ok {
			return m.gateway.Send(ev.OwnerID, format.BadNumber, nil)
		}
		sess.Draft.Low50 = v
		return m.advance(ctx, ev.OwnerID, sess, domain.StateAwaitHigh50, format.PromptHigh50)

	case domain.StateAwaitHigh50:
		v, ok := parseNumber(ev.Text)
		if !ok {
			return m.gateway.Send(ev.OwnerID, format.BadNumber, nil)
		}
		sess.Draft.High50 = v
		return m.advance(ctx, ev.OwnerID, sess, domain.StateAwaitLow90, format.PromptLow90)

	case domain.StateAwaitLow90:
		v, ok := parseNumber(ev.Text)
		if !ok {
			return m.gateway.Send(ev.OwnerID, format.BadNumber, nil)
		}
		sess.Draft.Low90 = v
		return m.advance(ctx, ev.OwnerID, sess, domain.StateAwaitHigh90, format.PromptHigh90)

	default: // StateAwaitHigh90
		v, ok := parseNumber(ev.Text)
		if !ok {
			return m.gateway.Send(ev.OwnerID, format.BadNumber, nil)
		}
		sess.Draft.High90 = v
		return m.askConfirmation(ctx, ev.OwnerID, sess)
	}
}

// parseNumber валидирует и разбирает одиночное число шага диалога.
func parseNumber(text string) (*float64, bool) {
	if !validation.ValidNumber(text) {
		return nil, false
	}
	v, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return nil, false
	}
	return &v, true
}

func (m *Machine) advance(ctx context.Context, ownerID int64, sess domain.Session, next domain.FlowState, prompt string) error {
	sess.State = next
	if err := m.sessions.Put(ctx, ownerID, sess); err != nil {
		return err
	}
	return m.gateway.Send(ownerID, prompt, nil)
}

func (m *Machine) askConfirmation(ctx context.Context, ownerID int64, sess domain.Session) error {
	sess.State = domain.StateAwaitConfirm
	if err := m.sessions.Put(ctx, ownerID, sess); err != nil {
		return err
	}
	return m.gateway.Send(ownerID, format.PromptConfirm+format.DraftSummary(sess.Draft), &domain.Keyboard{
		Inline: true,
		Rows: [][]domain.Button{{
			{Label: BtnSave, Data: cbSave},
			{Label: BtnAgain, Data: cbAgain},
		}},
	})
}

// parseCreationLine разбирает однострочное предсказание, уже
// прошедшее ValidCreation.
func parseCreationLine(s string) (domain.Draft, error) {
	parts := strings.Split(s, "; ")
	if len(parts) != 7 {
		return domain.Draft{}, fmt.Errorf("creation line has %d fields, want 7", len(parts))
	}
	nums, err := parseFloats(parts[3:])
	if err != nil {
		return domain.Draft{}, err
	}
	return domain.Draft{
		Description: parts[0],
		Category:    parts[1],
		Unit:        parts[2],
		Low50:       &nums[0],
		High50:      &nums[1],
		Low90:       &nums[2],
		High90:      &nums[3],
	}, nil
}

func parseFloats(parts []string) ([]float64, error) {
	out := make([]float64, len(parts))
	for i, p := range parts {
		v, err := strconv.ParseFloat(p, 64)
		if err != nil {
			return nil, fmt.Errorf("parse number %q: %w", p, err)
		}
		out[i] = v
	}
	return out, nil
}
