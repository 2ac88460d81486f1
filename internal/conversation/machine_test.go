package conversation

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kubanez-create/Calibration/internal/adapters/memory"
	"github.com/kubanez-create/Calibration/internal/calibration"
	"github.com/kubanez-create/Calibration/internal/domain"
	"github.com/kubanez-create/Calibration/internal/format"
)

var errStoreDown = errors.New("store is down")

// fakeService — сервис предсказаний в памяти с той же семантикой
// владения и "не найдено", что и у настоящего.
type fakeService struct {
	mu      sync.Mutex
	nextID  int64
	rows    map[int64]domain.Prediction
	failing bool
}

func newFakeService() *fakeService {
	return &fakeService{rows: make(map[int64]domain.Prediction)}
}

func (f *fakeService) Create(_ context.Context, ownerID int64, d domain.Draft) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failing {
		return 0, errStoreDown
	}
	p, err := d.Build(ownerID, time.Now())
	if err != nil {
		return 0, err
	}
	p.Category = strings.ToLower(p.Category)
	f.nextID++
	p.ID = f.nextID
	f.rows[p.ID] = p
	return p.ID, nil
}

func (f *fakeService) UpdateBounds(_ context.Context, ownerID, id int64, low50, high50, low90, high90 float64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failing {
		return errStoreDown
	}
	p, ok := f.rows[id]
	if !ok || p.OwnerID != ownerID {
		return domain.ErrNotFound
	}
	p.Low50, p.High50, p.Low90, p.High90 = low50, high50, low90, high90
	f.rows[id] = p
	return nil
}

func (f *fakeService) EnterOutcome(_ context.Context, ownerID, id int64, outcome float64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failing {
		return errStoreDown
	}
	p, ok := f.rows[id]
	if !ok || p.OwnerID != ownerID {
		return domain.ErrNotFound
	}
	p.Outcome = &outcome
	f.rows[id] = p
	return nil
}

func (f *fakeService) Delete(_ context.Context, ownerID, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failing {
		return errStoreDown
	}
	p, ok := f.rows[id]
	if !ok || p.OwnerID != ownerID {
		return domain.ErrNotFound
	}
	delete(f.rows, id)
	return nil
}

func (f *fakeService) owned(ownerID int64, onlyMissing bool) []domain.Prediction {
	var out []domain.Prediction
	for _, p := range f.rows {
		if p.OwnerID != ownerID {
			continue
		}
		if onlyMissing && p.Resolved() {
			continue
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (f *fakeService) List(_ context.Context, ownerID int64, onlyMissing bool, offset, limit int) ([]domain.Prediction, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failing {
		return nil, 0, errStoreDown
	}
	all := f.owned(ownerID, onlyMissing)
	total := int64(len(all))
	if offset >= len(all) {
		return nil, total, nil
	}
	all = all[offset:]
	if limit < len(all) {
		all = all[:limit]
	}
	return all, total, nil
}

func (f *fakeService) Categories(_ context.Context, ownerID int64) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failing {
		return nil, errStoreDown
	}
	seen := make(map[string]bool)
	var out []string
	for _, p := range f.owned(ownerID, false) {
		if !seen[p.Category] {
			seen[p.Category] = true
			out = append(out, p.Category)
		}
	}
	return out, nil
}

func (f *fakeService) Calibration(_ context.Context, ownerID int64, category string) (*calibration.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failing {
		return nil, errStoreDown
	}
	category = strings.ToLower(category)
	var rows []domain.Prediction
	for _, p := range f.owned(ownerID, false) {
		if category != calibration.AllCategories && !strings.EqualFold(p.Category, category) {
			continue
		}
		rows = append(rows, p)
	}
	res, ok := calibration.Compute(rows)
	if !ok {
		return nil, nil
	}
	return &res, nil
}

type sentMessage struct {
	to   int64
	text string
	kb   *domain.Keyboard
}

type fakeGateway struct {
	mu       sync.Mutex
	sent     []sentMessage
	answered []int64
}

func (g *fakeGateway) Send(ownerID int64, text string, kb *domain.Keyboard) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.sent = append(g.sent, sentMessage{to: ownerID, text: text, kb: kb})
	return nil
}

func (g *fakeGateway) AnswerCallback(callbackID int64) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.answered = append(g.answered, callbackID)
	return nil
}

func (g *fakeGateway) Listen() (<-chan domain.Event, error) { return nil, nil }

func (g *fakeGateway) last(t *testing.T) sentMessage {
	t.Helper()
	g.mu.Lock()
	defer g.mu.Unlock()
	require.NotEmpty(t, g.sent)
	return g.sent[len(g.sent)-1]
}

type fixture struct {
	machine  *Machine
	svc      *fakeService
	gateway  *fakeGateway
	sessions *memory.SessionStore
}

func newFixture() *fixture {
	svc := newFakeService()
	gateway := &fakeGateway{}
	sessions := memory.NewSessionStore(10 * time.Minute)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return &fixture{
		machine:  NewMachine(svc, sessions, gateway, logger),
		svc:      svc,
		gateway:  gateway,
		sessions: sessions,
	}
}

func msg(owner int64, text string) domain.Event {
	return domain.Event{Kind: domain.EventMessage, OwnerID: owner, Text: text}
}

func cb(owner int64, data string) domain.Event {
	return domain.Event{Kind: domain.EventCallback, OwnerID: owner, Data: data, CallbackID: 99}
}

func (f *fixture) state(t *testing.T, owner int64) (domain.Session, bool) {
	t.Helper()
	sess, found, err := f.sessions.Get(context.Background(), owner)
	require.NoError(t, err)
	return sess, found
}

func TestStartSendsKeyboard(t *testing.T) {
	f := newFixture()
	f.machine.HandleEvent(context.Background(), msg(1, CmdStart))

	last := f.gateway.last(t)
	assert.Equal(t, format.Greeting, last.text)
	require.NotNil(t, last.kb)
	assert.False(t, last.kb.Inline)
	assert.Len(t, last.kb.Rows, 4)
}

func TestFreeTextOutsideFlow(t *testing.T) {
	f := newFixture()
	f.machine.HandleEvent(context.Background(), msg(1, "hello there"))

	assert.Equal(t, format.Unrecognized, f.gateway.last(t).text)
	_, found := f.state(t, 1)
	assert.False(t, found)
}

func TestGuidedAddFlow(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	steps := []struct {
		input      string
		wantPrompt string
	}{
		{CmdMake, format.PromptDescription},
		{"How long will the report take?", format.PromptCategory},
		{"work", format.PromptUnit},
		{"hours", format.PromptLow50},
		{"2", format.PromptHigh50},
		{"8", format.PromptLow90},
		{"1", format.PromptHigh90},
	}
	for _, st := range steps {
		f.machine.HandleEvent(ctx, msg(7, st.input))
		assert.Equal(t, st.wantPrompt, f.gateway.last(t).text, "after input %q", st.input)
	}

	// последний шаг показывает сводку и кнопки подтверждения
	f.machine.HandleEvent(ctx, msg(7, "16"))
	last := f.gateway.last(t)
	assert.Contains(t, last.text, "description: How long will the report take?")
	require.NotNil(t, last.kb)
	require.True(t, last.kb.Inline)

	sess, found := f.state(t, 7)
	require.True(t, found)
	assert.Equal(t, domain.StateAwaitConfirm, sess.State)
	require.True(t, sess.Draft.Complete())

	// подтверждение сохраняет предсказание и закрывает диалог
	f.machine.HandleEvent(ctx, cb(7, "add_save"))
	assert.Equal(t, format.Saved(1), f.gateway.last(t).text)
	_, found = f.state(t, 7)
	assert.False(t, found)

	rows, total, err := f.svc.List(ctx, 7, false, 0, 10)
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	require.Len(t, rows, 1)
	assert.Equal(t, "How long will the report take?", rows[0].Description)
	assert.Equal(t, "work", rows[0].Category)
	assert.Equal(t, 2.0, rows[0].Low50)
	assert.Equal(t, 8.0, rows[0].High50)
	assert.Equal(t, 1.0, rows[0].Low90)
	assert.Equal(t, 16.0, rows[0].High90)
	assert.Nil(t, rows[0].Outcome)
}

func TestAddFlowSingleLineShortcut(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	f.machine.HandleEvent(ctx, msg(7, CmdMake))
	f.machine.HandleEvent(ctx, msg(7, "How long does it going to take?; work; hours; 2; 8; 1; 16"))

	sess, found := f.state(t, 7)
	require.True(t, found)
	assert.Equal(t, domain.StateAwaitConfirm, sess.State)
	assert.True(t, sess.Draft.Complete())

	f.machine.HandleEvent(ctx, cb(7, "add_save"))
	assert.Equal(t, format.Saved(1), f.gateway.last(t).text)
}

func TestAddFlowInvalidInputRetainsState(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	f.machine.HandleEvent(ctx, msg(7, CmdMake))
	f.machine.HandleEvent(ctx, msg(7, "desc"))
	f.machine.HandleEvent(ctx, msg(7, "two words")) // невалидная категория

	assert.Equal(t, format.BadCategory, f.gateway.last(t).text)
	sess, found := f.state(t, 7)
	require.True(t, found)
	assert.Equal(t, domain.StateAwaitCategory, sess.State)

	// исправленный ввод сразу продвигает шаг
	f.machine.HandleEvent(ctx, msg(7, "work"))
	sess, _ = f.state(t, 7)
	assert.Equal(t, domain.StateAwaitUnit, sess.State)
}

func TestConfirmationRejectsFreeText(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	f.machine.HandleEvent(ctx, msg(7, CmdMake))
	f.machine.HandleEvent(ctx, msg(7, "d; c; u; 2; 8; 1; 16"))
	f.machine.HandleEvent(ctx, msg(7, "yes please"))

	assert.Equal(t, format.BadConfirm, f.gateway.last(t).text)
	sess, found := f.state(t, 7)
	require.True(t, found)
	assert.Equal(t, domain.StateAwaitConfirm, sess.State)
}

func TestEnterAgainDiscardsDraft(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	f.machine.HandleEvent(ctx, msg(7, CmdMake))
	f.machine.HandleEvent(ctx, msg(7, "first attempt; work; hours; 2; 8; 1; 16"))
	f.machine.HandleEvent(ctx, cb(7, "add_again"))

	assert.Equal(t, format.PromptDescription, f.gateway.last(t).text)
	sess, found := f.state(t, 7)
	require.True(t, found)
	assert.Equal(t, domain.StateAwaitDescription, sess.State)
	assert.Equal(t, domain.Draft{}, sess.Draft)
}

func TestCommandOverridesActiveFlow(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	f.machine.HandleEvent(ctx, msg(7, CmdMake))
	f.machine.HandleEvent(ctx, msg(7, "half entered prediction"))

	// команда меню побеждает: прежний черновик отброшен
	f.machine.HandleEvent(ctx, msg(7, CmdDelete))
	assert.Equal(t, format.PromptDelete, f.gateway.last(t).text)

	sess, found := f.state(t, 7)
	require.True(t, found)
	assert.Equal(t, domain.StateAwaitDelete, sess.State)
	assert.Equal(t, domain.Draft{}, sess.Draft)
}

func TestUpdateFlow(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	id, err := f.svc.Create(ctx, 7, draftOf("d", "work", "h", 2, 8, 1, 16))
	require.NoError(t, err)

	f.machine.HandleEvent(ctx, msg(7, CmdUpdate))
	assert.Equal(t, format.PromptUpdate, f.gateway.last(t).text)

	f.machine.HandleEvent(ctx, msg(7, "not numbers at all"))
	assert.Equal(t, format.BadUpdate, f.gateway.last(t).text)
	sess, found := f.state(t, 7)
	require.True(t, found)
	assert.Equal(t, domain.StateAwaitUpdate, sess.State) // retry разрешен

	f.machine.HandleEvent(ctx, msg(7, "1; 3; 5; 1; 8"))
	assert.Equal(t, format.Updated(id), f.gateway.last(t).text)
	_, found = f.state(t, 7)
	assert.False(t, found)

	rows, _, err := f.svc.List(ctx, 7, false, 0, 10)
	require.NoError(t, err)
	assert.Equal(t, 3.0, rows[0].Low50)
	assert.Equal(t, 8.0, rows[0].High90)
}

func TestUpdateNotFoundEndsFlow(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	f.machine.HandleEvent(ctx, msg(7, CmdUpdate))
	f.machine.HandleEvent(ctx, msg(7, "17; 3; 5; 1; 8"))

	assert.Equal(t, format.NotFound(17), f.gateway.last(t).text)
	_, found := f.state(t, 7)
	assert.False(t, found) // без нового номера повтор не поможет
}

func TestOutcomeFlow(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	id, err := f.svc.Create(ctx, 7, draftOf("d", "work", "h", 2, 8, 1, 16))
	require.NoError(t, err)

	f.machine.HandleEvent(ctx, msg(7, CmdOutcome))
	f.machine.HandleEvent(ctx, msg(7, "1; 7.5"))

	assert.Equal(t, format.OutcomeSaved(id), f.gateway.last(t).text)
	rows, _, err := f.svc.List(ctx, 7, false, 0, 10)
	require.NoError(t, err)
	require.NotNil(t, rows[0].Outcome)
	assert.Equal(t, 7.5, *rows[0].Outcome)
}

func TestDeleteFlow(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	id, err := f.svc.Create(ctx, 7, draftOf("d", "work", "h", 2, 8, 1, 16))
	require.NoError(t, err)

	f.machine.HandleEvent(ctx, msg(7, CmdDelete))
	f.machine.HandleEvent(ctx, msg(7, "1"))

	assert.Equal(t, format.Deleted(id), f.gateway.last(t).text)
	_, total, err := f.svc.List(ctx, 7, false, 0, 10)
	require.NoError(t, err)
	assert.Zero(t, total)
}

func TestDeleteOtherUsersPrediction(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	_, err := f.svc.Create(ctx, 1, draftOf("mine", "work", "h", 2, 8, 1, 16))
	require.NoError(t, err)

	// пользователь 2 угадал номер чужого предсказания
	f.machine.HandleEvent(ctx, msg(2, CmdDelete))
	f.machine.HandleEvent(ctx, msg(2, "1"))

	assert.Equal(t, format.NotFound(1), f.gateway.last(t).text)
	_, total, err := f.svc.List(ctx, 1, false, 0, 10)
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
}

func TestCheckCalibrationFlow(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	cases := []struct {
		l50, h50, l90, h90, out float64
	}{
		{3, 7, 1, 9, 5},
		{8, 12, 7, 13, 10},
		{25, 30, 15, 35, 20},
	}
	for _, sp := range cases {
		id, err := f.svc.Create(ctx, 7, draftOf("d", "work", "h", sp.l50, sp.h50, sp.l90, sp.h90))
		require.NoError(t, err)
		require.NoError(t, f.svc.EnterOutcome(ctx, 7, id, sp.out))
	}

	f.machine.HandleEvent(ctx, msg(7, CmdCheck))
	assert.Equal(t, format.PromptCheck, f.gateway.last(t).text)

	f.machine.HandleEvent(ctx, msg(7, "all"))
	got := f.gateway.last(t).text
	assert.Contains(t, got, "50 percent confidence level - 0.67")
	assert.Contains(t, got, "90 percent confidence level - 1.00")
	_, found := f.state(t, 7)
	assert.False(t, found)
}

func TestCheckCalibrationNoData(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	f.machine.HandleEvent(ctx, msg(7, CmdCheck))
	f.machine.HandleEvent(ctx, msg(7, "politics"))

	assert.Equal(t, format.NoCategoryData, f.gateway.last(t).text)
	_, found := f.state(t, 7)
	assert.False(t, found)
}

func TestCheckCalibrationBadInputRetains(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	f.machine.HandleEvent(ctx, msg(7, CmdCheck))
	f.machine.HandleEvent(ctx, msg(7, "two words"))

	assert.Equal(t, format.BadCategory, f.gateway.last(t).text)
	sess, found := f.state(t, 7)
	require.True(t, found)
	assert.Equal(t, domain.StateAwaitCheckCategory, sess.State)
}

func TestMyCategories(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	f.machine.HandleEvent(ctx, msg(7, CmdCategories))
	assert.Equal(t, format.NoPredictions, f.gateway.last(t).text)

	_, err := f.svc.Create(ctx, 7, draftOf("d", "Work", "h", 2, 8, 1, 16))
	require.NoError(t, err)

	f.machine.HandleEvent(ctx, msg(7, CmdCategories))
	assert.Equal(t, "Your categories: work", f.gateway.last(t).text)
}

func TestShowPredictionsPagination(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	for i := 0; i < 25; i++ {
		_, err := f.svc.Create(ctx, 7, draftOf("d", "work", "h", 2, 8, 1, 16))
		require.NoError(t, err)
	}

	f.machine.HandleEvent(ctx, msg(7, CmdShow))
	last := f.gateway.last(t)
	assert.Equal(t, format.PromptListKind, last.text)
	require.NotNil(t, last.kb)

	// первая страница: только "Next"
	f.machine.HandleEvent(ctx, cb(7, "list_whole"))
	last = f.gateway.last(t)
	require.NotNil(t, last.kb)
	require.Len(t, last.kb.Rows[0], 1)
	assert.Equal(t, BtnNext, last.kb.Rows[0][0].Label)
	assert.Equal(t, "page_full_1", last.kb.Rows[0][0].Data)
	assert.Contains(t, last.text, "1 | ")

	// средняя страница: обе кнопки
	f.machine.HandleEvent(ctx, cb(7, "page_full_1"))
	last = f.gateway.last(t)
	require.NotNil(t, last.kb)
	require.Len(t, last.kb.Rows[0], 2)
	assert.Equal(t, "page_full_0", last.kb.Rows[0][0].Data)
	assert.Equal(t, "page_full_2", last.kb.Rows[0][1].Data)

	// последняя страница: только "Previous"
	f.machine.HandleEvent(ctx, cb(7, "page_full_2"))
	last = f.gateway.last(t)
	require.NotNil(t, last.kb)
	require.Len(t, last.kb.Rows[0], 1)
	assert.Equal(t, BtnPrev, last.kb.Rows[0][0].Label)
	assert.Contains(t, last.text, "21 | ")
}

func TestShowPredictionsEmpty(t *testing.T) {
	f := newFixture()
	f.machine.HandleEvent(context.Background(), cb(7, "list_whole"))
	assert.Equal(t, format.NoPredictions, f.gateway.last(t).text)
}

func TestShowPredictionsWithoutOutcome(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	first, err := f.svc.Create(ctx, 7, draftOf("resolved one", "work", "h", 2, 8, 1, 16))
	require.NoError(t, err)
	_, err = f.svc.Create(ctx, 7, draftOf("still open", "work", "h", 2, 8, 1, 16))
	require.NoError(t, err)
	require.NoError(t, f.svc.EnterOutcome(ctx, 7, first, 4))

	f.machine.HandleEvent(ctx, cb(7, "list_empty"))
	last := f.gateway.last(t)
	assert.Contains(t, last.text, "still open")
	assert.NotContains(t, last.text, "resolved one")
	assert.Nil(t, last.kb) // одна страница, навигация не нужна
}

func TestStoreFailureAbortsFlow(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	f.machine.HandleEvent(ctx, msg(7, CmdUpdate))
	f.svc.failing = true
	f.machine.HandleEvent(ctx, msg(7, "1; 3; 5; 1; 8"))

	assert.Equal(t, format.GenericFailure, f.gateway.last(t).text)
	_, found := f.state(t, 7)
	assert.False(t, found)
}

func TestSaveFailureKeepsDraftForRetry(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	f.machine.HandleEvent(ctx, msg(7, CmdMake))
	f.machine.HandleEvent(ctx, msg(7, "d; c; u; 2; 8; 1; 16"))

	f.svc.failing = true
	f.machine.HandleEvent(ctx, cb(7, "add_save"))
	assert.Equal(t, format.GenericFailure, f.gateway.last(t).text)

	// сбой был временным: повторное нажатие "Save" досохраняет черновик
	sess, found := f.state(t, 7)
	require.True(t, found)
	assert.Equal(t, domain.StateAwaitConfirm, sess.State)

	f.svc.failing = false
	f.machine.HandleEvent(ctx, cb(7, "add_save"))
	assert.Equal(t, format.Saved(1), f.gateway.last(t).text)
}

func TestSaveOutsideConfirmation(t *testing.T) {
	f := newFixture()
	f.machine.HandleEvent(context.Background(), cb(7, "add_save"))
	assert.Equal(t, format.Unrecognized, f.gateway.last(t).text)
}

func TestCallbackAlwaysAnswered(t *testing.T) {
	f := newFixture()
	f.machine.HandleEvent(context.Background(), cb(7, "garbage_payload"))
	assert.Equal(t, []int64{99}, f.gateway.answered)
}

func TestConcurrentUsersDoNotInterfere(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	var wg sync.WaitGroup
	for owner := int64(1); owner <= 8; owner++ {
		wg.Add(1)
		go func(owner int64) {
			defer wg.Done()
			f.machine.HandleEvent(ctx, msg(owner, CmdMake))
			f.machine.HandleEvent(ctx, msg(owner, "prediction"))
			f.machine.HandleEvent(ctx, msg(owner, "work"))
		}(owner)
	}
	wg.Wait()

	for owner := int64(1); owner <= 8; owner++ {
		sess, found := f.state(t, owner)
		require.True(t, found, "owner %d", owner)
		assert.Equal(t, domain.StateAwaitUnit, sess.State)
		assert.Equal(t, "prediction", sess.Draft.Description)
	}
}

func draftOf(desc, cat, unit string, l50, h50, l90, h90 float64) domain.Draft {
	return domain.Draft{
		Description: desc, Category: cat, Unit: unit,
		Low50: &l50, High50: &h50, Low90: &l90, High90: &h90,
	}
}
