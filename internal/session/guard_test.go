package session

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"tillsync/internal/bus"
	"tillsync/internal/config"
	"tillsync/internal/model"
	"tillsync/internal/shift"
	"tillsync/internal/syncer"
)

// ── Stubs ────────────────────────────────────────────────────────────────────

// stubCo serves the operator roster.
type stubCo struct {
	operators []model.Record
	stale     bool
}

func (s *stubCo) Read(context.Context, model.SessionContext, string, syncer.Filter) (*syncer.Result, error) {
	return &syncer.Result{Records: s.operators, Source: syncer.SourceRemote, Stale: s.stale}, nil
}

func (s *stubCo) Write(_ context.Context, _ model.SessionContext, _, id string, rec model.Record) (*syncer.WriteResult, error) {
	return &syncer.WriteResult{Record: rec}, nil
}

func (s *stubCo) GuardedDelete(context.Context, model.SessionContext, string, string, *syncer.DependencyGuard) error {
	return nil
}

func (s *stubCo) BulkGuardedDelete(context.Context, model.SessionContext, string, []string, map[string]*syncer.DependencyGuard) (*syncer.BulkReport, error) {
	return &syncer.BulkReport{}, nil
}

func (s *stubCo) Status(context.Context) (*syncer.Status, error) {
	return &syncer.Status{}, nil
}

// stubReplica records which clears ran; queued writes live outside the
// document store and survive ClearOperatorData.
type stubReplica struct {
	settings         map[string]string
	queue            []*model.PendingWrite
	clearedOperators []string
	clearedAll       bool
}

func newStubReplica() *stubReplica {
	return &stubReplica{settings: make(map[string]string)}
}

func (s *stubReplica) UpsertMany(context.Context, string, []model.Record) error   { return nil }
func (s *stubReplica) UpsertUnsynced(context.Context, string, model.Record) error { return nil }
func (s *stubReplica) MarkSynced(context.Context, string, string) error           { return nil }
func (s *stubReplica) GetAll(context.Context, string) ([]model.Record, error)     { return nil, nil }
func (s *stubReplica) GetByID(context.Context, string, string) (model.Record, error) {
	return nil, nil
}
func (s *stubReplica) DeleteByID(context.Context, string, string) error { return nil }

func (s *stubReplica) ClearOperatorData(_ context.Context, operatorID string) error {
	s.clearedOperators = append(s.clearedOperators, operatorID)
	return nil
}

func (s *stubReplica) ClearAllData(context.Context) error {
	s.clearedAll = true
	s.queue = nil
	s.settings = make(map[string]string)
	return nil
}

func (s *stubReplica) Enqueue(_ context.Context, pw *model.PendingWrite) error {
	s.queue = append(s.queue, pw)
	return nil
}

func (s *stubReplica) Due(context.Context, time.Time, int) ([]model.PendingWrite, error) {
	return nil, nil
}

func (s *stubReplica) CountPending(context.Context) (int64, error) {
	return int64(len(s.queue)), nil
}

func (s *stubReplica) MarkWriteSynced(context.Context, int64) error { return nil }
func (s *stubReplica) MarkWriteRetry(context.Context, int64, int, string, time.Time) error {
	return nil
}
func (s *stubReplica) MarkWriteFailed(context.Context, int64, int, string) error { return nil }
func (s *stubReplica) PurgeSynced(context.Context) error                         { return nil }

func (s *stubReplica) GetSetting(_ context.Context, key string) (string, error) {
	return s.settings[key], nil
}

func (s *stubReplica) SetSetting(_ context.Context, key, value string) error {
	s.settings[key] = value
	return nil
}

func (s *stubReplica) DeleteSetting(_ context.Context, key string) error {
	delete(s.settings, key)
	return nil
}

// stubShifts answers Resume with a fixed shift, or none.
type stubShifts struct {
	active *model.Shift
}

func (s *stubShifts) Open(context.Context, model.SessionContext, shift.OpenParams) (*model.Shift, error) {
	return nil, nil
}

func (s *stubShifts) Resume(context.Context, model.SessionContext) (*model.Shift, error) {
	if s.active == nil {
		return nil, shift.ErrNoActiveShift
	}
	return s.active, nil
}

func (s *stubShifts) Close(context.Context, model.SessionContext, decimal.Decimal, string) (*model.Shift, error) {
	return nil, nil
}

func (s *stubShifts) RecordSale(context.Context, model.SessionContext, *model.Receipt) (*model.Receipt, error) {
	return nil, nil
}

func (s *stubShifts) RecordCashMovement(context.Context, model.SessionContext, string, decimal.Decimal, string) (*model.Shift, error) {
	return nil, nil
}

// ── Helpers ──────────────────────────────────────────────────────────────────

func operatorRecord(t *testing.T, id, name, role, pin string) model.Record {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(pin), bcrypt.MinCost)
	require.NoError(t, err)
	rec, err := model.ToRecord(model.Operator{
		ID: id, Name: name, PINHash: string(hash), Role: role, Active: true,
	})
	require.NoError(t, err)
	return rec
}

func testConfig() *config.Config {
	return &config.Config{JWTSecret: "test-secret", SessionTokenHours: 1}
}

func newTestGuard(t *testing.T, operators ...model.Record) (*Guard, *stubReplica, *bus.Memory, *stubShifts) {
	t.Helper()
	rep := newStubReplica()
	eventBus := bus.NewMemory()
	shifts := &stubShifts{}
	g := NewGuard(&stubCo{operators: operators}, rep, shifts, eventBus, testConfig())
	return g, rep, eventBus, shifts
}

// ── Tests ────────────────────────────────────────────────────────────────────

func TestLoginEstablishesSession(t *testing.T) {
	g, rep, _, _ := newTestGuard(t, operatorRecord(t, "op-1", "Ana", model.RoleCashier, "1234"))

	result, err := g.Login(context.Background(), "1234")
	require.NoError(t, err)
	assert.NotEmpty(t, result.Token)
	assert.Equal(t, "op-1", result.Session.OperatorID)
	assert.True(t, result.Session.ViewOnly)
	assert.EqualValues(t, 1, result.Session.Epoch)

	// durable marker written for restart recovery
	raw := rep.settings[model.SettingSession]
	require.NotEmpty(t, raw)
	var m marker
	require.NoError(t, json.Unmarshal([]byte(raw), &m))
	assert.Equal(t, "op-1", m.OperatorID)
}

func TestLoginFailureIsGeneric(t *testing.T) {
	g, _, _, _ := newTestGuard(t,
		operatorRecord(t, "op-1", "Ana", model.RoleCashier, "1234"),
		operatorRecord(t, "op-2", "Max", model.RoleManager, "5678"),
	)

	// wrong PIN, malformed PIN, and a role that cannot operate the register
	// all answer identically
	_, err := g.Login(context.Background(), "9999")
	assert.ErrorIs(t, err, ErrAuthFailure)
	_, err = g.Login(context.Background(), "12")
	assert.ErrorIs(t, err, ErrAuthFailure)
	_, err = g.Login(context.Background(), "5678")
	assert.ErrorIs(t, err, ErrAuthFailure)
}

func TestLoginResumesActiveShift(t *testing.T) {
	g, _, _, shifts := newTestGuard(t, operatorRecord(t, "op-1", "Ana", model.RoleCashier, "1234"))
	shifts.active = &model.Shift{ID: "sh-1", OperatorID: "op-1", Status: model.ShiftActive}

	result, err := g.Login(context.Background(), "1234")
	require.NoError(t, err)
	assert.Equal(t, "sh-1", result.Session.ShiftID)
	assert.False(t, result.Session.ViewOnly)
	require.NotNil(t, result.Shift)
}

func TestSwitchClearsPreviousOperatorAndBumpsEpoch(t *testing.T) {
	g, rep, eventBus, _ := newTestGuard(t,
		operatorRecord(t, "op-1", "Ana", model.RoleCashier, "1234"),
		operatorRecord(t, "op-2", "Bea", model.RoleCashier, "4321"),
	)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	events := eventBus.Subscribe(ctx)

	first, err := g.Login(ctx, "1234")
	require.NoError(t, err)
	<-events // login event for op-1

	// a queued write from op-1's offline work
	require.NoError(t, rep.Enqueue(ctx, &model.PendingWrite{OperatorID: "op-1", Action: model.ActionCreate}))

	second, err := g.Login(ctx, "4321")
	require.NoError(t, err)

	// previous operator's documents purged, queued writes kept
	assert.Equal(t, []string{"op-1"}, rep.clearedOperators)
	assert.Len(t, rep.queue, 1)
	assert.False(t, rep.clearedAll)

	// switch broadcast before the login broadcast
	ev := <-events
	assert.Equal(t, bus.EventSessionChanged, ev.Type)
	assert.Equal(t, "op-1", ev.OperatorID)
	assert.Equal(t, "switched", ev.Detail)

	// the old session is dead
	assert.Greater(t, second.Session.Epoch, first.Session.Epoch)
	assert.ErrorIs(t, g.Validate(first.Session), ErrSessionIntegrity)
	assert.NoError(t, g.Validate(second.Session))
}

func TestSameOperatorReloginDoesNotClear(t *testing.T) {
	g, rep, _, _ := newTestGuard(t, operatorRecord(t, "op-1", "Ana", model.RoleCashier, "1234"))
	ctx := context.Background()

	_, err := g.Login(ctx, "1234")
	require.NoError(t, err)
	_, err = g.Login(ctx, "1234")
	require.NoError(t, err)
	assert.Empty(t, rep.clearedOperators)
}

func TestLogoutWipesTerminal(t *testing.T) {
	g, rep, eventBus, _ := newTestGuard(t, operatorRecord(t, "op-1", "Ana", model.RoleCashier, "1234"))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	events := eventBus.Subscribe(ctx)

	result, err := g.Login(ctx, "1234")
	require.NoError(t, err)
	<-events
	require.NoError(t, rep.Enqueue(ctx, &model.PendingWrite{OperatorID: "op-1"}))

	require.NoError(t, g.Logout(ctx))

	// everything goes, queued writes included
	assert.True(t, rep.clearedAll)
	assert.Empty(t, rep.queue)
	_, err = g.Current()
	assert.ErrorIs(t, err, ErrNoSession)
	assert.ErrorIs(t, g.Validate(result.Session), ErrSessionIntegrity)

	ev := <-events
	assert.Equal(t, "logout", ev.Detail)
}

func TestLogoutWithoutSession(t *testing.T) {
	g, _, _, _ := newTestGuard(t)
	assert.ErrorIs(t, g.Logout(context.Background()), ErrNoSession)
}

func TestValidateBypassesSystemSession(t *testing.T) {
	g, _, _, _ := newTestGuard(t)
	assert.NoError(t, g.Validate(model.SystemSession()))
}

func TestBindShiftKeepsEpoch(t *testing.T) {
	g, _, _, _ := newTestGuard(t, operatorRecord(t, "op-1", "Ana", model.RoleCashier, "1234"))

	result, err := g.Login(context.Background(), "1234")
	require.NoError(t, err)

	updated, err := g.BindShift(result.Session, "sh-9")
	require.NoError(t, err)
	assert.Equal(t, "sh-9", updated.ShiftID)
	assert.False(t, updated.ViewOnly)
	assert.Equal(t, result.Session.Epoch, updated.Epoch)
	assert.NoError(t, g.Validate(updated))
}

func TestRestoreReloadsMarker(t *testing.T) {
	g, rep, _, _ := newTestGuard(t)
	data, err := json.Marshal(marker{OperatorID: "op-1", OperatorName: "Ana", Role: model.RoleCashier, ShiftID: "sh-1"})
	require.NoError(t, err)
	rep.settings[model.SettingSession] = string(data)

	require.NoError(t, g.Restore(context.Background()))
	sess, err := g.Current()
	require.NoError(t, err)
	assert.Equal(t, "op-1", sess.OperatorID)
	assert.Equal(t, "sh-1", sess.ShiftID)
}
