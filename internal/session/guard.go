// Package session guards which operator the terminal is acting as. One
// operator is active at a time; switching is a destructive, ordered handover
// and every in-flight operation carries an epoch so work started under a
// previous operator can never complete under the new one.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"regexp"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"

	"tillsync/internal/bus"
	"tillsync/internal/config"
	"tillsync/internal/model"
	"tillsync/internal/shift"
	"tillsync/internal/syncer"
)

var (
	// ErrAuthFailure is the single answer to every failed login. Whether the
	// PIN was malformed, unknown, or belongs to a deactivated operator is
	// never revealed.
	ErrAuthFailure = errors.New("authentication failed")
	// ErrSessionIntegrity means the call carried a session that is no longer
	// the terminal's active one.
	ErrSessionIntegrity = errors.New("session is no longer active on this terminal")
	// ErrNoSession means no operator is logged in.
	ErrNoSession = errors.New("no active session")
)

var pinPattern = regexp.MustCompile(`^[0-9]{4,6}$`)

// LoginResult is everything the UI needs after a successful PIN login.
type LoginResult struct {
	Session  model.SessionContext `json:"session"`
	Token    string               `json:"token"`
	Operator model.Operator       `json:"operator"`
	Shift    *model.Shift         `json:"shift,omitempty"`
}

// Service is the session surface consumed by HTTP handlers. Guard also
// implements syncer.SessionValidator.
type Service interface {
	Login(ctx context.Context, pin string) (*LoginResult, error)
	Logout(ctx context.Context) error
	Current() (model.SessionContext, error)
	BindShift(sess model.SessionContext, shiftID string) (model.SessionContext, error)
	Validate(sess model.SessionContext) error
}

// marker is the persisted session state, reloaded on boot so a daemon
// restart does not log the operator out.
type marker struct {
	OperatorID   string    `json:"operatorId"`
	OperatorName string    `json:"operatorName"`
	Role         string    `json:"role"`
	ShiftID      string    `json:"shiftId,omitempty"`
	ViewOnly     bool      `json:"viewOnly"`
	LoginAt      time.Time `json:"loginAt"`
}

type Guard struct {
	co      syncer.Service
	replica syncer.LocalReplica
	shifts  shift.Service
	pub     bus.Publisher
	cfg     *config.Config

	mu      sync.Mutex
	current *model.SessionContext
	epoch   int64
}

func NewGuard(co syncer.Service, replica syncer.LocalReplica, shifts shift.Service, pub bus.Publisher, cfg *config.Config) *Guard {
	return &Guard{co: co, replica: replica, shifts: shifts, pub: pub, cfg: cfg}
}

// Login authenticates a PIN against the operator roster (remote-first, local
// replica offline) and establishes the session. Logging in while another
// operator is active performs the destructive switch: the previous operator's
// in-memory state and replica documents are gone before the new session
// exists, and only queued writes survive the handover.
func (g *Guard) Login(ctx context.Context, pin string) (*LoginResult, error) {
	if !pinPattern.MatchString(pin) {
		return nil, ErrAuthFailure
	}

	res, err := g.co.Read(ctx, model.SystemSession(), model.CollectionUsers, syncer.Filter{})
	if err != nil {
		return nil, err
	}
	operators, err := model.DecodeRecords[model.Operator](res.Records)
	if err != nil {
		return nil, err
	}

	var match *model.Operator
	for i := range operators {
		op := &operators[i]
		if !op.CanOperateRegister() {
			continue
		}
		if bcrypt.CompareHashAndPassword([]byte(op.PINHash), []byte(pin)) == nil {
			match = op
			break
		}
	}
	if match == nil {
		log.Warn().Bool("stale_roster", res.Stale).Msg("session: PIN rejected")
		return nil, ErrAuthFailure
	}

	g.mu.Lock()
	prev := g.current
	g.current = nil
	g.mu.Unlock()

	// Handover is strictly ordered: memory first so no new work starts as
	// the old operator, then the durable marker and the old operator's
	// replica documents, then the broadcast. Queued writes are kept; they
	// sync under the identity that created them.
	if prev != nil && prev.OperatorID != match.ID {
		if err := g.replica.DeleteSetting(ctx, model.SettingSession); err != nil {
			return nil, err
		}
		if err := g.replica.ClearOperatorData(ctx, prev.OperatorID); err != nil {
			return nil, err
		}
		g.publish(ctx, bus.Event{Type: bus.EventSessionChanged, OperatorID: prev.OperatorID, Detail: "switched"})
		log.Info().Str("from", prev.OperatorID).Str("to", match.ID).Msg("session: operator switched")
	}

	g.mu.Lock()
	g.epoch++
	sess := model.SessionContext{
		OperatorID:   match.ID,
		OperatorName: match.Name,
		Role:         match.Role,
		ViewOnly:     true,
		Epoch:        g.epoch,
	}
	g.current = &sess
	g.mu.Unlock()

	result := &LoginResult{Operator: *match}
	if sh, err := g.shifts.Resume(ctx, sess); err == nil {
		sess = g.mustBind(sess, sh.ID)
		result.Shift = sh
	} else if !errors.Is(err, shift.ErrNoActiveShift) {
		return nil, err
	}

	token, err := g.issueToken(match, sess.Epoch)
	if err != nil {
		return nil, err
	}
	if err := g.persistMarker(ctx, sess); err != nil {
		return nil, err
	}
	g.publish(ctx, bus.Event{Type: bus.EventSessionChanged, OperatorID: match.ID, Detail: "login"})
	log.Info().Str("operator_id", match.ID).Str("role", match.Role).Bool("view_only", sess.ViewOnly).
		Msg("session: operator logged in")

	result.Session = sess
	result.Token = token
	return result, nil
}

// Logout ends the session and wipes the terminal: documents, queued writes,
// and settings all go. Unsynced work is lost with them; logout of a shared
// register deliberately leaves nothing behind for the next person.
func (g *Guard) Logout(ctx context.Context) error {
	g.mu.Lock()
	prev := g.current
	g.current = nil
	g.epoch++
	g.mu.Unlock()
	if prev == nil {
		return ErrNoSession
	}

	if err := g.replica.ClearAllData(ctx); err != nil {
		return err
	}
	g.publish(ctx, bus.Event{Type: bus.EventSessionChanged, OperatorID: prev.OperatorID, Detail: "logout"})
	log.Info().Str("operator_id", prev.OperatorID).Msg("session: operator logged out, local state wiped")
	return nil
}

// Current returns the active session.
func (g *Guard) Current() (model.SessionContext, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.current == nil {
		return model.SessionContext{}, ErrNoSession
	}
	return *g.current, nil
}

// BindShift attaches an opened shift to the active session and returns the
// updated context. The epoch does not change; the operator did not.
func (g *Guard) BindShift(sess model.SessionContext, shiftID string) (model.SessionContext, error) {
	if err := g.Validate(sess); err != nil {
		return model.SessionContext{}, err
	}
	g.mu.Lock()
	g.current.ShiftID = shiftID
	g.current.ViewOnly = false
	updated := *g.current
	g.mu.Unlock()

	if err := g.persistMarker(context.Background(), updated); err != nil {
		return model.SessionContext{}, err
	}
	return updated, nil
}

// Validate rejects calls carrying a session other than the terminal's
// current one. A stale epoch means the operator changed since the call
// started; the work must abort, not complete under the wrong identity.
func (g *Guard) Validate(sess model.SessionContext) error {
	if sess.IsSystem() {
		return nil
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.current == nil {
		return ErrSessionIntegrity
	}
	if sess.OperatorID != g.current.OperatorID || sess.Epoch != g.current.Epoch {
		return ErrSessionIntegrity
	}
	return nil
}

// Restore reloads the persisted session marker after a daemon restart. The
// epoch restarts fresh; tokens issued before the restart keep working because
// identity, not epoch, is what the token proves.
func (g *Guard) Restore(ctx context.Context) error {
	raw, err := g.replica.GetSetting(ctx, model.SettingSession)
	if err != nil || raw == "" {
		return err
	}
	var m marker
	if err := json.Unmarshal([]byte(raw), &m); err != nil {
		log.Warn().Err(err).Msg("session: discarding unreadable session marker")
		return g.replica.DeleteSetting(ctx, model.SettingSession)
	}

	g.mu.Lock()
	g.epoch++
	g.current = &model.SessionContext{
		OperatorID:   m.OperatorID,
		OperatorName: m.OperatorName,
		Role:         m.Role,
		ShiftID:      m.ShiftID,
		ViewOnly:     m.ViewOnly,
		Epoch:        g.epoch,
	}
	g.mu.Unlock()

	log.Info().Str("operator_id", m.OperatorID).Msg("session: restored from marker")
	return nil
}

// CurrentEpoch is used by the HTTP middleware to stamp sessions rebuilt from
// a token with the live epoch.
func (g *Guard) CurrentEpoch() int64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.epoch
}

func (g *Guard) issueToken(op *model.Operator, epoch int64) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"operator_id": op.ID,
		"name":        op.Name,
		"role":        op.Role,
		"epoch":       epoch,
		"exp":         now.Add(time.Duration(g.cfg.SessionTokenHours) * time.Hour).Unix(),
		"iat":         now.Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(g.cfg.JWTSecret))
}

func (g *Guard) persistMarker(ctx context.Context, sess model.SessionContext) error {
	data, err := json.Marshal(marker{
		OperatorID:   sess.OperatorID,
		OperatorName: sess.OperatorName,
		Role:         sess.Role,
		ShiftID:      sess.ShiftID,
		ViewOnly:     sess.ViewOnly,
		LoginAt:      time.Now().UTC(),
	})
	if err != nil {
		return err
	}
	return g.replica.SetSetting(ctx, model.SettingSession, string(data))
}

func (g *Guard) mustBind(sess model.SessionContext, shiftID string) model.SessionContext {
	g.mu.Lock()
	g.current.ShiftID = shiftID
	g.current.ViewOnly = false
	updated := *g.current
	g.mu.Unlock()
	return updated
}

func (g *Guard) publish(ctx context.Context, ev bus.Event) {
	if g.pub != nil {
		g.pub.Publish(ctx, ev)
	}
}
