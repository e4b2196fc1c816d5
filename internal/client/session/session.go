// Package session owns the client's belief about who is signed in.
//
// Service is the single source of truth for the session: it is hydrated once
// from persisted credentials, mutated only through Login, Register,
// RegisterOrLogin, Logout, SetUser and Invalidate, and observed through
// Subscribe. The route guard and the HTTP client both read it instead of
// looking at persisted storage themselves.
package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/dmitrijs2005/obyektivka/internal/client/client"
	"github.com/dmitrijs2005/obyektivka/internal/client/credentials"
	"github.com/dmitrijs2005/obyektivka/internal/client/models"
	"github.com/dmitrijs2005/obyektivka/internal/common"
	"github.com/dmitrijs2005/obyektivka/internal/logging"
)

// Phase is the status of the last async operation.
type Phase string

const (
	PhaseIdle      Phase = "idle"
	PhasePending   Phase = "pending"
	PhaseFulfilled Phase = "fulfilled"
	PhaseRejected  Phase = "rejected"
)

// Operation names reported in State.
const (
	OpHydrate  = "hydrate"
	OpLogin    = "login"
	OpRegister = "register"
	OpLogout   = "logout"
	OpRefresh  = "refresh"
)

// State is a snapshot of the session.
type State struct {
	User            *models.User
	Token           string
	IsAuthenticated bool
	Loading         bool
	Error           string
	Phase           Phase
	Operation       string
	Hydrated        bool
}

// API is the slice of the backend client the session drives.
type API interface {
	Login(ctx context.Context, req models.LoginRequest) (models.AuthPayload, error)
	Register(ctx context.Context, req models.RegisterRequest) (models.AuthPayload, error)
	Logout(ctx context.Context) error
	Me(ctx context.Context) (models.User, error)
}

// Store persists credentials.
type Store interface {
	Load(ctx context.Context) (credentials.Credentials, error)
	Save(ctx context.Context, token string, user models.User) error
	SaveUser(ctx context.Context, user models.User) error
	Clear(ctx context.Context) error
}

var _ client.Session = (*Service)(nil)

type Service struct {
	mu             sync.RWMutex
	state          State
	persistedToken bool

	api   API
	store Store
	log   logging.Logger

	subMu   sync.Mutex
	subs    map[int]func(State)
	nextSub int
}

// New returns an unhydrated session. Bind must be called before any
// operation that talks to the backend.
func New(store Store, log logging.Logger) *Service {
	if log == nil {
		log = logging.Nop()
	}
	return &Service{
		store: store,
		log:   log,
		state: State{Phase: PhaseIdle},
		subs:  map[int]func(State){},
	}
}

// Bind attaches the backend client. The HTTP client itself reads the
// session, so the two are wired in two steps.
func (s *Service) Bind(api API) {
	s.mu.Lock()
	s.api = api
	s.mu.Unlock()
}

func (s *Service) backend() (API, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.api == nil {
		return nil, errors.New("session: backend client is not bound")
	}
	return s.api, nil
}

// State returns a copy of the current state.
func (s *Service) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshot()
}

func (s *Service) snapshot() State {
	st := s.state
	if st.User != nil {
		u := *st.User
		st.User = &u
	}
	return st
}

// HasToken reports whether a credential exists: a persisted token or an
// authenticated session.
func (s *Service) HasToken() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.persistedToken || s.state.IsAuthenticated
}

// Hydrated reports whether Hydrate has completed.
func (s *Service) Hydrated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Hydrated
}

// Token is the bearer credential attached to outgoing requests.
func (s *Service) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Token
}

// User returns the cached user, or nil.
func (s *Service) User() *models.User {
	return s.State().User
}

// TokenExpiry returns the exp claim of a JWT token. The signature is not
// verified; the value is informational and expiry is still detected by the
// backend answering 401.
func (s *Service) TokenExpiry() (time.Time, bool) {
	token := s.Token()
	if token == "" {
		return time.Time{}, false
	}
	claims := jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil || claims.ExpiresAt == nil {
		return time.Time{}, false
	}
	return claims.ExpiresAt.Time, true
}

// Subscribe registers fn to receive the state after every mutation and
// returns a function that removes it. fn runs synchronously on the
// mutating goroutine and must not call back into mutating methods.
func (s *Service) Subscribe(fn func(State)) func() {
	s.subMu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	s.subMu.Unlock()

	return func() {
		s.subMu.Lock()
		delete(s.subs, id)
		s.subMu.Unlock()
	}
}

// update applies fn under the lock and notifies subscribers.
func (s *Service) update(fn func(st *State)) {
	s.mu.Lock()
	fn(&s.state)
	snap := s.snapshot()
	s.mu.Unlock()

	s.subMu.Lock()
	subs := make([]func(State), 0, len(s.subs))
	for _, sub := range s.subs {
		subs = append(subs, sub)
	}
	s.subMu.Unlock()

	for _, sub := range subs {
		sub(snap)
	}
}

func (s *Service) begin(op string) {
	s.update(func(st *State) {
		st.Loading = true
		st.Error = ""
		st.Phase = PhasePending
		st.Operation = op
	})
}

func (s *Service) reject(ctx context.Context, op string, err error) error {
	s.log.Warn(ctx, "session operation failed", "op", op, "error", err)
	s.update(func(st *State) {
		st.Loading = false
		st.Error = err.Error()
		st.Phase = PhaseRejected
		st.Operation = op
		if op == OpLogin || op == OpRegister {
			st.IsAuthenticated = false
		}
	})
	return err
}

// Hydrate loads persisted credentials. Only the first call has an effect.
// Unreadable credentials are cleared and the session starts signed out;
// the read error is still returned.
func (s *Service) Hydrate(ctx context.Context) error {
	if s.Hydrated() {
		return nil
	}

	c, err := s.store.Load(ctx)
	if err != nil {
		s.log.Warn(ctx, "stored credentials unreadable, starting signed out", "error", err)
		if clearErr := s.store.Clear(ctx); clearErr != nil {
			s.log.Error(ctx, "failed to clear stored credentials", "error", clearErr)
		}
		c = credentials.Credentials{}
	}

	s.mu.Lock()
	s.persistedToken = c.Token != ""
	s.mu.Unlock()

	s.update(func(st *State) {
		st.User = c.User
		st.Token = c.Token
		st.IsAuthenticated = c.Complete()
		st.Hydrated = true
		st.Operation = OpHydrate
	})
	s.log.Info(ctx, "session hydrated", "authenticated", c.Complete())

	if err != nil {
		return fmt.Errorf("load credentials: %w", err)
	}
	return nil
}

func (s *Service) fulfill(ctx context.Context, op string, p models.AuthPayload) error {
	if p.Token == "" {
		return s.reject(ctx, op, fmt.Errorf("%s: %w", op, common.ErrInvalidToken))
	}
	if err := s.store.Save(ctx, p.Token, p.User); err != nil {
		return s.reject(ctx, op, fmt.Errorf("save credentials: %w", err))
	}

	s.mu.Lock()
	s.persistedToken = true
	s.mu.Unlock()

	user := p.User
	s.update(func(st *State) {
		st.Loading = false
		st.User = &user
		st.Token = p.Token
		st.IsAuthenticated = true
		st.Error = ""
		st.Phase = PhaseFulfilled
		st.Operation = op
	})
	s.log.Info(ctx, "session established", "op", op, "user_id", user.ID)
	return nil
}

func (s *Service) Login(ctx context.Context, req models.LoginRequest) error {
	api, err := s.backend()
	if err != nil {
		return err
	}
	s.begin(OpLogin)
	p, err := api.Login(ctx, req)
	if err != nil {
		return s.reject(ctx, OpLogin, err)
	}
	return s.fulfill(ctx, OpLogin, p)
}

func (s *Service) Register(ctx context.Context, req models.RegisterRequest) error {
	api, err := s.backend()
	if err != nil {
		return err
	}
	s.begin(OpRegister)
	p, err := api.Register(ctx, req)
	if err != nil {
		return s.reject(ctx, OpRegister, err)
	}
	return s.fulfill(ctx, OpRegister, p)
}

// RegisterOrLogin registers the identity and falls back to Login with the
// same identity when the backend reports that it already exists. Other
// registration failures are returned unchanged.
func (s *Service) RegisterOrLogin(ctx context.Context, req models.RegisterRequest) error {
	err := s.Register(ctx, req)
	if err == nil || !IsAlreadyRegistered(err) {
		return err
	}
	s.log.Info(ctx, "user already registered, logging in", "telegram_user_id", req.TelegramUserID)
	return s.Login(ctx, req.LoginRequest())
}

// IsAlreadyRegistered reports whether err is the backend refusing a
// registration because the Telegram user exists: a 409, or a 422 whose
// telegram_user_id errors say the value is taken.
func IsAlreadyRegistered(err error) bool {
	if errors.Is(err, client.ErrConflict) {
		return true
	}
	var apiErr *client.APIError
	if !errors.As(err, &apiErr) || !errors.Is(err, client.ErrValidation) {
		return false
	}
	for _, msg := range apiErr.Errors["telegram_user_id"] {
		if strings.Contains(strings.ToLower(msg), "taken") {
			return true
		}
	}
	return false
}

// Logout always signs the client out. The backend call is best effort: its
// failure is recorded in State.Error and logged, and Logout still returns nil
// once local state and persisted credentials are cleared. Only a failure to
// clear persisted credentials is returned.
func (s *Service) Logout(ctx context.Context) error {
	s.begin(OpLogout)

	var remoteErr error
	if s.Token() != "" {
		if api, err := s.backend(); err == nil {
			remoteErr = api.Logout(ctx)
		}
	}
	if remoteErr != nil {
		s.log.Warn(ctx, "backend logout failed, clearing local session anyway", "error", remoteErr)
	}

	clearErr := s.clearLocal(ctx)

	s.update(func(st *State) {
		st.Loading = false
		st.Phase = PhaseFulfilled
		st.Operation = OpLogout
		if remoteErr != nil {
			st.Error = remoteErr.Error()
			st.Phase = PhaseRejected
		}
	})
	s.log.Info(ctx, "session closed")
	return clearErr
}

// Invalidate force-clears the session, as after a 401 from any request.
func (s *Service) Invalidate(ctx context.Context) error {
	err := s.clearLocal(ctx)
	s.log.Info(ctx, "session invalidated")
	return err
}

func (s *Service) clearLocal(ctx context.Context) error {
	err := s.store.Clear(ctx)
	if err != nil {
		s.log.Error(ctx, "failed to clear stored credentials", "error", err)
		err = fmt.Errorf("clear credentials: %w", err)
	}

	s.mu.Lock()
	s.persistedToken = false
	s.mu.Unlock()

	s.update(func(st *State) {
		st.User = nil
		st.Token = ""
		st.IsAuthenticated = false
		st.Error = ""
	})
	return err
}

// SetUser replaces the cached user after an out-of-band profile refresh.
// Without a token, as when a 401 landed first, nothing changes.
func (s *Service) SetUser(ctx context.Context, u models.User) error {
	if s.Token() == "" {
		s.log.Debug(ctx, "dropping profile for a signed out session", "user_id", u.ID)
		return nil
	}
	if err := s.store.SaveUser(ctx, u); err != nil {
		return fmt.Errorf("save user: %w", err)
	}
	s.update(func(st *State) {
		st.User = &u
		st.IsAuthenticated = st.Token != ""
	})
	return nil
}

// ClearError drops the error of the last operation.
func (s *Service) ClearError() {
	s.update(func(st *State) { st.Error = "" })
}

// Refresh re-fetches the profile when a token exists and stores it with
// SetUser. A 401 has already invalidated the session by the time it returns.
func (s *Service) Refresh(ctx context.Context) error {
	if !s.HasToken() {
		return common.ErrNotAuthenticated
	}
	api, err := s.backend()
	if err != nil {
		return err
	}
	u, err := api.Me(ctx)
	if err != nil {
		return fmt.Errorf("%s: %w", OpRefresh, err)
	}
	return s.SetUser(ctx, u)
}
