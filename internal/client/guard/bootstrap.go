package guard

import (
	"context"
	"errors"
	"sync"

	"github.com/dmitrijs2005/obyektivka/internal/client/client"
	"github.com/dmitrijs2005/obyektivka/internal/client/models"
	"github.com/dmitrijs2005/obyektivka/internal/logging"
)

// BootState is the eager guard's progress.
type BootState int

const (
	Initializing BootState = iota
	Authenticated
	UnauthenticatedWithIdentityProvider
	UnauthenticatedNoIdentityProvider
)

func (s BootState) String() string {
	switch s {
	case Initializing:
		return "initializing"
	case Authenticated:
		return "authenticated"
	case UnauthenticatedWithIdentityProvider:
		return "unauthenticated (identity provider available)"
	case UnauthenticatedNoIdentityProvider:
		return "unauthenticated"
	}
	return "unknown"
}

// Ready reports whether commands may run.
func (s BootState) Ready() bool {
	return s != Initializing
}

// SessionService is the session surface the bootstrapper drives.
type SessionService interface {
	Session
	Hydrate(ctx context.Context) error
	Refresh(ctx context.Context) error
	RegisterOrLogin(ctx context.Context, req models.RegisterRequest) error
}

// IdentityFunc returns the external identity to sign in with, if the host has one.
type IdentityFunc func() (models.RegisterRequest, bool)

// Bootstrapper is the eager guard: it settles the session once before
// anything else runs.
type Bootstrapper struct {
	session  SessionService
	identity IdentityFunc
	log      logging.Logger

	mu    sync.RWMutex
	state BootState
}

func NewBootstrapper(s SessionService, identity IdentityFunc, log logging.Logger) *Bootstrapper {
	if log == nil {
		log = logging.Nop()
	}
	if identity == nil {
		identity = func() (models.RegisterRequest, bool) { return models.RegisterRequest{}, false }
	}
	return &Bootstrapper{session: s, identity: identity, log: log}
}

func (b *Bootstrapper) State() BootState {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.state
}

func (b *Bootstrapper) set(s BootState) BootState {
	b.mu.Lock()
	b.state = s
	b.mu.Unlock()
	return s
}

// Run hydrates the session and then, with a token, refreshes the profile;
// without one, it signs in through the identity provider when there is one.
// The returned error explains a degraded outcome; the state is always final.
//
// A refresh that fails for any reason other than 401 keeps the session: the
// cached profile is used until the backend is reachable.
func (b *Bootstrapper) Run(ctx context.Context) (BootState, error) {
	b.set(Initializing)

	hydrateErr := b.session.Hydrate(ctx)
	if hydrateErr != nil {
		b.log.Warn(ctx, "hydrate failed", "error", hydrateErr)
	}

	if b.session.HasToken() {
		err := b.session.Refresh(ctx)
		switch {
		case err == nil:
			return b.set(Authenticated), nil
		case errors.Is(err, client.ErrUnauthorized):
			b.log.Info(ctx, "stored session expired")
		default:
			b.log.Warn(ctx, "profile refresh failed, keeping cached session", "error", err)
			return b.set(Authenticated), err
		}
	}

	req, ok := b.identity()
	if !ok {
		return b.set(UnauthenticatedNoIdentityProvider), hydrateErr
	}

	if err := b.session.RegisterOrLogin(ctx, req); err != nil {
		return b.set(UnauthenticatedWithIdentityProvider), err
	}
	return b.set(Authenticated), nil
}
