package session

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/obyektivka/internal/client/client"
	"github.com/dmitrijs2005/obyektivka/internal/client/clienttest"
	"github.com/dmitrijs2005/obyektivka/internal/client/credentials"
	"github.com/dmitrijs2005/obyektivka/internal/client/models"
	"github.com/dmitrijs2005/obyektivka/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/obyektivka/internal/client/storage"
	"github.com/dmitrijs2005/obyektivka/internal/common"
)

type fixture struct {
	db      *sql.DB
	backend *clienttest.Backend
	store   *credentials.Store
	session *Service
	api     *client.HTTPClient
}

func setup(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	db, err := storage.InitDatabase(ctx, storage.MemoryDSN)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	f := &fixture{db: db, backend: clienttest.NewBackend(t), store: credentials.NewStore(db)}
	f.session = New(f.store, nil)
	f.api, err = client.NewHTTPClient(f.backend.APIURL(), client.WithSession(f.session))
	require.NoError(t, err)
	f.session.Bind(f.api)
	return f
}

var profile = models.RegisterRequest{TelegramUserID: 893968025265, FirstName: "Test", LastName: "User", Username: "test_user"}

func (f *fixture) assertPersisted(t *testing.T) {
	t.Helper()
	c, err := f.store.Load(context.Background())
	require.NoError(t, err)
	st := f.session.State()
	require.True(t, c.Complete())
	assert.Equal(t, st.Token, c.Token)
	assert.Equal(t, st.User.ID, c.User.ID)
	assert.Equal(t, st.User.TelegramUserID, c.User.TelegramUserID)
}

func (f *fixture) assertCleared(t *testing.T) {
	t.Helper()
	c, err := f.store.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, credentials.Credentials{}, c)
	st := f.session.State()
	assert.False(t, st.IsAuthenticated)
	assert.Nil(t, st.User)
	assert.Empty(t, st.Token)
	assert.False(t, f.session.HasToken())
}

func TestRegister_PersistsCredentials(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	require.NoError(t, f.session.Hydrate(ctx))

	require.NoError(t, f.session.Register(ctx, profile))

	st := f.session.State()
	assert.True(t, st.IsAuthenticated)
	assert.False(t, st.Loading)
	assert.Equal(t, PhaseFulfilled, st.Phase)
	assert.Equal(t, OpRegister, st.Operation)
	f.assertPersisted(t)
}

func TestLogin_FailureLeavesStorageUntouched(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	require.NoError(t, f.session.Hydrate(ctx))

	err := f.session.Login(ctx, profile.LoginRequest())
	require.ErrorIs(t, err, client.ErrNotFound)

	st := f.session.State()
	assert.False(t, st.IsAuthenticated)
	assert.Equal(t, PhaseRejected, st.Phase)
	assert.Equal(t, "User not found", st.Error)
	f.assertCleared(t)

	f.session.ClearError()
	assert.Empty(t, f.session.State().Error)
}

func TestRegisterOrLogin_FallsBackOnConflict(t *testing.T) {
	for _, status := range []int{http.StatusConflict, http.StatusUnprocessableEntity} {
		t.Run(http.StatusText(status), func(t *testing.T) {
			f := setup(t)
			f.backend.RegisterConflictStatus = status
			f.backend.AddUser(models.User{TelegramUserID: profile.TelegramUserID, FirstName: "Test"})
			ctx := context.Background()
			require.NoError(t, f.session.Hydrate(ctx))

			require.NoError(t, f.session.RegisterOrLogin(ctx, profile))

			assert.Equal(t, 1, f.backend.Count(http.MethodPost, "/register"))
			assert.Equal(t, 1, f.backend.Count(http.MethodPost, "/login"))
			assert.Equal(t, OpLogin, f.session.State().Operation)
			f.assertPersisted(t)
		})
	}
}

func TestRegisterOrLogin_OtherErrorsReturned(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	require.NoError(t, f.session.Hydrate(ctx))

	err := f.session.RegisterOrLogin(ctx, models.RegisterRequest{TelegramUserID: 7})

	require.ErrorIs(t, err, client.ErrValidation)
	assert.False(t, IsAlreadyRegistered(err))
	assert.Zero(t, f.backend.Count(http.MethodPost, "/login"))
}

func TestLogout_ClearsEvenWhenBackendFails(t *testing.T) {
	for _, fail := range []bool{false, true} {
		f := setup(t)
		f.backend.FailLogout = fail
		ctx := context.Background()
		require.NoError(t, f.session.Hydrate(ctx))
		require.NoError(t, f.session.Register(ctx, profile))

		require.NoError(t, f.session.Logout(ctx))

		f.assertCleared(t)
		st := f.session.State()
		if fail {
			assert.Equal(t, PhaseRejected, st.Phase)
			assert.Equal(t, "Server Error", st.Error)
		} else {
			assert.Equal(t, PhaseFulfilled, st.Phase)
			assert.Empty(t, st.Error)
		}
	}
}

func TestLogout_BackendUnreachable(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	require.NoError(t, f.session.Hydrate(ctx))
	require.NoError(t, f.session.Register(ctx, profile))

	f.backend.Server.Close()

	require.NoError(t, f.session.Logout(ctx))
	f.assertCleared(t)
	assert.Contains(t, f.session.State().Error, "Network error")
}

func TestHydrate_RestoresSession(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	token := f.backend.AddUser(models.User{ID: 4, TelegramUserID: 42, FirstName: "Vali"})
	require.NoError(t, f.store.Save(ctx, token, models.User{ID: 4, TelegramUserID: 42, FirstName: "Vali"}))

	assert.False(t, f.session.Hydrated())
	assert.False(t, f.session.HasToken())
	require.NoError(t, f.session.Hydrate(ctx))

	st := f.session.State()
	assert.True(t, st.Hydrated)
	assert.True(t, st.IsAuthenticated)
	assert.Equal(t, token, f.session.Token())
	assert.True(t, f.session.HasToken())

	exp, ok := f.session.TokenExpiry()
	require.True(t, ok)
	assert.WithinDuration(t, time.Now().Add(time.Hour), exp, time.Minute)

	require.NoError(t, f.session.Refresh(ctx))
	assert.Equal(t, "Vali", f.session.User().FirstName)
}

func TestHydrate_TokenWithoutUser(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	require.NoError(t, metadata.NewSQLiteRepository(f.db).Set(ctx, common.TokenMetadataKey, []byte("opaque")))

	require.NoError(t, f.session.Hydrate(ctx))
	assert.True(t, f.session.HasToken())
	assert.False(t, f.session.State().IsAuthenticated)
	assert.Equal(t, "opaque", f.session.Token())

	_, ok := f.session.TokenExpiry()
	assert.False(t, ok)
}

func TestUnauthorizedFromAnyCallInvalidates(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	require.NoError(t, f.session.Hydrate(ctx))
	require.NoError(t, f.session.Register(ctx, profile))

	f.backend.RevokeAll()
	_, err := f.api.ListReferences(ctx)
	require.ErrorIs(t, err, client.ErrUnauthorized)

	f.assertCleared(t)
}

func TestSetUser_AfterInvalidateStaysSignedOut(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	require.NoError(t, f.session.Hydrate(ctx))
	require.NoError(t, f.session.Register(ctx, profile))
	u := *f.session.User()

	require.NoError(t, f.session.Invalidate(ctx))
	require.NoError(t, f.session.SetUser(ctx, u))

	f.assertCleared(t)
}

func TestSetUser_ReplacesProfile(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	require.NoError(t, f.session.Hydrate(ctx))
	require.NoError(t, f.session.Register(ctx, profile))

	u := *f.session.User()
	u.FirstName = "Renamed"
	require.NoError(t, f.session.SetUser(ctx, u))

	assert.True(t, f.session.HasToken())
	assert.Equal(t, "Renamed", f.session.User().FirstName)
	f.assertPersisted(t)
}

func TestRefresh_WithoutToken(t *testing.T) {
	f := setup(t)
	require.NoError(t, f.session.Hydrate(context.Background()))
	assert.ErrorIs(t, f.session.Refresh(context.Background()), common.ErrNotAuthenticated)
}

func TestSubscribe(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	require.NoError(t, f.session.Hydrate(ctx))

	var phases []Phase
	unsubscribe := f.session.Subscribe(func(st State) { phases = append(phases, st.Phase) })

	require.NoError(t, f.session.Register(ctx, profile))
	assert.Equal(t, []Phase{PhasePending, PhaseFulfilled}, phases)

	unsubscribe()
	f.session.ClearError()
	assert.Len(t, phases, 2)
}

type failingStore struct {
	credentials.Credentials
	err error
}

func (s *failingStore) Load(context.Context) (credentials.Credentials, error) {
	return s.Credentials, s.err
}
func (s *failingStore) Save(context.Context, string, models.User) error { return s.err }
func (s *failingStore) SaveUser(context.Context, models.User) error     { return s.err }
func (s *failingStore) Clear(context.Context) error                     { return nil }

func TestHydrate_UnreadableCredentials(t *testing.T) {
	s := New(&failingStore{err: common.ErrSealedValue}, nil)

	err := s.Hydrate(context.Background())
	require.ErrorIs(t, err, common.ErrSealedValue)
	assert.True(t, s.Hydrated())
	assert.False(t, s.HasToken())
}

func TestLogin_SaveFailureRejects(t *testing.T) {
	f := setup(t)
	f.backend.AddUser(models.User{TelegramUserID: profile.TelegramUserID, FirstName: "Test"})

	diskFull := errors.New("disk full")
	s := New(&failingStore{err: diskFull}, nil)
	s.Bind(f.api)

	err := s.Login(context.Background(), profile.LoginRequest())
	require.ErrorIs(t, err, diskFull)
	assert.False(t, s.State().IsAuthenticated)
	assert.False(t, s.HasToken())
}

func TestUnbound(t *testing.T) {
	s := New(&failingStore{}, nil)
	assert.Error(t, s.Login(context.Background(), models.LoginRequest{}))
}
