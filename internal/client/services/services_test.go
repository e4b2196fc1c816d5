package services

import (
	"context"
	"net/http"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/obyektivka/internal/client/client"
	"github.com/dmitrijs2005/obyektivka/internal/client/clienttest"
	"github.com/dmitrijs2005/obyektivka/internal/client/models"
	"github.com/dmitrijs2005/obyektivka/internal/client/query"
	"github.com/dmitrijs2005/obyektivka/internal/waitx"
)

type staticSession struct{ token string }

func (s staticSession) Token() string                    { return s.token }
func (s staticSession) Invalidate(context.Context) error { return nil }

var admin = models.User{FirstName: "Vali", LastName: "Aliyev", TelegramUserID: 893968025265, Role: models.RoleAdmin}

var fastPolicy = waitx.Policy{MaxAttempts: 3, Interval: 5 * time.Millisecond}

type fixture struct {
	backend *clienttest.Backend
	api     *client.HTTPClient
	cache   *query.Cache
	docs    DocumentService
	refs    ReferenceService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	b := clienttest.NewBackend(t)
	token := b.AddUser(admin)
	api, err := client.NewHTTPClient(b.APIURL(), client.WithSession(staticSession{token: token}))
	require.NoError(t, err)
	cache := query.New(query.NewMemoryStore(), query.WithStaleTime(time.Minute))
	return &fixture{
		backend: b,
		api:     api,
		cache:   cache,
		docs:    NewDocumentService(api, cache, fastPolicy, nil),
		refs:    NewReferenceService(api, cache, nil),
	}
}

func path(id int64) string { return "/documents/" + strconv.FormatInt(id, 10) }

func sampleInput() models.DocumentInput {
	in := models.NewDocumentInput(models.DocumentObyektivka)
	in.PersonalInformation = models.PersonalInformationInput{
		Familya: "Aliyev", Ism: "Vali", Sharif: "Olimovich",
		TugilganSana: models.NewDate(1990, time.May, 1), TugilganJoyi: "Toshkent", Millati: "o'zbek",
	}
	in.WorkExperiences[0] = models.WorkExperienceInput{StartDate: models.NewDate(2015, time.September, 1), Info: "Dasturchi"}
	in.Relatives[0] = models.RelativeInput{Qarindoshligi: models.RelativeOtasi, Fio: "Aliyev Olim", Tugilgan: "1960"}
	return in
}

func TestDocumentList_IsCachedPerParams(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.backend.AddDocument(models.Document{DocumentType: models.DocumentObyektivka})

	p := client.ListParams{Filter: client.FilterAll, Page: 1}
	first, err := f.docs.List(ctx, p)
	require.NoError(t, err)
	second, err := f.docs.List(ctx, p)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, f.backend.Count(http.MethodGet, "/documents"))

	_, err = f.docs.List(ctx, client.ListParams{Filter: client.FilterMine})
	require.NoError(t, err)
	assert.Equal(t, 2, f.backend.Count(http.MethodGet, "/documents"))
}

func TestDocumentCreate_InvalidatesLists(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	page, err := f.docs.List(ctx, client.ListParams{})
	require.NoError(t, err)
	assert.Empty(t, page.Data)

	created, err := f.docs.Create(ctx, sampleInput())
	require.NoError(t, err)

	page, err = f.docs.List(ctx, client.ListParams{})
	require.NoError(t, err)
	require.Len(t, page.Data, 1)
	assert.Equal(t, created.ID, page.Data[0].ID)
	assert.Equal(t, 2, f.backend.Count(http.MethodGet, "/documents"))
}

func TestDocumentUpdate_SeedsDetailAndInvalidatesLists(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	created, err := f.docs.Create(ctx, sampleInput())
	require.NoError(t, err)
	_, err = f.docs.Get(ctx, created.ID)
	require.NoError(t, err)
	_, err = f.docs.List(ctx, client.ListParams{})
	require.NoError(t, err)

	updated, err := f.docs.Update(ctx, created.ID, models.UpdateDocumentInput{Status: "ready"})
	require.NoError(t, err)
	assert.Equal(t, "ready", updated.Status)

	got, err := f.docs.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "ready", got.Status)
	assert.Equal(t, 1, f.backend.Count(http.MethodGet, path(created.ID)))

	page, err := f.docs.List(ctx, client.ListParams{})
	require.NoError(t, err)
	assert.Equal(t, "ready", page.Data[0].Status)
	assert.Equal(t, 2, f.backend.Count(http.MethodGet, "/documents"))
}

func TestDocumentDelete_DropsDetailAndLists(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	created, err := f.docs.Create(ctx, sampleInput())
	require.NoError(t, err)
	_, err = f.docs.Get(ctx, created.ID)
	require.NoError(t, err)
	_, err = f.docs.List(ctx, client.ListParams{})
	require.NoError(t, err)

	require.NoError(t, f.docs.Delete(ctx, created.ID))

	_, ok := query.Peek[models.Document](ctx, f.cache, documentKey(created.ID))
	assert.False(t, ok)

	_, err = f.docs.Get(ctx, created.ID)
	assert.ErrorIs(t, err, client.ErrNotFound)

	page, err := f.docs.List(ctx, client.ListParams{})
	require.NoError(t, err)
	assert.Empty(t, page.Data)
}

func TestDocumentMutationFailure_KeepsCache(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.docs.List(ctx, client.ListParams{})
	require.NoError(t, err)

	err = f.docs.Delete(ctx, 404)
	require.ErrorIs(t, err, client.ErrNotFound)

	_, err = f.docs.List(ctx, client.ListParams{})
	require.NoError(t, err)
	assert.Equal(t, 1, f.backend.Count(http.MethodGet, "/documents"))
}

func TestDocumentDownload_WaitsForGeneration(t *testing.T) {
	f := newFixture(t)
	id := f.backend.AddDocument(models.Document{DocumentType: models.DocumentObyektivka})
	f.backend.PDFPendingResponses = 2

	pdf, err := f.docs.Download(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, clienttest.PDF(id), pdf.Data)
	assert.Equal(t, 3, f.backend.Count(http.MethodGet, path(id)+"/download"))
}

func TestDocumentDownload_GivesUp(t *testing.T) {
	f := newFixture(t)
	id := f.backend.AddDocument(models.Document{DocumentType: models.DocumentObyektivka})
	f.backend.PDFPendingResponses = 10

	_, err := f.docs.Download(context.Background(), id)
	require.ErrorIs(t, err, waitx.ErrAttemptsExhausted)
	assert.ErrorIs(t, err, client.ErrPDFNotReady)
	assert.Equal(t, fastPolicy.MaxAttempts, f.backend.Count(http.MethodGet, path(id)+"/download"))
}

func TestDocumentDownload_StopsOnOtherErrors(t *testing.T) {
	f := newFixture(t)
	id := f.backend.AddDocument(models.Document{DocumentType: models.DocumentObyektivka})
	f.backend.RevokeAll()

	_, err := f.docs.Download(context.Background(), id)
	require.ErrorIs(t, err, client.ErrUnauthorized)
	assert.Equal(t, 1, f.backend.Count(http.MethodGet, path(id)+"/download"))
}

func TestDocumentSendViaBot(t *testing.T) {
	f := newFixture(t)
	id := f.backend.AddDocument(models.Document{DocumentType: models.DocumentObyektivka})

	msg, err := f.docs.SendViaBot(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, "Document sent to Telegram", msg)
}

func TestReferenceService_CacheRules(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	list, err := f.refs.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)

	ref, err := f.refs.Create(ctx, models.ReferenceInput{Title: "Go", Author: "Pike", Year: 2015, Type: models.ReferenceBook})
	require.NoError(t, err)

	list, err = f.refs.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)

	title := "The Go Programming Language"
	updated, err := f.refs.Update(ctx, ref.ID, models.ReferencePatch{Title: &title})
	require.NoError(t, err)
	assert.Equal(t, title, updated.Title)

	got, err := f.refs.Get(ctx, ref.ID)
	require.NoError(t, err)
	assert.Equal(t, title, got.Title)
	assert.Equal(t, 0, f.backend.Count(http.MethodGet, "/references/"+strconv.FormatInt(ref.ID, 10)))

	list, err = f.refs.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, title, list[0].Title)

	require.NoError(t, f.refs.Delete(ctx, ref.ID))
	list, err = f.refs.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)
	assert.Equal(t, 4, f.backend.Count(http.MethodGet, "/references"))
}

func TestReferenceCreate_ValidatesLocally(t *testing.T) {
	f := newFixture(t)

	_, err := f.refs.Create(context.Background(), models.ReferenceInput{Title: "Go"})
	var fe models.FieldErrors
	require.ErrorAs(t, err, &fe)
	assert.Contains(t, fe, "author")
	assert.Equal(t, 0, f.backend.Count(http.MethodPost, "/references"))
}
