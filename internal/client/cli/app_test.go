package cli

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/obyektivka/internal/client/client"
	"github.com/dmitrijs2005/obyektivka/internal/client/clienttest"
	"github.com/dmitrijs2005/obyektivka/internal/client/credentials"
	"github.com/dmitrijs2005/obyektivka/internal/client/guard"
	"github.com/dmitrijs2005/obyektivka/internal/client/host"
	"github.com/dmitrijs2005/obyektivka/internal/client/models"
	"github.com/dmitrijs2005/obyektivka/internal/client/query"
	"github.com/dmitrijs2005/obyektivka/internal/client/services"
	"github.com/dmitrijs2005/obyektivka/internal/client/session"
	"github.com/dmitrijs2005/obyektivka/internal/client/storage"
	"github.com/dmitrijs2005/obyektivka/internal/waitx"
)

var fastPolicy = waitx.Policy{MaxAttempts: 3, Interval: 5 * time.Millisecond}

type fixture struct {
	backend   *clienttest.Backend
	session   *session.Service
	store     *credentials.Store
	app       *App
	out       *bytes.Buffer
	downloads string
}

type options struct {
	input string
	user  *host.TelegramUser
}

func newFixture(t *testing.T, o options) *fixture {
	t.Helper()
	ctx := context.Background()

	db, err := storage.InitDatabase(ctx, storage.MemoryDSN)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	f := &fixture{
		backend:   clienttest.NewBackend(t),
		store:     credentials.NewStore(db),
		out:       &bytes.Buffer{},
		downloads: t.TempDir(),
	}
	f.session = session.New(f.store, nil)
	api, err := client.NewHTTPClient(f.backend.APIURL(), client.WithSession(f.session))
	require.NoError(t, err)
	f.session.Bind(api)

	cache := query.New(query.NewMemoryStore(), query.WithStaleTime(time.Minute))
	reader := bufio.NewReader(strings.NewReader(o.input))
	h := host.NewTerminal(reader, f.out, host.FileSink{Dir: f.downloads}, o.user)

	f.app = NewApp(Deps{
		Session:    f.session,
		Identity:   host.IdentityFunc(h),
		Documents:  services.NewDocumentService(api, cache, fastPolicy, nil),
		References: services.NewReferenceService(api, cache, nil),
		Host:       h,
		StorageURL: func(p string) string { return client.StorageURL(f.backend.Server.URL, p) },
		In:         reader,
		Out:        f.out,
	})
	t.Cleanup(f.app.Close)
	return f
}

var admin = models.User{FirstName: "Vali", LastName: "Aliyev", TelegramUserID: 1001, Role: models.RoleAdmin}

// signIn stores a valid token for u so that Boot restores it. The session
// hydrates once, so signIn must come before any other Boot on f.
func (f *fixture) signIn(t *testing.T, u models.User) {
	t.Helper()
	token := f.backend.AddUser(u)
	require.NoError(t, f.store.Save(context.Background(), token, u))
	state, err := f.app.Boot(context.Background())
	require.NoError(t, err)
	require.Equal(t, guard.Authenticated, state)
	f.out.Reset()
}

func (f *fixture) exec(t *testing.T, line string) error {
	t.Helper()
	parts := strings.Fields(line)
	return f.app.Exec(context.Background(), parts[0], parts[1:])
}

func TestBoot_WithIdentityRegisters(t *testing.T) {
	u := host.DevUser()
	f := newFixture(t, options{user: &u})

	state, err := f.app.Boot(context.Background())
	require.NoError(t, err)
	assert.Equal(t, guard.Authenticated, state)
	assert.Equal(t, 1, f.backend.Count(http.MethodPost, "/register"))
	assert.Equal(t, "Test User", f.app.status())
}

func TestBoot_NoIdentity(t *testing.T) {
	f := newFixture(t, options{})

	state, err := f.app.Boot(context.Background())
	require.NoError(t, err)
	assert.Equal(t, guard.UnauthenticatedNoIdentityProvider, state)
	assert.Equal(t, "guest", f.app.status())

	f.app.greet(state, err)
	assert.Contains(t, f.out.String(), "not signed in")
}

func TestExec_ProtectedCommandRedirectsToLogin(t *testing.T) {
	f := newFixture(t, options{})
	_, _ = f.app.Boot(context.Background())

	require.NoError(t, f.exec(t, "docs"))
	assert.Contains(t, f.out.String(), "Please log in first")
	assert.Zero(t, f.backend.Count(http.MethodGet, "/documents"))
}

func TestExec_DefersBeforeHydration(t *testing.T) {
	f := newFixture(t, options{})

	require.NoError(t, f.exec(t, "refs"))
	assert.Contains(t, f.out.String(), "still loading")
	assert.Empty(t, f.backend.Requests())
}

func TestExec_UnknownCommand(t *testing.T) {
	f := newFixture(t, options{})
	err := f.exec(t, "launch")
	assert.ErrorIs(t, err, errUnknownCommand)
}

func TestLogin_RedirectsHomeWhenSignedIn(t *testing.T) {
	f := newFixture(t, options{})
	f.signIn(t, admin)

	require.NoError(t, f.exec(t, "login"))
	assert.Contains(t, f.out.String(), "already signed in")
}

func TestLogin_WithPrompt(t *testing.T) {
	f := newFixture(t, options{input: "1001\nVali\nAliyev\n"})
	f.backend.AddUser(admin)
	_, _ = f.app.Boot(context.Background())

	require.NoError(t, f.exec(t, "login"))
	assert.Contains(t, f.out.String(), "Signed in as Vali Aliyev.")
	assert.True(t, f.session.HasToken())
}

func TestLogin_InvalidTelegramID(t *testing.T) {
	f := newFixture(t, options{input: "abc\n"})
	_, _ = f.app.Boot(context.Background())

	require.Error(t, f.exec(t, "login"))
	assert.Contains(t, f.out.String(), `invalid telegram user id "abc"`)
}

func TestRegister_TranslatesFieldErrors(t *testing.T) {
	f := newFixture(t, options{input: "1001\n\nAliyev\n\n\n"})
	_, _ = f.app.Boot(context.Background())

	require.Error(t, f.exec(t, "register"))
	out := f.out.String()
	assert.Contains(t, out, "first_name: Ism maydoni to'ldirilishi shart.")
	assert.False(t, f.session.HasToken())
}

func TestRegister_AlreadyTakenWithIdentity(t *testing.T) {
	u := host.DevUser()
	f := newFixture(t, options{})
	_, _ = f.app.Boot(context.Background())
	f.backend.AddUser(models.User{FirstName: u.FirstName, LastName: u.LastName, TelegramUserID: u.ID})

	// Boot above ran without an identity; register now with one.
	f.app.identity = host.IdentityFunc(host.NewTerminal(strings.NewReader(""), f.out, nil, &u))

	require.Error(t, f.exec(t, "register"))
	assert.Contains(t, f.out.String(), "Bu Telegram foydalanuvchi allaqachon ro'yxatdan o'tgan.")
}

func TestLogoutAndWhoAmI(t *testing.T) {
	f := newFixture(t, options{})
	f.signIn(t, admin)

	require.NoError(t, f.exec(t, "whoami"))
	assert.Contains(t, f.out.String(), "Vali Aliyev (telegram 1001)")
	assert.Contains(t, f.out.String(), "Role: admin")

	require.NoError(t, f.exec(t, "logout"))
	assert.Contains(t, f.out.String(), "Logged out.")
	assert.False(t, f.session.HasToken())

	f.out.Reset()
	require.NoError(t, f.exec(t, "whoami"))
	assert.Contains(t, f.out.String(), "Not signed in.")
}

func TestDocs_AdminSeesAll(t *testing.T) {
	f := newFixture(t, options{})
	f.signIn(t, admin)
	f.backend.AddDocument(models.Document{
		UserID: 999, DocumentType: models.DocumentObyektivka, Status: "draft",
		PersonalInformation: &models.PersonalInformation{Familya: "Karimov", Ism: "Anvar"},
	})

	require.NoError(t, f.exec(t, "docs"))
	out := f.out.String()
	assert.Contains(t, out, "Obyektivka: Karimov Anvar")
	assert.Contains(t, out, "Page 1 of 1, 1 total.")

	rec, ok := f.backend.Last(http.MethodGet, "/documents")
	require.True(t, ok)
	assert.Equal(t, client.FilterAll, rec.Query.Get("filter"))
}

func TestDocs_FilterFlag(t *testing.T) {
	f := newFixture(t, options{})
	f.signIn(t, admin)

	require.NoError(t, f.exec(t, "docs --filter mine --search ali"))
	assert.Contains(t, f.out.String(), "No documents.")
	rec, ok := f.backend.Last(http.MethodGet, "/documents")
	require.True(t, ok)
	assert.Equal(t, "mine", rec.Query.Get("filter"))
	assert.Equal(t, "ali", rec.Query.Get("search"))

	require.Error(t, f.exec(t, "docs --filter everyone"))
}

func writeFile(t *testing.T, name string, v any) string {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, data, 0o600))
	return path
}

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

func TestDocNew_CreatesFromJSON(t *testing.T) {
	f := newFixture(t, options{})
	f.signIn(t, admin)

	path := writeFile(t, "doc.json", sampleInput())
	require.NoError(t, f.exec(t, "doc-new "+path))
	assert.Contains(t, f.out.String(), "created.")
	assert.Equal(t, 1, f.backend.Count(http.MethodPost, "/documents"))
}

func TestDocNew_LocalValidation(t *testing.T) {
	f := newFixture(t, options{})
	f.signIn(t, admin)

	path := writeFile(t, "doc.json", models.NewDocumentInput(models.DocumentObyektivka))
	require.Error(t, f.exec(t, "doc-new "+path))
	assert.Contains(t, f.out.String(), "personal_information.familya")
	assert.Zero(t, f.backend.Count(http.MethodPost, "/documents"))
}

func TestDocShowEditExport(t *testing.T) {
	f := newFixture(t, options{})
	f.signIn(t, admin)
	id := f.backend.AddDocument(models.Document{
		DocumentType: models.DocumentObyektivka, Status: "draft",
		PersonalInformation: &models.PersonalInformation{
			Familya: "Aliyev", Ism: "Vali", TugilganSana: "1990-05-01", PhotoPath: "photos/1.jpg",
		},
	})
	sid := formatID(id)

	require.NoError(t, f.exec(t, "doc "+sid))
	out := f.out.String()
	assert.Contains(t, out, "Obyektivka: Aliyev Vali")
	assert.Contains(t, out, f.backend.Server.URL+"/storage/photos/1.jpg")

	exported := filepath.Join(t.TempDir(), "export.json")
	require.NoError(t, f.exec(t, "doc-export "+sid+" "+exported))

	var in models.UpdateDocumentInput
	data, err := os.ReadFile(exported)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, &in))
	require.NotNil(t, in.PersonalInformation)
	assert.Equal(t, "Aliyev", in.PersonalInformation.Familya)

	f.out.Reset()
	require.NoError(t, f.exec(t, "doc-edit "+sid+" "+exported))
	assert.Contains(t, f.out.String(), "Document #"+sid+" updated.")
	assert.Equal(t, 1, f.backend.Count(http.MethodPut, "/documents/"+sid))
}

func TestDocTemplate(t *testing.T) {
	f := newFixture(t, options{})
	f.signIn(t, admin)

	require.NoError(t, f.exec(t, "doc-template kochirish_ariza"))
	var in models.DocumentInput
	require.NoError(t, json.Unmarshal(f.out.Bytes(), &in))
	assert.Equal(t, models.DocumentKochirishAriza, in.DocumentType)

	require.Error(t, f.exec(t, "doc-template resume"))
}

func TestDocDelete_Confirmed(t *testing.T) {
	f := newFixture(t, options{input: "y\n"})
	f.signIn(t, admin)
	id := f.backend.AddDocument(models.Document{DocumentType: models.DocumentObyektivka})

	require.NoError(t, f.exec(t, "doc-delete "+formatID(id)))
	assert.Contains(t, f.out.String(), "deleted.")
	assert.Equal(t, 1, f.backend.Count(http.MethodDelete, "/documents/"+formatID(id)))
}

func TestDocDelete_Declined(t *testing.T) {
	f := newFixture(t, options{input: "n\n"})
	f.signIn(t, admin)
	id := f.backend.AddDocument(models.Document{DocumentType: models.DocumentObyektivka})

	require.NoError(t, f.exec(t, "doc-delete "+formatID(id)))
	assert.Contains(t, f.out.String(), "Cancelled.")
	assert.Zero(t, f.backend.Count(http.MethodDelete, "/documents/"+formatID(id)))
}

func TestDocDownload_WaitsForPDF(t *testing.T) {
	f := newFixture(t, options{})
	f.signIn(t, admin)
	id := f.backend.AddDocument(models.Document{DocumentType: models.DocumentObyektivka})
	f.backend.PDFPendingResponses = 1

	require.NoError(t, f.exec(t, "doc-download "+formatID(id)))
	assert.Contains(t, f.out.String(), "Preparing PDF...")

	data, err := os.ReadFile(filepath.Join(f.downloads, "obyektivka_"+formatID(id)+".pdf"))
	require.NoError(t, err)
	assert.Equal(t, clienttest.PDF(id), data)
}

func TestDocDownload_NotReady(t *testing.T) {
	f := newFixture(t, options{})
	f.signIn(t, admin)
	id := f.backend.AddDocument(models.Document{DocumentType: models.DocumentObyektivka})
	f.backend.PDFPendingResponses = 10

	require.Error(t, f.exec(t, "doc-download "+formatID(id)))
	assert.Contains(t, f.out.String(), "not ready yet")
}

func TestDocSend(t *testing.T) {
	f := newFixture(t, options{})
	f.signIn(t, admin)
	id := f.backend.AddDocument(models.Document{DocumentType: models.DocumentObyektivka})

	require.NoError(t, f.exec(t, "doc-send "+formatID(id)))
	assert.Contains(t, f.out.String(), "Document sent to Telegram")
}

func TestDoc_InvalidID(t *testing.T) {
	f := newFixture(t, options{})
	f.signIn(t, admin)

	require.Error(t, f.exec(t, "doc seven"))
	assert.Contains(t, f.out.String(), `invalid id "seven"`)
}

func TestSessionExpiryMidCommand(t *testing.T) {
	f := newFixture(t, options{})
	f.signIn(t, admin)
	f.backend.RevokeAll()

	require.Error(t, f.exec(t, "docs"))
	assert.Contains(t, f.out.String(), "Your session has ended")
	assert.False(t, f.session.HasToken())
}

func TestReferences_CreateEditDelete(t *testing.T) {
	input := strings.Join([]string{
		// ref-new
		"Go in Action", "Kennedy", "2015", "",
		// ref-edit: keep everything but the year
		"", "", "2016", "",
		// ref-edit: nothing changes
		"", "", "", "",
		// ref-delete
		"yes",
	}, "\n") + "\n"
	f := newFixture(t, options{input: input})
	f.signIn(t, admin)

	require.NoError(t, f.exec(t, "ref-new"))
	assert.Contains(t, f.out.String(), "Reference #")

	require.NoError(t, f.exec(t, "refs"))
	assert.Contains(t, f.out.String(), "Go in Action")

	require.Equal(t, 1, f.backend.Count(http.MethodGet, "/references"))

	list, err := f.app.refs.List(context.Background())
	require.NoError(t, err)
	require.Len(t, list, 1)
	sid := formatID(list[0].ID)
	assert.Equal(t, models.ReferenceBook, list[0].Type)

	require.NoError(t, f.exec(t, "ref-edit "+sid))
	assert.Equal(t, 1, f.backend.Count(http.MethodPut, "/references/"+sid))
	updated, err := f.app.refs.Get(context.Background(), list[0].ID)
	require.NoError(t, err)
	assert.Equal(t, 2016, updated.Year)
	assert.Equal(t, "Go in Action", updated.Title)

	f.out.Reset()
	require.NoError(t, f.exec(t, "ref-edit "+sid))
	assert.Contains(t, f.out.String(), "Nothing to change.")
	assert.Equal(t, 1, f.backend.Count(http.MethodPut, "/references/"+sid))

	require.NoError(t, f.exec(t, "ref-delete "+sid))
	assert.Contains(t, f.out.String(), "deleted.")
}

func TestRefNew_LocalValidation(t *testing.T) {
	f := newFixture(t, options{input: "\nKennedy\n2015\npoem\n"})
	f.signIn(t, admin)

	require.Error(t, f.exec(t, "ref-new"))
	out := f.out.String()
	assert.Contains(t, out, "title: required")
	assert.Contains(t, out, "type: must be one of")
	assert.Zero(t, f.backend.Count(http.MethodPost, "/references"))
}

func TestHelpLines(t *testing.T) {
	f := newFixture(t, options{})
	_, _ = f.app.Boot(context.Background())

	guest := strings.Join(f.app.helpLines(), "\n")
	assert.Contains(t, guest, "login")
	assert.NotContains(t, guest, "doc-new")

	// Hydrate runs once per session, so the signed in view needs its own.
	f = newFixture(t, options{})
	f.signIn(t, admin)
	member := strings.Join(f.app.helpLines(), "\n")
	assert.Contains(t, member, "doc-new")
	assert.NotContains(t, member, "register")
}

func TestLogin_AfterGuestBoot(t *testing.T) {
	f := newFixture(t, options{input: "1001\nVali\nAliyev\n"})
	f.backend.AddUser(admin)
	_, _ = f.app.Boot(context.Background())
	require.NotContains(t, strings.Join(f.app.helpLines(), "\n"), "doc-new")

	require.NoError(t, f.exec(t, "login"))
	member := strings.Join(f.app.helpLines(), "\n")
	assert.Contains(t, member, "doc-new")
	assert.NotContains(t, member, "register")
}

func formatID(id int64) string {
	return strconv.FormatInt(id, 10)
}
