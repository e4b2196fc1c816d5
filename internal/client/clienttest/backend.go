// Package clienttest runs an in-memory stand-in for the obyektivka backend
// behind httptest, for use by the client, session and CLI tests.
package clienttest

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"

	"github.com/dmitrijs2005/obyektivka/internal/client/models"
)

const (
	PerPage   = 10
	jwtSecret = "clienttest-secret"
)

// Recorded is one request as the backend saw it.
type Recorded struct {
	Method string
	Path   string
	Query  url.Values
	Header http.Header
	Form   url.Values
	Files  map[string][]byte
}

// Backend is the fake server. Its exported fields may be changed between
// requests to script failures.
type Backend struct {
	Server *httptest.Server

	// RegisterConflictStatus is returned when registering an existing
	// Telegram user: 409 or 422.
	RegisterConflictStatus int
	// FailLogout makes POST /logout answer 500.
	FailLogout bool
	// PDFPendingResponses is how many download attempts answer 404 before
	// the PDF is served.
	PDFPendingResponses int
	// TokenTTL is the lifetime of issued tokens.
	TokenTTL time.Duration

	mu         sync.Mutex
	nextID     int64
	users      map[int64]*models.User // by telegram id
	tokens     map[string]int64       // token -> telegram id
	documents  map[int64]*models.Document
	references map[int64]*models.Reference
	pdfServed  map[int64]int
	requests   []Recorded
}

// NewBackend starts a backend; it is closed when the test ends.
func NewBackend(t interface{ Cleanup(func()) }) *Backend {
	b := &Backend{
		RegisterConflictStatus: http.StatusUnprocessableEntity,
		TokenTTL:               time.Hour,
		nextID:                 1,
		users:                  map[int64]*models.User{},
		tokens:                 map[string]int64{},
		documents:              map[int64]*models.Document{},
		references:             map[int64]*models.Reference{},
		pdfServed:              map[int64]int{},
	}
	b.Server = httptest.NewServer(b.routes())
	t.Cleanup(b.Server.Close)
	return b
}

// APIURL is the base URL clients should be pointed at.
func (b *Backend) APIURL() string {
	return b.Server.URL + "/api"
}

func (b *Backend) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(b.record)
	r.Route("/api", func(r chi.Router) {
		r.Post("/login", b.login)
		r.Post("/register", b.register)

		r.Group(func(r chi.Router) {
			r.Use(b.auth)
			r.Post("/logout", b.logout)
			r.Get("/user", b.me)

			r.Get("/documents", b.listDocuments)
			r.Post("/documents", b.createDocument)
			r.Get("/documents/{id}", b.getDocument)
			r.Put("/documents/{id}", b.updateDocument)
			r.Delete("/documents/{id}", b.deleteDocument)
			r.Get("/documents/{id}/download", b.download)
			r.Post("/documents/{id}/send-via-bot", b.sendViaBot)

			r.Get("/references", b.listReferences)
			r.Post("/references", b.createReference)
			r.Get("/references/{id}", b.getReference)
			r.Put("/references/{id}", b.updateReference)
			r.Delete("/references/{id}", b.deleteReference)
		})
	})
	return r
}

// AddUser registers a user directly and returns a valid token for them.
func (b *Backend) AddUser(u models.User) string {
	b.mu.Lock()
	defer b.mu.Unlock()
	if u.ID == 0 {
		u.ID = b.id()
	}
	b.users[u.TelegramUserID] = &u
	return b.issue(u.TelegramUserID)
}

// AddDocument stores d as is and returns its id.
func (b *Backend) AddDocument(d models.Document) int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	if d.ID == 0 {
		d.ID = b.id()
	}
	b.documents[d.ID] = &d
	return d.ID
}

// RevokeAll invalidates every issued token.
func (b *Backend) RevokeAll() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.tokens = map[string]int64{}
}

// Requests returns a copy of everything recorded so far.
func (b *Backend) Requests() []Recorded {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]Recorded(nil), b.requests...)
}

// Last returns the most recent request to path, or false.
func (b *Backend) Last(method, path string) (Recorded, bool) {
	reqs := b.Requests()
	for i := len(reqs) - 1; i >= 0; i-- {
		if reqs[i].Method == method && reqs[i].Path == path {
			return reqs[i], true
		}
	}
	return Recorded{}, false
}

// Count returns how many requests hit method and path.
func (b *Backend) Count(method, path string) int {
	n := 0
	for _, r := range b.Requests() {
		if r.Method == method && r.Path == path {
			n++
		}
	}
	return n
}

func (b *Backend) id() int64 {
	id := b.nextID
	b.nextID++
	return id
}

func (b *Backend) issue(tgID int64) string {
	claims := jwt.RegisteredClaims{
		Subject:   strconv.FormatInt(tgID, 10),
		IssuedAt:  jwt.NewNumericDate(time.Now()),
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(b.TokenTTL)),
		ID:        strconv.FormatInt(b.id(), 10),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(jwtSecret))
	if err != nil {
		panic(err)
	}
	b.tokens[token] = tgID
	return token
}

func (b *Backend) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := Recorded{
			Method: r.Method,
			Path:   strings.TrimPrefix(r.URL.Path, "/api"),
			Query:  r.URL.Query(),
			Header: r.Header.Clone(),
		}
		if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
			if err := r.ParseMultipartForm(32 << 20); err == nil {
				rec.Form = url.Values(r.MultipartForm.Value)
				rec.Files = map[string][]byte{}
				for name, fhs := range r.MultipartForm.File {
					if f, err := fhs[0].Open(); err == nil {
						rec.Files[name], _ = io.ReadAll(f)
						_ = f.Close()
					}
				}
			}
		}
		b.mu.Lock()
		b.requests = append(b.requests, rec)
		b.mu.Unlock()
		next.ServeHTTP(w, r)
	})
}

func (b *Backend) auth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
		b.mu.Lock()
		tgID, ok := b.tokens[token]
		u := b.users[tgID]
		b.mu.Unlock()
		if !ok || u == nil {
			writeJSON(w, http.StatusUnauthorized, map[string]any{"message": "Unauthenticated."})
			return
		}
		next.ServeHTTP(w, r.WithContext(withUser(r.Context(), *u)))
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func ok(data any, message string) map[string]any {
	return map[string]any{"success": true, "data": data, "message": message}
}

func (b *Backend) login(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"message": "bad json"})
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	u, found := b.users[req.TelegramUserID]
	if !found {
		writeJSON(w, http.StatusNotFound, map[string]any{"success": false, "message": "User not found"})
		return
	}
	writeJSON(w, http.StatusOK, ok(models.AuthPayload{User: *u, Token: b.issue(u.TelegramUserID)}, "Login successful"))
}

func (b *Backend) register(w http.ResponseWriter, r *http.Request) {
	var req models.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"message": "bad json"})
		return
	}
	if req.TelegramUserID == 0 || req.FirstName == "" {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
			"message": "The given data was invalid.",
			"errors":  map[string][]string{"first_name": {"The first name field is required."}},
		})
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if _, exists := b.users[req.TelegramUserID]; exists {
		msg := "The telegram user id has already been taken."
		writeJSON(w, b.RegisterConflictStatus, map[string]any{
			"message": msg,
			"errors":  map[string][]string{"telegram_user_id": {msg}},
		})
		return
	}
	now := time.Now().UTC().Truncate(time.Second)
	u := &models.User{
		ID: b.id(), FirstName: req.FirstName, LastName: req.LastName, Username: req.Username,
		Email: req.Email, TelegramUserID: req.TelegramUserID, CreatedAt: now, UpdatedAt: now,
	}
	b.users[u.TelegramUserID] = u
	writeJSON(w, http.StatusCreated, ok(models.AuthPayload{User: *u, Token: b.issue(u.TelegramUserID)}, "Registered"))
}

func (b *Backend) logout(w http.ResponseWriter, r *http.Request) {
	if b.FailLogout {
		writeJSON(w, http.StatusInternalServerError, map[string]any{"message": "Server Error"})
		return
	}
	token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	b.mu.Lock()
	delete(b.tokens, token)
	b.mu.Unlock()
	writeJSON(w, http.StatusOK, ok(nil, "Logged out"))
}

func (b *Backend) me(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, userFrom(r.Context()))
}

func pathID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	return id, err == nil
}

func notFound(w http.ResponseWriter, what string) {
	writeJSON(w, http.StatusNotFound, map[string]any{"success": false, "message": what + " not found"})
}

func (b *Backend) listDocuments(w http.ResponseWriter, r *http.Request) {
	u := userFrom(r.Context())
	q := r.URL.Query()
	filter := q.Get("filter")
	search := strings.ToLower(q.Get("search"))
	page, _ := strconv.Atoi(q.Get("page"))
	if page < 1 {
		page = 1
	}

	b.mu.Lock()
	var matched []models.Document
	for _, d := range b.documents {
		if filter != "all" && d.UserID != u.ID {
			continue
		}
		if search != "" && (d.PersonalInformation == nil ||
			!strings.Contains(strings.ToLower(d.PersonalInformation.FullName()), search)) {
			continue
		}
		matched = append(matched, *d)
	}
	b.mu.Unlock()

	sort.Slice(matched, func(i, j int) bool { return matched[i].ID < matched[j].ID })
	total := len(matched)
	last := max((total+PerPage-1)/PerPage, 1)
	from := min((page-1)*PerPage, total)
	to := min(from+PerPage, total)

	writeJSON(w, http.StatusOK, ok(models.Paginated[models.Document]{
		Data: append([]models.Document{}, matched[from:to]...), CurrentPage: page,
		LastPage: last, PerPage: PerPage, Total: total,
	}, ""))
}

func (b *Backend) getDocument(w http.ResponseWriter, r *http.Request) {
	id, _ := pathID(r)
	b.mu.Lock()
	d, found := b.documents[id]
	b.mu.Unlock()
	if !found {
		notFound(w, "Document")
		return
	}
	writeJSON(w, http.StatusOK, ok(d, ""))
}

func (b *Backend) createDocument(w http.ResponseWriter, r *http.Request) {
	if r.MultipartForm == nil {
		writeJSON(w, http.StatusUnsupportedMediaType, map[string]any{"message": "multipart body expected"})
		return
	}
	form := url.Values(r.MultipartForm.Value)
	if form.Get("document_type") == "" {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
			"message": "The document type field is required.",
			"errors":  map[string][]string{"document_type": {"The document type field is required."}},
		})
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	now := time.Now().UTC().Truncate(time.Second)
	d := &models.Document{ID: b.id(), UserID: userFrom(r.Context()).ID, Status: "draft", CreatedAt: now, UpdatedAt: now}
	applyForm(d, form)
	b.documents[d.ID] = d
	writeJSON(w, http.StatusCreated, ok(d, "Document created"))
}

func (b *Backend) updateDocument(w http.ResponseWriter, r *http.Request) {
	id, _ := pathID(r)
	b.mu.Lock()
	defer b.mu.Unlock()
	d, found := b.documents[id]
	if !found {
		notFound(w, "Document")
		return
	}
	if r.MultipartForm != nil {
		applyForm(d, url.Values(r.MultipartForm.Value))
	}
	d.UpdatedAt = time.Now().UTC().Truncate(time.Second)
	writeJSON(w, http.StatusOK, ok(d, "Document updated"))
}

func (b *Backend) deleteDocument(w http.ResponseWriter, r *http.Request) {
	id, _ := pathID(r)
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, found := b.documents[id]; !found {
		notFound(w, "Document")
		return
	}
	delete(b.documents, id)
	writeJSON(w, http.StatusOK, ok(nil, "Document deleted"))
}

// PDF returns the bytes the download endpoint serves for id.
func PDF(id int64) []byte {
	return []byte(fmt.Sprintf("%%PDF-1.4\n%% document %d\n%%%%EOF\n", id))
}

func (b *Backend) download(w http.ResponseWriter, r *http.Request) {
	id, _ := pathID(r)
	b.mu.Lock()
	_, found := b.documents[id]
	b.pdfServed[id]++
	pending := b.pdfServed[id] <= b.PDFPendingResponses
	b.mu.Unlock()

	if !found || pending {
		notFound(w, "PDF")
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="obyektivka_%d.pdf"`, id))
	_, _ = w.Write(PDF(id))
}

func (b *Backend) sendViaBot(w http.ResponseWriter, r *http.Request) {
	id, _ := pathID(r)
	b.mu.Lock()
	_, found := b.documents[id]
	b.mu.Unlock()
	if !found {
		notFound(w, "Document")
		return
	}
	writeJSON(w, http.StatusOK, ok(nil, "Document sent to Telegram"))
}

func (b *Backend) listReferences(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	out := make([]models.Reference, 0, len(b.references))
	for _, ref := range b.references {
		out = append(out, *ref)
	}
	b.mu.Unlock()
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	writeJSON(w, http.StatusOK, ok(out, ""))
}

func (b *Backend) getReference(w http.ResponseWriter, r *http.Request) {
	id, _ := pathID(r)
	b.mu.Lock()
	ref, found := b.references[id]
	b.mu.Unlock()
	if !found {
		notFound(w, "Reference")
		return
	}
	writeJSON(w, http.StatusOK, ok(ref, ""))
}

func (b *Backend) createReference(w http.ResponseWriter, r *http.Request) {
	var in models.ReferenceInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"message": "bad json"})
		return
	}
	if err := in.Validate(); err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{"message": "The given data was invalid.", "errors": err})
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	now := time.Now().UTC().Truncate(time.Second)
	ref := &models.Reference{ID: b.id(), Title: in.Title, Author: in.Author, Year: in.Year, Type: in.Type, CreatedAt: now, UpdatedAt: now}
	b.references[ref.ID] = ref
	writeJSON(w, http.StatusCreated, ok(ref, "Reference created"))
}

func (b *Backend) updateReference(w http.ResponseWriter, r *http.Request) {
	id, _ := pathID(r)
	var patch models.ReferencePatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"message": "bad json"})
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	ref, found := b.references[id]
	if !found {
		notFound(w, "Reference")
		return
	}
	updated := patch.Apply(*ref)
	updated.UpdatedAt = time.Now().UTC().Truncate(time.Second)
	b.references[id] = &updated
	writeJSON(w, http.StatusOK, ok(updated, "Reference updated"))
}

func (b *Backend) deleteReference(w http.ResponseWriter, r *http.Request) {
	id, _ := pathID(r)
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, found := b.references[id]; !found {
		notFound(w, "Reference")
		return
	}
	delete(b.references, id)
	writeJSON(w, http.StatusOK, ok(nil, "Reference deleted"))
}
