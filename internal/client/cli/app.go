package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/dmitrijs2005/obyektivka/internal/client/guard"
	"github.com/dmitrijs2005/obyektivka/internal/client/host"
	"github.com/dmitrijs2005/obyektivka/internal/client/models"
	"github.com/dmitrijs2005/obyektivka/internal/client/services"
	"github.com/dmitrijs2005/obyektivka/internal/client/session"
	"github.com/dmitrijs2005/obyektivka/internal/common"
	"github.com/dmitrijs2005/obyektivka/internal/logging"
)

var errUnknownCommand = errors.New("unknown command")

// sessionService is the part of the session the commands use.
type sessionService interface {
	HasToken() bool
	Hydrated() bool
	User() *models.User
	TokenExpiry() (time.Time, bool)
	Login(ctx context.Context, req models.LoginRequest) error
	Register(ctx context.Context, req models.RegisterRequest) error
	RegisterOrLogin(ctx context.Context, req models.RegisterRequest) error
	Logout(ctx context.Context) error
	ClearError()
}

// Deps is what NewApp wires together.
type Deps struct {
	Session    *session.Service
	Identity   guard.IdentityFunc
	Documents  services.DocumentService
	References services.ReferenceService
	Host       host.Host
	// StorageURL turns a stored photo path into an absolute URL.
	StorageURL func(path string) string
	In         *bufio.Reader
	Out        io.Writer
	Log        logging.Logger
}

type command struct {
	usage string
	help  string
	// route returns the path the command navigates to.
	route func(args []string) string
	run   func(ctx context.Context, args []string) error
}

type App struct {
	session    sessionService
	guard      *guard.Guard
	watcher    *guard.Watcher
	boot       *guard.Bootstrapper
	identity   guard.IdentityFunc
	docs       services.DocumentService
	refs       services.ReferenceService
	host       host.Host
	storageURL func(string) string
	reader     *bufio.Reader
	out        io.Writer
	log        logging.Logger

	mu       sync.Mutex
	commands map[string]command
	detach   func()
}

// NewApp builds the command dispatcher and subscribes its route watcher to
// the session. Close detaches it.
func NewApp(d Deps) *App {
	if d.Log == nil {
		d.Log = logging.Nop()
	}
	if d.StorageURL == nil {
		d.StorageURL = func(p string) string { return p }
	}
	if d.Identity == nil {
		d.Identity = func() (models.RegisterRequest, bool) { return models.RegisterRequest{}, false }
	}

	a := &App{
		session:    d.Session,
		identity:   d.Identity,
		docs:       d.Documents,
		refs:       d.References,
		host:       d.Host,
		storageURL: d.StorageURL,
		reader:     d.In,
		out:        d.Out,
		log:        d.Log,
	}
	a.guard = guard.New(d.Session, guard.DefaultConfig())
	a.watcher = guard.NewWatcher(a.guard, a.onRedirect)
	a.detach = a.watcher.Attach(d.Session)
	a.boot = guard.NewBootstrapper(d.Session, d.Identity, d.Log)
	a.commands = a.commandTable()
	return a
}

func (a *App) Close() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.detach != nil {
		a.detach()
		a.detach = nil
	}
}

// Run settles the session and then serves commands until the input ends or
// the user exits.
func (a *App) Run(ctx context.Context) {
	defer a.Close()

	fmt.Fprintln(a.out, "Loading...")
	state, err := a.Boot(ctx)
	a.greet(state, err)

	runREPL(ctx, a, a.status, a.reader)
}

// Boot runs the eager session check.
func (a *App) Boot(ctx context.Context) (guard.BootState, error) {
	state, err := a.boot.Run(ctx)
	if err != nil {
		a.log.Warn(ctx, "session bootstrap", "state", state.String(), "error", err)
	}
	return state, err
}

func (a *App) greet(state guard.BootState, err error) {
	switch state {
	case guard.Authenticated:
		if u := a.session.User(); u != nil {
			fmt.Fprintf(a.out, "Welcome, %s!\n", u.FullName())
		}
		if err != nil {
			fmt.Fprintln(a.out, "Backend is not reachable, using the saved profile.")
		}
	case guard.UnauthenticatedWithIdentityProvider:
		fmt.Fprintln(a.out, "Automatic sign-in failed.")
		if err != nil {
			printError(a.out, err)
		}
		fmt.Fprintln(a.out, "Use 'login' to try again.")
	default:
		fmt.Fprintln(a.out, "You are not signed in. Use 'register' or 'login'.")
	}
}

func (a *App) status() string {
	if u := a.session.User(); u != nil && a.session.HasToken() {
		return u.FullName()
	}
	return "guest"
}

func (a *App) isLoggedIn() bool {
	return a.session.HasToken()
}

func (a *App) onRedirect(target string) {
	if target == common.LoginPath {
		fmt.Fprintln(a.out, "Your session has ended. Please log in again.")
	}
}

// Exec runs one command line. Errors are printed as well as returned.
func (a *App) Exec(ctx context.Context, name string, args []string) error {
	cmd, ok := a.commands[name]
	if !ok {
		return fmt.Errorf("%w: %s", errUnknownCommand, name)
	}

	d := a.watcher.Navigate(cmd.route(args))
	switch d.Action {
	case guard.Defer:
		fmt.Fprintln(a.out, "Session is still loading, try again in a moment.")
		return nil
	case guard.Redirect:
		if d.Target == common.LoginPath {
			fmt.Fprintln(a.out, "Please log in first (use 'login').")
		} else {
			fmt.Fprintln(a.out, "You are already signed in.")
		}
		return nil
	}

	if err := cmd.run(ctx, args); err != nil {
		printError(a.out, err)
		return err
	}
	return nil
}

// helpLines lists the commands available in the current session state.
func (a *App) helpLines() []string {
	loggedIn := a.isLoggedIn()
	names := make([]string, 0, len(a.commands))
	for name := range a.commands {
		names = append(names, name)
	}
	sort.Strings(names)

	lines := make([]string, 0, len(names))
	for _, name := range names {
		cmd := a.commands[name]
		route := cmd.route(nil)
		if a.guard.IsProtected(route) && !loggedIn {
			continue
		}
		if (route == common.LoginPath || route == common.RegisterPath) && loggedIn {
			continue
		}
		lines = append(lines, fmt.Sprintf("  %-36s %s", cmd.usage, cmd.help))
	}
	return append(lines, fmt.Sprintf("  %-36s %s", "exit", "leave the program"))
}

func (a *App) commandTable() map[string]command {
	home := fixed(common.HomePath)
	docs := fixed(common.DocumentsPath)
	refs := fixed(common.ReferencesPath)

	return map[string]command{
		"login":    {usage: "login", help: "sign in", route: fixed(common.LoginPath), run: a.Login},
		"register": {usage: "register", help: "create an account", route: fixed(common.RegisterPath), run: a.Register},
		"logout":   {usage: "logout", help: "sign out", route: home, run: a.Logout},
		"whoami":   {usage: "whoami", help: "show the signed in user", route: home, run: a.WhoAmI},

		"docs":         {usage: "docs [--filter f] [--search s] [--page n]", help: "list documents", route: docs, run: a.ListDocuments},
		"doc":          {usage: "doc <id>", help: "show a document", route: withID(common.DocumentsPath), run: a.ShowDocument},
		"doc-new":      {usage: "doc-new <file.json> [photo]", help: "create a document", route: fixed(common.DocumentsPath + "/new"), run: a.CreateDocument},
		"doc-edit":     {usage: "doc-edit <id> <file.json> [photo]", help: "update a document", route: withID(common.DocumentsPath), run: a.EditDocument},
		"doc-delete":   {usage: "doc-delete <id>", help: "delete a document", route: withID(common.DocumentsPath), run: a.DeleteDocument},
		"doc-download": {usage: "doc-download <id>", help: "download the document PDF", route: withID(common.DocumentsPath), run: a.DownloadDocument},
		"doc-send":     {usage: "doc-send <id>", help: "send the PDF through the Telegram bot", route: withID(common.DocumentsPath), run: a.SendDocument},
		"doc-template": {usage: "doc-template [type] [file.json]", help: "write an empty document form", route: docs, run: a.DocumentTemplate},
		"doc-export":   {usage: "doc-export <id> <file.json>", help: "write a document as an editable form", route: withID(common.DocumentsPath), run: a.ExportDocument},

		"refs":       {usage: "refs", help: "list references", route: refs, run: a.ListReferences},
		"ref":        {usage: "ref <id>", help: "show a reference", route: withID(common.ReferencesPath), run: a.ShowReference},
		"ref-new":    {usage: "ref-new", help: "create a reference", route: fixed(common.ReferencesPath + "/new"), run: a.CreateReference},
		"ref-edit":   {usage: "ref-edit <id>", help: "update a reference", route: withID(common.ReferencesPath), run: a.EditReference},
		"ref-delete": {usage: "ref-delete <id>", help: "delete a reference", route: withID(common.ReferencesPath), run: a.DeleteReference},
	}
}

func fixed(path string) func([]string) string {
	return func([]string) string { return path }
}

// withID routes to base/<id> when the first argument is present.
func withID(base string) func([]string) string {
	return func(args []string) string {
		if len(args) == 0 {
			return base
		}
		return base + "/" + args[0]
	}
}

func parseID(args []string, usage string) (int64, error) {
	if len(args) == 0 {
		return 0, fmt.Errorf("usage: %s", usage)
	}
	id, err := strconv.ParseInt(strings.TrimPrefix(args[0], "#"), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", args[0])
	}
	return id, nil
}

// confirm asks through the host; a declined answer prints a note.
func (a *App) confirm(ctx context.Context, msg string) (bool, error) {
	ok, err := a.host.Confirm(ctx, msg)
	if err != nil {
		return false, err
	}
	if !ok {
		fmt.Fprintln(a.out, "Cancelled.")
	}
	return ok, nil
}
