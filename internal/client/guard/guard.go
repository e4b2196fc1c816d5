// Package guard decides whether a route may be entered given the session.
package guard

import (
	"strings"

	"github.com/dmitrijs2005/obyektivka/internal/common"
)

type Action int

const (
	// Allow lets the route render.
	Allow Action = iota
	// Redirect sends the caller to Decision.Target instead.
	Redirect
	// Defer means the session has not been hydrated; nothing should be shown yet.
	Defer
)

func (a Action) String() string {
	switch a {
	case Allow:
		return "allow"
	case Redirect:
		return "redirect"
	case Defer:
		return "defer"
	}
	return "unknown"
}

type Decision struct {
	Action Action
	Target string
}

// Session is what the guard reads. It never looks at storage directly.
type Session interface {
	HasToken() bool
	Hydrated() bool
}

type Config struct {
	Protected []string
	AuthOnly  []string
	LoginPath string
	HomePath  string
}

func DefaultConfig() Config {
	return Config{
		Protected: []string{common.ReferencesPath, common.DocumentsPath},
		AuthOnly:  []string{common.LoginPath, common.RegisterPath},
		LoginPath: common.LoginPath,
		HomePath:  common.HomePath,
	}
}

type Guard struct {
	cfg     Config
	session Session
}

func New(s Session, cfg Config) *Guard {
	return &Guard{cfg: cfg, session: s}
}

// Check decides what happens on navigation to path.
func (g *Guard) Check(path string) Decision {
	path = clean(path)

	if matches(path, g.cfg.Protected) {
		if !g.session.Hydrated() {
			return Decision{Action: Defer}
		}
		if !g.session.HasToken() {
			return Decision{Action: Redirect, Target: g.cfg.LoginPath}
		}
		return Decision{Action: Allow}
	}

	if matches(path, g.cfg.AuthOnly) && g.session.Hydrated() && g.session.HasToken() {
		return Decision{Action: Redirect, Target: g.cfg.HomePath}
	}
	return Decision{Action: Allow}
}

// IsProtected reports whether path needs a session.
func (g *Guard) IsProtected(path string) bool {
	return matches(clean(path), g.cfg.Protected)
}

func clean(path string) string {
	if i := strings.IndexAny(path, "?#"); i >= 0 {
		path = path[:i]
	}
	if path == "" {
		return "/"
	}
	return path
}

// matches treats each prefix as a path segment boundary: /documents matches
// /documents and /documents/7 but not /documentsx.
func matches(path string, prefixes []string) bool {
	for _, p := range prefixes {
		p = strings.TrimSuffix(p, "/")
		if path == p || strings.HasPrefix(path, p+"/") {
			return true
		}
	}
	return false
}
