package commands

import (
	"context"
	"io"
	"os"

	"github.com/jrsteele09/go-platform-console/api"
	"github.com/jrsteele09/go-platform-console/internal/config"
	"github.com/jrsteele09/go-platform-console/internal/logger"
	"github.com/jrsteele09/go-platform-console/kvstore"
	"github.com/jrsteele09/go-platform-console/selection"
	"github.com/jrsteele09/go-platform-console/session"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

type Globals struct {
	Debug      bool
	Version    string
	ConfigPath string
	StateDir   string
	APIURL     string
	Ephemeral  bool

	// Out receives command output. Defaults to stdout.
	Out io.Writer
}

func (g *Globals) out() io.Writer {
	if g.Out == nil {
		return os.Stdout
	}
	return g.Out
}

func setupLogger(g *Globals) zerolog.Logger {
	return logger.SetupGlobal(g.Debug)
}

// console is the wired client core a command works against
type console struct {
	cfg       config.Config
	logger    zerolog.Logger
	store     *kvstore.Store
	client    *api.HTTPClient
	sessions  *session.Manager
	selection *selection.Context
	inbox     *selection.Inbox
}

// open builds the store, API client, session manager and selection context
// from the config file, environment and flags. The session is not
// bootstrapped.
func (g *Globals) open(ctx context.Context) (*console, error) {
	cfg, err := config.Load(g.ConfigPath)
	if err != nil {
		return nil, err
	}

	l := setupLogger(g)

	var store *kvstore.Store
	if g.Ephemeral {
		store = kvstore.NewMemory(kvstore.WithLogger(l))
	} else {
		dir := g.StateDir
		if dir == "" {
			dir = cfg.GetStateDir()
		}
		backend, err := kvstore.NewFileBackend(dir)
		if err != nil {
			return nil, errors.Wrap(err, "[Globals.open] state store")
		}
		store = kvstore.New(backend, kvstore.WithLogger(l))
	}

	baseURL := g.APIURL
	if baseURL == "" {
		baseURL = cfg.GetAPIBaseURL()
	}
	clientOptions := []api.HTTPClientOption{
		api.WithTimeout(cfg.GetHTTPTimeout()),
		api.WithMaxTries(cfg.GetRetryMaxTries()),
		api.WithLogger(l),
	}
	if dir := cfg.GetCacheDir(); dir != "" {
		clientOptions = append(clientOptions, api.WithCache(dir))
	}
	client, err := api.NewHTTPClient(baseURL, clientOptions...)
	if err != nil {
		return nil, err
	}

	sessions := session.New(client, store, session.WithLogger(l))
	inbox := &selection.Inbox{Next: selection.LogNotifier{Logger: l}}
	sel := selection.New(client, sessions, store,
		selection.WithContext(ctx),
		selection.WithLogger(l),
		selection.WithNotifier(inbox),
	)

	return &console{
		cfg:       cfg,
		logger:    l,
		store:     store,
		client:    client,
		sessions:  sessions,
		selection: sel,
		inbox:     inbox,
	}, nil
}

// bootstrap restores the persisted session and waits for the selection to
// settle
func (c *console) bootstrap(ctx context.Context) (session.Snapshot, error) {
	snap, err := c.sessions.Bootstrap(ctx)
	c.selection.Wait()
	return snap, err
}

// requireSession bootstraps and fails when nobody is logged in
func (c *console) requireSession(ctx context.Context) (session.Snapshot, error) {
	snap, err := c.bootstrap(ctx)
	if err != nil {
		return snap, err
	}
	if !snap.IsAuthenticated() {
		return snap, errNotLoggedIn
	}
	return snap, nil
}

func (c *console) close() {
	c.selection.Close()
}

// notice prints and dismisses the pending notification
func (c *console) notice(w io.Writer) {
	if n, ok := c.inbox.Last(); ok {
		fmtLine(w, "warning: %s", n.Message)
		c.inbox.Dismiss()
	}
}
