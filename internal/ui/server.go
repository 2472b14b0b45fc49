// Package ui provides the web control panel for validation runs.
package ui

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/sessions"
	"golang.org/x/sync/errgroup"

	"github.com/treeline-labs/treeline/internal/engine"
	"github.com/treeline-labs/treeline/internal/loader"
	"github.com/treeline-labs/treeline/internal/profile"
	"github.com/treeline-labs/treeline/internal/session"
	"github.com/treeline-labs/treeline/internal/ui/features/common"
	"github.com/treeline-labs/treeline/internal/ui/notifier"
	"github.com/treeline-labs/treeline/internal/ui/resources"
	"github.com/treeline-labs/treeline/internal/ui/router"
	"github.com/treeline-labs/treeline/internal/ui/views"
	"github.com/treeline-labs/treeline/pkg/core"
)

// Server is the UI server.
type Server struct {
	deps        *common.Deps
	port        int
	watch       bool
	treesDir    string
	profilePath string
	logger      *slog.Logger
	notifier    *notifier.Notifier
}

// Config holds configuration for the UI server.
type Config struct {
	Engine        *engine.Engine
	Session       *session.Store
	History       core.Store
	Trees         *loader.Catalog
	Profiles      *profile.Profiles
	Port          int
	Watch         bool
	TreesDir      string
	ProfilePath   string
	SessionSecret string
	Logger        *slog.Logger
}

// NewServer creates a UI server. The session store's notifier is wired here
// so engine mutations reach connected browsers.
func NewServer(cfg Config) (*Server, error) {
	v, err := views.New()
	if err != nil {
		return nil, err
	}

	sessionStore := sessions.NewCookieStore([]byte(cfg.SessionSecret))
	sessionStore.MaxAge(86400 * 30)
	sessionStore.Options.Path = "/"
	sessionStore.Options.HttpOnly = true
	sessionStore.Options.SameSite = http.SameSiteLaxMode

	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	n := notifier.New()
	cfg.Session.SetNotifier(n)

	deps := &common.Deps{
		Engine:       cfg.Engine,
		Session:      cfg.Session,
		History:      cfg.History,
		Trees:        cfg.Trees,
		SessionStore: sessionStore,
		Notifier:     n,
		Views:        v,
		Logger:       logger,
	}
	deps.SetProfiles(cfg.Profiles)

	return &Server{
		deps:        deps,
		port:        cfg.Port,
		watch:       cfg.Watch,
		treesDir:    cfg.TreesDir,
		profilePath: cfg.ProfilePath,
		logger:      logger,
		notifier:    n,
	}, nil
}

// Notifier returns the server's notifier for SSE updates.
func (s *Server) Notifier() *notifier.Notifier {
	return s.notifier
}

// Serve starts the UI server and blocks until the context is cancelled.
func (s *Server) Serve(ctx context.Context) error {
	addr := fmt.Sprintf(":%d", s.port)
	s.logger.Info("starting UI server", "addr", fmt.Sprintf("http://localhost:%d", s.port))

	eg, egctx := errgroup.WithContext(ctx)

	r := chi.NewMux()
	r.Use(
		middleware.Logger,
		middleware.Recoverer,
		middleware.Compress(5),
	)

	bundle, err := resources.BuildBundle(!resources.IsDev())
	if err != nil {
		// The UI degrades without the glue bundle but stays usable.
		s.logger.Warn("client bundle build failed", "error", err)
		bundle = nil
	}

	if err := router.SetupRoutes(r, s.deps, bundle, resources.IsDev()); err != nil {
		return fmt.Errorf("failed to setup routes: %w", err)
	}

	srv := &http.Server{
		Addr:    addr,
		Handler: r,
		BaseContext: func(_ net.Listener) context.Context {
			return egctx
		},
		ReadHeaderTimeout: 10 * time.Second,
	}

	if s.watch {
		eg.Go(func() error {
			return s.watchFiles(egctx)
		})
	}

	eg.Go(func() error {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	eg.Go(func() error {
		<-egctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		s.logger.Debug("shutting down UI server...")
		return srv.Shutdown(shutdownCtx)
	})

	return eg.Wait()
}

// watchFiles reloads tree snapshots and host profiles when they change on
// disk, then pings connected browsers.
func (s *Server) watchFiles(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer func() { _ = watcher.Close() }()

	if s.treesDir != "" {
		if err := watcher.Add(s.treesDir); err != nil {
			s.logger.Error("failed to watch trees directory", "error", err)
		}
	}
	if s.profilePath != "" {
		// Watch the parent so editor rename-on-save is seen.
		if err := watcher.Add(filepath.Dir(s.profilePath)); err != nil {
			s.logger.Error("failed to watch profile file", "error", err)
		}
	}

	var debounceTimer *time.Timer

	for {
		select {
		case <-ctx.Done():
			return nil

		case event := <-watcher.Events:
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			ext := filepath.Ext(event.Name)
			if ext != ".yaml" && ext != ".yml" && ext != ".star" {
				continue
			}

			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			name := event.Name
			debounceTimer = time.AfterFunc(100*time.Millisecond, func() {
				s.logger.Debug("file changed, reloading", "file", name)
				s.reload(name)
				s.notifier.Broadcast()
			})

		case err := <-watcher.Errors:
			s.logger.Error("watcher error", "error", err)
		}
	}
}

func (s *Server) reload(changed string) {
	if filepath.Ext(changed) == ".star" {
		profiles, err := profile.Load(s.profilePath)
		if err != nil {
			s.logger.Error("profile reload failed", "error", err)
			return
		}
		s.deps.SetProfiles(profiles)
		return
	}
	if err := s.deps.Trees.Reload(); err != nil {
		s.logger.Error("tree reload failed", "error", err)
	}
}
