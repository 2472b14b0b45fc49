// Package common holds the dependency bundle and session helpers shared by
// all UI features.
package common

import (
	"log/slog"
	"net/http"
	"sync"

	"github.com/gorilla/sessions"

	"github.com/treeline-labs/treeline/internal/engine"
	"github.com/treeline-labs/treeline/internal/loader"
	"github.com/treeline-labs/treeline/internal/profile"
	"github.com/treeline-labs/treeline/internal/session"
	"github.com/treeline-labs/treeline/internal/ui/notifier"
	"github.com/treeline-labs/treeline/internal/ui/views"
	"github.com/treeline-labs/treeline/pkg/core"
)

// cookieName is the browser session cookie carrying host selection and
// flash messages.
const cookieName = "treeline"

// Deps is the dependency bundle passed to every feature's route setup.
type Deps struct {
	Engine       *engine.Engine
	Session      *session.Store
	History      core.Store
	Trees        *loader.Catalog
	SessionStore sessions.Store
	Notifier     *notifier.Notifier
	Views        *views.Views
	Logger       *slog.Logger

	// profiles is swapped by the file watcher while handlers read it.
	mu       sync.RWMutex
	profiles *profile.Profiles
}

// Profiles returns the current host inventory, possibly nil.
func (d *Deps) Profiles() *profile.Profiles {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.profiles
}

// SetProfiles replaces the host inventory.
func (d *Deps) SetProfiles(p *profile.Profiles) {
	d.mu.Lock()
	d.profiles = p
	d.mu.Unlock()
}

// Flash queues a one-shot message on the browser session.
func (d *Deps) Flash(w http.ResponseWriter, r *http.Request, msg string) {
	sess, _ := d.SessionStore.Get(r, cookieName)
	sess.AddFlash(msg)
	_ = sess.Save(r, w)
}

// PopFlash returns and clears the queued message, if any.
func (d *Deps) PopFlash(w http.ResponseWriter, r *http.Request) string {
	sess, _ := d.SessionStore.Get(r, cookieName)
	flashes := sess.Flashes()
	if len(flashes) == 0 {
		return ""
	}
	_ = sess.Save(r, w)
	if s, ok := flashes[0].(string); ok {
		return s
	}
	return ""
}

// SaveHostSelection remembers the operator's host and device choice.
func (d *Deps) SaveHostSelection(w http.ResponseWriter, r *http.Request, host, device string) {
	sess, _ := d.SessionStore.Get(r, cookieName)
	sess.Values["host"] = host
	sess.Values["device"] = device
	_ = sess.Save(r, w)
}

// HostSelection resolves the effective host and device: the request form
// wins, then the browser session, then the profile default.
func (d *Deps) HostSelection(r *http.Request) (host, device string) {
	host = r.FormValue("host")
	device = r.FormValue("device")

	sess, _ := d.SessionStore.Get(r, cookieName)
	if host == "" {
		host, _ = sess.Values["host"].(string)
	}
	if device == "" {
		device, _ = sess.Values["device"].(string)
	}

	if p := d.Profiles(); host == "" && p != nil {
		if def := p.DefaultHost(); def != nil {
			host = def.Name
			if device == "" && len(def.Devices) > 0 {
				device = def.Devices[0].ID
			}
		}
	}
	return host, device
}
