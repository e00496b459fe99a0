package backend

import (
	"context"
	"errors"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/brutella/hc/log"
	"github.com/patrickmn/go-cache"

	"github.com/ra1nb0w/pistream"
	"github.com/ra1nb0w/pistream/broadcast"
)

// SettingsApplier applies a settings change coming from the page.
type SettingsApplier interface {
	Apply(pistream.Update) error
}

// Backend is the HTTP side of the camera: the page, the MJPEG stream, the
// snapshot and the settings endpoint.
type Backend struct {
	inetAddr  string
	frames    *broadcast.Broadcaster
	settings  SettingsApplier
	page      atomic.Pointer[Page]
	snapCache *cache.Cache
	server    *http.Server
	clients   atomic.Int64
}

// InitBackend returns a backend serving frames from the broadcaster and
// forwarding settings changes to settings. Snapshots are cached for snapTTL.
func InitBackend(inetAddr string, frames *broadcast.Broadcaster, settings SettingsApplier, page Page, snapTTL time.Duration) *Backend {
	b := &Backend{
		inetAddr:  inetAddr,
		frames:    frames,
		settings:  settings,
		snapCache: cache.New(snapTTL, 2*snapTTL),
	}
	b.page.Store(&page)
	b.server = &http.Server{
		Addr:              inetAddr,
		Handler:           b,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return b
}

// SetPage replaces the values rendered into the page and the stylesheet.
func (b *Backend) SetPage(p Page) {
	b.page.Store(&p)
	log.Debug.Printf("page updated: %+v", p)
}

// Clients returns the number of connected streaming clients.
func (b *Backend) Clients() int {
	return int(b.clients.Load())
}

func (b *Backend) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch route := r.Method + " " + r.URL.Path; route {
	case "GET /":
		http.Redirect(w, r, "/index.html", http.StatusMovedPermanently)
	case "GET /index.html":
		b.getIndex(w, r)
	case "GET /style.css":
		b.getStyle(w, r)
	case "GET /stream.mjpg":
		b.getStream(w, r)
	case "GET /snapshot.jpg":
		b.getSnapshot(w, r)
	case "POST /settings":
		b.postSettings(w, r)
	default:
		log.Debug.Printf("WebService: %s not found", route)
		http.NotFound(w, r)
	}
}

// StartWebService listens on the configured address until StopWebService.
func (b *Backend) StartWebService() error {
	log.Info.Println("Backend is listening at " + b.inetAddr)

	err := b.server.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// StopWebService stops accepting connections and waits for the running
// requests until ctx expires, then closes whatever is left. Streaming
// clients only leave once the broadcaster is closed.
func (b *Backend) StopWebService(ctx context.Context) error {
	err := b.server.Shutdown(ctx)
	if errors.Is(err, context.DeadlineExceeded) {
		log.Info.Println("forcing the remaining connections closed")
		return b.server.Close()
	}
	return err
}
