package backend

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/brutella/hc/log"
	"github.com/google/uuid"

	"github.com/ra1nb0w/pistream/broadcast"
)

const boundary = "FRAME"

// ClientGoneError reports that a streaming client can no longer be written to.
type ClientGoneError struct {
	Addr string
	Err  error
}

func (e *ClientGoneError) Error() string {
	return fmt.Sprintf("client %s gone: %v", e.Addr, e.Err)
}

func (e *ClientGoneError) Unwrap() error {
	return e.Err
}

func (b *Backend) getStream(w http.ResponseWriter, r *http.Request) {
	id := uuid.NewString()

	h := w.Header()
	h.Set("Age", "0")
	h.Set("Cache-Control", "no-cache, private")
	h.Set("Pragma", "no-cache")
	h.Set("Content-Type", "multipart/x-mixed-replace; boundary="+boundary)
	w.WriteHeader(http.StatusOK)

	rc := http.NewResponseController(w)
	if err := rc.Flush(); err != nil {
		log.Info.Printf("Streaming client %s (%s) not supported: %v", r.RemoteAddr, id, err)
		return
	}

	cursor := b.frames.Subscribe()
	n := b.clients.Add(1)
	defer b.clients.Add(-1)
	log.Debug.Printf("Added streaming client %s (%s), %d connected", r.RemoteAddr, id, n)

	for {
		frame, err := cursor.Next(r.Context())
		if errors.Is(err, broadcast.ErrClosed) {
			log.Debug.Printf("Closing streaming client %s (%s): server stopping", r.RemoteAddr, id)
			return
		}
		if err == nil {
			err = writeFrame(w, rc, r.RemoteAddr, frame.Data)
		}
		if err != nil {
			// a cancelled request context means the client left as well
			log.Info.Printf("Removed streaming client %s (%s): %v (%d frames dropped)",
				r.RemoteAddr, id, err, cursor.Dropped())
			return
		}
	}
}

// writeFrame sends one multipart part. Any failure means the client is gone.
func writeFrame(w http.ResponseWriter, rc *http.ResponseController, addr string, data []byte) error {
	_, err := fmt.Fprintf(w, "--%s\r\nContent-Type: image/jpeg\r\nContent-Length: %d\r\n\r\n", boundary, len(data))
	if err == nil {
		_, err = w.Write(data)
	}
	if err == nil {
		_, err = w.Write([]byte("\r\n"))
	}
	if err == nil {
		err = rc.Flush()
	}
	if err != nil {
		return &ClientGoneError{Addr: addr, Err: err}
	}
	return nil
}
