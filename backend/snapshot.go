package backend

import (
	"bytes"
	"fmt"
	"image/jpeg"
	"net/http"
	"strconv"

	"github.com/brutella/hc/log"
	"github.com/nfnt/resize"
	"github.com/patrickmn/go-cache"

	"github.com/ra1nb0w/pistream/broadcast"
)

// maxSnapshotWidth bounds the width a client may ask for.
const maxSnapshotWidth = 4096

func (b *Backend) getSnapshot(w http.ResponseWriter, r *http.Request) {
	frame := b.frames.Latest()
	if frame == nil {
		http.Error(w, "no frame captured yet", http.StatusServiceUnavailable)
		return
	}

	var width uint
	if v := r.URL.Query().Get("width"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 || n > maxSnapshotWidth {
			http.Error(w, "invalid width", http.StatusBadRequest)
			return
		}
		width = uint(n)
	}

	data := frame.Data
	if width > 0 {
		var err error
		if data, err = b.snapshot(frame, width); err != nil {
			log.Info.Println("snapshot:", err)
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
	}

	w.Header().Set("Content-Type", "image/jpeg")
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.Header().Set("Cache-Control", "no-cache, private")
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

// snapshot returns frame scaled to width, keeping the aspect ratio. Results
// are cached per frame and width so a burst of requests decodes the frame
// only once.
func (b *Backend) snapshot(frame *broadcast.Frame, width uint) ([]byte, error) {
	key := fmt.Sprintf("%d/%d", frame.Seq, width)
	if img, found := b.snapCache.Get(key); found {
		log.Debug.Println("Return a cached snapshot")
		return img.([]byte), nil
	}

	img, err := jpeg.Decode(bytes.NewReader(frame.Data))
	if err != nil {
		return nil, fmt.Errorf("decode frame: %w", err)
	}

	// height 0 keeps the aspect ratio
	scaled := resize.Resize(width, 0, img, resize.Bilinear)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, scaled, &jpeg.Options{Quality: 85}); err != nil {
		return nil, fmt.Errorf("encode snapshot: %w", err)
	}

	b.snapCache.Set(key, buf.Bytes(), cache.DefaultExpiration)
	return buf.Bytes(), nil
}
