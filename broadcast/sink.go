package broadcast

import "bytes"

// soi is the JPEG start-of-image marker.
var soi = []byte{0xFF, 0xD8}

// Sink assembles the encoder byte stream into frames and publishes them.
//
// The encoder must hand over chunks in order and every new image must start
// at the beginning of a chunk. Bytes received before the first marker are a
// partial leading frame and are discarded.
//
// Sink is owned by the producer goroutine and is not safe for concurrent use.
type Sink struct {
	b       *Broadcaster
	buf     bytes.Buffer
	started bool
}

// NewSink returns a sink publishing into b.
func NewSink(b *Broadcaster) *Sink {
	return &Sink{b: b}
}

// Write implements io.Writer. It never fails.
func (s *Sink) Write(p []byte) (int, error) {
	if bytes.HasPrefix(p, soi) {
		if s.started {
			s.publish()
		}
		s.buf.Reset()
		s.started = true
	}
	if s.started {
		s.buf.Write(p)
	}
	return len(p), nil
}

// Flush publishes the frame being assembled, if any. The encoder calls it
// when its stream ends so the last image is not lost.
func (s *Sink) Flush() {
	if s.started && s.buf.Len() > 0 {
		s.publish()
	}
	s.buf.Reset()
	s.started = false
}

func (s *Sink) publish() {
	// the buffer is reused for the next frame, readers get their own copy
	frame := make([]byte, s.buf.Len())
	copy(frame, s.buf.Bytes())
	s.b.Publish(frame)
}
