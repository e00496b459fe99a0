// Package broadcast shares the latest camera frame with any number of readers.
//
// A single producer publishes complete JPEG frames into one slot. Readers
// wait on the slot and always get the most recent frame when they wake up;
// frames published while a reader was busy are skipped, never queued.
package broadcast

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrClosed is returned by Cursor.Next once the broadcaster is closed.
var ErrClosed = errors.New("broadcaster closed")

// Frame is one complete JPEG image. Data must not be modified after publish.
type Frame struct {
	Seq  uint64
	Data []byte
	Time time.Time
}

// Broadcaster is a single-slot, last-value-wins frame broadcast.
type Broadcaster struct {
	mu     sync.Mutex
	cond   *sync.Cond
	latest *Frame
	seq    uint64
	closed bool
}

// New returns an empty broadcaster.
func New() *Broadcaster {
	b := &Broadcaster{}
	b.cond = sync.NewCond(&b.mu)
	return b
}

// Publish replaces the latest frame with data and wakes every waiting reader.
// It never waits for readers. Publishing after Close is a no-op.
func (b *Broadcaster) Publish(data []byte) {
	now := time.Now()

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	b.seq++
	b.latest = &Frame{Seq: b.seq, Data: data, Time: now}
	b.cond.Broadcast()
}

// Latest returns the current frame, or nil before the first publish.
func (b *Broadcaster) Latest() *Frame {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.latest
}

// Close wakes all readers; their pending and future Next calls return ErrClosed.
func (b *Broadcaster) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	b.closed = true
	b.cond.Broadcast()
}

// Subscribe returns a cursor positioned at the current frame: its first Next
// returns the next frame to be published.
func (b *Broadcaster) Subscribe() *Cursor {
	b.mu.Lock()
	defer b.mu.Unlock()

	return &Cursor{b: b, seq: b.seq}
}

// Cursor is one reader's position in the broadcast. It is not safe for
// concurrent use; every connection owns its own cursor.
type Cursor struct {
	b       *Broadcaster
	seq     uint64
	dropped uint64
}

// Next blocks until a frame newer than the last one returned is available and
// returns the latest frame at wake time. If the reader fell behind it gets the
// newest frame immediately and the frames in between are dropped.
func (c *Cursor) Next(ctx context.Context) (*Frame, error) {
	b := c.b

	// sync.Cond has no cancellation, so wake every waiter when ctx ends and
	// let each one re-check its own context.
	stop := context.AfterFunc(ctx, func() {
		b.mu.Lock()
		b.cond.Broadcast()
		b.mu.Unlock()
	})
	defer stop()

	b.mu.Lock()
	defer b.mu.Unlock()

	for b.seq <= c.seq && !b.closed {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		b.cond.Wait()
	}
	if b.closed {
		return nil, ErrClosed
	}

	f := b.latest
	c.dropped += f.Seq - c.seq - 1
	c.seq = f.Seq
	return f, nil
}

// Dropped returns the number of frames this cursor skipped so far.
func (c *Cursor) Dropped() uint64 {
	return c.dropped
}
