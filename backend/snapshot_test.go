package backend

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"net/http"
	"path/filepath"
	"testing"

	"github.com/ra1nb0w/pistream"
)

func testJPEG(t *testing.T, w, h int) []byte {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.RGBA{uint8(x), uint8(y), 128, 255})
		}
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, nil); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestSnapshotBeforeFirstFrame(t *testing.T) {
	rec := newFixture().do(http.MethodGet, "/snapshot.jpg", "")
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}
}

func TestSnapshotLatestFrame(t *testing.T) {
	f := newFixture()
	frame := testJPEG(t, 64, 48)
	f.frames.Publish(frame)

	rec := f.do(http.MethodGet, "/snapshot.jpg", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "image/jpeg" {
		t.Errorf("Content-Type: %q", ct)
	}
	if !bytes.Equal(rec.Body.Bytes(), frame) {
		t.Error("snapshot is not the latest frame")
	}
}

func TestSnapshotResized(t *testing.T) {
	f := newFixture()
	f.frames.Publish(testJPEG(t, 64, 48))

	rec := f.do(http.MethodGet, "/snapshot.jpg?width=32", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	img, err := jpeg.Decode(bytes.NewReader(rec.Body.Bytes()))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 32 || b.Dy() != 24 {
		t.Errorf("expected 32x24, got %dx%d", b.Dx(), b.Dy())
	}

	again := f.do(http.MethodGet, "/snapshot.jpg?width=32", "")
	if !bytes.Equal(again.Body.Bytes(), rec.Body.Bytes()) {
		t.Error("same frame was not served from the cache")
	}

	// a new frame replaces the cached one right away
	f.frames.Publish(testJPEG(t, 64, 64))
	fresh := f.do(http.MethodGet, "/snapshot.jpg?width=32", "")
	img, err = jpeg.Decode(bytes.NewReader(fresh.Body.Bytes()))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 32 || b.Dy() != 32 {
		t.Errorf("expected the new 32x32 frame, got %dx%d", b.Dx(), b.Dy())
	}
}

func TestSnapshotBadWidth(t *testing.T) {
	f := newFixture()
	f.frames.Publish(testJPEG(t, 8, 8))

	for _, q := range []string{"abc", "0", "-5", "100000"} {
		rec := f.do(http.MethodGet, "/snapshot.jpg?width="+q, "")
		if rec.Code != http.StatusBadRequest {
			t.Errorf("width=%s: expected 400, got %d", q, rec.Code)
		}
	}
}

func TestStoreRoundTrip(t *testing.T) {
	s, err := OpenStore(filepath.Join(t.TempDir(), "settings.sqlite"))
	if err != nil {
		t.Fatalf("OpenStore: %v", err)
	}
	defer s.Close()

	if _, ok, err := s.LoadSettings(); err != nil || ok {
		t.Fatalf("empty store: ok=%t err=%v", ok, err)
	}

	for _, want := range []pistream.Settings{
		{Brightness: 60, Infrared: true},
		{Brightness: 20, Infrared: false},
	} {
		if err := s.SaveSettings(want); err != nil {
			t.Fatalf("SaveSettings: %v", err)
		}
		got, ok, err := s.LoadSettings()
		if err != nil || !ok {
			t.Fatalf("LoadSettings: ok=%t err=%v", ok, err)
		}
		if got != want {
			t.Errorf("got %+v, want %+v", got, want)
		}
	}
}

func TestStoreReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.sqlite")

	s, err := OpenStore(path)
	if err != nil {
		t.Fatal(err)
	}
	s.SaveSettings(pistream.Settings{Brightness: 70, Infrared: true})
	s.Close()

	s, err = OpenStore(path)
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	got, ok, err := s.LoadSettings()
	if err != nil || !ok || got != (pistream.Settings{Brightness: 70, Infrared: true}) {
		t.Errorf("got %+v ok=%t err=%v", got, ok, err)
	}
}
