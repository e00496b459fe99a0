package ffmpeg

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// soi is the JPEG start-of-image marker.
var soi = []byte{0xFF, 0xD8}

// captureArgs builds the ffmpeg command line writing MJPEG to stdout.
func captureArgs(cfg Config) []string {
	arg := "-hide_banner -loglevel error" +
		fmt.Sprintf(" -f %s", cfg.VideoDevice) +
		fmt.Sprintf(" -framerate %d", framerate(cfg)) +
		fmt.Sprintf(" -video_size %dx%d", cfg.Width, cfg.Height)

	if cfg.Encoder == "copy" && cfg.VideoDevice == "v4l2" {
		// let the camera do the encoding
		arg += " -input_format mjpeg"
	}

	arg += fmt.Sprintf(" -i %s", cfg.VideoFilename) +
		" -an" +
		fmt.Sprintf(" -codec:v %s", encoder(cfg))

	if encoder(cfg) != "copy" {
		arg += fmt.Sprintf(" -q:v %d", quality(cfg))
	}

	arg += " -f mjpeg pipe:1"

	return strings.Split(arg, " ")
}

func framerate(cfg Config) int {
	if cfg.VideoDevice == "avfoundation" {
		// avfoundation only supports 30 fps on most macs
		return 30
	}
	if cfg.Framerate <= 0 {
		return 24
	}
	return cfg.Framerate
}

func encoder(cfg Config) string {
	if cfg.Encoder == "" {
		return "mjpeg"
	}
	return cfg.Encoder
}

// quality is the mjpeg qscale, 2 is best and 31 worst.
func quality(cfg Config) int {
	switch {
	case cfg.Quality < 2:
		return 2
	case cfg.Quality > 31:
		return 31
	}
	return cfg.Quality
}

// splitFrames is a bufio.SplitFunc that cuts the MJPEG stream right before
// every start-of-image marker, so each token begins a new image. Bytes before
// the first marker come out as tokens of their own.
func splitFrames(data []byte, atEOF bool) (advance int, token []byte, err error) {
	if atEOF && len(data) == 0 {
		return 0, nil, nil
	}

	start := bytes.Index(data, soi)
	switch {
	case start > 0:
		return start, data[:start], nil
	case start < 0:
		if atEOF {
			return len(data), data, nil
		}
		// the last byte may be the first half of a marker
		if len(data) > 1 {
			return len(data) - 1, data[:len(data)-1], nil
		}
		return 0, nil, nil
	}

	if next := bytes.Index(data[len(soi):], soi); next >= 0 {
		end := next + len(soi)
		return end, data[:end], nil
	}
	if atEOF {
		return len(data), data, nil
	}

	// Request more data.
	return 0, nil, nil
}

// v4l2Control sets a camera control through v4l2-ctl.
func v4l2Control(device, name string, value int) error {
	ctx, cancel := context.WithTimeout(context.Background(), 3000*time.Millisecond)
	defer cancel()

	out, err := exec.CommandContext(ctx, "v4l2-ctl", "-d", device,
		"--set-ctrl", fmt.Sprintf("%s=%d", name, value)).CombinedOutput()
	if err != nil {
		return fmt.Errorf("v4l2-ctl %s=%d: %w: %s", name, value, err, strings.TrimSpace(string(out)))
	}
	return nil
}
