package ffmpeg

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"
	"syscall"
	"time"

	"github.com/brutella/hc/log"
)

// maxFrameSize bounds a single JPEG image read from the pipe.
const maxFrameSize = 8 << 20

// stopTimeout is how long Stop waits for ffmpeg to exit after SIGINT.
const stopTimeout = 3 * time.Second

var (
	ErrRunning         = errors.New("camera is already running")
	ErrBrightnessRange = errors.New("brightness must be between 0 and 100")
)

// FrameWriter receives the encoder output. Every Write starts with a new
// JPEG image; Flush is called once when the stream ends.
type FrameWriter interface {
	io.Writer
	Flush()
}

// Camera lets you capture the video stream and change the picture settings.
type Camera interface {
	Start(FrameWriter) error
	Stop()
	Done() <-chan error
	SetBrightness(level int) error
	Brightness() int
}

var Stderr = io.Discard

// EnableVerboseLogging forwards the ffmpeg diagnostics to stderr.
func EnableVerboseLogging() {
	Stderr = os.Stderr
}

type ffmpeg struct {
	cfg        Config
	mutex      *sync.Mutex
	cmd        *exec.Cmd
	done       chan error
	stopping   bool
	brightness int
	setControl func(device, name string, value int) error
}

// New returns a new ffmpeg handle to start and stop the capture.
func New(cfg Config) *ffmpeg {
	return &ffmpeg{
		cfg:        cfg,
		mutex:      &sync.Mutex{},
		brightness: -1,
		setControl: v4l2Control,
	}
}

// Start runs ffmpeg and writes every captured frame into out. It returns as
// soon as the process is running; the end of the capture is reported on Done.
func (f *ffmpeg) Start(out FrameWriter) error {
	f.mutex.Lock()
	defer f.mutex.Unlock()

	if f.cmd != nil {
		return ErrRunning
	}

	cmd := exec.Command("ffmpeg", captureArgs(f.cfg)...)
	cmd.Stderr = Stderr
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return err
	}

	log.Debug.Println(cmd)

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start ffmpeg: %w", err)
	}

	done := make(chan error, 1)
	f.cmd = cmd
	f.done = done
	f.stopping = false

	go f.pump(cmd, stdout, out, done)
	return nil
}

// pump copies frames from the ffmpeg pipe until it closes.
func (f *ffmpeg) pump(cmd *exec.Cmd, stdout io.Reader, out FrameWriter, done chan error) {
	scanner := bufio.NewScanner(stdout)
	scanner.Buffer(make([]byte, 0, 512*1024), maxFrameSize)
	scanner.Split(splitFrames)

	for scanner.Scan() {
		out.Write(scanner.Bytes())
	}
	out.Flush()

	scanErr := scanner.Err()
	if scanErr != nil {
		// nobody reads the pipe anymore, ffmpeg would block forever
		cmd.Process.Kill()
	}
	waitErr := cmd.Wait()

	f.mutex.Lock()
	stopping := f.stopping
	f.cmd = nil
	f.mutex.Unlock()

	switch {
	case stopping:
		done <- nil
	case scanErr != nil:
		done <- fmt.Errorf("camera stream: %w", scanErr)
	case waitErr != nil:
		done <- fmt.Errorf("camera stopped: %w", waitErr)
	default:
		done <- fmt.Errorf("camera stopped: %w", io.ErrUnexpectedEOF)
	}
	close(done)
}

// Done returns a channel that receives nil after Stop, or the reason the
// capture died on its own.
func (f *ffmpeg) Done() <-chan error {
	f.mutex.Lock()
	defer f.mutex.Unlock()

	return f.done
}

// Stop interrupts ffmpeg and waits for it to exit.
func (f *ffmpeg) Stop() {
	f.mutex.Lock()
	cmd := f.cmd
	done := f.done
	if cmd == nil {
		f.mutex.Unlock()
		return
	}
	f.stopping = true
	f.mutex.Unlock()

	log.Debug.Println("stop camera")

	cmd.Process.Signal(syscall.SIGINT)
	select {
	case <-done:
	case <-time.After(stopTimeout):
		log.Info.Println("ffmpeg ignored SIGINT, killing it")
		cmd.Process.Kill()
		<-done
	}
}

// SetBrightness changes the camera brightness, 0 is darkest and 100 brightest.
func (f *ffmpeg) SetBrightness(level int) error {
	if level < 0 || level > 100 {
		return ErrBrightnessRange
	}

	f.mutex.Lock()
	defer f.mutex.Unlock()

	if f.cfg.VideoDevice != "v4l2" {
		log.Debug.Printf("brightness control is not supported with %s", f.cfg.VideoDevice)
	} else if err := f.setControl(f.cfg.VideoFilename, "brightness", level); err != nil {
		return err
	}

	f.brightness = level
	return nil
}

// Brightness returns the last brightness applied, -1 if never set.
func (f *ffmpeg) Brightness() int {
	f.mutex.Lock()
	defer f.mutex.Unlock()

	return f.brightness
}
