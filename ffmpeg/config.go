package ffmpeg

// Config contains ffmpeg parameters
type Config struct {
	VideoDevice   string
	VideoFilename string
	Encoder       string
	Quality       int
	Width         int
	Height        int
	Framerate     int
}
