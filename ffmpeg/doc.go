// Package ffmpeg captures the camera as an MJPEG stream through ffmpeg.
//
// This package requires the `ffmpeg` command line tool to be installed. Install by running
// - `sudo apt install ffmpeg` on Raspberry Pi OS
// - `sudo port install ffmpeg` on macOS
//
// Brightness control on linux uses `v4l2-ctl` from the v4l-utils package.
package ffmpeg
