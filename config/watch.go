package config

import (
	"time"

	"github.com/brutella/hc/log"
	"github.com/radovskyb/watcher"
)

// Watcher reloads the configuration file whenever it changes on disk.
type Watcher struct {
	path     string
	interval time.Duration
	w        *watcher.Watcher
	onChange func(*Config)
}

// NewWatcher polls path every interval and calls onChange with every new
// configuration that parses and validates. Broken edits are logged and
// ignored, the previous configuration stays active.
func NewWatcher(path string, interval time.Duration, onChange func(*Config)) (*Watcher, error) {
	w := watcher.New()
	w.SetMaxEvents(1)
	w.FilterOps(watcher.Write, watcher.Create)

	if err := w.Add(path); err != nil {
		return nil, err
	}

	return &Watcher{
		path:     path,
		interval: interval,
		w:        w,
		onChange: onChange,
	}, nil
}

// Start runs the polling loop in the background and returns once the
// watcher is active.
func (cw *Watcher) Start() {
	go cw.loop()
	go func() {
		if err := cw.w.Start(cw.interval); err != nil {
			log.Info.Println("config watcher:", err)
		}
	}()
	cw.w.Wait()
}

func (cw *Watcher) loop() {
	for {
		select {
		case event := <-cw.w.Event:
			log.Debug.Println("config changed:", event)
			cfg, err := Load(cw.path)
			if err != nil {
				log.Info.Println("ignoring config change:", err)
				continue
			}
			cw.onChange(cfg)
		case err := <-cw.w.Error:
			log.Info.Println("config watcher:", err)
		case <-cw.w.Closed:
			return
		}
	}
}

// Stop ends the polling loop.
func (cw *Watcher) Stop() {
	cw.w.Close()
}
