package main

import (
	"context"
	"flag"
	"os"
	"sync"
	"time"

	"github.com/brutella/hc"
	"github.com/brutella/hc/accessory"
	"github.com/brutella/hc/log"

	"github.com/ra1nb0w/pistream"
	"github.com/ra1nb0w/pistream/backend"
	"github.com/ra1nb0w/pistream/broadcast"
	"github.com/ra1nb0w/pistream/config"
	"github.com/ra1nb0w/pistream/ffmpeg"

	"net/http"
	_ "net/http/pprof"
)

// app holds everything that lives as long as the process.
type app struct {
	cfg      *config.Config
	frames   *broadcast.Broadcaster
	camera   ffmpeg.Camera
	infrared *pistream.Infrared
	store    *backend.Store
	settings *pistream.Controller
	web      *backend.Backend
	watcher  *config.Watcher
	homekit  hc.Transport

	stopOnce sync.Once
	exit     chan int
}

func main() {
	var configFile *string = flag.String("config", "settings.yaml", "Path to the configuration file")
	var verbose *bool = flag.Bool("verbose", false, "Verbose logging")
	var profile *bool = flag.Bool("profile", false, "Enable http pprof")
	var profile_addr *string = flag.String("profile_addr", "localhost:8383", "pprof address:port")

	flag.Parse()

	if *verbose {
		log.Debug.Enable()
		ffmpeg.EnableVerboseLogging()
	}

	// nothing is opened before the configuration is known to be good
	cfg, err := config.Load(*configFile)
	if err != nil {
		log.Info.Fatalf("configuration: %v", err)
	}
	log.Info.Println("Initializing stream: " + cfg.General.Name)

	a := &app{cfg: cfg, frames: broadcast.New(), exit: make(chan int, 2)}
	if err := a.setup(*configFile); err != nil {
		a.teardown()
		log.Info.Fatalln(err)
	}

	// enable pprof
	if *profile {
		log.Debug.Println("Start pprof at " + *profile_addr)
		go http.ListenAndServe(*profile_addr, nil)
	}

	// close all connection when exit
	hc.OnTermination(func() {
		a.teardown()
		a.exit <- 0
	})

	go a.watchCamera()

	if a.homekit != nil {
		go a.homekit.Start()
	}

	if err := a.web.StartWebService(); err != nil {
		a.teardown()
		log.Info.Fatalln(err)
	}
	// the server only returns cleanly once teardown started
	os.Exit(<-a.exit)
}

// setup builds the application in dependency order.
func (a *app) setup(configFile string) error {
	cfg := a.cfg

	var err error
	a.store, err = backend.OpenStore(cfg.Storage.Database)
	if err != nil {
		return err
	}

	initial := pistream.Settings{Brightness: cfg.Camera.Brightness}
	if saved, ok, err := a.store.LoadSettings(); err != nil {
		log.Info.Println("load saved settings:", err)
	} else if ok {
		log.Debug.Printf("restoring saved settings %+v", saved)
		initial = saved
	}

	a.infrared, err = pistream.OpenInfrared(cfg.Infrared.GPIO, cfg.Infrared.ActiveLow)
	if err != nil {
		return err
	}

	a.camera = ffmpeg.New(ffmpeg.Config{
		VideoDevice:   cfg.Camera.VideoDevice,
		VideoFilename: cfg.Camera.VideoFilename,
		Encoder:       cfg.Camera.Encoder,
		Quality:       cfg.Camera.Quality,
		Width:         cfg.Stream.Resolution.Width,
		Height:        cfg.Stream.Resolution.Height,
		Framerate:     cfg.Stream.Framerate,
	})
	if err := a.camera.Start(broadcast.NewSink(a.frames)); err != nil {
		return err
	}

	a.settings = pistream.NewController(initial, a.camera, a.infrared, a.store)
	if err := a.settings.Restore(); err != nil {
		log.Info.Println("restore settings:", err)
	}

	a.web = backend.InitBackend(cfg.Addr(), a.frames, a.settings, pageOf(cfg), cfg.Storage.SnapshotCache)

	a.watcher, err = config.NewWatcher(configFile, time.Second, a.reload)
	if err != nil {
		log.Info.Println("configuration will not be reloaded:", err)
	} else {
		a.watcher.Start()
	}

	if cfg.HomeKit.Enabled {
		acc := pistream.NewCamera(accessory.Info{
			Name:             cfg.General.Name,
			FirmwareRevision: "1.0",
			SerialNumber:     "l33t",
			Manufacturer:     "Davide Gerhard",
			Model:            "PiStream",
		})
		acc.Bind(a.settings)

		a.homekit, err = hc.NewIPTransport(hc.Config{Pin: cfg.HomeKit.Pin, StoragePath: cfg.HomeKit.DataDir}, acc.Accessory)
		if err != nil {
			return err
		}
	}

	return nil
}

func (a *app) reload(next *config.Config) {
	if a.cfg.NeedsRestart(next) {
		log.Info.Println("configuration changed, stream, camera, infrared, homekit and storage changes need a restart")
	}
	a.web.SetPage(pageOf(next))
}

// watchCamera stops the service when the camera dies: a server without
// frames is useless.
func (a *app) watchCamera() {
	err := <-a.camera.Done()
	if err == nil {
		return
	}
	log.Info.Println("camera failure:", err)
	a.teardown()
	a.exit <- 1
}

// teardown releases everything setup acquired. It is safe to call on a
// partially built app and more than once.
func (a *app) teardown() {
	a.stopOnce.Do(func() {
		log.Info.Println("Shutting down")

		// wake every streaming client first so the server can drain
		a.frames.Close()

		if a.web != nil {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			if err := a.web.StopWebService(ctx); err != nil {
				log.Info.Println("stop web service:", err)
			}
			cancel()
		}
		if a.homekit != nil {
			<-a.homekit.Stop()
		}
		if a.watcher != nil {
			a.watcher.Stop()
		}
		if a.camera != nil {
			a.camera.Stop()
		}
		if a.infrared != nil {
			a.infrared.Close()
		}
		if a.store != nil {
			a.store.Close()
		}
	})
}

func pageOf(cfg *config.Config) backend.Page {
	return backend.Page{
		Title:      cfg.General.Name,
		Width:      cfg.Stream.Resolution.Width,
		Height:     cfg.Stream.Resolution.Height,
		Background: cfg.Theme.Background,
		Border:     cfg.Theme.Border,
	}
}
