package pistream

import (
	"errors"
	"fmt"
	"sync"

	"github.com/brutella/hc/log"

	"github.com/ra1nb0w/pistream/ffmpeg"
)

// ErrBrightnessRange is returned for brightness values outside 0..100.
var ErrBrightnessRange = ffmpeg.ErrBrightnessRange

// Settings is the process-wide picture and illumination state.
type Settings struct {
	Brightness int
	Infrared   bool
}

// Update carries the fields of a settings change; nil fields are left alone.
type Update struct {
	Brightness *int  `json:"brightness"`
	Infrared   *bool `json:"ir"`
}

// Validate checks every present field before anything is applied.
func (u Update) Validate() error {
	if u.Brightness != nil && (*u.Brightness < 0 || *u.Brightness > 100) {
		return ErrBrightnessRange
	}
	return nil
}

// BrightnessSetter is implemented by the camera.
type BrightnessSetter interface {
	SetBrightness(level int) error
}

// InfraredSwitch turns the infrared illuminator on or off. Implementations
// deal with the pin polarity; callers only pass the logical state.
type InfraredSwitch interface {
	Enable(on bool) error
}

// Store persists the last applied settings.
type Store interface {
	SaveSettings(Settings) error
}

// Controller applies settings changes to the camera and the infrared
// illuminator. Concurrent updates are serialized, the last one wins.
type Controller struct {
	mutex     sync.Mutex
	current   Settings
	camera    BrightnessSetter
	infrared  InfraredSwitch
	store     Store
	listeners []func(Settings)
}

// NewController returns a controller starting from initial. The initial
// values are not pushed to the devices, call Restore for that.
func NewController(initial Settings, camera BrightnessSetter, infrared InfraredSwitch, store Store) *Controller {
	return &Controller{
		current:  initial,
		camera:   camera,
		infrared: infrared,
		store:    store,
	}
}

// OnChange registers fn to be called with the new settings after every
// successful update.
func (c *Controller) OnChange(fn func(Settings)) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.listeners = append(c.listeners, fn)
}

// Current returns a copy of the settings.
func (c *Controller) Current() Settings {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	return c.current
}

// Restore pushes the current settings to the devices, typically once at
// startup after they were loaded from the store. A device that fails does
// not keep the other one from being restored.
func (c *Controller) Restore() error {
	s := c.Current()
	return errors.Join(
		c.Apply(Update{Brightness: &s.Brightness}),
		c.Apply(Update{Infrared: &s.Infrared}),
	)
}

// Apply validates u and forwards every present field to its device. The
// stored settings only change for fields the device accepted; whatever was
// applied before a device failed is still saved and announced.
func (c *Controller) Apply(u Update) error {
	if err := u.Validate(); err != nil {
		return err
	}

	c.mutex.Lock()

	if u.Brightness != nil {
		if err := c.camera.SetBrightness(*u.Brightness); err != nil {
			c.mutex.Unlock()
			return fmt.Errorf("set brightness: %w", err)
		}
		c.current.Brightness = *u.Brightness
		log.Debug.Printf("brightness set to %d", *u.Brightness)
	}

	var applyErr error
	if u.Infrared != nil {
		if err := c.infrared.Enable(*u.Infrared); err != nil {
			applyErr = fmt.Errorf("set infrared: %w", err)
		} else {
			c.current.Infrared = *u.Infrared
			log.Debug.Printf("infrared enabled: %t", *u.Infrared)
		}
	}

	s := c.current
	listeners := append([]func(Settings){}, c.listeners...)
	c.mutex.Unlock()

	if applyErr != nil && u.Brightness == nil {
		return applyErr
	}

	if c.store != nil {
		if err := c.store.SaveSettings(s); err != nil {
			// the devices already changed, losing the saved copy is not fatal
			log.Info.Println("save settings:", err)
		}
	}

	for _, fn := range listeners {
		fn(s)
	}
	return applyErr
}
