package pistream

import (
	"github.com/brutella/hc/accessory"
	"github.com/brutella/hc/characteristic"
	"github.com/brutella/hc/log"
	"github.com/brutella/hc/service"
)

// Camera exposes the camera controls to HomeKit: a switch for the infrared
// illuminator and a lightbulb whose brightness is the picture brightness.
type Camera struct {
	*accessory.Accessory
	Infrared   *service.Switch
	Picture    *service.Lightbulb
	Brightness *characteristic.Brightness
}

// NewCamera returns the HomeKit accessory for the camera controls.
func NewCamera(info accessory.Info) *Camera {
	acc := Camera{}
	acc.Accessory = accessory.New(info, accessory.TypeSwitch)

	acc.Infrared = service.NewSwitch()
	acc.AddService(acc.Infrared.Service)

	acc.Picture = service.NewLightbulb()
	acc.Brightness = characteristic.NewBrightness()
	acc.Picture.AddCharacteristic(acc.Brightness.Characteristic)
	acc.AddService(acc.Picture.Service)

	return &acc
}

// Bind forwards HomeKit changes to c and mirrors every settings change back
// to HomeKit.
func (acc *Camera) Bind(c *Controller) {
	acc.sync(c.Current())
	c.OnChange(acc.sync)

	acc.Infrared.On.OnValueRemoteUpdate(func(on bool) {
		if err := c.Apply(Update{Infrared: &on}); err != nil {
			log.Info.Println("homekit infrared:", err)
			acc.sync(c.Current())
		}
	})

	acc.Brightness.OnValueRemoteUpdate(func(level int) {
		if err := c.Apply(Update{Brightness: &level}); err != nil {
			log.Info.Println("homekit brightness:", err)
			acc.sync(c.Current())
		}
	})

	// the picture cannot be switched off
	acc.Picture.On.OnValueRemoteUpdate(func(on bool) {
		if !on {
			acc.Picture.On.SetValue(true)
		}
	})
}

func (acc *Camera) sync(s Settings) {
	acc.Infrared.On.SetValue(s.Infrared)
	acc.Picture.On.SetValue(true)
	acc.Brightness.SetValue(s.Brightness)
}
