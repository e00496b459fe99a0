package pistream

import (
	"sync"

	"github.com/brutella/hc/log"
	rpi "github.com/nathan-osman/go-rpigpio"
)

// pin is the part of rpi.Pin the illuminator needs.
type pin interface {
	Write(rpi.Value) error
	Close() error
}

// Infrared drives the IR LED board through one GPIO output.
//
// Most boards switch the LEDs on when the control pin is pulled low, so
// activeLow is the common setting.
type Infrared struct {
	mutex     sync.Mutex
	gpio      int
	activeLow bool
	pin       pin
	on        bool
}

// OpenInfrared opens gpio as an output and switches the illuminator off.
// A negative gpio returns an illuminator that only remembers its state,
// for machines without GPIO.
func OpenInfrared(gpio int, activeLow bool) (*Infrared, error) {
	ir := &Infrared{gpio: gpio, activeLow: activeLow}
	if gpio < 0 {
		log.Debug.Println("infrared GPIO disabled")
		return ir, nil
	}

	p, err := rpi.OpenPin(gpio, rpi.OUT)
	if err != nil {
		return nil, err
	}
	ir.pin = p

	if err := ir.Enable(false); err != nil {
		p.Close()
		return nil, err
	}
	return ir, nil
}

// level maps the logical state to the pin value.
func (ir *Infrared) level(on bool) rpi.Value {
	if on != ir.activeLow {
		return rpi.HIGH
	}
	return rpi.LOW
}

// Enable switches the illuminator on or off.
func (ir *Infrared) Enable(on bool) error {
	ir.mutex.Lock()
	defer ir.mutex.Unlock()

	if ir.pin != nil {
		if err := ir.pin.Write(ir.level(on)); err != nil {
			return err
		}
	}
	ir.on = on
	log.Debug.Printf("infrared on GPIO %d: %t", ir.gpio, on)
	return nil
}

// Enabled returns the logical state.
func (ir *Infrared) Enabled() bool {
	ir.mutex.Lock()
	defer ir.mutex.Unlock()

	return ir.on
}

// Close switches the illuminator off and releases the pin.
func (ir *Infrared) Close() error {
	ir.mutex.Lock()
	defer ir.mutex.Unlock()

	if ir.pin == nil {
		return nil
	}
	ir.pin.Write(ir.level(false))
	err := ir.pin.Close()
	ir.pin = nil
	return err
}
