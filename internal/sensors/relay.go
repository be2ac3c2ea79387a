package sensors

import (
	"fmt"

	rpio "github.com/stianeikeland/go-rpio/v4"
)

// Default BCM pins for the four-channel relay board.
var DefaultRelayPins = []int{4, 5, 6, 7}

// RelayDriver drives the pump relays through the Pi's GPIO header. The
// board is active-low: writing Low energizes the relay.
type RelayDriver struct {
	pins []rpio.Pin
}

// OpenRelayDriver maps the GPIO and parks every relay de-energized.
func OpenRelayDriver(pins []int) (*RelayDriver, error) {
	if err := rpio.Open(); err != nil {
		return nil, fmt.Errorf("open gpio: %w", err)
	}
	d := &RelayDriver{pins: make([]rpio.Pin, len(pins))}
	for i, p := range pins {
		d.pins[i] = rpio.Pin(p)
		d.pins[i].Output()
		d.pins[i].High()
	}
	return d, nil
}

func (d *RelayDriver) PumpOn(index int) {
	if index >= 0 && index < len(d.pins) {
		d.pins[index].Low()
	}
}

func (d *RelayDriver) PumpOff(index int) {
	if index >= 0 && index < len(d.pins) {
		d.pins[index].High()
	}
}

// Close forces every relay off and releases the GPIO mapping.
func (d *RelayDriver) Close() error {
	for _, p := range d.pins {
		p.High()
	}
	return rpio.Close()
}
