package adc

import (
	"fmt"
	"sync"

	"periph.io/x/periph/conn/i2c"
	"periph.io/x/periph/conn/i2c/i2creg"
	"periph.io/x/periph/conn/physic"
	"periph.io/x/periph/experimental/devices/ads1x15"
	"periph.io/x/periph/host"
)

// DefaultAddress is the ADS1115 address with ADDR tied to ground.
const DefaultAddress = 0x48

var hostInit struct {
	once sync.Once
	err  error
}

// InitHost loads the periph host drivers. It is safe to call more than once.
func InitHost() error {
	hostInit.once.Do(func() {
		_, hostInit.err = host.Init()
	})
	if hostInit.err != nil {
		return fmt.Errorf("init periph host: %w", hostInit.err)
	}
	return nil
}

// OpenBus opens an I2C bus by name. An empty name picks the first bus.
func OpenBus(name string) (i2c.BusCloser, error) {
	if err := InitHost(); err != nil {
		return nil, err
	}
	bus, err := i2creg.Open(name)
	if err != nil {
		return nil, fmt.Errorf("open i2c bus %q: %w", name, err)
	}
	return bus, nil
}

// ADS1115 reads the four single-ended channels of an ADS1115.
type ADS1115 struct {
	dev  *ads1x15.Dev
	pins [NumChannels]ads1x15.PinADC
}

var singleEnded = [NumChannels]ads1x15.Channel{
	ads1x15.Channel0,
	ads1x15.Channel1,
	ads1x15.Channel2,
	ads1x15.Channel3,
}

// NewADS1115 configures every channel at gain 2/3 (6.144 V full scale) and
// the fastest data rate so a four-channel sweep fits inside a sensing tick.
func NewADS1115(bus i2c.Bus, address uint16) (*ADS1115, error) {
	if address == 0 {
		address = DefaultAddress
	}
	dev, err := ads1x15.NewADS1115(bus, &ads1x15.Opts{I2cAddress: address})
	if err != nil {
		return nil, fmt.Errorf("open ads1115 at 0x%02x: %w", address, err)
	}

	a := &ADS1115{dev: dev}
	for i, ch := range singleEnded {
		pin, err := dev.PinForChannel(ch, 6144*physic.MilliVolt, 860*physic.Hertz, ads1x15.SaveEnergy)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("configure channel %d: %w", i, err)
		}
		a.pins[i] = pin
	}
	return a, nil
}

// Raw returns the conversion result for a channel.
func (a *ADS1115) Raw(channel int) (int32, error) {
	if err := checkChannel(channel); err != nil {
		return 0, err
	}
	sample, err := a.pins[channel].Read()
	if err != nil {
		return 0, fmt.Errorf("read channel %d: %w", channel, err)
	}
	return sample.Raw, nil
}

// Close halts every configured channel.
func (a *ADS1115) Close() error {
	var errs []error
	for i, pin := range a.pins {
		if pin == nil {
			continue
		}
		if err := pin.Halt(); err != nil {
			errs = append(errs, fmt.Errorf("halt channel %d: %w", i, err))
		}
	}
	if err := a.dev.Halt(); err != nil {
		errs = append(errs, fmt.Errorf("halt device: %w", err))
	}
	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}
