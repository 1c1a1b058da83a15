package options

import (
	"fmt"
	"time"

	"github.com/spf13/pflag"
)

var _ IOptions = (*SimulatorOptions)(nil)

// SimulatorOptions configures the CAN simulator producer.
type SimulatorOptions struct {
	// Interval between two simulated frames.
	Interval time.Duration `json:"interval" mapstructure:"interval"`

	// FrameID is the CAN identifier stamped on simulated frames.
	FrameID uint32 `json:"frame-id" mapstructure:"frame-id"`

	// AutoStart starts the simulator together with the emulator.
	AutoStart bool `json:"auto-start" mapstructure:"auto-start"`
}

// NewSimulatorOptions creates a SimulatorOptions object with default parameters.
func NewSimulatorOptions() *SimulatorOptions {
	return &SimulatorOptions{
		Interval: time.Second,
		FrameID:  0x100,
	}
}

// Validate is used to parse and validate the parameters entered by the user at
// the command line when the program starts.
func (o *SimulatorOptions) Validate() []error {
	if o == nil {
		return nil
	}

	var errors []error

	if o.Interval <= 0 {
		errors = append(errors, fmt.Errorf("--simulator.interval must be positive, got %s", o.Interval))
	}
	// Standard 11-bit or extended 29-bit identifiers.
	if o.FrameID > 0x1FFFFFFF {
		errors = append(errors, fmt.Errorf("--simulator.frame-id 0x%X exceeds 29 bits", o.FrameID))
	}

	return errors
}

// AddFlags adds flags for SimulatorOptions to the specified FlagSet.
func (o *SimulatorOptions) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	fs.DurationVar(&o.Interval, join(prefixes, "simulator.interval"), o.Interval, "Interval between simulated CAN frames.")
	fs.Uint32Var(&o.FrameID, join(prefixes, "simulator.frame-id"), o.FrameID, "CAN identifier of simulated frames.")
	fs.BoolVar(&o.AutoStart, join(prefixes, "simulator.auto-start"), o.AutoStart, "Start the CAN simulation on startup.")
}
