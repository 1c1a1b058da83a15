package options

import (
	"fmt"
	"time"

	"github.com/spf13/pflag"
)

var _ IOptions = (*TCPOptions)(nil)

// TCPOptions configures the sensor stream listener.
type TCPOptions struct {
	// Network with server network.
	Network string `json:"network" mapstructure:"network"`

	// Address with server address. Port 6666 is what vehicle clients dial by default.
	Addr string `json:"addr" mapstructure:"addr"`

	// ReadTimeout closes a peer that sends nothing for this long. 0 disables it.
	ReadTimeout time.Duration `json:"read-timeout" mapstructure:"read-timeout"`

	// WriteTimeout bounds a single frame write. 0 disables it.
	WriteTimeout time.Duration `json:"write-timeout" mapstructure:"write-timeout"`
}

// NewTCPOptions creates a TCPOptions object with default parameters.
func NewTCPOptions() *TCPOptions {
	return &TCPOptions{
		Network:      "tcp",
		Addr:         "0.0.0.0:6666",
		WriteTimeout: 5 * time.Second,
	}
}

// Validate is used to parse and validate the parameters entered by the user at
// the command line when the program starts.
func (o *TCPOptions) Validate() []error {
	if o == nil {
		return nil
	}

	var errors []error

	if !validNetwork(o.Network) {
		errors = append(errors, fmt.Errorf("--tcp.network must be tcp, tcp4 or tcp6, got %q", o.Network))
	}

	if err := ValidateAddress(o.Addr); err != nil {
		errors = append(errors, err)
	}

	if o.ReadTimeout < 0 || o.WriteTimeout < 0 {
		errors = append(errors, fmt.Errorf("--tcp timeouts cannot be negative"))
	}

	return errors
}

// AddFlags adds flags related to the sensor stream server to the specified FlagSet.
func (o *TCPOptions) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	fs.StringVar(&o.Network, join(prefixes, "tcp.network"), o.Network, "Specify the network for the sensor stream server.")
	fs.StringVar(&o.Addr, join(prefixes, "tcp.addr"), o.Addr, "Specify the sensor stream bind address and port.")
	fs.DurationVar(&o.ReadTimeout, join(prefixes, "tcp.read-timeout"), o.ReadTimeout, "Drop a client that stays silent this long (0 = never).")
	fs.DurationVar(&o.WriteTimeout, join(prefixes, "tcp.write-timeout"), o.WriteTimeout, "Deadline for writing one frame to the client (0 = none).")
}
