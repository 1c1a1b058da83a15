package options

import (
	"fmt"
	"time"

	"github.com/spf13/pflag"
)

var _ IOptions = (*HttpOptions)(nil)

// HttpOptions configures the control API: REST endpoints, probes, /metrics
// and the event stream.
type HttpOptions struct {
	Network string `json:"network" mapstructure:"network"`

	// Addr is host:port. Empty turns the control API off.
	Addr string `json:"addr" mapstructure:"addr"`

	// Timeout is the default per-request deadline. It also bounds header
	// reads and graceful shutdown.
	Timeout time.Duration `json:"timeout" mapstructure:"timeout"`
}

func NewHttpOptions() *HttpOptions {
	return &HttpOptions{
		Network: "tcp",
		Addr:    "0.0.0.0:8080",
		Timeout: 10 * time.Second,
	}
}

// Enabled reports whether the control API should be served.
func (o *HttpOptions) Enabled() bool {
	return o != nil && o.Addr != ""
}

func (o *HttpOptions) Validate() []error {
	if !o.Enabled() {
		return nil
	}

	var errs []error
	if err := ValidateAddress(o.Addr); err != nil {
		errs = append(errs, fmt.Errorf("--http.addr: %w", err))
	}
	if !validNetwork(o.Network) {
		errs = append(errs, fmt.Errorf("--http.network must be tcp, tcp4 or tcp6, got %q", o.Network))
	}
	if o.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("--http.timeout must be positive, got %s", o.Timeout))
	}
	return errs
}

func (o *HttpOptions) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	fs.StringVar(&o.Network, join(prefixes, "http.network"), o.Network, "Listener network for the control API: tcp, tcp4 or tcp6.")
	fs.StringVar(&o.Addr, join(prefixes, "http.addr"), o.Addr, "Control API listen address. Empty disables the API.")
	fs.DurationVar(&o.Timeout, join(prefixes, "http.timeout"), o.Timeout, "Default request deadline, also used for header reads and graceful shutdown.")
}
