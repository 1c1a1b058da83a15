package options

import (
	"os"
	"path/filepath"
	"slices"

	utilerrors "k8s.io/apimachinery/pkg/util/errors"
	cliflag "k8s.io/component-base/cli/flag"

	"github.com/autopeer-io/sensor-emulator/internal/emulator"
	"github.com/autopeer-io/sensor-emulator/pkg/log"
	"github.com/autopeer-io/sensor-emulator/pkg/options"
)

type EmulatorOptions struct {
	TCPOptions       *options.TCPOptions       `json:"tcp" mapstructure:"tcp"`
	HttpOptions      *options.HttpOptions      `json:"http" mapstructure:"http"`
	MqttOptions      *options.MqttOptions      `json:"mqtt" mapstructure:"mqtt"`
	SimulatorOptions *options.SimulatorOptions `json:"simulator" mapstructure:"simulator"`
	Log              *log.Options              `json:"log" mapstructure:"log"`

	// Console runs the terminal front-end.
	Console bool `json:"console" mapstructure:"console"`
	// ConsoleLogFile receives the log while the console owns the terminal.
	ConsoleLogFile string `json:"console-log-file" mapstructure:"console-log-file"`

	// ConfigFile is an optional YAML file. It is watched for log level and
	// simulator interval changes.
	ConfigFile string `json:"-" mapstructure:"-"`
}

func NewEmulatorOptions() *EmulatorOptions {
	return &EmulatorOptions{
		TCPOptions:       options.NewTCPOptions(),
		HttpOptions:      options.NewHttpOptions(),
		MqttOptions:      options.NewMqttOptions(),
		SimulatorOptions: options.NewSimulatorOptions(),
		Log:              log.NewOptions(),
		Console:          true,
		ConsoleLogFile:   filepath.Join(os.TempDir(), "cpeer-sensor-emulator.log"),
	}
}

func (o *EmulatorOptions) Flags() cliflag.NamedFlagSets {
	fss := cliflag.NamedFlagSets{}

	fs := fss.FlagSet("emulator")
	fs.StringVarP(&o.ConfigFile, "config", "c", o.ConfigFile, "Read configuration from this YAML file. Flags and CPEER_* environment variables override it.")
	fs.BoolVar(&o.Console, "console", o.Console, "Run the interactive terminal console. Disable to run headless behind the HTTP API.")
	fs.StringVar(&o.ConsoleLogFile, "console-log-file", o.ConsoleLogFile, "Where logs go while the console owns the terminal.")

	o.TCPOptions.AddFlags(fss.FlagSet("tcp"))
	o.HttpOptions.AddFlags(fss.FlagSet("http"))
	o.SimulatorOptions.AddFlags(fss.FlagSet("simulator"))
	o.MqttOptions.AddFlags(fss.FlagSet("mqtt"))
	o.Log.AddFlags(fss.FlagSet("log"))
	return fss
}

// Complete moves terminal log output to ConsoleLogFile when the console is on.
func (o *EmulatorOptions) Complete() error {
	if !o.Console || o.ConsoleLogFile == "" {
		return nil
	}

	paths := slices.DeleteFunc(slices.Clone(o.Log.OutputPaths), func(p string) bool {
		return p == "stdout" || p == "stderr"
	})
	if len(paths) != len(o.Log.OutputPaths) || len(paths) == 0 {
		paths = append(paths, o.ConsoleLogFile)
	}
	o.Log.OutputPaths = paths
	return nil
}

func (o *EmulatorOptions) Validate() error {
	errs := []error{}
	errs = append(errs, o.TCPOptions.Validate()...)
	errs = append(errs, o.HttpOptions.Validate()...)
	errs = append(errs, o.SimulatorOptions.Validate()...)
	errs = append(errs, o.MqttOptions.Validate()...)
	errs = append(errs, o.Log.Validate()...)
	return utilerrors.NewAggregate(errs)
}

func (o *EmulatorOptions) Config() (*emulator.Config, error) {
	return &emulator.Config{
		TCPOptions:       o.TCPOptions,
		HttpOptions:      o.HttpOptions,
		MqttOptions:      o.MqttOptions,
		SimulatorOptions: o.SimulatorOptions,
		Console:          o.Console,
	}, nil
}
