package app

import (
	"context"
	"fmt"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/automaxprocs/maxprocs"
	cliflag "k8s.io/component-base/cli/flag"
	"k8s.io/component-base/cli/globalflag"
	"k8s.io/component-base/term"
	"k8s.io/component-base/version/verflag"

	"github.com/autopeer-io/sensor-emulator/cmd/cpeer-sensor-emulator/app/options"
	"github.com/autopeer-io/sensor-emulator/internal/emulator/simulator"
	"github.com/autopeer-io/sensor-emulator/pkg/log"
)

const (
	commandName = "cpeer-sensor-emulator"
	commandDesc = `The sensor emulator stands in for a vehicle's sensor bus. It streams
length-delimited SensorData frames to a single TCP client, shows the records
the client sends back, and can generate readings from a simulated CAN bus.

It is driven from an interactive terminal console, or headless through the
HTTP control API. Records can be mirrored to an MQTT broker.`

	envPrefix = "CPEER"
)

func NewSensorEmulatorCommand(ctx context.Context) *cobra.Command {
	opts := options.NewEmulatorOptions()
	v := viper.New()

	cmd := &cobra.Command{
		Use:          commandName,
		Short:        "Launch a vehicle sensor emulator",
		Long:         commandDesc,
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			verflag.PrintAndExitIfRequested()

			if err := loadConfig(v, cmd.Flags(), opts); err != nil {
				return err
			}
			if err := opts.Complete(); err != nil {
				return err
			}
			if err := opts.Validate(); err != nil {
				return err
			}

			log.Init(opts.Log)
			defer func() { _ = log.Sync() }()

			if _, err := maxprocs.Set(maxprocs.Logger(func(format string, args ...any) {
				log.Debug(fmt.Sprintf(format, args...))
			})); err != nil {
				log.Warn("Failed to set GOMAXPROCS", "error", err)
			}

			return run(ctx, v, opts)
		},
	}

	fs := cmd.Flags()
	namedfs := opts.Flags()
	verflag.AddFlags(namedfs.FlagSet("global"))
	globalflag.AddGlobalFlags(namedfs.FlagSet("global"), cmd.Name())
	for _, f := range namedfs.FlagSets {
		fs.AddFlagSet(f)
	}

	cols, _, _ := term.TerminalSize(cmd.OutOrStdout())
	cliflag.SetUsageAndHelpFunc(cmd, namedfs, cols)

	return cmd
}

func run(ctx context.Context, v *viper.Viper, opts *options.EmulatorOptions) error {
	cfg, err := opts.Config()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	server, err := cfg.NewEmulatorServer()
	if err != nil {
		return fmt.Errorf("failed to create sensor emulator: %w", err)
	}

	if v.ConfigFileUsed() != "" {
		sim := server.Emulator().Simulator()
		v.OnConfigChange(func(e fsnotify.Event) {
			log.Info("Config file changed", "file", e.Name, "op", e.Op.String())
			applyConfig(v, sim)
		})
		v.WatchConfig()
	}

	return server.Run(ctx)
}

// loadConfig layers the config file, CPEER_* environment variables and
// explicitly set flags (highest) into opts.
func loadConfig(v *viper.Viper, fs *pflag.FlagSet, opts *options.EmulatorOptions) error {
	if opts.ConfigFile != "" {
		v.SetConfigFile(opts.ConfigFile)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("failed to read config file %s: %w", opts.ConfigFile, err)
		}
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if err := v.BindPFlags(fs); err != nil {
		return err
	}

	if err := v.Unmarshal(opts); err != nil {
		return fmt.Errorf("failed to decode configuration: %w", err)
	}
	return nil
}

// applyConfig applies the settings that can change at runtime.
func applyConfig(v *viper.Viper, sim *simulator.Simulator) {
	if level := v.GetString("log.level"); level != "" {
		if err := log.SetLevel(level); err != nil {
			log.Warn("Ignoring log level from config", "error", err)
		}
	}

	if interval := v.GetDuration("simulator.interval"); interval > 0 && interval != sim.Interval() {
		if err := sim.SetInterval(interval); err != nil {
			log.Warn("Ignoring simulator interval from config", "error", err)
			return
		}
		log.Info("Simulator interval changed", "interval", interval)
	}
}
