package app

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"
	cliflag "k8s.io/component-base/cli/flag"
	"k8s.io/component-base/term"

	"github.com/autopeer-io/sensor-emulator/cmd/cpeer-sensor-client/app/options"
	"github.com/autopeer-io/sensor-emulator/internal/client"
	"github.com/autopeer-io/sensor-emulator/pkg/log"
	"github.com/autopeer-io/sensor-emulator/pkg/sensor"
)

const commandName = "cpeer-sensor-client"

func NewSensorClientCommand(ctx context.Context) *cobra.Command {
	opts := options.NewClientOptions()

	cmd := &cobra.Command{
		Use:          commandName,
		Short:        "Talk to a sensor emulator the way a vehicle application does",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := opts.Validate(); err != nil {
				return err
			}
			log.Init(opts.Log)
			return nil
		},
	}

	namedfs := opts.Flags()
	for _, f := range namedfs.FlagSets {
		cmd.PersistentFlags().AddFlagSet(f)
	}

	cmd.AddCommand(newSendCommand(ctx, opts), newWatchCommand(ctx, opts))
	return cmd
}

func newSendCommand(ctx context.Context, opts *options.ClientOptions) *cobra.Command {
	rec := options.NewRecordOptions()

	cmd := &cobra.Command{
		Use:   "send",
		Short: "Send sensor records to the emulator",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := rec.Validate(); err != nil {
				return err
			}

			c, err := dial(ctx, opts)
			if err != nil {
				return err
			}
			defer c.Close()

			return send(ctx, c, rec, client.NewTablePrinter(cmd.OutOrStdout()))
		},
	}

	namedfs := rec.Flags()
	for _, f := range namedfs.FlagSets {
		cmd.Flags().AddFlagSet(f)
	}
	cols, _, _ := term.TerminalSize(cmd.OutOrStdout())
	cliflag.SetUsageAndHelpFunc(cmd, namedfs, cols)

	return cmd
}

func newWatchCommand(ctx context.Context, opts *options.ClientOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Print records streamed by the emulator until it hangs up",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := dial(ctx, opts)
			if err != nil {
				return err
			}
			defer c.Close()

			return watch(ctx, c, client.NewTablePrinter(cmd.OutOrStdout()), cmd.ErrOrStderr())
		},
	}
}

func dial(ctx context.Context, opts *options.ClientOptions) (*client.Client, error) {
	dialCtx, cancel := context.WithTimeout(ctx, opts.DialTimeout)
	defer cancel()
	return client.Dial(dialCtx, opts.Addr, opts.WriteTimeout)
}

func send(ctx context.Context, c *client.Client, rec *options.RecordOptions, out *client.TablePrinter) error {
	r := rec.Record()
	for i := range rec.Count {
		if i > 0 {
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(rec.Interval):
			}
		}
		if err := c.Send(r); err != nil {
			return fmt.Errorf("failed to send record: %w", err)
		}
		if err := out.Print(r); err != nil {
			return err
		}
	}
	return nil
}

func watch(ctx context.Context, c *client.Client, out *client.TablePrinter, status io.Writer) error {
	err := c.Watch(ctx, func(r sensor.Record) {
		if err := out.Print(r); err != nil {
			log.Error(err, "Failed to print record")
		}
	})
	if err == nil && ctx.Err() == nil {
		fmt.Fprintln(status, "Emulator closed the connection")
	}
	return err
}
