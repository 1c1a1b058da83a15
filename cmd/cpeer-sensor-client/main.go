package main

import (
	"os"

	"k8s.io/apiserver/pkg/server"

	"github.com/autopeer-io/sensor-emulator/cmd/cpeer-sensor-client/app"
)

func main() {
	ctx := server.SetupSignalContext()
	if err := app.NewSensorClientCommand(ctx).Execute(); err != nil {
		os.Exit(1)
	}
}
