package client

import (
	"fmt"
	"io"
	"time"

	"github.com/gosuri/uitable"

	"github.com/autopeer-io/sensor-emulator/pkg/sensor"
)

// TablePrinter prints records as aligned rows. The header is written before the
// first row. Cells have fixed widths so rows printed by separate calls line up.
type TablePrinter struct {
	w      io.Writer
	now    func() time.Time
	header bool
}

func NewTablePrinter(w io.Writer) *TablePrinter {
	return &TablePrinter{w: w, now: time.Now}
}

var columns = []any{"TIME", "PRESSURE", "TPMS", "TEMPERATURE", "LIGHTS", "FUEL"}

func (p *TablePrinter) Print(records ...sensor.Record) error {
	table := uitable.New()
	table.Separator = "  "

	if !p.header {
		table.AddRow(columns...)
		p.header = true
	}

	for _, r := range records {
		lights := "off"
		if r.LightsOn {
			lights = "on"
		}
		table.AddRow(
			p.now().Format("15:04:05.000"),
			fmt.Sprintf("%8.1f", r.Pressure),
			fmt.Sprintf("%8.1f", r.TPMS),
			fmt.Sprintf("%11.1f", r.Temperature),
			fmt.Sprintf("%-6s", lights),
			fmt.Sprintf("%4d%%", r.FuelLevel),
		)
	}

	_, err := fmt.Fprintln(p.w, table)
	return err
}
