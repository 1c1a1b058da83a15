package console

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/autopeer-io/sensor-emulator/internal/emulator/core"
	"github.com/autopeer-io/sensor-emulator/pkg/sensor"
)

type field int

const (
	fieldPressure field = iota
	fieldLights
	fieldTPMS
	fieldTemperature
	fieldFuel
	fieldCount
)

// form is the "configure sensors" dialog. Numeric fields are kept as text
// until submit so partial input like "-" or "3." can be typed.
type form struct {
	pressure    string
	tpms        string
	temperature string
	lightsOn    bool
	fuel        int
	focus       field
}

func newForm(r sensor.Record) form {
	return form{
		pressure:    core.FormatFloat(r.Pressure),
		tpms:        core.FormatFloat(r.TPMS),
		temperature: core.FormatFloat(r.Temperature),
		lightsOn:    r.LightsOn,
		fuel:        clampFuel(int(r.FuelLevel)),
	}
}

func clampFuel(v int) int {
	return max(0, min(100, v))
}

func (f *form) next() { f.focus = (f.focus + 1) % fieldCount }
func (f *form) prev() { f.focus = (f.focus + fieldCount - 1) % fieldCount }

func (f *form) text() *string {
	switch f.focus {
	case fieldPressure:
		return &f.pressure
	case fieldTPMS:
		return &f.tpms
	case fieldTemperature:
		return &f.temperature
	}
	return nil
}

// key applies one key press to the focused field and reports whether it was consumed.
func (f *form) key(k string) bool {
	switch f.focus {
	case fieldLights:
		if k == " " || k == "left" || k == "right" {
			f.lightsOn = !f.lightsOn
			return true
		}
	case fieldFuel:
		switch k {
		case "left", "-":
			f.fuel = clampFuel(f.fuel - 1)
		case "right", "+":
			f.fuel = clampFuel(f.fuel + 1)
		case "pgdown":
			f.fuel = clampFuel(f.fuel - 10)
		case "pgup":
			f.fuel = clampFuel(f.fuel + 10)
		default:
			return false
		}
		return true
	default:
		t := f.text()
		switch {
		case k == "backspace":
			if len(*t) > 0 {
				*t = (*t)[:len(*t)-1]
			}
			return true
		case len(k) == 1 && strings.ContainsAny(k, "0123456789.-eE"):
			*t += k
			return true
		}
	}
	return false
}

func (f form) record() (sensor.Record, error) {
	parse := func(name, s string) (float32, error) {
		v, err := strconv.ParseFloat(strings.TrimSpace(s), 32)
		if err != nil {
			return 0, fmt.Errorf("%s: %q is not a number", name, s)
		}
		return float32(v), nil
	}

	pressure, err := parse("pressure", f.pressure)
	if err != nil {
		return sensor.Record{}, err
	}
	tpms, err := parse("tpms", f.tpms)
	if err != nil {
		return sensor.Record{}, err
	}
	temperature, err := parse("temperature", f.temperature)
	if err != nil {
		return sensor.Record{}, err
	}

	return sensor.Record{
		Pressure:    pressure,
		TPMS:        tpms,
		Temperature: temperature,
		LightsOn:    f.lightsOn,
		FuelLevel:   int32(f.fuel),
	}, nil
}

func (f form) view() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Configure Sensor Data"))
	b.WriteString("\n\n")

	lights := "Off"
	if f.lightsOn {
		lights = "On"
	}
	bar := strings.Repeat("█", f.fuel/5) + strings.Repeat("░", 20-f.fuel/5)

	rows := []struct {
		field field
		label string
		value string
	}{
		{fieldPressure, "Pressure Sensor (psi)", f.pressure},
		{fieldLights, "Lights", lights},
		{fieldTPMS, "TPMS Value", f.tpms},
		{fieldTemperature, "Temperature Sensor (°C)", f.temperature},
		{fieldFuel, fmt.Sprintf("Fuel Sensor Level: %d%%", f.fuel), bar},
	}
	for _, r := range rows {
		line := fmt.Sprintf("%-26s %s", labelStyle.Render(r.label), valueStyle.Render(r.value))
		if r.field == f.focus {
			line = selectedStyle.Render("> " + r.label + "  " + r.value)
		} else {
			line = "  " + line
		}
		b.WriteString(line)
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(helpStyle.Render("tab/↑↓ move · space toggle · ←→ fuel · enter submit · esc cancel"))
	return b.String()
}
