package console

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/autopeer-io/sensor-emulator/internal/emulator/core"
	"github.com/autopeer-io/sensor-emulator/internal/emulator/eventlog"
	"github.com/autopeer-io/sensor-emulator/internal/emulator/server"
	"github.com/autopeer-io/sensor-emulator/pkg/sensor"
)

type fakeController struct {
	events     *eventlog.EventLog
	listening  bool
	simulating bool
	form       sensor.Record
	sent       []sensor.Record
	sendErr    error
}

func newFakeController() *fakeController {
	return &fakeController{events: eventlog.New(nil), form: sensor.DefaultRecord()}
}

func (c *fakeController) ToggleServer() error {
	c.listening = !c.listening
	if c.listening {
		c.events.Append("Starting server...")
	} else {
		c.events.Reset("Server stopped")
	}
	return nil
}

func (c *fakeController) SendSensorData(r sensor.Record) error {
	if c.sendErr != nil {
		return c.sendErr
	}
	c.sent = append(c.sent, r)
	return nil
}

func (c *fakeController) StartCANSimulation() error { c.simulating = true; return nil }
func (c *fakeController) StopCANSimulation()        { c.simulating = false }
func (c *fakeController) Disconnect()               { c.listening = false; c.events.Reset("Server stopped") }
func (c *fakeController) FormRecord() sensor.Record { return c.form }
func (c *fakeController) Events() *eventlog.EventLog {
	return c.events
}

func (c *fakeController) Status() core.Status {
	return core.Status{Server: server.State{Listening: c.listening}, Simulating: c.simulating}
}

func press(t *testing.T, m tea.Model, keys ...string) tea.Model {
	t.Helper()
	for _, k := range keys {
		var msg tea.KeyMsg
		switch k {
		case "tab":
			msg = tea.KeyMsg{Type: tea.KeyTab}
		case "enter":
			msg = tea.KeyMsg{Type: tea.KeyEnter}
		case "esc":
			msg = tea.KeyMsg{Type: tea.KeyEsc}
		case "backspace":
			msg = tea.KeyMsg{Type: tea.KeyBackspace}
		case "right":
			msg = tea.KeyMsg{Type: tea.KeyRight}
		case "space":
			msg = tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}}
		default:
			msg = tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)}
		}
		m, _ = m.Update(msg)
	}
	return m
}

func TestToggleServerKey(t *testing.T) {
	ctrl := newFakeController()
	m := press(t, NewModel(ctrl), "s")

	if !ctrl.listening {
		t.Fatal("server not started")
	}
	view := m.View()
	if !strings.Contains(view, "LISTENING") || !strings.Contains(view, "Starting server...") {
		t.Errorf("view does not reflect the started server:\n%s", view)
	}

	m = press(t, m, "s")
	if ctrl.listening {
		t.Fatal("server not stopped")
	}
	if !strings.Contains(m.View(), "Server stopped") {
		t.Errorf("view missing stop line:\n%s", m.View())
	}
}

func TestSimulationKey(t *testing.T) {
	ctrl := newFakeController()
	m := press(t, NewModel(ctrl), "m")
	if !ctrl.simulating {
		t.Fatal("simulation not started")
	}
	press(t, m, "m")
	if ctrl.simulating {
		t.Fatal("simulation not stopped")
	}
}

func TestConfigureAndSubmit(t *testing.T) {
	ctrl := newFakeController()
	ctrl.form = sensor.Record{Pressure: 30, TPMS: 31, FuelLevel: 50}

	m := press(t, NewModel(ctrl), "c")
	if !strings.Contains(m.View(), "Configure Sensor Data") {
		t.Fatalf("form not shown:\n%s", m.View())
	}

	// Pressure "30.0" -> "32.5"; lights on; keep TPMS; temperature "0.0" -> "21"; fuel +2.
	m = press(t, m, "backspace", "backspace", "backspace", "backspace", "3", "2", ".", "5")
	m = press(t, m, "tab", "space")
	m = press(t, m, "tab", "tab", "backspace", "backspace", "backspace", "2", "1")
	m = press(t, m, "tab", "right", "right")
	m = press(t, m, "enter")

	want := sensor.Record{Pressure: 32.5, TPMS: 31, Temperature: 21, LightsOn: true, FuelLevel: 52}
	if len(ctrl.sent) != 1 || ctrl.sent[0] != want {
		t.Fatalf("sent %v, want [%v]", ctrl.sent, want)
	}
	if strings.Contains(m.View(), "Configure Sensor Data") {
		t.Error("form still open after submit")
	}
}

func TestSubmitErrorsKeepForm(t *testing.T) {
	ctrl := newFakeController()
	m := press(t, NewModel(ctrl), "c")

	// Clear the pressure field entirely.
	m = press(t, m, "backspace", "backspace", "backspace", "backspace", "backspace", "enter")
	if len(ctrl.sent) != 0 {
		t.Fatal("record sent despite invalid input")
	}
	if !strings.Contains(m.View(), "not a number") {
		t.Errorf("missing validation message:\n%s", m.View())
	}

	m = press(t, m, "0")
	ctrl.sendErr = server.ErrNoActiveConnection
	m = press(t, m, "enter")
	view := m.View()
	if !strings.Contains(view, "Configure Sensor Data") || !strings.Contains(view, "no active client connection") {
		t.Errorf("send error not reported in the form:\n%s", view)
	}

	m = press(t, m, "esc")
	if strings.Contains(m.View(), "Configure Sensor Data") {
		t.Error("esc did not close the form")
	}
}

func TestQuit(t *testing.T) {
	_, cmd := NewModel(newFakeController()).Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	if cmd == nil {
		t.Fatal("no command returned")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("q does not quit")
	}
}

func TestFormClampsFuel(t *testing.T) {
	f := newForm(sensor.Record{FuelLevel: 250})
	if f.fuel != 100 {
		t.Errorf("fuel = %d, want 100", f.fuel)
	}
	f.focus = fieldFuel
	f.key("right")
	if f.fuel != 100 {
		t.Errorf("fuel went past 100: %d", f.fuel)
	}
	if _, err := f.record(); err != nil {
		t.Fatal(err)
	}
}
