package console

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/autopeer-io/sensor-emulator/internal/emulator/core"
	"github.com/autopeer-io/sensor-emulator/internal/emulator/eventlog"
	"github.com/autopeer-io/sensor-emulator/pkg/sensor"
)

const refreshInterval = time.Second

// Controller is the part of the emulator the console drives. *core.Emulator implements it.
type Controller interface {
	ToggleServer() error
	SendSensorData(r sensor.Record) error
	StartCANSimulation() error
	StopCANSimulation()
	Disconnect()
	Status() core.Status
	FormRecord() sensor.Record
	Events() *eventlog.EventLog
}

var _ Controller = (*core.Emulator)(nil)

type (
	tickMsg       time.Time
	logChangedMsg struct{}
)

// Model is the bubbletea model of the emulator console: a button bar, the
// event log and the configure-sensors dialog.
type Model struct {
	ctrl Controller

	status core.Status
	lines  []string

	editing bool
	form    form

	flash    string
	flashErr bool

	width, height int
}

func NewModel(ctrl Controller) Model {
	return Model{
		ctrl:   ctrl,
		status: ctrl.Status(),
		lines:  ctrl.Events().Snapshot(),
	}
}

func (m Model) Init() tea.Cmd {
	return tick()
}

func tick() tea.Cmd {
	return tea.Tick(refreshInterval, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		return m, nil
	case tickMsg:
		m.refresh()
		return m, tick()
	case logChangedMsg:
		m.refresh()
		return m, nil
	case tea.KeyMsg:
		if m.editing {
			return m.updateForm(msg)
		}
		return m.updateMain(msg)
	}
	return m, nil
}

func (m *Model) refresh() {
	m.status = m.ctrl.Status()
	m.lines = m.ctrl.Events().Snapshot()
}

func (m *Model) report(err error, ok string) {
	if err != nil {
		m.flash, m.flashErr = err.Error(), true
		return
	}
	m.flash, m.flashErr = ok, false
}

func (m Model) updateMain(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "s":
		m.report(m.ctrl.ToggleServer(), "")
	case "c":
		m.editing = true
		m.form = newForm(m.ctrl.FormRecord())
		m.flash = ""
	case "m":
		if m.ctrl.Status().Simulating {
			m.ctrl.StopCANSimulation()
			m.report(nil, "CAN simulation stopped")
		} else {
			m.report(m.ctrl.StartCANSimulation(), "CAN simulation started")
		}
	case "d":
		m.ctrl.Disconnect()
		m.report(nil, "")
	}
	m.refresh()
	return m, nil
}

func (m Model) updateForm(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch k := msg.String(); k {
	case "ctrl+c":
		return m, tea.Quit
	case "esc":
		m.editing = false
	case "tab", "down":
		m.form.next()
	case "shift+tab", "up":
		m.form.prev()
	case "enter":
		r, err := m.form.record()
		if err != nil {
			m.report(err, "")
			return m, nil
		}
		if err := m.ctrl.SendSensorData(r); err != nil {
			m.report(fmt.Errorf("error sending message: %w", err), "")
			return m, nil
		}
		m.editing = false
		m.report(nil, "Sent "+r.String())
	default:
		m.form.key(k)
	}
	return m, nil
}

func (m Model) View() string {
	header := m.renderHeader()

	var body string
	if m.editing {
		body = activePanelStyle.Render(m.form.view())
	} else {
		body = m.renderLog()
	}

	footer := helpStyle.Render("s start/stop server · c configure sensors · m CAN simulation · d disconnect · q quit")
	if m.flash != "" {
		style := okStyle
		if m.flashErr {
			style = errStyle
		}
		footer = style.Render(m.flash) + "\n" + footer
	}

	return lipgloss.JoinVertical(lipgloss.Left, header, body, footer)
}

func (m Model) renderHeader() string {
	server := errStyle.Render("STOPPED")
	if m.status.Server.Listening {
		server = okStyle.Render("LISTENING " + m.status.Server.Addr)
	}

	client := labelStyle.Render("none")
	if a := m.status.Server.Active; a != nil {
		client = valueStyle.Render(a.Host)
	}

	sim := labelStyle.Render("off")
	if m.status.Simulating {
		sim = okStyle.Render("on")
	}

	return titleStyle.Render("Sensor Emulator") + "  " +
		labelStyle.Render("server ") + server + "  " +
		labelStyle.Render("client ") + client + "  " +
		labelStyle.Render("CAN ") + sim
}

// renderLog shows the tail of the event log that fits the window.
func (m Model) renderLog() string {
	lines := m.lines
	if room := m.height - 6; room > 0 && len(lines) > room {
		lines = lines[len(lines)-room:]
	}

	content := strings.Join(lines, "\n")
	style := panelStyle
	if m.width > 4 {
		style = style.Width(m.width - 4)
	}
	return style.Render(content)
}
