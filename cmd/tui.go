package cmd

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/brovakt/canal/engine"
)

var tuiAPIAddr string

func init() {
	tuiCmd := &cobra.Command{
		Use:   "tui",
		Short: "live dashboard of tracked vessels and bridge text",
		RunE:  runTUI,
	}
	tuiCmd.Flags().StringVar(&tuiAPIAddr, "addr", "http://localhost"+DefaultHTTPAddr, "address of a running brovakt serve instance")
	CMD.AddCommand(tuiCmd)
}

type dashboardTickMsg time.Time

type dashboardDataMsg struct {
	vessels    []engine.VesselSnapshot
	bridgeText string
	alarm      bool
	err        error
}

type dashboardModel struct {
	addr    string
	data    dashboardDataMsg
	fetched bool
}

func dashboardTickCmd() tea.Cmd {
	return tea.Tick(2*time.Second, func(t time.Time) tea.Msg {
		return dashboardTickMsg(t)
	})
}

func fetchDashboardCmd(addr string) tea.Cmd {
	return func() tea.Msg {
		client := &http.Client{Timeout: 5 * time.Second}
		vessels, vErr := fetchVessels(addr)
		resp, tErr := fetchBridgeText(context.Background(), client, addr)
		err := vErr
		if err == nil {
			err = tErr
		}
		return dashboardDataMsg{vessels: vessels, bridgeText: resp.Text, alarm: resp.Alarm, err: err}
	}
}

func (m dashboardModel) Init() tea.Cmd {
	return tea.Batch(dashboardTickCmd(), fetchDashboardCmd(m.addr))
}

func (m dashboardModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q", "esc":
			return m, tea.Quit
		}
	case dashboardTickMsg:
		return m, tea.Batch(dashboardTickCmd(), fetchDashboardCmd(m.addr))
	case dashboardDataMsg:
		m.data = msg
		m.fetched = true
		return m, nil
	}
	return m, nil
}

var (
	tuiTitleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205"))
	tuiAlarmStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("red"))
	tuiNormalStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("86"))
	tuiDimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

func (m dashboardModel) View() string {
	var b strings.Builder
	b.WriteString(tuiTitleStyle.Render("Brovakt Canal Bridge Watch") + "\n\n")

	if !m.fetched {
		b.WriteString("connecting to " + m.addr + " ...\n")
		return b.String()
	}
	if m.data.err != nil {
		b.WriteString(tuiAlarmStyle.Render("error: "+m.data.err.Error()) + "\n")
		return b.String()
	}

	if m.data.alarm {
		b.WriteString(tuiAlarmStyle.Render(m.data.bridgeText) + "\n\n")
	} else {
		b.WriteString(tuiNormalStyle.Render(m.data.bridgeText) + "\n\n")
	}

	vessels := append([]engine.VesselSnapshot(nil), m.data.vessels...)
	sort.SliceStable(vessels, func(i, j int) bool { return vessels[i].MMSI < vessels[j].MMSI })

	for _, v := range vessels {
		name := v.Name
		if name == "" {
			name = v.MMSI
		}
		eta := "-"
		if v.ETAMinutes != nil {
			eta = fmt.Sprintf("%.1f min", *v.ETAMinutes)
		}
		line := fmt.Sprintf("%-20s %-20s %6.1f kn  eta %s", name, v.Status, v.SOG, eta)
		b.WriteString(line + "\n")
	}

	b.WriteString("\n" + tuiDimStyle.Render("q: quit") + "\n")
	return b.String()
}

func runTUI(c *cobra.Command, args []string) error {
	model := dashboardModel{addr: tuiAPIAddr}
	p := tea.NewProgram(model)
	_, err := p.Run()
	return err
}
