// Package tui provides a terminal dashboard over the refresh snapshot.
package tui

import (
	"context"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/user/secdash/internal/model"
)

// SnapshotSource produces one refresh cycle's snapshot.
type SnapshotSource interface {
	Snapshot(ctx context.Context) *model.Snapshot
}

// App is the main TUI application.
type App struct {
	source   SnapshotSource
	interval time.Duration
	revision string
}

// NewApp creates a new TUI application refreshing every interval.
func NewApp(source SnapshotSource, interval time.Duration, revision string) *App {
	return &App{
		source:   source,
		interval: interval,
		revision: revision,
	}
}

// Run starts the TUI application. Quitting cancels in-flight requests.
func (a *App) Run(ctx context.Context) error {
	m := newModel(ctx, a.source, a.interval, a.revision)
	defer m.cancel()

	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	return err
}

// appModel is the main bubbletea model.
type appModel struct {
	ctx       context.Context
	cancel    context.CancelFunc
	source    SnapshotSource
	interval  time.Duration
	revision  string
	dashboard *Dashboard
	spinner   spinner.Model
	loading   bool
	ready     bool
	width     int
	height    int
}

func newModel(parent context.Context, source SnapshotSource, interval time.Duration, revision string) appModel {
	ctx, cancel := context.WithCancel(parent)

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(Primary)

	return appModel{
		ctx:      ctx,
		cancel:   cancel,
		source:   source,
		interval: interval,
		revision: revision,
		spinner:  s,
		loading:  true,
		width:    80,
	}
}

// Init initializes the model.
func (m appModel) Init() tea.Cmd {
	return tea.Batch(
		m.spinner.Tick,
		loadSnapshot(m.ctx, m.source),
	)
}

// Update handles messages.
func (m appModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			m.cancel()
			return m, tea.Quit
		case "r":
			if m.loading {
				return m, nil
			}
			m.loading = true
			return m, tea.Batch(m.spinner.Tick, loadSnapshot(m.ctx, m.source))
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		if m.dashboard != nil {
			m.dashboard.SetSize(msg.Width, msg.Height)
		}

	case snapshotMsg:
		m.loading = false
		m.ready = true
		m.dashboard = NewDashboard(msg.snap, m.revision, m.width, m.height)
		return m, tick(m.interval)

	case tickMsg:
		if m.loading {
			return m, nil
		}
		m.loading = true
		return m, tea.Batch(m.spinner.Tick, loadSnapshot(m.ctx, m.source))

	case spinner.TickMsg:
		if !m.loading {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	return m, nil
}

// View renders the UI.
func (m appModel) View() string {
	if !m.ready {
		return LoadingStyle.Render(m.spinner.View() + " Loading...")
	}

	view := m.dashboard.View()
	if m.loading {
		view += "\n" + DimStyle.Render(m.spinner.View()+" refreshing")
	}
	return view
}

// Messages
type snapshotMsg struct {
	snap *model.Snapshot
}

type tickMsg time.Time

func loadSnapshot(ctx context.Context, source SnapshotSource) tea.Cmd {
	return func() tea.Msg {
		return snapshotMsg{snap: source.Snapshot(ctx)}
	}
}

func tick(interval time.Duration) tea.Cmd {
	if interval <= 0 {
		return nil
	}
	return tea.Tick(interval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}
