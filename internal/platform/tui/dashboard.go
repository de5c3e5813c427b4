package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/vovakirdan/flappy-rl/internal/dqn"
)

// recentWindow is the number of episodes averaged in the dashboard.
const recentWindow = 20

// EpisodeMsg carries the stats of a finished training episode.
type EpisodeMsg dqn.EpisodeStats

// TrainingDoneMsg is sent once the trainer returns.
type TrainingDoneMsg struct {
	Summary dqn.Summary
	Err     error
}

// TrainFunc runs training, reporting every finished episode to onEpisode.
type TrainFunc func(ctx context.Context, onEpisode func(dqn.EpisodeStats)) (dqn.Summary, error)

var (
	dashTitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("11")).
			MarginBottom(1)

	dashLabelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245")).
			Width(14)

	dashBoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("2")).
			Padding(0, 2)

	dashHintStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245")).
			MarginTop(1)

	dashErrStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
)

// DashboardModel shows training progress while the trainer runs on another
// goroutine.
type DashboardModel struct {
	title    string
	total    int
	cancel   context.CancelFunc
	bar      progress.Model
	started  time.Time
	last     *dqn.EpisodeStats
	recent   []dqn.EpisodeStats
	best     int
	done     bool
	summary  dqn.Summary
	err      error
	quitting bool
}

// NewDashboard creates a dashboard for a run of total episodes. cancel
// stops the trainer when the user quits early.
func NewDashboard(title string, total int, cancel context.CancelFunc) DashboardModel {
	return DashboardModel{
		title:   title,
		total:   total,
		cancel:  cancel,
		bar:     progress.New(progress.WithDefaultGradient(), progress.WithWidth(40)),
		started: time.Now(),
	}
}

// Init implements tea.Model.
func (m DashboardModel) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m DashboardModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q", "esc":
			m.quitting = true
			if m.cancel != nil {
				m.cancel()
			}
			return m, tea.Quit
		case "enter":
			if m.done {
				return m, tea.Quit
			}
		}

	case tea.WindowSizeMsg:
		m.bar.Width = max(10, min(60, msg.Width-20))

	case EpisodeMsg:
		s := dqn.EpisodeStats(msg)
		m.last = &s
		m.best = max(m.best, s.Score)
		m.recent = append(m.recent, s)
		if len(m.recent) > recentWindow {
			m.recent = m.recent[len(m.recent)-recentWindow:]
		}

	case TrainingDoneMsg:
		m.done = true
		m.summary = msg.Summary
		m.err = msg.Err
	}

	return m, nil
}

// Completed returns the number of finished episodes.
func (m DashboardModel) Completed() int {
	if m.last == nil {
		return 0
	}
	return m.last.Episode + 1
}

func (m DashboardModel) recentMeans() (reward, score float64) {
	if len(m.recent) == 0 {
		return 0, 0
	}
	for _, s := range m.recent {
		reward += s.Reward
		score += float64(s.Score)
	}
	n := float64(len(m.recent))
	return reward / n, score / n
}

// View implements tea.Model.
func (m DashboardModel) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder
	b.WriteString(dashTitleStyle.Render(m.title))
	b.WriteString("\n")

	pct := 0.0
	if m.total > 0 {
		pct = float64(m.Completed()) / float64(m.total)
	}
	b.WriteString(m.bar.ViewAs(pct))
	b.WriteString(fmt.Sprintf("  %d/%d\n\n", m.Completed(), m.total))

	var stats strings.Builder
	row := func(label, value string) {
		stats.WriteString(dashLabelStyle.Render(label))
		stats.WriteString(value)
		stats.WriteString("\n")
	}

	if m.last != nil {
		meanReward, meanScore := m.recentMeans()
		row("Episode", fmt.Sprintf("%d", m.last.Episode))
		row("Steps", fmt.Sprintf("%d (total %d)", m.last.Steps, m.last.TotalSteps))
		row("Reward", fmt.Sprintf("%.1f", m.last.Reward))
		row("Score", fmt.Sprintf("%d (best %d)", m.last.Score, m.best))
		row("Epsilon", fmt.Sprintf("%.3f", m.last.Epsilon))
		row("Loss", fmt.Sprintf("%.4f", m.last.MeanLoss))
		row(fmt.Sprintf("Mean of %d", len(m.recent)), fmt.Sprintf("reward %.1f, score %.2f", meanReward, meanScore))
	} else {
		row("Episode", "waiting for the first episode...")
	}
	row("Elapsed", time.Since(m.started).Round(time.Second).String())

	b.WriteString(dashBoxStyle.Render(strings.TrimRight(stats.String(), "\n")))
	b.WriteString("\n")

	switch {
	case m.done && m.err != nil:
		b.WriteString(dashErrStyle.Render("Training stopped: " + m.err.Error()))
		b.WriteString(dashHintStyle.Render("\nenter/q to exit"))
	case m.done:
		b.WriteString(fmt.Sprintf("Finished %d episodes, %d steps, best score %d",
			m.summary.Episodes, m.summary.TotalSteps, m.summary.BestScore))
		b.WriteString(dashHintStyle.Render("\nenter/q to exit"))
	default:
		b.WriteString(dashHintStyle.Render("q to stop training"))
	}

	return b.String()
}

// RunDashboard runs train on a goroutine and shows its progress until the
// user exits. Quitting early cancels training; the trainer's result is
// returned either way.
func RunDashboard(ctx context.Context, title string, total int, train TrainFunc) (dqn.Summary, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	p := tea.NewProgram(NewDashboard(title, total, cancel), tea.WithAltScreen())

	type result struct {
		summary dqn.Summary
		err     error
	}
	done := make(chan result, 1)

	go func() {
		sum, err := train(ctx, func(s dqn.EpisodeStats) {
			p.Send(EpisodeMsg(s))
		})
		done <- result{sum, err}
		p.Send(TrainingDoneMsg{Summary: sum, Err: err})
	}()

	_, uiErr := p.Run()
	cancel()
	r := <-done
	if uiErr != nil {
		return r.summary, uiErr
	}
	return r.summary, r.err
}
