package tui

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/vovakirdan/flappy-rl/internal/config"
	"github.com/vovakirdan/flappy-rl/internal/core"
	"github.com/vovakirdan/flappy-rl/internal/games/flappy"
	"github.com/vovakirdan/flappy-rl/internal/registry"
	"github.com/vovakirdan/flappy-rl/internal/storage"
)

// HumanPlayer is the player name scores from keyboard play are stored under.
const HumanPlayer = "human"

// flashTicks is how long the flap indicator stays lit.
const flashTicks = 8

// flapFlash is the flap listener of the terminal front end: a short-lived
// note in the HUD standing in for the flap sound.
type flapFlash struct {
	left int
}

func (f *flapFlash) OnFlap() { f.left = flashTicks }

func (f *flapFlash) tick() {
	if f.left > 0 {
		f.left--
	}
}

// Options configures a play Model.
type Options struct {
	// Policy drives the bird when set; otherwise the keyboard does.
	Policy registry.Policy

	// Player overrides the name scores are stored under.
	Player string

	// AutoRestart restarts a finished episode after one second. Only
	// applies to policy play.
	AutoRestart bool
}

// Model is the Bubble Tea model for playing or watching one environment.
type Model struct {
	env        *flappy.Env
	flash      *flapFlash
	policy     registry.Policy
	player     string
	screen     *core.Screen
	store      *storage.Store
	config     core.RuntimeConfig
	inputFrame core.InputFrame
	keyMapper  *KeyMapper

	autoRestart bool
	overTicks   int // Ticks since the episode ended
	highScore   int
	paused      bool
	quitting    bool
	scoreSaved  bool // Whether the score has been saved for the current game over
}

// NewModel creates a play model with its own environment.
func NewModel(gameCfg config.FlappyConfig, store *storage.Store, cfg core.RuntimeConfig, opts Options) (Model, error) {
	// Use time-based seed if not specified
	if cfg.Seed == 0 {
		cfg.Seed = time.Now().UnixNano()
	}

	flash := &flapFlash{}
	env, err := flappy.NewEnv(gameCfg, cfg.Seed, flappy.WithFlapListener(flash))
	if err != nil {
		return Model{}, err
	}

	player := opts.Player
	if player == "" {
		player = HumanPlayer
		if opts.Policy != nil {
			player = opts.Policy.ID()
		}
	}

	m := Model{
		env:         env,
		flash:       flash,
		policy:      opts.Policy,
		player:      player,
		screen:      core.NewScreen(cfg.ScreenW, cfg.ScreenH),
		store:       store,
		config:      cfg,
		inputFrame:  core.NewInputFrame(),
		keyMapper:   NewKeyMapper(),
		autoRestart: opts.AutoRestart && opts.Policy != nil,
	}
	if store != nil {
		//nolint:errcheck // Best-effort, a missing high score is shown as 0
		m.highScore, _ = store.HighScore(player)
	}
	return m, nil
}

// Init starts the tick loop.
func (m Model) Init() tea.Cmd {
	return tickCmd(m.config.TickRate)
}

// Update handles messages and updates the model state.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		// The simulation works in world units; only the viewport changes
		m.config.ScreenW = msg.Width
		m.config.ScreenH = msg.Height
		m.screen.Resize(msg.Width, msg.Height)
		return m, nil

	case TickMsg:
		return m.handleTick()
	}

	return m, nil
}

// handleKey processes keyboard input.
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "ctrl+s" {
		m.saveScreenshot()
		return m, nil
	}

	if m.keyMapper.MapKeyToFrame(msg, &m.inputFrame) {
		m.quitting = true
		m.env.Close()
		return m, tea.Quit
	}

	if m.inputFrame.Has(core.ActionPause) && !m.env.Terminal() {
		m.paused = !m.paused
		m.inputFrame.Clear()
	}

	return m, nil
}

// handleTick advances the simulation by one step.
func (m Model) handleTick() (tea.Model, tea.Cmd) {
	defer m.inputFrame.Clear()
	m.flash.tick()

	if m.env.Terminal() {
		m.overTicks++
		if m.inputFrame.Has(core.ActionRestart) || (m.autoRestart && m.overTicks >= m.config.TickRate) {
			m.restart()
		}
		return m, tickCmd(m.config.TickRate)
	}

	if m.paused {
		return m, tickCmd(m.config.TickRate)
	}

	res, err := m.env.Step(m.nextAction())
	if err != nil {
		// Only reachable through a misbehaving policy; treat as game over
		m.quitting = true
		return m, tea.Quit
	}

	if res.Terminal {
		m.overTicks = 0
		m.saveScore(res.Info)
	}

	return m, tickCmd(m.config.TickRate)
}

// nextAction asks the policy, or reads the keyboard for human play.
func (m Model) nextAction() flappy.Action {
	if m.policy != nil {
		return m.policy.Act(m.env.Observation())
	}
	if m.inputFrame.Has(core.ActionFlap) {
		return flappy.ActionFlap
	}
	return flappy.ActionIdle
}

// saveScore stores the finished episode once.
func (m *Model) saveScore(info flappy.Info) {
	if m.scoreSaved {
		return
	}
	m.scoreSaved = true
	if info.Score > m.highScore {
		m.highScore = info.Score
	}
	if m.store != nil && info.Score > 0 {
		//nolint:errcheck // Best-effort save, game continues regardless
		m.store.SaveScore(m.player, info.Score, info.Tick)
	}
}

// restart begins a new episode with a fresh seed.
func (m *Model) restart() {
	m.config.Seed = time.Now().UnixNano()
	m.env.Seed(m.config.Seed)
	m.env.Reset()
	m.scoreSaved = false
	m.paused = false
	m.overTicks = 0
}

// render draws the current frame into the screen buffer.
func (m Model) render() {
	snap := m.env.Snapshot()
	flappy.Render(m.screen, snap)

	w := m.screen.Width()
	label := fmt.Sprintf(" %s | Best: %d ", m.player, m.highScore)
	m.screen.DrawTextColored(w-len([]rune(label))-1, 0, label, core.ColorCyan)
	if m.flash.left > 0 {
		m.screen.SetColored(1, 0, '♪', core.ColorBrightYellow)
	}

	switch {
	case snap.Terminal:
		hint := "r to restart, q to quit"
		if m.autoRestart {
			hint = "restarting..."
		}
		flappy.DrawMessage(m.screen, fmt.Sprintf("GAME OVER  Score: %d", snap.Score), hint)
	case m.paused:
		flappy.DrawMessage(m.screen, "PAUSED", "p to resume, q to quit")
	}
}

// saveScreenshot saves the current screen to a file.
func (m *Model) saveScreenshot() {
	m.render()

	dir := filepath.Join(os.Getenv("HOME"), ".flappy", "screenshots")
	//nolint:errcheck // Best-effort directory creation
	os.MkdirAll(dir, 0o755)

	timestamp := time.Now().Format("20060102_150405")
	filename := fmt.Sprintf("%s_%s.txt", m.player, timestamp)
	path := filepath.Join(dir, filename)

	//nolint:errcheck // Best-effort save, game continues regardless
	os.WriteFile(path, []byte(m.screen.String()), 0o600)
}

// View renders the current state to a string for display.
func (m Model) View() string {
	if m.quitting {
		return ""
	}

	m.render()
	return RenderScreen(m.screen)
}

// Score returns the score of the current episode.
func (m Model) Score() int {
	return m.env.Score()
}

// Run starts the Bubble Tea program with the given model.
func Run(m Model) error {
	p := tea.NewProgram(
		m,
		tea.WithAltScreen(), // Use alternate screen buffer
	)

	_, err := p.Run()
	return err
}
