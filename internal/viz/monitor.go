package viz

import (
	"context"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"
	"github.com/san-kum/pmgrav/internal/metrics"
	"github.com/san-kum/pmgrav/internal/particles"
	"github.com/san-kum/pmgrav/internal/sim"
	"gonum.org/v1/gonum/spatial/r3"
)

const (
	canvasWidth     = 60
	canvasHeight    = 24
	historyCapacity = 600
)

type FrameMsg Frame

// DoneMsg reports that the run goroutine returned.
type DoneMsg struct {
	Result *sim.Result
	Err    error
}

type viewMode int

const (
	viewCloud viewMode = iota
	viewDensity
)

// Monitor is the Bubble Tea model for a live run.
type Monitor struct {
	title      string
	totalSteps int
	bounds     particles.Bounds
	frames     <-chan Frame
	done       <-chan DoneMsg
	perf       *metrics.PerfCollector

	canvas   *Canvas
	camera   *Camera
	theme    Theme
	mode     viewMode
	frozen   bool
	showHelp bool

	last    Frame
	shown   Frame
	energy  []float64
	virial  []float64
	result  *DoneMsg
	stopped bool
}

func NewMonitor(title string, totalSteps int, bounds particles.Bounds, frames <-chan Frame, done <-chan DoneMsg, perf *metrics.PerfCollector) Monitor {
	return Monitor{
		title:      title,
		totalSteps: totalSteps,
		bounds:     bounds,
		frames:     frames,
		done:       done,
		perf:       perf,
		canvas:     NewCanvas(canvasWidth, canvasHeight),
		camera:     NewCamera(bounds),
		theme:      Themes[0],
		energy:     make([]float64, 0, historyCapacity),
		virial:     make([]float64, 0, historyCapacity),
	}
}

func waitFrame(frames <-chan Frame) tea.Cmd {
	return func() tea.Msg {
		f, ok := <-frames
		if !ok {
			return nil
		}
		return FrameMsg(f)
	}
}

func waitDone(done <-chan DoneMsg) tea.Cmd {
	return func() tea.Msg { return <-done }
}

func (m Monitor) Init() tea.Cmd {
	return tea.Batch(waitFrame(m.frames), waitDone(m.done))
}

func (m Monitor) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.stopped = true
			return m, tea.Quit
		case " ":
			m.frozen = !m.frozen
			if !m.frozen {
				m.shown = m.last
			}
		case "d":
			if m.mode == viewCloud {
				m.mode = viewDensity
			} else {
				m.mode = viewCloud
			}
		case "t":
			m.theme = m.theme.Next()
		case "?":
			m.showHelp = !m.showHelp
		case "x":
			m.camera.RotateX(0.1)
		case "X":
			m.camera.RotateX(-0.1)
		case "y":
			m.camera.RotateY(0.1)
		case "Y":
			m.camera.RotateY(-0.1)
		case "z":
			m.camera.RotateZ(0.1)
		case "Z":
			m.camera.RotateZ(-0.1)
		case "+", "=":
			m.camera.ZoomIn()
		case "-", "_":
			m.camera.ZoomOut()
		}
	case FrameMsg:
		m.last = Frame(msg)
		if !m.frozen {
			m.shown = m.last
		}
		m.energy = appendCapped(m.energy, msg.Diag.Total)
		m.virial = appendCapped(m.virial, msg.Diag.VirialRatio())
		return m, waitFrame(m.frames)
	case DoneMsg:
		m.result = &msg
	}
	return m, nil
}

func appendCapped(s []float64, v float64) []float64 {
	s = append(s, v)
	if len(s) > historyCapacity {
		s = s[1:]
	}
	return s
}

// Stopped reports whether the user asked to quit.
func (m Monitor) Stopped() bool { return m.stopped }

func (m Monitor) status(st Styles) string {
	switch {
	case m.result != nil && m.result.Err != nil:
		return st.Bad.Render("FAILED: " + m.result.Err.Error())
	case m.result != nil:
		return st.Good.Render("DONE")
	case m.frozen:
		return st.Warn.Render("FROZEN")
	}
	return st.Good.Render("RUNNING")
}

func (m Monitor) drawView() string {
	if m.mode == viewDensity {
		return RenderDensity(DensityMap(m.shown.Positions, m.bounds, canvasWidth, canvasHeight, 2))
	}
	m.canvas.Clear()
	m.camera.DrawBox(m.canvas, m.bounds)
	m.camera.DrawPoints(m.canvas, m.shown.Positions)
	return m.canvas.String()
}

func (m Monitor) View() string {
	st := m.theme.Styles()
	d := m.shown.Diag

	var s strings.Builder
	s.WriteString(st.Header.Render(strings.ToUpper(m.title)) + "\n")
	s.WriteString(m.status(st) + "\n\n")

	progress := 0.0
	if m.totalSteps > 0 {
		progress = float64(m.last.Step) / float64(m.totalSteps)
	}
	s.WriteString(ProgressBar(progress, 30) + fmt.Sprintf(" %d/%d\n\n", m.last.Step, m.totalSteps))

	if len(m.energy) > 1 {
		chart := asciigraph.Plot(m.energy, asciigraph.Height(5), asciigraph.Width(32), asciigraph.Caption("Total energy"))
		s.WriteString(st.Graph.Render(chart) + "\n")
	}

	row := func(label, value string) {
		s.WriteString(st.Label.Render(label) + st.Value.Render(value) + "\n")
	}
	row("Time", fmt.Sprintf("%.4f", d.Time))
	row("Kinetic", fmt.Sprintf("%.5g", d.Kinetic))
	row("Potential", fmt.Sprintf("%.5g", d.Potential))
	row("2K/|W|", fmt.Sprintf("%.3f", d.VirialRatio()))
	row("Virial", Sparkline(m.virial, 24))
	row("|P|", fmt.Sprintf("%.3g", normP(d)))
	if d.GridMass > 0 && d.TotalMass > 0 {
		row("Grid mass", fmt.Sprintf("%.6f", d.GridMass/d.TotalMass))
	}
	row("Max speed", fmt.Sprintf("%.4g", d.MaxSpeed))

	if m.perf != nil && m.perf.Samples() > 0 {
		stats := m.perf.Stats()
		s.WriteString("\n")
		row("Step", formatDuration(stats.AvgTickDuration))
		for _, line := range PhaseTable(stats, 6) {
			s.WriteString(st.Value.Render(line) + "\n")
		}
	}

	s.WriteString(st.Help.Render("SP:Freeze D:Density T:Theme ?:Help Q:Quit"))

	canvasView := st.Canvas.Render(m.drawView())
	mainView := lipgloss.JoinHorizontal(lipgloss.Top, canvasView, st.Stats.Render(s.String()))
	if m.showHelp {
		return helpOverlay + "\n\n" + mainView
	}
	return mainView
}

func normP(d sim.Diagnostics) float64 { return r3.Norm(d.Momentum()) }

const helpOverlay = `
╔══════════════════════════════════════╗
║           KEYBOARD SHORTCUTS         ║
╠══════════════════════════════════════╣
║  Space    - Freeze/unfreeze display  ║
║  D        - Cloud / density view     ║
║  X/Y/Z    - Rotate (shift reverses)  ║
║  +/-      - Zoom                     ║
║  T        - Cycle themes             ║
║  ?        - Toggle this help         ║
║  Q        - Stop the run and quit    ║
╚══════════════════════════════════════╝`

// Runner is the part of an experiment the live monitor drives.
type Runner interface {
	Run(ctx context.Context) (*sim.Result, error)
}

// LiveOptions configures RunLive.
type LiveOptions struct {
	Title      string
	TotalSteps int
	Bounds     particles.Bounds
	Perf       *metrics.PerfCollector
	Theme      Theme
	Program    []tea.ProgramOption
}

// RunLive starts r in the background and shows feed frames until the user
// quits or the run ends and the user dismisses the monitor. Quitting early
// cancels the run between steps.
func RunLive(ctx context.Context, r Runner, feed *Feed, opts LiveOptions) (*sim.Result, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	done := make(chan DoneMsg, 1)
	finished := make(chan DoneMsg, 1)
	go func() {
		res, err := r.Run(ctx)
		feed.Close()
		msg := DoneMsg{Result: res, Err: err}
		done <- msg
		finished <- msg
	}()

	mon := NewMonitor(opts.Title, opts.TotalSteps, opts.Bounds, feed.Frames(), done, opts.Perf)
	if opts.Theme.Name != "" {
		mon.theme = opts.Theme
	}
	programOpts := opts.Program
	if programOpts == nil {
		programOpts = []tea.ProgramOption{tea.WithAltScreen()}
	}
	if _, err := tea.NewProgram(mon, programOpts...).Run(); err != nil {
		cancel()
		<-finished
		return nil, fmt.Errorf("viz: monitor: %w", err)
	}

	cancel()
	out := <-finished
	return out.Result, out.Err
}
