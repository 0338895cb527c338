package viz

import (
	"fmt"
	"strconv"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/san-kum/pmgrav/internal/config"
)

var presetInfo = map[string]string{
	"cold_collapse":  "uniform sphere, free fall",
	"plummer":        "equilibrium cluster",
	"binary":         "circular two-body orbit",
	"uniform":        "homogeneous cube",
	"split_collapse": "direct short range plus PM",
}

const (
	pickMenu = iota
	pickConfig
)

type param struct {
	name string
	get  func(*config.Config) float64
	set  func(*config.Config, float64)
	step float64
}

var pickerParams = []param{
	{"particles", func(c *config.Config) float64 { return float64(c.Particles.Count) },
		func(c *config.Config, v float64) { c.Particles.Count = int(v) }, 1024},
	{"grid", func(c *config.Config) float64 { return float64(c.Grid.N) },
		func(c *config.Config, v float64) { c.Grid.N = int(v) }, 0},
	{"dt", func(c *config.Config) float64 { return c.Integrator.Dt },
		func(c *config.Config, v float64) { c.Integrator.Dt = v }, 0.001},
	{"steps", func(c *config.Config) float64 { return float64(c.Integrator.Steps) },
		func(c *config.Config, v float64) { c.Integrator.Steps = int(v) }, 100},
	{"softening", func(c *config.Config) float64 { return c.Gravity.Softening },
		func(c *config.Config, v float64) { c.Gravity.Softening = v }, 0.005},
	{"seed", func(c *config.Config) float64 { return float64(c.Particles.Seed) },
		func(c *config.Config, v float64) { c.Particles.Seed = int64(v) }, 1},
}

// Picker lets the user choose a preset and tweak a few knobs before a live
// run. Grid size steps through powers of two.
type Picker struct {
	state    int
	cursor   int
	presets  []string
	cfg      *config.Config
	pcursor  int
	editing  bool
	editBuf  string
	err      error
	theme    Theme
	chosen   bool
	canceled bool
}

func NewPicker() Picker {
	return Picker{presets: config.ListPresets(), theme: Themes[0]}
}

func (p Picker) Init() tea.Cmd { return nil }

func (p Picker) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return p, nil
	}
	if p.state == pickMenu {
		return p.menuKey(key)
	}
	return p.configKey(key)
}

func (p Picker) menuKey(msg tea.KeyMsg) (Picker, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c", "esc":
		p.canceled = true
		return p, tea.Quit
	case "up", "k":
		if p.cursor > 0 {
			p.cursor--
		}
	case "down", "j":
		if p.cursor < len(p.presets)-1 {
			p.cursor++
		}
	case "t":
		p.theme = p.theme.Next()
	case "enter", " ":
		p.cfg = config.GetPreset(p.presets[p.cursor])
		p.state, p.pcursor, p.err = pickConfig, 0, nil
	}
	return p, nil
}

func (p Picker) configKey(msg tea.KeyMsg) (Picker, tea.Cmd) {
	prm := pickerParams[p.pcursor]
	if p.editing {
		switch msg.String() {
		case "enter":
			if v, err := strconv.ParseFloat(p.editBuf, 64); err == nil {
				prm.set(p.cfg, v)
			}
			p.editing, p.editBuf = false, ""
		case "esc":
			p.editing, p.editBuf = false, ""
		case "backspace":
			if len(p.editBuf) > 0 {
				p.editBuf = p.editBuf[:len(p.editBuf)-1]
			}
		default:
			if s := msg.String(); len(s) == 1 && strings.ContainsAny(s, "0123456789.-e") {
				p.editBuf += s
			}
		}
		return p, nil
	}

	switch msg.String() {
	case "ctrl+c":
		p.canceled = true
		return p, tea.Quit
	case "q", "esc":
		p.state, p.err = pickMenu, nil
	case "up", "k":
		if p.pcursor > 0 {
			p.pcursor--
		}
	case "down", "j":
		if p.pcursor < len(pickerParams)-1 {
			p.pcursor++
		}
	case "left", "h":
		p.nudge(prm, -1)
	case "right", "l":
		p.nudge(prm, 1)
	case "enter", " ":
		p.editing, p.editBuf = true, strconv.FormatFloat(prm.get(p.cfg), 'g', -1, 64)
	case "s":
		if err := p.cfg.Validate(); err != nil {
			p.err = err
			return p, nil
		}
		p.chosen = true
		return p, tea.Quit
	}
	return p, nil
}

func (p Picker) nudge(prm param, dir float64) {
	v := prm.get(p.cfg)
	if prm.step == 0 {
		if dir > 0 {
			v *= 2
		} else if v > 2 {
			v /= 2
		}
	} else {
		v += dir * prm.step
	}
	if v < 0 {
		v = 0
	}
	prm.set(p.cfg, v)
}

// Selected returns the chosen configuration, or false if the user quit.
func (p Picker) Selected() (*config.Config, bool) {
	if !p.chosen || p.canceled {
		return nil, false
	}
	return p.cfg, true
}

func (p Picker) View() string {
	st := p.theme.Styles()
	var s strings.Builder

	switch p.state {
	case pickMenu:
		s.WriteString(st.Header.Render("PMGRAV") + "\n\n")
		for i, name := range p.presets {
			cursor := "  "
			line := st.Label.Render(fmt.Sprintf("%-16s", name)) + st.Help.Render(presetInfo[name])
			if i == p.cursor {
				cursor = st.Good.Render("> ")
				line = st.Value.Render(fmt.Sprintf("%-16s", name)) + st.Help.Render(presetInfo[name])
			}
			s.WriteString(cursor + line + "\n")
		}
		s.WriteString("\n" + st.Help.Render("↑/↓ select  enter configure  t theme  q quit"))
	case pickConfig:
		s.WriteString(st.Header.Render(strings.ToUpper(p.cfg.Name)) + "\n")
		s.WriteString(st.Help.Render(fmt.Sprintf("solver %s, %s particles", p.cfg.Solver, p.cfg.Particles.Distribution)) + "\n\n")
		for i, prm := range pickerParams {
			cursor := "  "
			value := strconv.FormatFloat(prm.get(p.cfg), 'g', -1, 64)
			if i == p.pcursor {
				cursor = st.Good.Render("> ")
				if p.editing {
					value = p.editBuf + "_"
				}
			}
			s.WriteString(cursor + st.Label.Render(fmt.Sprintf("%-12s", prm.name)) + st.Value.Render(value) + "\n")
		}
		if p.err != nil {
			s.WriteString("\n" + st.Bad.Render(p.err.Error()) + "\n")
		}
		s.WriteString("\n" + st.Help.Render("←/→ adjust  enter edit  s start  q back"))
	}
	return s.String()
}

// RunPicker shows the picker and returns the chosen configuration.
func RunPicker(opts ...tea.ProgramOption) (*config.Config, bool, error) {
	m, err := tea.NewProgram(NewPicker(), opts...).Run()
	if err != nil {
		return nil, false, fmt.Errorf("viz: picker: %w", err)
	}
	cfg, ok := m.(Picker).Selected()
	return cfg, ok, nil
}
