package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"kerngen/internal/buildpipeline"
)

// stageViews gives each stage its row label and the share of the file's
// work that is complete once the stage has started.
var stageViews = map[buildpipeline.Stage]struct {
	label string
	frac  float64
}{
	buildpipeline.StageLoad:   {"loading", 0.1},
	buildpipeline.StageExpand: {"expanding", 0.4},
	buildpipeline.StageRender: {"rendering", 0.7},
	buildpipeline.StageWrite:  {"writing", 0.9},
}

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("7"))
	doneStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	workingStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("6"))
	idleStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("7"))
	faintStyle   = lipgloss.NewStyle().Faint(true)
)

const (
	statusWidth = 12
	detailWidth = 18
)

type progressModel struct {
	title      string
	events     <-chan buildpipeline.Event
	spinner    spinner.Model
	prog       progress.Model
	items      []fileItem
	index      map[string]int
	batchLabel string
	width      int
	done       bool
}

// fileItem is one row: a configuration file and where its run stands.
type fileItem struct {
	path     string
	status   string
	stage    buildpipeline.Stage
	kernels  int
	cached   bool
	finished bool
	errText  string
}

type eventMsg buildpipeline.Event
type doneMsg struct{}

// NewProgressModel returns a Bubble Tea model that renders batch generation
// progress, one row per configuration file. The model quits when events is
// closed.
func NewProgressModel(title string, files []string, events <-chan buildpipeline.Event) tea.Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = workingStyle

	prog := progress.New(progress.WithDefaultGradient())
	prog.Width = 76

	m := &progressModel{
		title:   title,
		events:  events,
		spinner: sp,
		prog:    prog,
		items:   make([]fileItem, len(files)),
		index:   make(map[string]int, len(files)),
		width:   80,
	}
	for i, file := range files {
		m.items[i] = fileItem{path: file, status: string(buildpipeline.StatusQueued)}
		m.index[file] = i
	}
	return m
}

func (m *progressModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.next())
}

func (m *progressModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case eventMsg:
		return m, tea.Batch(m.apply(buildpipeline.Event(msg)), m.next())
	case doneMsg:
		m.done = true
		return m, tea.Quit
	case spinner.TickMsg:
		if m.done {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	case tea.WindowSizeMsg:
		if msg.Width > 0 {
			m.width = msg.Width
			m.prog.Width = msg.Width - 4
		}
	case tea.KeyMsg:
		// генерация продолжается, но вывод можно прервать
		if msg.Type == tea.KeyCtrlC {
			return m, tea.Quit
		}
	case progress.FrameMsg:
		pm, cmd := m.prog.Update(msg)
		m.prog = pm.(progress.Model)
		return m, cmd
	}
	return m, nil
}

func (m *progressModel) View() string {
	if len(m.items) == 0 {
		return ""
	}
	header := m.title
	if m.batchLabel != "" {
		header += " (" + m.batchLabel + ")"
	}
	if m.done {
		header = "done: " + header
	} else {
		header = m.spinner.View() + " " + header
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render(header))
	b.WriteString("\n\n")
	nameWidth := max(m.width-statusWidth-detailWidth-4, 20)
	for _, item := range m.items {
		fmt.Fprintf(&b, "  %s %s", statusStyle(item.status).Render(fmt.Sprintf("%*s", statusWidth, item.status)), truncate(item.path, nameWidth))
		if detail := item.detail(); detail != "" {
			b.WriteString(faintStyle.Render("  " + truncate(detail, detailWidth+nameWidth/2)))
		}
		b.WriteByte('\n')
	}
	b.WriteByte('\n')
	if m.done {
		b.WriteString(m.prog.ViewAs(1.0))
	} else {
		b.WriteString(m.prog.View())
	}
	b.WriteByte('\n')
	b.WriteString(faintStyle.Render(m.summary()))
	b.WriteByte('\n')
	return b.String()
}

func (m *progressModel) next() tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-m.events
		if !ok {
			return doneMsg{}
		}
		return eventMsg(ev)
	}
}

// apply folds one event into the rows. A file finishes on its write stage
// or on any error; later events for it are ignored.
func (m *progressModel) apply(ev buildpipeline.Event) tea.Cmd {
	if ev.File == "" {
		if ev.Status == buildpipeline.StatusDone || ev.Status == buildpipeline.StatusError {
			m.batchLabel = string(ev.Status)
		}
		return nil
	}
	idx, ok := m.index[ev.File]
	if !ok || m.items[idx].finished {
		return nil
	}
	item := &m.items[idx]
	item.stage = ev.Stage
	switch ev.Status {
	case buildpipeline.StatusQueued:
		item.status = string(buildpipeline.StatusQueued)
	case buildpipeline.StatusWorking:
		item.status = stageViews[ev.Stage].label
	case buildpipeline.StatusCached:
		item.cached = true
		item.kernels = ev.Kernels
	case buildpipeline.StatusDone:
		switch ev.Stage {
		case buildpipeline.StageExpand:
			item.kernels = ev.Kernels
		case buildpipeline.StageWrite:
			item.status = string(buildpipeline.StatusDone)
			item.finished = true
		}
	case buildpipeline.StatusError:
		item.status = string(buildpipeline.StatusError)
		item.finished = true
		if ev.Err != nil {
			item.errText = ev.Err.Error()
		}
	}
	return m.prog.SetPercent(m.percent())
}

func (m *progressModel) percent() float64 {
	if len(m.items) == 0 {
		return 0
	}
	total := 0.0
	for _, item := range m.items {
		if item.finished {
			total++
		} else {
			total += progressFromStage(item.stage)
		}
	}
	return total / float64(len(m.items))
}

// summary is the footer: finished files, cache hits and failures.
func (m *progressModel) summary() string {
	var finished, cached, failed int
	for _, item := range m.items {
		if !item.finished {
			continue
		}
		finished++
		if item.status == string(buildpipeline.StatusError) {
			failed++
		} else if item.cached {
			cached++
		}
	}
	s := fmt.Sprintf("%d/%d finished", finished, len(m.items))
	if cached > 0 {
		s += fmt.Sprintf(", %d cached", cached)
	}
	if failed > 0 {
		s += fmt.Sprintf(", %d failed", failed)
	}
	return s
}

func (item fileItem) detail() string {
	switch {
	case item.status == string(buildpipeline.StatusError):
		return item.errText
	case !item.finished:
		return ""
	case item.cached:
		return fmt.Sprintf("%d variants, cached", item.kernels)
	}
	return fmt.Sprintf("%d variants", item.kernels)
}

func progressFromStage(stage buildpipeline.Stage) float64 {
	return stageViews[stage].frac
}

func statusStyle(status string) lipgloss.Style {
	switch status {
	case string(buildpipeline.StatusDone):
		return doneStyle
	case string(buildpipeline.StatusError):
		return errorStyle
	case string(buildpipeline.StatusQueued), "":
		return idleStyle
	}
	return workingStyle
}

// truncate clips value to width display cells; runewidth counts the tail
// inside width.
func truncate(value string, width int) string {
	if width <= 0 || runewidth.StringWidth(value) <= width {
		return value
	}
	if width <= 3 {
		return runewidth.Truncate(value, width, "")
	}
	return runewidth.Truncate(value, width, "...")
}
