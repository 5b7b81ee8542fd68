package cli

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/charmbracelet/log"

	"github.com/matzehuels/causalhub/pkg/dataset"
	"github.com/matzehuels/causalhub/pkg/observability"
	"github.com/matzehuels/causalhub/pkg/pipeline"
)

// Progress view styles
var (
	progressKindStyle  = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)
	progressDimStyle   = lipgloss.NewStyle().Foreground(colorDim)
	progressValueStyle = lipgloss.NewStyle().Foreground(colorWhite)
)

// recentMoves is how many accepted moves the progress view lists.
const recentMoves = 6

// =============================================================================
// Messages
// =============================================================================

type searchStartMsg struct {
	algorithm string
	variables int
}

type moveMsg struct {
	kind       string
	delta      float64
	candidates int
}

type fitDoneMsg struct {
	res *pipeline.Result
	err error
}

type tickMsg time.Time

func tick() tea.Cmd {
	return tea.Tick(100*time.Millisecond, func(t time.Time) tea.Msg { return tickMsg(t) })
}

// =============================================================================
// FitModel - Live view of a running search
// =============================================================================

// FitModel is the bubbletea model behind "fit --progress". It is fed by
// programHooks and quits when the fit finishes or the user interrupts it.
type FitModel struct {
	Source     string
	Algorithm  string
	Variables  int
	Counts     map[string]int
	Gain       float64
	Candidates int
	Recent     []moveMsg
	Elapsed    time.Duration

	Result    *pipeline.Result
	Err       error
	Done      bool
	Cancelled bool

	start time.Time
	frame int
}

// NewFitModel creates a progress model for a fit of source.
func NewFitModel(source string) FitModel {
	return FitModel{
		Source: source,
		Counts: map[string]int{},
		start:  time.Now(),
	}
}

func (m FitModel) Init() tea.Cmd {
	return tick()
}

func (m FitModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			m.Cancelled = true
			return m, tea.Quit
		}
	case tickMsg:
		m.frame++
		m.Elapsed = time.Since(m.start)
		return m, tick()
	case searchStartMsg:
		m.Algorithm = msg.algorithm
		m.Variables = msg.variables
	case moveMsg:
		m.Counts[msg.kind]++
		m.Gain += msg.delta
		m.Candidates += msg.candidates
		m.Recent = append(m.Recent, msg)
		if len(m.Recent) > recentMoves {
			m.Recent = m.Recent[len(m.Recent)-recentMoves:]
		}
	case fitDoneMsg:
		m.Result, m.Err = msg.res, msg.err
		m.Done = true
		m.Elapsed = time.Since(m.start)
		return m, tea.Quit
	}
	return m, nil
}

func (m FitModel) View() string {
	var b strings.Builder

	b.WriteString(StyleTitle.Render("Learning structure"))
	b.WriteString(" ")
	b.WriteString(progressDimStyle.Render(m.Source))
	b.WriteString("\n")

	status := styleIconSpinner.Render(spinnerFrames[m.frame%len(spinnerFrames)])
	if m.Done {
		status = styleIconSuccess.Render(iconSuccess)
	}
	algorithm := m.Algorithm
	if algorithm == "" {
		algorithm = "starting"
	}
	fmt.Fprintf(&b, "%s %s %s %s\n\n", status,
		progressValueStyle.Render(algorithm),
		progressDimStyle.Render(fmt.Sprintf("%d variables ·", m.Variables)),
		progressDimStyle.Render(m.Elapsed.Round(100*time.Millisecond).String()))

	rows := [][]string{}
	total := 0
	for _, kind := range []string{"add", "remove", "reverse"} {
		rows = append(rows, []string{kind, fmt.Sprint(m.Counts[kind])})
		total += m.Counts[kind]
	}
	rows = append(rows, []string{"total", fmt.Sprint(total)})

	headerStyle := lipgloss.NewStyle().Foreground(colorGray).Bold(true)
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
		Headers("Move", "Accepted").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == -1:
				return headerStyle
			case row == len(rows)-1:
				return lipgloss.NewStyle().Foreground(colorWhite).Bold(true)
			case col == 0:
				return progressKindStyle
			}
			return lipgloss.NewStyle().Foreground(colorWhite)
		})
	b.WriteString(t.Render())
	b.WriteString("\n")

	fmt.Fprintf(&b, "%s %s   %s %s\n",
		progressDimStyle.Render("score gain"), StyleNumber.Render(fmt.Sprintf("%+.3f", m.Gain)),
		progressDimStyle.Render("candidates scored"), StyleNumber.Render(fmt.Sprint(m.Candidates)))

	if len(m.Recent) > 0 {
		b.WriteString("\n")
		for _, mv := range m.Recent {
			fmt.Fprintf(&b, "  %s %-8s %s\n", StyleDim.Render(iconArrow), mv.kind,
				StyleDim.Render(fmt.Sprintf("%+.3f", mv.delta)))
		}
	}

	b.WriteString("\n")
	b.WriteString(progressDimStyle.Render("q quit"))
	b.WriteString("\n")
	return b.String()
}

// =============================================================================
// Running
// =============================================================================

// fitWithProgress runs the fit under the interactive progress view.
// Interrupting the view cancels the search.
func (c *CLI) fitWithProgress(ctx context.Context, runner *pipeline.Runner, d dataset.Dataset, source string, opts pipeline.Options) (*pipeline.Result, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Log lines would tear the view; keep only errors while it is up.
	level := c.Logger.GetLevel()
	c.Logger.SetLevel(log.ErrorLevel)
	defer c.Logger.SetLevel(level)

	p := tea.NewProgram(NewFitModel(source), tea.WithOutput(os.Stderr), tea.WithContext(ctx))
	observability.SetSearchHooks(programHooks{p: p})
	defer observability.SetSearchHooks(observability.NoopSearchHooks{})

	go func() {
		res, err := runner.Fit(ctx, d, opts)
		p.Send(fitDoneMsg{res: res, err: err})
	}()

	final, err := p.Run()
	if err != nil {
		return nil, err
	}
	m := final.(FitModel)
	if m.Cancelled {
		return nil, context.Canceled
	}
	return m.Result, m.Err
}

// =============================================================================
// Search Hooks
// =============================================================================

// programHooks forwards search events to a running progress view.
type programHooks struct {
	p *tea.Program
}

func (h programHooks) OnSearchStart(_ context.Context, algorithm string, n int) {
	h.p.Send(searchStartMsg{algorithm: algorithm, variables: n})
}

func (h programHooks) OnMove(_ context.Context, _, kind string, delta float64, candidates int) {
	h.p.Send(moveMsg{kind: kind, delta: delta, candidates: candidates})
}

func (programHooks) OnSearchComplete(context.Context, string, int, float64, time.Duration, error) {}

// spinnerHooks reports search progress in a spinner's message.
type spinnerHooks struct {
	spinner *Spinner
	moves   int
	gain    float64
}

func (h *spinnerHooks) OnSearchStart(_ context.Context, algorithm string, n int) {
	h.spinner.SetMessage(fmt.Sprintf("Learning structure over %d variables (%s)...", n, algorithm))
}

func (h *spinnerHooks) OnMove(_ context.Context, _, kind string, delta float64, _ int) {
	h.moves++
	h.gain += delta
	h.spinner.SetMessage(fmt.Sprintf("Learning structure · %d moves · %s %+.2f · gain %+.2f", h.moves, kind, delta, h.gain))
}

func (*spinnerHooks) OnSearchComplete(context.Context, string, int, float64, time.Duration, error) {}

var (
	_ observability.SearchHooks = programHooks{}
	_ observability.SearchHooks = (*spinnerHooks)(nil)
)
