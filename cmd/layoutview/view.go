package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/skdltmxn/cxxlayout/bytemap"
	"github.com/skdltmxn/cxxlayout/layout"
)

var viewCmd = &cobra.Command{
	Use:   "view <source-file> [id-or-name]",
	Short: "Explore record layouts interactively",
	Long: `Open an interactive viewer showing the fields of a record next to a
grid of its bytes. Moving over a field highlights the bytes it owns and
moving over a byte highlights the field that owns it.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runView,
}

const rowBytes = 16

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	litStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#1A1A1A")).
			Background(lipgloss.Color("#98FB98"))

	cursorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4"))

	padStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))

	fieldTypeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#87CEEB"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	paneStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#444444")).
			Padding(0, 1)

	focusPaneStyle = paneStyle.
			BorderForeground(lipgloss.Color("#7D56F4"))
)

type pane int

const (
	listPane pane = iota
	gridPane
)

type viewKeys struct {
	Up     key.Binding
	Down   key.Binding
	Left   key.Binding
	Right  key.Binding
	Switch key.Binding
	Next   key.Binding
	Prev   key.Binding
	Help   key.Binding
	Quit   key.Binding
}

func (k viewKeys) ShortHelp() []key.Binding {
	return []key.Binding{k.Switch, k.Next, k.Prev, k.Help, k.Quit}
}

func (k viewKeys) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.Left, k.Right},
		{k.Switch, k.Next, k.Prev},
		{k.Help, k.Quit},
	}
}

var defaultKeys = viewKeys{
	Up:     key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
	Down:   key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
	Left:   key.NewBinding(key.WithKeys("left", "h"), key.WithHelp("←/h", "previous byte")),
	Right:  key.NewBinding(key.WithKeys("right", "l"), key.WithHelp("→/l", "next byte")),
	Switch: key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "fields/bytes")),
	Next:   key.NewBinding(key.WithKeys("n", "]"), key.WithHelp("n", "next record")),
	Prev:   key.NewBinding(key.WithKeys("p", "["), key.WithHelp("p", "previous record")),
	Help:   key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "more keys")),
	Quit:   key.NewBinding(key.WithKeys("q", "ctrl+c", "esc"), key.WithHelp("q", "quit")),
}

type viewModel struct {
	session *layout.Session
	refs    []layout.RecordRef
	rec     int
	err     error

	hl     *bytemap.Highlighter
	list   *bytemap.Handle // follows the field cursor
	grid   *bytemap.Handle // follows the byte cursor
	field  int
	cursor int
	focus  pane

	keys  viewKeys
	help  help.Model
	fill  progress.Model
	width int
}

func newViewModel(s *layout.Session, start int) *viewModel {
	fill := progress.New(progress.WithDefaultGradient())
	fill.Width = 40

	m := &viewModel{
		session: s,
		refs:    s.ListRecords(),
		keys:    defaultKeys,
		help:    help.New(),
		fill:    fill,
		width:   80,
	}
	m.load(start)
	return m
}

// load switches to record i and resets both cursors.
func (m *viewModel) load(i int) {
	if len(m.refs) == 0 {
		return
	}
	m.rec = (i + len(m.refs)) % len(m.refs)
	m.field, m.cursor = 0, 0
	m.hl, m.err = nil, nil

	n, ok := m.session.LayoutOf(m.refs[m.rec].ID)
	if !ok {
		m.err = fmt.Errorf("%w: %s", layout.ErrUnknownRecord, m.refs[m.rec].ID)
		return
	}
	bm, err := byteMap(n)
	if err != nil {
		m.err = err
		return
	}
	m.hl = bytemap.NewHighlighter(bm)
	m.list = m.hl.NewHandle()
	m.grid = m.hl.NewHandle()
	m.hover()
}

// hover moves the focused pane's handle to its cursor. The other handle
// has already left.
func (m *viewModel) hover() {
	if m.hl == nil {
		return
	}
	switch m.focus {
	case listPane:
		m.list.EnterField(m.field)
	case gridPane:
		m.grid.EnterByte(m.cursor)
	}
}

func (m *viewModel) switchPane() {
	if m.hl != nil {
		m.list.Leave()
		m.grid.Leave()
	}
	if m.focus == listPane {
		m.focus = gridPane
	} else {
		m.focus = listPane
	}
	m.hover()
}

func (m *viewModel) move(delta int, bytes bool) {
	if m.hl == nil {
		return
	}
	bm := m.hl.Map()
	switch {
	case m.focus == listPane && !bytes:
		if n := len(bm.Fields()); n > 0 {
			m.field = min(max(m.field+delta, 0), n-1)
		}
	case m.focus == gridPane:
		if bm.Size() > 0 {
			m.cursor = min(max(m.cursor+delta, 0), bm.Size()-1)
		}
	}
	m.hover()
}

func (m *viewModel) Init() tea.Cmd {
	return nil
}

func (m *viewModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			return m, tea.Quit
		case key.Matches(msg, m.keys.Help):
			m.help.ShowAll = !m.help.ShowAll
		case key.Matches(msg, m.keys.Switch):
			m.switchPane()
		case key.Matches(msg, m.keys.Next):
			m.load(m.rec + 1)
		case key.Matches(msg, m.keys.Prev):
			m.load(m.rec - 1)
		case key.Matches(msg, m.keys.Up):
			m.move(-m.step(), false)
		case key.Matches(msg, m.keys.Down):
			m.move(m.step(), false)
		case key.Matches(msg, m.keys.Left):
			m.move(-1, true)
		case key.Matches(msg, m.keys.Right):
			m.move(1, true)
		}
	case tea.WindowSizeMsg:
		if msg.Width > 0 {
			m.width = msg.Width
			m.help.Width = msg.Width
		}
	}
	return m, nil
}

// step is how far up and down move: one field, or one grid row.
func (m *viewModel) step() int {
	if m.focus == gridPane {
		return rowBytes
	}
	return 1
}

func (m *viewModel) View() string {
	var b strings.Builder

	if len(m.refs) == 0 {
		b.WriteString(errorStyle.Render(layout.ErrNoRecords.Error()))
		b.WriteString("\n")
		return b.String()
	}

	ref := m.refs[m.rec]
	b.WriteString(titleStyle.Render(fmt.Sprintf("%s  #%s  (%d/%d)", ref.Name, ref.ID, m.rec+1, len(m.refs))))
	b.WriteString("\n\n")

	if m.err != nil {
		b.WriteString(errorStyle.Render(m.err.Error()))
		b.WriteString("\n\n")
		b.WriteString(m.help.View(m.keys))
		return b.String()
	}

	bm := m.hl.Map()
	ratio := 1.0
	if bm.Size() > 0 {
		ratio = float64(bm.Mapped()) / float64(bm.Size())
	}
	fmt.Fprintf(&b, "size %d  mapped %d  padding %d  ", bm.Size(), bm.Mapped(), bm.Padding())
	b.WriteString(m.fill.ViewAs(ratio))
	b.WriteString("\n")

	list, grid := paneStyle, paneStyle
	if m.focus == listPane {
		list = focusPaneStyle
	} else {
		grid = focusPaneStyle
	}
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top,
		list.Render(m.fieldList()),
		grid.Render(m.byteGrid()),
	))
	b.WriteString("\n")
	b.WriteString(m.help.View(m.keys))
	return b.String()
}

func (m *viewModel) fieldList() string {
	fields := m.hl.Map().Fields()
	if len(fields) == 0 {
		return padStyle.Render("(no fields)")
	}

	lit := make(map[int]bool)
	for _, i := range m.hl.LitFields() {
		lit[i] = true
	}

	var b strings.Builder
	for i, f := range fields {
		line := fmt.Sprintf("%2d  %-16s %s  [%d, %d)", i, f.Label(), fieldTypeStyle.Render(f.Type), f.Start, f.End)
		if f.BitWidth > 0 {
			line += fmt.Sprintf(" :%d", f.BitWidth)
		}
		switch {
		case m.focus == listPane && i == m.field:
			line = cursorStyle.Render(line)
		case lit[i]:
			line = litStyle.Render(line)
		}
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(line)
	}
	return b.String()
}

func (m *viewModel) byteGrid() string {
	bm := m.hl.Map()
	if bm.Size() == 0 {
		return padStyle.Render("(empty)")
	}

	var b strings.Builder
	for row := 0; row < bm.Size(); row += rowBytes {
		if row > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "%06x ", row)
		for i := row; i < min(row+rowBytes, bm.Size()); i++ {
			b.WriteString(" ")
			b.WriteString(m.byteCell(bm, i))
		}
	}
	return b.String()
}

func (m *viewModel) byteCell(bm *bytemap.Map, i int) string {
	owner, ok := bm.Owner(i)
	cell := "··"
	if ok {
		cell = fmt.Sprintf("%02d", owner%100)
	}
	switch {
	case m.focus == gridPane && i == m.cursor:
		return cursorStyle.Render(cell)
	case m.hl.Lit(i):
		return litStyle.Render(cell)
	case !ok:
		return padStyle.Render(cell)
	}
	return cell
}

func runView(cmd *cobra.Command, args []string) error {
	s, err := analyze(cmd, args[0])
	if err != nil {
		return err
	}
	if err := s.Require(); err != nil {
		return err
	}

	start := 0
	if len(args) == 2 {
		ref, err := s.Resolve(args[1])
		if err != nil {
			return fmt.Errorf("failed to find record: %w", err)
		}
		for i, r := range s.ListRecords() {
			if r.ID == ref.ID {
				start = i
				break
			}
		}
	}

	p := tea.NewProgram(newViewModel(s, start),
		tea.WithAltScreen(),
		tea.WithOutput(os.Stdout),
		tea.WithContext(cmd.Context()),
	)
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("failed to run viewer: %w", err)
	}
	return nil
}
