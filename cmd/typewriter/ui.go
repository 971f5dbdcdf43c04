// # cmd/typewriter/ui.go
package main

import (
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

var (
	titleStyle = lipgloss.NewStyle().
			MarginLeft(2).
			Foreground(lipgloss.Color("#3B82F6")).
			Bold(true).
			Render

	docStyle = lipgloss.NewStyle().Margin(1, 2)

	annotatedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#10B981")).
			Bold(true)

	skippedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FBBF24")).
			Bold(true)

	statusStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#64748B")).
			Italic(true)
)

type item struct {
	title, desc string
}

func (i item) Title() string       { return i.title }
func (i item) Description() string { return i.desc }
func (i item) FilterValue() string { return i.title + i.desc }

type model struct {
	list       list.Model
	summary    *RunSummary
	lastUpdate time.Time
	status     string
	write      func(*RunSummary) (int, error)
}

type updateMsg struct {
	summary *RunSummary
}

func (m model) Init() tea.Cmd {
	return nil
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" || msg.String() == "q" {
			return m, tea.Quit
		}
		if msg.String() == "w" && m.summary != nil && m.write != nil {
			n, err := m.write(m.summary)
			if err != nil {
				m.status = fmt.Sprintf("write failed after %d files: %v", n, err)
			} else {
				m.status = fmt.Sprintf("wrote %d files", n)
			}
		}
	case tea.WindowSizeMsg:
		h, v := docStyle.GetFrameSize()
		m.list.SetSize(msg.Width-h, msg.Height-v-4)
	case updateMsg:
		m.summary = msg.summary
		m.lastUpdate = time.Now()

		items := []list.Item{}
		for _, res := range msg.summary.Results {
			if res.Annotated > 0 {
				items = append(items, item{
					title: "Annotated",
					desc:  fmt.Sprintf("%s: %d functions", res.Path, res.Annotated),
				})
			}
			for _, d := range res.Diagnostics {
				items = append(items, item{
					title: "Skipped",
					desc:  fmt.Sprintf("%s:%s", res.Path, d),
				})
			}
		}
		m.list.SetItems(items)
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m model) View() string {
	status := statusStyle.Render(fmt.Sprintf("Last update: %v", m.lastUpdate.Format("15:04:05")))

	summary := statusStyle.Render("waiting for changes | w writes pending, q quits")
	if m.summary != nil {
		summary = fmt.Sprintf("%s | %s",
			annotatedStyle.Render(fmt.Sprintf("%d Annotated", m.summary.Annotated)),
			skippedStyle.Render(fmt.Sprintf("%d Skipped", m.summary.Skipped)))
		if m.status != "" {
			summary += " | " + statusStyle.Render(m.status)
		}
	}

	header := fmt.Sprintf("%s\n%s | %s\n", titleStyle("Type Annotation Monitor"), status, summary)
	return docStyle.Render(header + "\n" + m.list.View())
}

func initialModel(write func(*RunSummary) (int, error)) model {
	l := list.New([]list.Item{}, list.NewDefaultDelegate(), 0, 0)
	l.Title = "Annotation Activity"
	l.SetShowStatusBar(false)
	l.SetFilteringEnabled(true)

	return model{
		list:       l,
		lastUpdate: time.Now(),
		write:      write,
	}
}
