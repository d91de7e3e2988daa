package views

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"taskdeck/internal/api"
	"taskdeck/internal/metrics"
	"taskdeck/internal/models"
	"taskdeck/internal/sync"
	"taskdeck/internal/ui/keys"
	"taskdeck/internal/ui/styles"
)

// clamp returns val clamped between minVal and maxVal
func clamp(val, minVal, maxVal int) int {
	if val < minVal {
		return minVal
	}
	if val > maxVal {
		return maxVal
	}
	return val
}

// SessionExpired signals that the server rejected the token; the app must
// return to the login view and drop any draft state.
type SessionExpired struct{}

// LoggedOut signals an explicit logout.
type LoggedOut struct{}

type tasksSyncedMsg struct {
	tasks []models.Task
}

type syncFailedMsg struct {
	err error
}

var weekdayLabels = [7]string{"Mon", "Tue", "Wed", "Thu", "Fri", "Sat", "Sun"}

// DashboardView shows the task list, aggregate stats, weekly activity and
// the recently-completed history.
type DashboardView struct {
	engine *sync.Engine
	email  string
	styles *styles.Styles
	keys   keys.KeyMap

	width  int
	height int

	tasks   []models.Task
	loaded  bool
	cursor  int
	scrollY int

	// New task form
	adding       bool
	formTitle    textinput.Model
	formDesc     textinput.Model
	formDue      textinput.Model
	formFocusIdx int // 0=title, 1=desc, 2=due, 3=save
	formErr      string

	// Delete confirmation
	confirmingDelete bool
	deleteTargetID   int64
	deleteTargetName string

	statusErr string
	syncing   bool
}

// NewDashboardView creates the dashboard for the given account.
func NewDashboardView(engine *sync.Engine, email string) *DashboardView {
	s := styles.NewStyles()

	formTitle := textinput.New()
	formTitle.Placeholder = "Task title"
	formTitle.CharLimit = 200

	formDesc := textinput.New()
	formDesc.Placeholder = "Description (optional)"
	formDesc.CharLimit = 500

	formDue := textinput.New()
	formDue.Placeholder = "YYYY-MM-DD HH:MM (optional)"
	formDue.CharLimit = 16

	return &DashboardView{
		engine:    engine,
		email:     email,
		styles:    s,
		keys:      keys.DefaultKeyMap(),
		formTitle: formTitle,
		formDesc:  formDesc,
		formDue:   formDue,
	}
}

// Init initializes the view
func (v *DashboardView) Init() tea.Cmd {
	v.syncing = true
	return v.refresh
}

// refresh runs a full reconciliation against the server.
func (v *DashboardView) refresh() tea.Msg {
	if err := v.engine.Refresh(context.Background()); err != nil {
		return syncFailedMsg{err: err}
	}
	return tasksSyncedMsg{tasks: v.engine.Tasks()}
}

func (v *DashboardView) toggleTask(id int64) tea.Cmd {
	return func() tea.Msg {
		if err := v.engine.Toggle(context.Background(), id); err != nil {
			return syncFailedMsg{err: err}
		}
		return tasksSyncedMsg{tasks: v.engine.Tasks()}
	}
}

func (v *DashboardView) deleteTask(id int64) tea.Cmd {
	return func() tea.Msg {
		if err := v.engine.Delete(context.Background(), id); err != nil {
			return syncFailedMsg{err: err}
		}
		return tasksSyncedMsg{tasks: v.engine.Tasks()}
	}
}

func (v *DashboardView) createTask(draft models.TaskDraft) tea.Cmd {
	return func() tea.Msg {
		if err := v.engine.Create(context.Background(), draft); err != nil {
			return syncFailedMsg{err: err}
		}
		return tasksSyncedMsg{tasks: v.engine.Tasks()}
	}
}

// Update handles messages
func (v *DashboardView) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.width = msg.Width
		v.height = msg.Height
		return v, nil

	case tasksSyncedMsg:
		v.tasks = msg.tasks
		v.loaded = true
		v.syncing = false
		v.statusErr = ""
		if v.cursor >= len(v.tasks) {
			v.cursor = max(0, len(v.tasks)-1)
		}
		// A successful submit closes the form and clears the draft.
		if v.adding && v.formErr == "" {
			v.closeForm()
		}
		return v, nil

	case syncFailedMsg:
		v.syncing = false
		if errors.Is(msg.err, sync.ErrSessionExpired) {
			return v, func() tea.Msg { return SessionExpired{} }
		}
		if v.adding {
			// Draft is retained for correction.
			v.formErr = friendlyError(msg.err)
			return v, nil
		}
		v.statusErr = friendlyError(msg.err)
		if errors.Is(msg.err, api.ErrNotFound) {
			// The target vanished (deleted elsewhere); reconcile.
			v.syncing = true
			return v, v.refresh
		}
		return v, nil

	case tea.KeyMsg:
		if v.confirmingDelete {
			return v.updateConfirmDelete(msg)
		}
		if v.adding {
			return v.updateForm(msg)
		}
		return v.updateNormal(msg)
	}

	return v, nil
}

func (v *DashboardView) updateNormal(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, v.keys.Quit):
		return v, tea.Quit

	case key.Matches(msg, v.keys.Up):
		if v.cursor > 0 {
			v.cursor--
			v.ensureVisible()
		}
		return v, nil

	case key.Matches(msg, v.keys.Down):
		if v.cursor < len(v.tasks)-1 {
			v.cursor++
			v.ensureVisible()
		}
		return v, nil

	case key.Matches(msg, v.keys.New):
		v.adding = true
		v.formFocusIdx = 0
		v.formErr = ""
		v.formTitle.Reset()
		v.formDesc.Reset()
		v.formDue.Reset()
		v.updateFormFocus()
		return v, textinput.Blink

	case key.Matches(msg, v.keys.Toggle):
		if len(v.tasks) > 0 {
			v.syncing = true
			return v, v.toggleTask(v.tasks[v.cursor].ID)
		}
		return v, nil

	case key.Matches(msg, v.keys.Delete):
		if len(v.tasks) > 0 {
			v.confirmingDelete = true
			v.deleteTargetID = v.tasks[v.cursor].ID
			v.deleteTargetName = v.tasks[v.cursor].Title
		}
		return v, nil

	case key.Matches(msg, v.keys.Refresh):
		v.syncing = true
		return v, v.refresh

	case key.Matches(msg, v.keys.Logout):
		return v, func() tea.Msg { return LoggedOut{} }
	}

	return v, nil
}

func (v *DashboardView) updateConfirmDelete(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "y", "Y":
		v.confirmingDelete = false
		v.syncing = true
		return v, v.deleteTask(v.deleteTargetID)
	case "n", "N", "esc":
		v.confirmingDelete = false
		return v, nil
	}
	return v, nil
}

func (v *DashboardView) updateForm(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, v.keys.Back):
		v.closeForm()
		return v, nil

	case msg.String() == "ctrl+s":
		return v, v.submitForm()

	case msg.String() == "shift+tab":
		v.formFocusIdx = (v.formFocusIdx + 3) % 4
		v.updateFormFocus()
		return v, nil

	case key.Matches(msg, v.keys.Tab):
		v.formFocusIdx = (v.formFocusIdx + 1) % 4
		v.updateFormFocus()
		return v, nil

	case key.Matches(msg, v.keys.Enter):
		if v.formFocusIdx < 3 {
			v.formFocusIdx++
			v.updateFormFocus()
			return v, nil
		}
		return v, v.submitForm()
	}

	var cmd tea.Cmd
	switch v.formFocusIdx {
	case 0:
		v.formTitle, cmd = v.formTitle.Update(msg)
	case 1:
		v.formDesc, cmd = v.formDesc.Update(msg)
	case 2:
		v.formDue, cmd = v.formDue.Update(msg)
	}
	return v, cmd
}

func (v *DashboardView) submitForm() tea.Cmd {
	title := strings.TrimSpace(v.formTitle.Value())
	if title == "" {
		v.formErr = "Title is required"
		return nil
	}

	draft := models.TaskDraft{
		Title:       title,
		Description: strings.TrimSpace(v.formDesc.Value()),
		DueDate:     strings.TrimSpace(v.formDue.Value()),
	}
	v.formErr = ""
	v.syncing = true
	return v.createTask(draft)
}

func (v *DashboardView) closeForm() {
	v.adding = false
	v.formErr = ""
	v.formTitle.Reset()
	v.formDesc.Reset()
	v.formDue.Reset()
}

func (v *DashboardView) updateFormFocus() {
	v.formTitle.Blur()
	v.formDesc.Blur()
	v.formDue.Blur()
	switch v.formFocusIdx {
	case 0:
		v.formTitle.Focus()
	case 1:
		v.formDesc.Focus()
	case 2:
		v.formDue.Focus()
	}
}

func (v *DashboardView) ensureVisible() {
	// Each task item is 2 lines + 1 margin = 3 lines
	visibleItems := v.listCapacity()
	if v.cursor < v.scrollY {
		v.scrollY = v.cursor
	} else if v.cursor >= v.scrollY+visibleItems {
		v.scrollY = v.cursor - visibleItems + 1
	}
}

func (v *DashboardView) listCapacity() int {
	availableHeight := v.height - 22
	if availableHeight < 3 {
		availableHeight = 3
	}
	visibleItems := availableHeight / 3
	if visibleItems < 1 {
		visibleItems = 1
	}
	return visibleItems
}

func friendlyError(err error) string {
	switch {
	case errors.Is(err, api.ErrNotFound):
		return "That task no longer exists; reloading."
	case errors.Is(err, api.ErrValidation):
		return err.Error()
	case api.IsNetworkError(err):
		return "Cannot reach the server; press r to retry."
	default:
		return err.Error()
	}
}

// View renders the view
func (v *DashboardView) View() string {
	if v.confirmingDelete {
		return v.renderDeleteConfirm()
	}

	var b strings.Builder

	b.WriteString(v.renderHeader())
	b.WriteString("\n\n")
	b.WriteString(v.renderStats())
	b.WriteString("\n\n")

	if v.adding {
		b.WriteString(v.renderForm())
		b.WriteString("\n")
	} else {
		b.WriteString(v.renderTaskList())
		b.WriteString("\n\n")
		b.WriteString(v.renderPanels())
		b.WriteString("\n")
	}

	if v.statusErr != "" {
		b.WriteString(v.styles.ErrorText.Render(v.statusErr))
		b.WriteString("\n")
	}
	b.WriteString(v.renderHelp())

	return styles.CenterView(b.String(), v.width, v.height)
}

func (v *DashboardView) renderHeader() string {
	s := v.styles
	title := s.Title.Render("Task Dashboard")

	account := v.email
	if v.syncing {
		account += " • syncing..."
	}
	return lipgloss.JoinHorizontal(lipgloss.Center,
		title, "  ", s.TitleMuted.Render(account),
	)
}

func (v *DashboardView) renderStats() string {
	s := v.styles
	stats := metrics.Compute(v.tasks, time.Now())

	cards := []struct {
		label string
		value int
	}{
		{"Due Today", stats.DueToday},
		{"Upcoming", stats.Pending},
		{"Completed", stats.Completed},
		{"Overdue", stats.Overdue},
	}

	var rendered []string
	for _, c := range cards {
		valueStyle := s.StatValue
		if c.label == "Overdue" && c.value > 0 {
			valueStyle = valueStyle.Foreground(styles.Current.Error)
		}
		card := lipgloss.JoinVertical(lipgloss.Left,
			valueStyle.Render(fmt.Sprintf("%d", c.value)),
			s.StatLabel.Render(c.label),
		)
		rendered = append(rendered, s.StatCard.Render(card))
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, rendered...)
}

func (v *DashboardView) renderTaskList() string {
	s := v.styles

	if !v.loaded {
		return s.TitleMuted.Render("Loading...")
	}
	if len(v.tasks) == 0 {
		return s.TitleMuted.Render("No tasks found. Press 'n' to add one.")
	}

	var items []string
	endIdx := min(v.scrollY+v.listCapacity(), len(v.tasks))

	for i := v.scrollY; i < endIdx; i++ {
		items = append(items, v.renderTaskItem(v.tasks[i], i == v.cursor))
	}

	return lipgloss.JoinVertical(lipgloss.Left, items...)
}

func (v *DashboardView) renderTaskItem(task models.Task, selected bool) string {
	s := v.styles
	contentWidth := styles.ContentWidth(v.width)
	width := max(contentWidth-4, 20)

	badge := s.BadgePending.Render("○ pending")
	if task.Completed() {
		badge = s.BadgeCompleted.Render("✓ completed")
	}
	titleLine := task.Title + "  " + badge

	meta := task.Description
	if meta == "" {
		meta = "No description"
	}
	if task.DueDate != nil {
		meta += "  •  due " + task.DueDate.Format("Jan 2 15:04")
	}

	var titleStyle, metaStyle lipgloss.Style
	if selected {
		titleStyle = s.ListSelected.Width(width)
		metaStyle = s.ListSelected.Foreground(styles.Current.ForegroundDim).Width(width)
	} else {
		titleStyle = s.ListItem.Width(width)
		metaStyle = s.ListItem.Foreground(styles.Current.ForegroundDim).Width(width)
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		titleStyle.Render(titleLine),
		metaStyle.Render(meta),
	) + "\n"
}

func (v *DashboardView) renderPanels() string {
	chart := v.renderWeeklyActivity()
	history := v.renderRecentHistory()

	contentWidth := styles.ContentWidth(v.width)
	if contentWidth < 70 {
		return lipgloss.JoinVertical(lipgloss.Left, chart, history)
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, chart, "  ", history)
}

func (v *DashboardView) renderWeeklyActivity() string {
	s := v.styles
	counts := metrics.WeeklyActivity(v.tasks, time.Now())

	maxCount := 1
	for _, c := range counts {
		if c > maxCount {
			maxCount = c
		}
	}

	rows := []string{s.PanelTitle.Render("Weekly Activity"), ""}
	for i, c := range counts {
		barStyle := s.ChartBar
		if i%2 == 1 {
			barStyle = s.ChartBarAlt
		}
		bar := strings.Repeat("█", c*12/maxCount)
		rows = append(rows, fmt.Sprintf("%s %s %d",
			s.TitleMuted.Render(weekdayLabels[i]),
			barStyle.Render(bar),
			c,
		))
	}
	return s.Panel.Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}

func (v *DashboardView) renderRecentHistory() string {
	s := v.styles
	stats := metrics.Compute(v.tasks, time.Now())

	rows := []string{s.PanelTitle.Render("Recently Completed"), ""}
	if len(stats.Recent) == 0 {
		rows = append(rows, s.TitleMuted.Render("No completed tasks yet."))
	}
	for _, t := range stats.Recent {
		rows = append(rows, fmt.Sprintf("%s %s %s",
			s.BadgeCompleted.Render("✓"),
			t.Title,
			s.TitleMuted.Render(t.UpdatedAt.Format("Jan 2")),
		))
	}
	return s.Panel.Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}

func (v *DashboardView) renderForm() string {
	s := v.styles
	contentWidth := styles.ContentWidth(v.width)
	inputWidth := clamp(contentWidth-6, 20, 50)

	titleStyle := s.Input
	descStyle := s.Input
	dueStyle := s.Input
	btnStyle := s.Button
	switch v.formFocusIdx {
	case 0:
		titleStyle = s.InputFocused
	case 1:
		descStyle = s.InputFocused
	case 2:
		dueStyle = s.InputFocused
	case 3:
		btnStyle = s.ButtonFocused
	}

	rows := []string{
		s.Title.Render("Add New Task"),
		"",
		"Title:",
		titleStyle.Width(inputWidth).Render(v.formTitle.View()),
		"",
		"Description:",
		descStyle.Width(inputWidth).Render(v.formDesc.View()),
		"",
		"Due date:",
		dueStyle.Width(inputWidth).Render(v.formDue.View()),
		"",
		btnStyle.Render(" Create Task "),
	}
	if v.formErr != "" {
		rows = append(rows, "", s.ErrorText.Render(v.formErr))
	}
	rows = append(rows, "", s.TitleMuted.Render("Tab: next • Ctrl+S: save • Esc: cancel"))

	return lipgloss.JoinVertical(lipgloss.Left, rows...)
}

func (v *DashboardView) renderDeleteConfirm() string {
	s := v.styles
	contentWidth := styles.ContentWidth(v.width)

	content := lipgloss.JoinVertical(lipgloss.Center,
		s.Title.Foreground(styles.Current.Error).Render("Delete Task?"),
		"",
		s.TitleMuted.Render(fmt.Sprintf("\"%s\" will be removed permanently.", v.deleteTargetName)),
		"",
		lipgloss.JoinHorizontal(lipgloss.Center,
			s.ButtonPrimary.Render(" Y - Yes "),
			"  ",
			s.Button.Render(" N - No "),
		),
	)

	centered := lipgloss.Place(contentWidth, v.height,
		lipgloss.Center, lipgloss.Center,
		content,
	)
	return styles.CenterView(centered, v.width, v.height)
}

func (v *DashboardView) renderHelp() string {
	return v.styles.Help.Render(
		fmt.Sprintf("%s new • %s toggle • %s del • %s refresh • %s logout • %s quit",
			v.styles.HelpKey.Render("n"),
			v.styles.HelpKey.Render("c"),
			v.styles.HelpKey.Render("d"),
			v.styles.HelpKey.Render("r"),
			v.styles.HelpKey.Render("ctrl+l"),
			v.styles.HelpKey.Render("q"),
		),
	)
}
