package views

import (
	"context"
	"errors"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"taskdeck/internal/api"
	"taskdeck/internal/ui/keys"
	"taskdeck/internal/ui/styles"
)

// SignedUp signals a successful registration.
type SignedUp struct {
	Email string
}

// BackToLogin signals navigation back to the login view.
type BackToLogin struct{}

type signupResultMsg struct {
	err error
}

// SignupView is the registration form
type SignupView struct {
	gw     AuthGateway
	styles *styles.Styles
	keys   keys.KeyMap

	width  int
	height int

	email      textinput.Model
	password   textinput.Model
	confirm    textinput.Model
	focusIdx   int // 0=email, 1=password, 2=confirm, 3=button
	fieldErrs  [3]string
	serverErr  string
	submitting bool
}

// NewSignupView creates the signup form
func NewSignupView(gw AuthGateway) *SignupView {
	s := styles.NewStyles()

	email := textinput.New()
	email.Placeholder = "Enter your email"
	email.CharLimit = 100
	email.Focus()

	password := textinput.New()
	password.Placeholder = "Create a password"
	password.CharLimit = 100
	password.EchoMode = textinput.EchoPassword
	password.EchoCharacter = '•'

	confirm := textinput.New()
	confirm.Placeholder = "Confirm your password"
	confirm.CharLimit = 100
	confirm.EchoMode = textinput.EchoPassword
	confirm.EchoCharacter = '•'

	return &SignupView{
		gw:       gw,
		styles:   s,
		keys:     keys.DefaultKeyMap(),
		email:    email,
		password: password,
		confirm:  confirm,
	}
}

func (v *SignupView) Init() tea.Cmd {
	return textinput.Blink
}

func (v *SignupView) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.width = msg.Width
		v.height = msg.Height
		return v, nil

	case signupResultMsg:
		v.submitting = false
		if msg.err != nil {
			switch {
			case errors.Is(msg.err, api.ErrEmailTaken):
				v.serverErr = "That email is already registered."
			case errors.Is(msg.err, api.ErrValidation):
				v.serverErr = msg.err.Error()
			case api.IsNetworkError(msg.err):
				v.serverErr = "Cannot reach the server. Check your connection."
			default:
				v.serverErr = msg.err.Error()
			}
			return v, nil
		}
		email := strings.TrimSpace(v.email.Value())
		return v, func() tea.Msg { return SignedUp{Email: email} }

	case tea.KeyMsg:
		if v.submitting {
			return v, nil
		}

		switch {
		case msg.String() == "ctrl+c":
			return v, tea.Quit

		case key.Matches(msg, v.keys.Back):
			return v, func() tea.Msg { return BackToLogin{} }

		case msg.String() == "shift+tab":
			v.focusIdx = (v.focusIdx + 3) % 4
			v.updateFocus()
			return v, nil

		case key.Matches(msg, v.keys.Tab):
			v.focusIdx = (v.focusIdx + 1) % 4
			v.updateFocus()
			return v, nil

		case key.Matches(msg, v.keys.Enter):
			if v.focusIdx < 3 {
				v.focusIdx++
				v.updateFocus()
				return v, nil
			}
			return v.submit()
		}
	}

	var cmd tea.Cmd
	switch v.focusIdx {
	case 0:
		v.email, cmd = v.email.Update(msg)
	case 1:
		v.password, cmd = v.password.Update(msg)
	case 2:
		v.confirm, cmd = v.confirm.Update(msg)
	}
	return v, cmd
}

func (v *SignupView) submit() (tea.Model, tea.Cmd) {
	email := strings.TrimSpace(v.email.Value())
	password := v.password.Value()
	confirm := v.confirm.Value()

	v.fieldErrs = [3]string{}
	v.serverErr = ""
	if email == "" {
		v.fieldErrs[0] = "Email is required"
	}
	if password == "" {
		v.fieldErrs[1] = "Password is required"
	}
	if password != confirm {
		v.fieldErrs[2] = "Passwords do not match"
	}
	for _, e := range v.fieldErrs {
		if e != "" {
			return v, nil
		}
	}

	v.submitting = true
	return v, func() tea.Msg {
		return signupResultMsg{err: v.gw.Signup(context.Background(), email, password)}
	}
}

func (v *SignupView) updateFocus() {
	v.email.Blur()
	v.password.Blur()
	v.confirm.Blur()
	switch v.focusIdx {
	case 0:
		v.email.Focus()
	case 1:
		v.password.Focus()
	case 2:
		v.confirm.Focus()
	}
}

// View renders the view
func (v *SignupView) View() string {
	s := v.styles
	contentWidth := styles.ContentWidth(v.width)
	inputWidth := clamp(contentWidth-6, 20, 40)

	fieldStyles := [3]lipgloss.Style{s.Input, s.Input, s.Input}
	btnStyle := s.Button
	if v.focusIdx < 3 {
		fieldStyles[v.focusIdx] = s.InputFocused
	} else {
		btnStyle = s.ButtonFocused
	}

	btnLabel := " Create Account "
	if v.submitting {
		btnLabel = " Creating... "
	}

	rows := []string{
		s.Title.Render("Sign Up"),
		s.TitleMuted.Render("Start organizing your tasks in minutes."),
		"",
	}
	if v.serverErr != "" {
		rows = append(rows, s.ErrorText.Render(v.serverErr), "")
	}

	labels := [3]string{"Email:", "Password:", "Confirm Password:"}
	inputs := [3]textinput.Model{v.email, v.password, v.confirm}
	for i := 0; i < 3; i++ {
		rows = append(rows,
			labels[i],
			fieldStyles[i].Width(inputWidth).Render(inputs[i].View()),
		)
		if v.fieldErrs[i] != "" {
			rows = append(rows, s.ErrorText.Render(v.fieldErrs[i]))
		}
		rows = append(rows, "")
	}

	rows = append(rows,
		btnStyle.Render(btnLabel),
		"",
		s.TitleMuted.Render("Tab: next • Esc: back to sign in • Ctrl+C: quit"),
	)

	form := lipgloss.JoinVertical(lipgloss.Left, rows...)

	centered := lipgloss.Place(contentWidth, v.height,
		lipgloss.Center, lipgloss.Center,
		form,
	)
	return styles.CenterView(centered, v.width, v.height)
}
