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

// AuthGateway is the slice of the remote gateway the auth views use.
type AuthGateway interface {
	Login(ctx context.Context, email, password string) (string, error)
	Signup(ctx context.Context, email, password string) error
}

// SessionWriter persists credentials after a successful login.
type SessionWriter interface {
	SetToken(token string) error
	SetEmail(email string) error
}

// LoggedIn signals a successful login; the token is already persisted.
type LoggedIn struct {
	Email string
}

// GoToSignup signals navigation to the signup view.
type GoToSignup struct{}

type loginResultMsg struct {
	token string
	err   error
}

// LoginView is the sign-in form
type LoginView struct {
	gw      AuthGateway
	session SessionWriter
	styles  *styles.Styles
	keys    keys.KeyMap

	width  int
	height int

	email      textinput.Model
	password   textinput.Model
	focusIdx   int // 0=email, 1=password, 2=button
	fieldErrs  [2]string
	serverErr  string
	notice     string
	submitting bool
}

// NewLoginView creates the login form
func NewLoginView(gw AuthGateway, session SessionWriter) *LoginView {
	s := styles.NewStyles()

	email := textinput.New()
	email.Placeholder = "Enter your email"
	email.CharLimit = 100
	email.Focus()

	password := textinput.New()
	password.Placeholder = "Enter your password"
	password.CharLimit = 100
	password.EchoMode = textinput.EchoPassword
	password.EchoCharacter = '•'

	return &LoginView{
		gw:       gw,
		session:  session,
		styles:   s,
		keys:     keys.DefaultKeyMap(),
		email:    email,
		password: password,
	}
}

// SetNotice shows a one-line message above the form (e.g. after signup).
func (v *LoginView) SetNotice(text string) {
	v.notice = text
}

func (v *LoginView) Init() tea.Cmd {
	return textinput.Blink
}

func (v *LoginView) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.width = msg.Width
		v.height = msg.Height
		return v, nil

	case loginResultMsg:
		v.submitting = false
		if msg.err != nil {
			switch {
			case errors.Is(msg.err, api.ErrInvalidCredentials):
				v.serverErr = "Invalid email or password."
			case api.IsNetworkError(msg.err):
				v.serverErr = "Cannot reach the server. Check your connection."
			default:
				v.serverErr = msg.err.Error()
			}
			return v, nil
		}

		email := strings.TrimSpace(v.email.Value())
		if err := v.session.SetToken(msg.token); err != nil {
			v.serverErr = "Cannot persist session: " + err.Error()
			return v, nil
		}
		v.session.SetEmail(email)
		return v, func() tea.Msg { return LoggedIn{Email: email} }

	case tea.KeyMsg:
		if v.submitting {
			return v, nil
		}

		switch {
		case msg.String() == "ctrl+c":
			return v, tea.Quit

		case msg.String() == "ctrl+s":
			return v, func() tea.Msg { return GoToSignup{} }

		case msg.String() == "shift+tab":
			v.focusIdx = (v.focusIdx + 2) % 3
			v.updateFocus()
			return v, nil

		case key.Matches(msg, v.keys.Tab):
			v.focusIdx = (v.focusIdx + 1) % 3
			v.updateFocus()
			return v, nil

		case key.Matches(msg, v.keys.Enter):
			if v.focusIdx < 2 {
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
	}
	return v, cmd
}

// submit runs required-field checks and dispatches the login request.
func (v *LoginView) submit() (tea.Model, tea.Cmd) {
	email := strings.TrimSpace(v.email.Value())
	password := v.password.Value()

	v.fieldErrs = [2]string{}
	v.serverErr = ""
	if email == "" {
		v.fieldErrs[0] = "Email is required"
	}
	if password == "" {
		v.fieldErrs[1] = "Password is required"
	}
	if v.fieldErrs[0] != "" || v.fieldErrs[1] != "" {
		return v, nil
	}

	v.submitting = true
	v.notice = ""
	return v, func() tea.Msg {
		token, err := v.gw.Login(context.Background(), email, password)
		return loginResultMsg{token: token, err: err}
	}
}

func (v *LoginView) updateFocus() {
	v.email.Blur()
	v.password.Blur()
	switch v.focusIdx {
	case 0:
		v.email.Focus()
	case 1:
		v.password.Focus()
	}
}

// View renders the view
func (v *LoginView) View() string {
	s := v.styles
	contentWidth := styles.ContentWidth(v.width)
	inputWidth := clamp(contentWidth-6, 20, 40)

	emailStyle := s.Input
	passwordStyle := s.Input
	btnStyle := s.Button
	switch v.focusIdx {
	case 0:
		emailStyle = s.InputFocused
	case 1:
		passwordStyle = s.InputFocused
	case 2:
		btnStyle = s.ButtonFocused
	}

	btnLabel := " Sign In "
	if v.submitting {
		btnLabel = " Signing In... "
	}

	rows := []string{
		s.Title.Render("Sign In"),
		s.TitleMuted.Render("Welcome back! Please enter your details."),
		"",
	}
	if v.notice != "" {
		rows = append(rows, s.TitleMuted.Render(v.notice), "")
	}
	if v.serverErr != "" {
		rows = append(rows, s.ErrorText.Render(v.serverErr), "")
	}

	rows = append(rows,
		"Email:",
		emailStyle.Width(inputWidth).Render(v.email.View()),
	)
	if v.fieldErrs[0] != "" {
		rows = append(rows, s.ErrorText.Render(v.fieldErrs[0]))
	}
	rows = append(rows,
		"",
		"Password:",
		passwordStyle.Width(inputWidth).Render(v.password.View()),
	)
	if v.fieldErrs[1] != "" {
		rows = append(rows, s.ErrorText.Render(v.fieldErrs[1]))
	}
	rows = append(rows,
		"",
		btnStyle.Render(btnLabel),
		"",
		s.TitleMuted.Render("Tab: next • Ctrl+S: sign up • Ctrl+C: quit"),
	)

	form := lipgloss.JoinVertical(lipgloss.Left, rows...)

	centered := lipgloss.Place(contentWidth, v.height,
		lipgloss.Center, lipgloss.Center,
		form,
	)
	return styles.CenterView(centered, v.width, v.height)
}
