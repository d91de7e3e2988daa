package ui

import (
	"log/slog"

	tea "github.com/charmbracelet/bubbletea"

	"taskdeck/internal/api"
	"taskdeck/internal/session"
	"taskdeck/internal/sync"
	"taskdeck/internal/ui/views"
)

// Currently active view
type View int

const (
	ViewLogin View = iota
	ViewSignup
	ViewDashboard
)

type App struct {
	gateway     *api.Client
	session     *session.Store
	engine      *sync.Engine
	log         *slog.Logger
	currentView View
	login       *views.LoginView
	signup      *views.SignupView
	dashboard   *views.DashboardView
	width       int
	height      int
}

// Creates a new application
func NewApp(gateway *api.Client, store *session.Store, engine *sync.Engine, log *slog.Logger) *App {
	a := &App{
		gateway: gateway,
		session: store,
		engine:  engine,
		log:     log,
		login:   views.NewLoginView(gateway, store),
	}

	// A persisted token skips the login screen; the first refresh will kick
	// us back here if the session has expired server-side.
	if store.Token() != "" {
		a.currentView = ViewDashboard
		a.dashboard = views.NewDashboardView(engine, store.Email())
	}
	return a
}

func (a *App) Init() tea.Cmd {
	if a.currentView == ViewDashboard {
		return a.dashboard.Init()
	}
	return a.login.Init()
}

func (a *App) openDashboard(email string) tea.Cmd {
	a.currentView = ViewDashboard
	a.dashboard = views.NewDashboardView(a.engine, email)

	return tea.Batch(
		a.dashboard.Init(),
		func() tea.Msg {
			return tea.WindowSizeMsg{Width: a.width, Height: a.height}
		},
	)
}

func (a *App) openLogin(notice string) tea.Cmd {
	a.currentView = ViewLogin
	a.dashboard = nil
	a.login = views.NewLoginView(a.gateway, a.session)
	if notice != "" {
		a.login.SetNotice(notice)
	}

	return tea.Batch(
		a.login.Init(),
		func() tea.Msg {
			return tea.WindowSizeMsg{Width: a.width, Height: a.height}
		},
	)
}

func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height

	case views.LoggedIn:
		a.log.Info("logged in", "email", msg.Email)
		return a, a.openDashboard(msg.Email)

	case views.GoToSignup:
		a.currentView = ViewSignup
		a.signup = views.NewSignupView(a.gateway)
		return a, tea.Batch(
			a.signup.Init(),
			func() tea.Msg {
				return tea.WindowSizeMsg{Width: a.width, Height: a.height}
			},
		)

	case views.SignedUp:
		return a, a.openLogin("Account created. Please sign in.")

	case views.BackToLogin:
		return a, a.openLogin("")

	case views.SessionExpired:
		// Token already cleared by the engine; any held draft dies with the
		// dashboard view.
		a.log.Info("session expired, returning to login")
		return a, a.openLogin("Your session has expired. Please sign in again.")

	case views.LoggedOut:
		if err := a.session.Clear(); err != nil {
			a.log.Error("clearing session on logout", "error", err)
		}
		return a, a.openLogin("")
	}

	var cmd tea.Cmd
	switch a.currentView {
	case ViewLogin:
		_, cmd = a.login.Update(msg)
	case ViewSignup:
		_, cmd = a.signup.Update(msg)
	case ViewDashboard:
		_, cmd = a.dashboard.Update(msg)
	}

	return a, cmd
}

func (a *App) View() string {
	switch a.currentView {
	case ViewSignup:
		if a.signup != nil {
			return a.signup.View()
		}
	case ViewDashboard:
		if a.dashboard != nil {
			return a.dashboard.View()
		}
	}
	return a.login.View()
}
