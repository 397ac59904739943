package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/google/uuid"

	"github.com/Thomah/le-ptit-terminal/internal/config"
	"github.com/Thomah/le-ptit-terminal/internal/eventbrite"
	"github.com/Thomah/le-ptit-terminal/internal/platform"
	"github.com/Thomah/le-ptit-terminal/internal/storage"
)

type sessionView int

const (
	viewMenu sessionView = iota
	viewAttendees
	viewSettings
	viewPrompt
	viewSearch
)

type promptField int

const (
	fieldClientID promptField = iota
	fieldClientSecret
)

const (
	attendeeColumns = 7
	statusTTL       = 4 * time.Second
)

var menuEntries = []string{
	"Lister les participants à la prochaine maraude",
	"Paramétrage",
	"Rechercher une personne",
}

var settingsEntries = []string{
	"Définir le CLIENT_ID",
	"Définir le CLIENT_SECRET",
}

type ModelOptions struct {
	// SkipSnapshot disables loading the last saved roster at startup.
	SkipSnapshot bool
}

type Model struct {
	client       *eventbrite.Client
	store        *storage.Store
	configPath   string
	skipSnapshot bool

	ready  bool
	width  int
	height int

	view          sessionView
	menuIndex     int
	settingsIndex int

	roster      *eventbrite.Roster
	selectedRow int
	selectedCol int

	loading     bool
	rosterToken string

	searching       bool
	searchToken     string
	firstNameInput  textinput.Model
	lastNameInput   textinput.Model
	searchFocus     int
	searchHits      []eventbrite.SearchHit
	searchDone      bool
	searchCursor    int
	searchView      viewport.Model
	searchViewLines int

	prompting   promptField
	promptInput textinput.Model

	spinner     spinner.Model
	statusText  string
	statusSetAt time.Time
	errorText   string

	copyFn func(string) error
	openFn func(string) error
	now    func() time.Time
}

func NewModel(client *eventbrite.Client, store *storage.Store, configPath string) Model {
	return NewModelWithOptions(client, store, configPath, ModelOptions{})
}

func NewModelWithOptions(client *eventbrite.Client, store *storage.Store, configPath string, opts ModelOptions) Model {
	spin := spinner.New()
	spin.Spinner = spinner.MiniDot
	spin.Style = lipgloss.NewStyle().Foreground(accentSecondary)

	firstName := textinput.New()
	firstName.Prompt = "Prénom > "
	firstName.CharLimit = 100
	firstName.Width = 30

	lastName := textinput.New()
	lastName.Prompt = "Nom    > "
	lastName.CharLimit = 100
	lastName.Width = 30

	prompt := textinput.New()
	prompt.Prompt = "> "
	prompt.CharLimit = 200
	prompt.Width = 60

	results := viewport.New(60, 10)

	return Model{
		client:         client,
		store:          store,
		configPath:     configPath,
		skipSnapshot:   opts.SkipSnapshot,
		view:           viewMenu,
		firstNameInput: firstName,
		lastNameInput:  lastName,
		promptInput:    prompt,
		searchView:     results,
		spinner:        spin,
		copyFn:         platform.CopyToClipboard,
		openFn:         platform.OpenURL,
		now:            time.Now,
	}
}

func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{tickCmd()}
	if m.store != nil && !m.skipSnapshot {
		cmds = append(cmds, loadSnapshotCmd(m.store))
	}
	return tea.Batch(cmds...)
}

func (m Model) busy() bool {
	return m.loading || m.searching
}

func (m *Model) setStatus(text string) {
	m.statusText = text
	m.statusSetAt = m.now()
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true
		m.resizeViews()
		m.refreshSearchView()
		return m, nil

	case spinner.TickMsg:
		if !m.busy() {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tickMsg:
		if m.statusText != "" && msg.at.Sub(m.statusSetAt) > statusTTL {
			m.statusText = ""
		}
		return m, tickCmd()

	case snapshotMsg:
		if msg.err != nil {
			m.errorText = "Could not load the cached roster: " + msg.err.Error()
			return m, nil
		}
		// Stale-but-visible: only adopt the snapshot while no live fetch
		// has populated the table.
		if msg.roster != nil && m.roster == nil {
			m.roster = msg.roster
			m.selectedRow = 0
			m.selectedCol = 0
			m.setStatus(fmt.Sprintf("Showing cached attendees fetched %s.", msg.roster.FetchedAt.Local().Format("2006-01-02 15:04")))
		}
		return m, nil

	case rosterMsg:
		if msg.token == "" || msg.token != m.rosterToken {
			return m, nil
		}
		m.loading = false
		m.rosterToken = ""
		if msg.err != nil {
			// Keep whatever roster is already on screen.
			if errors.Is(msg.err, context.DeadlineExceeded) {
				m.errorText = "Fetch timed out. Press r to retry."
			} else {
				m.errorText = "Fetch failed: " + msg.err.Error()
			}
			return m, nil
		}
		m.roster = msg.roster
		m.selectedRow = 0
		m.selectedCol = 0
		m.errorText = ""
		m.setStatus(fmt.Sprintf("%d participants chargés pour la maraude du %s.", len(msg.roster.Attendees), msg.roster.EventDate))
		if m.store != nil {
			return m, saveSnapshotCmd(m.store, msg.roster)
		}
		return m, nil

	case searchMsg:
		if msg.token == "" || msg.token != m.searchToken {
			return m, nil
		}
		m.searching = false
		m.searchToken = ""
		if msg.err != nil {
			if errors.Is(msg.err, context.DeadlineExceeded) {
				m.errorText = "Search timed out. Press entrée to retry."
			} else {
				m.errorText = "Search failed: " + msg.err.Error()
			}
			return m, nil
		}
		m.errorText = ""
		m.searchHits = msg.hits
		m.searchDone = true
		m.searchCursor = 0
		m.refreshSearchView()
		m.setStatus(fmt.Sprintf("%d évènement(s) trouvé(s).", len(msg.hits)))
		return m, nil

	case snapshotSavedMsg:
		if msg.err != nil {
			m.errorText = "Could not save the roster snapshot: " + msg.err.Error()
		}
		return m, nil

	case settingSavedMsg:
		if msg.err != nil {
			m.errorText = "Could not save " + msg.label + ": " + msg.err.Error()
			return m, nil
		}
		m.errorText = ""
		m.setStatus(msg.label + " enregistré.")
		return m, nil

	case clipboardMsg:
		if msg.err != nil {
			m.errorText = "Clipboard copy failed: " + msg.err.Error()
			return m, nil
		}
		m.errorText = ""
		m.setStatus("Copié dans le presse-papiers : " + truncateText(msg.value, 32))
		return m, nil

	case browserMsg:
		if msg.err != nil {
			m.errorText = "Could not open the browser: " + msg.err.Error()
			return m, nil
		}
		m.errorText = ""
		m.setStatus("Page de l'évènement ouverte dans le navigateur.")
		return m, nil

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
		switch m.view {
		case viewMenu:
			return m.updateMenuKeys(msg)
		case viewAttendees:
			return m.updateAttendeeKeys(msg)
		case viewSettings:
			return m.updateSettingsKeys(msg)
		case viewPrompt:
			return m.updatePromptKeys(msg)
		case viewSearch:
			return m.updateSearchKeys(msg)
		}
	}

	return m, nil
}

func (m Model) updateMenuKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		return m, tea.Quit
	case "down", "j":
		m.menuIndex = (m.menuIndex + 1) % len(menuEntries)
	case "up", "k":
		m.menuIndex = (m.menuIndex + len(menuEntries) - 1) % len(menuEntries)
	case "enter":
		switch m.menuIndex {
		case 0:
			m.view = viewAttendees
			return m, m.startRosterFetch()
		case 1:
			m.view = viewSettings
			m.settingsIndex = 0
		case 2:
			m.view = viewSearch
			m.resetSearchState()
			return m, textinput.Blink
		}
	}
	return m, nil
}

func (m *Model) startRosterFetch() tea.Cmd {
	m.rosterToken = uuid.NewString()
	m.loading = true
	m.errorText = ""
	m.setStatus("Chargement des participants...")
	return tea.Batch(m.spinner.Tick, fetchRosterCmd(m.client, m.rosterToken))
}

func (m Model) updateAttendeeKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	rows := 0
	if m.roster != nil {
		rows = len(m.roster.Attendees)
	}

	switch msg.String() {
	case "esc":
		m.view = viewMenu
		return m, nil
	case "up", "k":
		if rows > 0 {
			m.selectedRow = clampInt(m.selectedRow-1, 0, rows-1)
		}
	case "down", "j":
		if rows > 0 {
			m.selectedRow = clampInt(m.selectedRow+1, 0, rows-1)
		}
	case "left", "h":
		m.selectedCol = clampInt(m.selectedCol-1, 0, attendeeColumns-1)
	case "right", "l":
		m.selectedCol = clampInt(m.selectedCol+1, 0, attendeeColumns-1)
	case "r":
		// A new token supersedes any in-flight fetch; the superseded
		// result is dropped later on token mismatch.
		return m, m.startRosterFetch()
	case "c":
		value := m.selectedCellValue()
		if strings.TrimSpace(value) == "" {
			m.setStatus("Nothing to copy for this cell.")
			return m, nil
		}
		return m, copyToClipboardCmd(value, m.copyFn)
	case "o":
		if m.roster == nil || strings.TrimSpace(m.roster.EventURL) == "" {
			m.setStatus("No event page to open.")
			return m, nil
		}
		return m, openURLCmd(m.roster.EventURL, m.openFn)
	}
	return m, nil
}

func (m Model) updateSettingsKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.view = viewMenu
	case "down", "j":
		m.settingsIndex = (m.settingsIndex + 1) % len(settingsEntries)
	case "up", "k":
		m.settingsIndex = (m.settingsIndex + len(settingsEntries) - 1) % len(settingsEntries)
	case "enter":
		if m.settingsIndex == 0 {
			m.prompting = fieldClientID
		} else {
			m.prompting = fieldClientSecret
		}
		m.view = viewPrompt
		m.promptInput.SetValue("")
		m.promptInput.Focus()
		return m, textinput.Blink
	}
	return m, nil
}

func (m Model) updatePromptKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.view = viewSettings
		m.promptInput.Blur()
		return m, nil
	case "enter":
		value := strings.TrimSpace(m.promptInput.Value())
		m.view = viewSettings
		m.promptInput.Blur()
		if value == "" {
			m.errorText = "Value must not be empty."
			return m, nil
		}
		m.errorText = ""
		if m.prompting == fieldClientID {
			return m, saveSettingCmd(m.configPath, "CLIENT_ID", value, func(cfg *config.Config, v string) {
				cfg.ClientID = v
			})
		}
		return m, saveSettingCmd(m.configPath, "CLIENT_SECRET", value, func(cfg *config.Config, v string) {
			cfg.ClientSecret = v
		})
	}
	var cmd tea.Cmd
	m.promptInput, cmd = m.promptInput.Update(msg)
	return m, cmd
}

func (m Model) updateSearchKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.view = viewMenu
		m.firstNameInput.Blur()
		m.lastNameInput.Blur()
		return m, nil
	case "tab":
		m.setSearchFocus((m.searchFocus + 1) % 3)
		return m, nil
	case "shift+tab", "backtab":
		m.setSearchFocus((m.searchFocus + 2) % 3)
		return m, nil
	case "enter":
		firstName := strings.TrimSpace(m.firstNameInput.Value())
		lastName := strings.TrimSpace(m.lastNameInput.Value())
		if firstName == "" || lastName == "" {
			m.errorText = "Prénom et nom sont requis."
			return m, nil
		}
		m.errorText = ""
		m.searchToken = uuid.NewString()
		m.searching = true
		m.searchDone = false
		m.setStatus("Recherche en cours...")
		return m, tea.Batch(m.spinner.Tick, searchByNameCmd(m.client, m.searchToken, firstName, lastName))
	case "up", "k":
		if m.searchFocus == 2 && len(m.searchHits) > 0 {
			m.searchCursor = clampInt(m.searchCursor-1, 0, len(m.searchHits)-1)
			m.refreshSearchView()
			return m, nil
		}
	case "down", "j":
		if m.searchFocus == 2 && len(m.searchHits) > 0 {
			m.searchCursor = clampInt(m.searchCursor+1, 0, len(m.searchHits)-1)
			m.refreshSearchView()
			return m, nil
		}
	}

	var cmd tea.Cmd
	switch m.searchFocus {
	case 0:
		m.firstNameInput, cmd = m.firstNameInput.Update(msg)
	case 1:
		m.lastNameInput, cmd = m.lastNameInput.Update(msg)
	}
	return m, cmd
}

func (m *Model) resetSearchState() {
	m.firstNameInput.SetValue("")
	m.lastNameInput.SetValue("")
	m.searchHits = nil
	m.searchDone = false
	m.searchCursor = 0
	m.setSearchFocus(0)
	m.refreshSearchView()
}

func (m *Model) setSearchFocus(focus int) {
	m.searchFocus = focus
	m.firstNameInput.Blur()
	m.lastNameInput.Blur()
	switch focus {
	case 0:
		m.firstNameInput.Focus()
	case 1:
		m.lastNameInput.Focus()
	}
}

// selectedCellValue resolves the highlighted table cell; it returns ""
// when no row sits under the cursor.
func (m Model) selectedCellValue() string {
	if m.roster == nil || m.selectedRow >= len(m.roster.Attendees) {
		return ""
	}
	attendee := m.roster.Attendees[m.selectedRow]
	switch m.selectedCol {
	case 0:
		return attendee.Profile.FirstName
	case 1:
		return attendee.Profile.LastName
	case 2:
		return attendee.Profile.Email
	case 3:
		return attendee.Profile.CellPhone
	case 4:
		return attendee.Birthdate
	case 5:
		return attendee.TicketClassName
	case 6:
		return attendee.Created
	default:
		return ""
	}
}

func clampInt(v, low, high int) int {
	if v < low {
		return low
	}
	if v > high {
		return high
	}
	return v
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
