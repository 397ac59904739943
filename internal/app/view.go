package app

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"
)

var (
	panelBorder     = lipgloss.Color("#2D6A80")
	accentPrimary   = lipgloss.Color("#50E3C2")
	accentSecondary = lipgloss.Color("#F6AE2D")
	mutedText       = lipgloss.Color("#8CA1AE")
	warningText     = lipgloss.Color("#FF6B6B")
)

var (
	headerStyle = lipgloss.NewStyle().
			Padding(0, 1).
			Bold(true).
			Foreground(accentPrimary)

	statusStyle = lipgloss.NewStyle().
			Foreground(accentSecondary).
			Bold(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(warningText).
			Bold(true)

	panelTitleStyle = lipgloss.NewStyle().
			Foreground(accentPrimary).
			Bold(true)

	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(panelBorder).
			Padding(0, 1)

	helpStyle = lipgloss.NewStyle().
			Foreground(mutedText)

	tableHeaderStyle = lipgloss.NewStyle().
				Foreground(accentSecondary).
				Bold(true)

	selectedCellStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#05090C")).
				Background(accentPrimary).
				Bold(true)

	selectedLineStyle = lipgloss.NewStyle().
				Foreground(accentPrimary).
				Bold(true)

	mutedStyle = lipgloss.NewStyle().
			Foreground(mutedText)
)

var attendeeHeaders = []string{
	"Prénom",
	"Nom",
	"Email",
	"Téléphone",
	"Date de naissance",
	"Type d'inscription",
	"Date d'inscription",
}

// Relative column widths, summing to 100.
var attendeeColumnShares = []int{13, 13, 22, 13, 11, 14, 14}

func (m Model) View() string {
	if !m.ready {
		return "Démarrage du P'tit Terminal..."
	}

	innerWidth := maxInt(60, m.width-4)

	header := headerStyle.Render("Le P'tit Terminal — Les Ptits Gilets")

	statusPrefix := "*"
	if m.busy() {
		statusPrefix = m.spinner.View()
	}
	statusBody := strings.TrimSpace(m.statusText)
	if statusBody == "" {
		statusBody = "Prêt"
	}
	statusLine := statusStyle.Render(statusPrefix + " " + statusBody)
	if strings.TrimSpace(m.errorText) != "" {
		statusLine = errorStyle.Render(m.errorText)
	}

	var body string
	var help string
	switch m.view {
	case viewMenu:
		body = renderPanel("Menu Principal", m.renderMenu(), minInt(innerWidth, 64), len(menuEntries)+1, true)
		help = "↑/↓ naviguer | entrée valider | esc quitter"
	case viewAttendees:
		body = m.renderAttendeesBody(innerWidth)
		help = "↑↓←→ sélectionner | c copier la cellule | o ouvrir l'évènement | r rafraîchir | esc menu"
	case viewSettings:
		body = renderPanel("Paramétrage", m.renderSettings(), minInt(innerWidth, 64), len(settingsEntries)+1, true)
		help = "↑/↓ naviguer | entrée modifier | esc menu"
	case viewPrompt:
		body = m.renderPrompt(minInt(innerWidth, 72))
		help = "entrée enregistrer | esc annuler"
	case viewSearch:
		body = m.renderSearch(innerWidth)
		help = "tab changer de champ | entrée rechercher | ↑/↓ parcourir les résultats | esc menu"
	}

	parts := []string{header, statusLine, body, helpStyle.Render(help)}
	return strings.Join(parts, "\n")
}

func (m Model) renderMenu() string {
	lines := make([]string, 0, len(menuEntries))
	for idx, entry := range menuEntries {
		line := "  " + entry
		if idx == m.menuIndex {
			line = selectedLineStyle.Render("▶ " + entry)
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}

func (m Model) renderSettings() string {
	lines := make([]string, 0, len(settingsEntries))
	for idx, entry := range settingsEntries {
		line := "  " + entry
		if idx == m.settingsIndex {
			line = selectedLineStyle.Render("▶ " + entry)
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}

func (m Model) renderPrompt(width int) string {
	title := "Définir le CLIENT_ID"
	hint := "Identifiant d'application de l'API Eventbrite."
	if m.prompting == fieldClientSecret {
		title = "Définir le CLIENT_SECRET"
		hint = "Secret d'application de l'API Eventbrite."
	}
	body := strings.Join([]string{
		mutedStyle.Render(hint),
		m.promptInput.View(),
	}, "\n")
	return renderPanel(title, body, width, 3, true)
}

func (m Model) renderAttendeesBody(innerWidth int) string {
	title := "Participants"
	if m.roster != nil && m.roster.EventDate != "" {
		title = "Participants à la maraude du " + m.roster.EventDate
	}

	tableHeight := maxInt(6, m.height-8)
	body := m.renderAttendeeTable(innerWidth-4, tableHeight-1)
	if m.roster != nil {
		footer := fmt.Sprintf("%d participant(s) | récupéré le %s",
			len(m.roster.Attendees),
			m.roster.FetchedAt.Local().Format("2006-01-02 15:04"))
		body += "\n" + mutedStyle.Render(footer)
	}
	return renderPanel(title, body, innerWidth, tableHeight+1, true)
}

func (m Model) renderAttendeeTable(width, maxRows int) string {
	widths := attendeeColumnWidths(width)

	headerCells := make([]string, 0, attendeeColumns)
	for idx, label := range attendeeHeaders {
		headerCells = append(headerCells, tableHeaderStyle.Render(padCell(label, widths[idx])))
	}
	lines := []string{strings.Join(headerCells, " ")}

	if m.roster == nil || len(m.roster.Attendees) == 0 {
		if m.loading {
			lines = append(lines, mutedStyle.Render("Chargement..."))
		} else {
			lines = append(lines, mutedStyle.Render("Aucun participant. Appuyez sur r pour rafraîchir."))
		}
		return strings.Join(lines, "\n")
	}

	visibleRows := maxInt(1, maxRows-1)
	start := 0
	if m.selectedRow >= visibleRows {
		start = m.selectedRow - visibleRows + 1
	}
	end := minInt(len(m.roster.Attendees), start+visibleRows)

	for rowIdx := start; rowIdx < end; rowIdx++ {
		attendee := m.roster.Attendees[rowIdx]
		values := []string{
			attendee.Profile.FirstName,
			attendee.Profile.LastName,
			attendee.Profile.Email,
			attendee.Profile.CellPhone,
			attendee.Birthdate,
			attendee.TicketClassName,
			attendee.Created,
		}
		cells := make([]string, 0, attendeeColumns)
		for colIdx, value := range values {
			cell := padCell(value, widths[colIdx])
			if rowIdx == m.selectedRow && colIdx == m.selectedCol {
				cell = selectedCellStyle.Render(cell)
			}
			cells = append(cells, cell)
		}
		lines = append(lines, strings.Join(cells, " "))
	}
	if end < len(m.roster.Attendees) || start > 0 {
		lines = append(lines, mutedStyle.Render(fmt.Sprintf("Lignes %d-%d sur %d", start+1, end, len(m.roster.Attendees))))
	}
	return strings.Join(lines, "\n")
}

func (m Model) renderSearch(innerWidth int) string {
	width := minInt(innerWidth, 80)

	inputs := strings.Join([]string{
		m.firstNameInput.View(),
		m.lastNameInput.View(),
	}, "\n")
	inputsPanel := renderPanel("Rechercher une personne", inputs, width, 3, m.searchFocus != 2)

	var resultsBody string
	switch {
	case m.searching:
		resultsBody = "Recherche en cours..."
	case !m.searchDone:
		resultsBody = mutedStyle.Render("Renseignez prénom et nom puis appuyez sur entrée.")
	case len(m.searchHits) == 0:
		resultsBody = mutedStyle.Render("Personne introuvable sur les évènements passés.")
	default:
		resultsBody = m.searchView.View()
	}
	resultsPanel := renderPanel("Évènements", resultsBody, width, maxInt(4, m.searchView.Height+1), m.searchFocus == 2)

	return lipgloss.JoinVertical(lipgloss.Left, inputsPanel, resultsPanel)
}

func (m *Model) refreshSearchView() {
	if len(m.searchHits) == 0 {
		m.searchView.SetContent("")
		m.searchView.SetYOffset(0)
		m.searchViewLines = 0
		return
	}

	m.searchCursor = clampInt(m.searchCursor, 0, len(m.searchHits)-1)
	lines := make([]string, 0, len(m.searchHits))
	for idx, hit := range m.searchHits {
		line := fmt.Sprintf("  %s | %s", hit.EventName, hit.StartDate)
		if idx == m.searchCursor {
			line = selectedLineStyle.Render(fmt.Sprintf("▶ %s | %s", hit.EventName, hit.StartDate))
		}
		lines = append(lines, line)
	}
	m.searchView.SetContent(strings.Join(lines, "\n"))
	m.searchViewLines = len(lines)
	m.ensureSearchCursorVisible()
}

func (m *Model) ensureSearchCursorVisible() {
	if m.searchViewLines == 0 {
		m.searchView.SetYOffset(0)
		return
	}
	visibleRows := maxInt(1, m.searchView.Height)
	top := clampInt(m.searchView.YOffset, 0, m.searchViewLines-1)
	if m.searchCursor < top {
		m.searchView.SetYOffset(m.searchCursor)
		return
	}
	if m.searchCursor >= top+visibleRows {
		m.searchView.SetYOffset(m.searchCursor - visibleRows + 1)
	}
}

func (m *Model) resizeViews() {
	if m.width <= 0 || m.height <= 0 {
		return
	}
	innerWidth := maxInt(60, m.width-4)
	inputWidth := clampInt(innerWidth-14, 20, 60)
	m.firstNameInput.Width = inputWidth
	m.lastNameInput.Width = inputWidth
	m.promptInput.Width = clampInt(innerWidth-8, 20, 68)
	m.searchView.Width = maxInt(30, minInt(innerWidth, 80)-4)
	m.searchView.Height = clampInt(m.height-12, 3, 20)
}

func renderPanel(title, body string, width, height int, focused bool) string {
	borderColor := panelBorder
	if focused {
		borderColor = accentSecondary
	}
	style := panelStyle.
		BorderForeground(borderColor).
		Width(width).
		Height(height)

	titleLine := panelTitleStyle.Render(title)
	return style.Render(titleLine + "\n" + body)
}

func attendeeColumnWidths(total int) []int {
	total = maxInt(total, attendeeColumns*7)
	widths := make([]int, attendeeColumns)
	for idx, share := range attendeeColumnShares {
		widths[idx] = maxInt(6, (total-attendeeColumns+1)*share/100)
	}
	return widths
}

func padCell(value string, width int) string {
	return runewidth.FillRight(truncateText(value, width), width)
}

func truncateText(value string, width int) string {
	if runewidth.StringWidth(value) <= width {
		return value
	}
	return runewidth.Truncate(value, width, "…")
}
