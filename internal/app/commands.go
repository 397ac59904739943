package app

import (
	"context"
	"errors"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/Thomah/le-ptit-terminal/internal/config"
	"github.com/Thomah/le-ptit-terminal/internal/eventbrite"
	"github.com/Thomah/le-ptit-terminal/internal/storage"
)

const (
	// Fetch deadlines are generous because an expired token reroutes the
	// call through the interactive browser authorization first.
	fetchTimeout  = 4 * time.Minute
	searchTimeout = 4 * time.Minute
	storeTimeout  = 5 * time.Second

	snapshotKeep = 20
)

type rosterMsg struct {
	token  string
	roster *eventbrite.Roster
	err    error
}

type searchMsg struct {
	token string
	hits  []eventbrite.SearchHit
	err   error
}

type snapshotMsg struct {
	roster *eventbrite.Roster
	err    error
}

type snapshotSavedMsg struct {
	err error
}

type settingSavedMsg struct {
	label string
	err   error
}

type clipboardMsg struct {
	value string
	err   error
}

type browserMsg struct {
	url string
	err error
}

type tickMsg struct {
	at time.Time
}

func tickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(at time.Time) tea.Msg {
		return tickMsg{at: at}
	})
}

func fetchRosterCmd(client *eventbrite.Client, token string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), fetchTimeout)
		defer cancel()
		roster, err := client.FetchRoster(ctx)
		return rosterMsg{token: token, roster: roster, err: err}
	}
}

func searchByNameCmd(client *eventbrite.Client, token, firstName, lastName string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), searchTimeout)
		defer cancel()
		hits, err := client.SearchByName(ctx, firstName, lastName)
		return searchMsg{token: token, hits: hits, err: err}
	}
}

func loadSnapshotCmd(store *storage.Store) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
		defer cancel()
		roster, err := store.Latest(ctx)
		if errors.Is(err, storage.ErrNoSnapshot) {
			return snapshotMsg{}
		}
		return snapshotMsg{roster: roster, err: err}
	}
}

func saveSnapshotCmd(store *storage.Store, roster *eventbrite.Roster) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
		defer cancel()
		if err := store.Save(ctx, roster); err != nil {
			return snapshotSavedMsg{err: err}
		}
		return snapshotSavedMsg{err: store.Prune(ctx, snapshotKeep)}
	}
}

func saveSettingCmd(configPath, label, value string, apply func(*config.Config, string)) tea.Cmd {
	return func() tea.Msg {
		cfg, err := config.Load(configPath)
		if err != nil {
			return settingSavedMsg{label: label, err: err}
		}
		apply(cfg, value)
		return settingSavedMsg{label: label, err: config.Save(configPath, cfg)}
	}
}

func copyToClipboardCmd(value string, copyFn func(string) error) tea.Cmd {
	return func() tea.Msg {
		return clipboardMsg{value: value, err: copyFn(value)}
	}
}

func openURLCmd(url string, openFn func(string) error) tea.Cmd {
	return func() tea.Msg {
		return browserMsg{url: url, err: openFn(url)}
	}
}
