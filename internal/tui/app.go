// Package tui is the terminal review console. It lists QUEUED drafts of
// one table at a time and lets a reviewer claim, edit, approve or reject
// them.
package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	appErrors "github.com/twopeaks/controlroom/internal/errors"
	"github.com/twopeaks/controlroom/internal/model"
)

const callTimeout = 30 * time.Second

type mode int

const (
	modeBrowse mode = iota
	modeEdit
)

type reviewItem struct {
	item model.ReviewItem
}

func (i reviewItem) Title() string {
	return fmt.Sprintf("%s · %s", i.item.Key, i.item.Channel)
}

func (i reviewItem) Description() string { return i.item.Subject }
func (i reviewItem) FilterValue() string { return i.item.Key }

type itemsLoadedMsg struct {
	table model.ReviewTable
	items []model.ReviewItem
	err   error
}

type decidedMsg struct {
	item *model.ReviewItem
	err  error
}

type claimedMsg struct {
	item *model.ReviewItem
	err  error
}

type releasedMsg struct {
	key string
	err error
}

// App is the bubbletea model of the console.
type App struct {
	reviewer Reviewer
	name     string
	table    model.ReviewTable

	list    list.Model
	subject textinput.Model
	editor  textarea.Model
	mode    mode
	// editing is the item claimed by the open editor.
	editing *model.ReviewItem

	status string
	err    error
	width  int
	height int
}

func NewApp(reviewer Reviewer, name string) *App {
	l := list.New(nil, list.NewDefaultDelegate(), 0, 0)
	l.SetShowStatusBar(false)
	l.SetFilteringEnabled(false)
	l.SetShowHelp(false)

	subj := textinput.New()
	subj.Placeholder = "Subject"
	subj.Prompt = ""

	ed := textarea.New()
	ed.Placeholder = "Edit the message…"
	ed.ShowLineNumbers = false
	ed.CharLimit = 0

	a := &App{
		reviewer: reviewer,
		name:     name,
		table:    model.TableOutreach,
		list:     l,
		subject:  subj,
		editor:   ed,
	}
	a.setTitle()
	return a
}

func (a *App) setTitle() {
	a.list.Title = fmt.Sprintf("Two Peaks review · %s", a.table)
	a.list.Styles.Title = titleStyle
}

func (a *App) Init() tea.Cmd {
	return a.load()
}

func (a *App) load() tea.Cmd {
	table := a.table
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), callTimeout)
		defer cancel()
		items, err := a.reviewer.ListQueued(ctx, table)
		return itemsLoadedMsg{table: table, items: items, err: err}
	}
}

func (a *App) selected() (model.ReviewItem, bool) {
	it, ok := a.list.SelectedItem().(reviewItem)
	if !ok {
		return model.ReviewItem{}, false
	}
	return it.item, true
}

func (a *App) decide(item model.ReviewItem, status model.Status, subject, message *string) tea.Cmd {
	d := model.Decision{
		Status:          status,
		ExpectedVersion: item.Version,
		Subject:         subject,
		Message:         message,
		ReviewedBy:      a.name,
	}
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), callTimeout)
		defer cancel()
		got, err := a.reviewer.Decide(ctx, item.Table, item.ID, d)
		return decidedMsg{item: got, err: err}
	}
}

func (a *App) claim(item model.ReviewItem) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), callTimeout)
		defer cancel()
		got, err := a.reviewer.Claim(ctx, item.Table, item.ID, a.name)
		return claimedMsg{item: got, err: err}
	}
}

func (a *App) release(item model.ReviewItem) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), callTimeout)
		defer cancel()
		return releasedMsg{key: item.Key, err: a.reviewer.Release(ctx, item.Table, item.ID, a.name)}
	}
}

func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width, a.height = msg.Width, msg.Height
		a.list.SetSize(msg.Width/2, msg.Height-2)
		a.editor.SetWidth(msg.Width/2 - 4)
		a.editor.SetHeight(msg.Height / 2)
		a.subject.Width = msg.Width/2 - 14
		return a, nil

	case itemsLoadedMsg:
		if msg.table != a.table {
			return a, nil
		}
		if msg.err != nil {
			a.err = msg.err
			return a, nil
		}
		items := make([]list.Item, len(msg.items))
		for i, it := range msg.items {
			items[i] = reviewItem{item: it}
		}
		cmd := a.list.SetItems(items)
		a.list.Title = fmt.Sprintf("Two Peaks review · %s · %d queued", a.table, len(items))
		return a, cmd

	case decidedMsg:
		if msg.err != nil {
			a.err = msg.err
			if appErrors.IsConflict(msg.err) || appErrors.IsNotFound(msg.err) || isStale(msg.err) {
				return a, a.load()
			}
			return a, nil
		}
		a.err = nil
		a.status = fmt.Sprintf("%s %s", msg.item.Key, msg.item.Status)
		return a, a.load()

	case claimedMsg:
		if msg.err != nil {
			a.err = msg.err
			return a, nil
		}
		a.err = nil
		a.status = fmt.Sprintf("claimed %s", msg.item.Key)
		return a, nil

	case releasedMsg:
		if msg.err != nil {
			a.err = msg.err
			return a, nil
		}
		a.status = fmt.Sprintf("released %s", msg.key)
		return a, nil

	case tea.KeyMsg:
		if a.mode == modeEdit {
			return a.updateEdit(msg)
		}
		return a.updateBrowse(msg)
	}

	var cmd tea.Cmd
	a.list, cmd = a.list.Update(msg)
	return a, cmd
}

func (a *App) updateBrowse(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return a, tea.Quit
	case "t":
		if a.table == model.TableOutreach {
			a.table = model.TableFulfillment
		} else {
			a.table = model.TableOutreach
		}
		a.setTitle()
		a.list.SetItems(nil)
		return a, a.load()
	case "g":
		return a, a.load()
	}

	item, ok := a.selected()
	switch msg.String() {
	case "a":
		if ok {
			return a, a.decide(item, model.StatusApproved, nil, nil)
		}
	case "x":
		if ok {
			return a, a.decide(item, model.StatusRejected, nil, nil)
		}
	case "c":
		if ok {
			return a, a.claim(item)
		}
	case "e":
		if ok {
			a.mode = modeEdit
			a.editing = &item
			a.subject.SetValue(item.Subject)
			a.editor.SetValue(item.Message)
			a.subject.Blur()
			return a, tea.Batch(a.editor.Focus(), a.claim(item))
		}
	default:
		var cmd tea.Cmd
		a.list, cmd = a.list.Update(msg)
		return a, cmd
	}
	return a, nil
}

func (a *App) leaveEdit() *model.ReviewItem {
	item := a.editing
	a.mode = modeBrowse
	a.editing = nil
	a.subject.Blur()
	a.editor.Blur()
	return item
}

func (a *App) updateEdit(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		if item := a.leaveEdit(); item != nil {
			return a, a.release(*item)
		}
		return a, nil
	case "tab":
		if a.subject.Focused() {
			a.subject.Blur()
			return a, a.editor.Focus()
		}
		a.editor.Blur()
		return a, a.subject.Focus()
	case "ctrl+s":
		item := a.leaveEdit()
		if item == nil {
			return a, nil
		}
		subject, message := a.subject.Value(), a.editor.Value()
		return a, a.decide(*item, model.StatusApproved, &subject, &message)
	}
	var cmd tea.Cmd
	if a.subject.Focused() {
		a.subject, cmd = a.subject.Update(msg)
	} else {
		a.editor, cmd = a.editor.Update(msg)
	}
	return a, cmd
}

func isStale(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && (apiErr.Status == 404 || apiErr.Status == 409)
}

func (a *App) View() string {
	left := a.list.View()

	var right strings.Builder
	if item, ok := a.selected(); ok {
		fmt.Fprintf(&right, "%s %s\n", labelStyle.Render("To:"), item.Recipient)
		if a.mode == modeEdit {
			fmt.Fprintf(&right, "%s %s\n", labelStyle.Render("Subject:"), a.subject.View())
		} else {
			fmt.Fprintf(&right, "%s %s\n", labelStyle.Render("Subject:"), item.Subject)
		}
		fmt.Fprintf(&right, "%s v%d\n\n", labelStyle.Render("Version:"), item.Version)
		if a.mode == modeEdit {
			right.WriteString(a.editor.View())
		} else {
			right.WriteString(item.Message)
		}
	} else {
		right.WriteString("Nothing queued.")
	}
	detailWidth := a.width/2 - 2
	if detailWidth < 20 {
		detailWidth = 40
	}
	body := lipgloss.JoinHorizontal(lipgloss.Top, left, detailStyle.Width(detailWidth).Render(right.String()))

	footer := statusStyle.Render(a.status)
	if a.err != nil {
		footer = errorStyle.Render("error: " + a.err.Error())
	}
	help := "a approve · x reject · e edit · c claim · t table · g refresh · q quit"
	if a.mode == modeEdit {
		help = "ctrl+s approve with edits · tab subject/message · esc cancel"
	}
	return lipgloss.JoinVertical(lipgloss.Left, body, footer, helpStyle.Render(help))
}
