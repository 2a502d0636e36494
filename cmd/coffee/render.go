package main

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/flemzord/coffee/internal/live"
	"github.com/flemzord/coffee/internal/thread"
	"github.com/flemzord/coffee/pkg/message"
)

var (
	accent  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212"))
	muted   = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
	failed  = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	badge   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("230")).Background(lipgloss.Color("62")).Padding(0, 1)
	mine    = lipgloss.NewStyle().Foreground(lipgloss.Color("86"))
	pending = lipgloss.NewStyle().Italic(true).Foreground(lipgloss.Color("244"))
)

func renderConversations(w io.Writer, cs []message.Conversation) {
	if len(cs) == 0 {
		fmt.Fprintln(w, muted.Render("No conversations yet."))
		return
	}
	for _, c := range cs {
		name := c.Name
		if name == "" {
			name = c.CounterpartID
		}
		line := accent.Render(name) + " " + muted.Render(c.LastTimestamp.Local().Format(time.DateTime))
		if c.UnreadCount > 0 {
			line += " " + badge.Render(fmt.Sprint(c.UnreadCount))
		}
		fmt.Fprintln(w, line)
		fmt.Fprintln(w, "  "+c.LastMessage)
	}
}

// threadPrinter prints entries of a live thread once per delivery state.
type threadPrinter struct {
	w    io.Writer
	self string

	mu      sync.Mutex
	printed map[string]thread.State
	stale   bool
}

func newThreadPrinter(w io.Writer, self string) *threadPrinter {
	return &threadPrinter{w: w, self: self, printed: make(map[string]thread.State)}
}

func (p *threadPrinter) print(snap live.Snapshot) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if snap.Stale != p.stale {
		p.stale = snap.Stale
		if snap.Stale {
			fmt.Fprintln(p.w, failed.Render("realtime connection lost, messages may be out of date"))
		} else {
			fmt.Fprintln(p.w, muted.Render("realtime connection restored"))
		}
	}
	if snap.Thread == nil {
		return
	}

	for _, e := range snap.Thread.Entries {
		key := e.TempID
		if key == "" {
			key = e.ID
		}
		if st, ok := p.printed[key]; ok && st == e.State {
			continue
		}
		p.printed[key] = e.State
		fmt.Fprintln(p.w, formatEntry(p.self, e))
	}
}

func formatEntry(self string, e thread.Entry) string {
	ts := muted.Render(e.CreatedAt.Local().Format(time.TimeOnly))
	who := accent.Render(e.SenderID)
	body := e.Content
	if e.SenderID == self {
		who = mine.Render("you")
	}

	switch e.State {
	case thread.Pending:
		return fmt.Sprintf("%s %s: %s %s", ts, who, body, pending.Render("(sending)"))
	case thread.Failed:
		return fmt.Sprintf("%s %s: %s %s", ts, who, body, failed.Render("(failed, /retry "+e.TempID+" or /discard "+e.TempID+")"))
	default:
		return fmt.Sprintf("%s %s: %s", ts, who, body)
	}
}
