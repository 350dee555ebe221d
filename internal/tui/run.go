package tui

import (
	"context"
	"errors"
	"log/slog"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/starford/quire/internal/notes"
	"github.com/starford/quire/internal/session"
	"github.com/starford/quire/internal/workspace"
)

// Deps are the collaborators of the UI.
type Deps struct {
	Notes     *notes.Manager
	Workspace *workspace.Workspace
	Session   *session.Session
	Email     string
	Logger    *slog.Logger
}

// Bridge forwards messages from other goroutines into a running program in
// the order they were sent. Send never blocks, so it is safe to call from
// inside Update.
type Bridge struct {
	queue chan tea.Msg
}

// NewBridge returns a bridge that buffers until Run starts the program.
func NewBridge() *Bridge {
	return &Bridge{queue: make(chan tea.Msg, 256)}
}

// Send queues msg. It is dropped when the queue is full.
func (b *Bridge) Send(msg tea.Msg) {
	select {
	case b.queue <- msg:
	default:
	}
}

func (b *Bridge) forward(ctx context.Context, p *tea.Program) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-b.queue:
			p.Send(msg)
		}
	}
}

// Notify implements workspace.Notifier.
func (b *Bridge) Notify(n workspace.Notice) {
	b.Send(noticeMsg(n))
}

// Changed asks the program to redraw. It fits workspace.WithChangeFunc.
func (b *Bridge) Changed() {
	b.Send(changedMsg{})
}

// Watch forwards every state change of mgr to the program. The returned
// function stops forwarding.
func (b *Bridge) Watch(mgr *notes.Manager) func() {
	return mgr.Subscribe(func(notes.State) {
		b.Send(collectionMsg{})
	})
}

// Run shows the UI until the user quits or ctx is cancelled. The workspace
// should be built with the same bridge as notifier and change function.
func Run(ctx context.Context, d Deps, b *Bridge) error {
	m := newModel(ctx, d, b.Send)
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))

	fctx, stop := context.WithCancel(ctx)
	defer stop()
	go b.forward(fctx, p)
	defer b.Watch(d.Notes)()

	if d.Session != nil {
		cancel := d.Session.OnChange(func(string) {
			b.Send(refreshMsg{})
		})
		defer cancel()
	}

	defer d.Workspace.Close()
	if _, err := p.Run(); err != nil {
		if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
			return nil
		}
		return err
	}
	return nil
}
