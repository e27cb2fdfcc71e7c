package cli

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/dmitrijs2005/gophchat/internal/client/client"
	"github.com/dmitrijs2005/gophchat/internal/client/models"
	"github.com/dmitrijs2005/gophchat/internal/common"
)

var errNoThread = errors.New("no thread selected, use /new or /open")

func (a *App) Threads(ctx context.Context) error {
	threads, err := a.api.Threads(ctx)
	if err != nil {
		return a.check(ctx, err)
	}
	a.threads = threads

	if len(threads) == 0 {
		fmt.Fprintln(a.out, "No threads yet. Type a message to start one.")
		return nil
	}
	for i, t := range threads {
		mark := " "
		if t.ID == a.threadID {
			mark = "*"
		}
		fmt.Fprintf(a.out, "%s %2d. %s  (%s)\n", mark, i+1, t.DisplayTitle(), t.UpdatedAt.Local().Format("2006-01-02 15:04"))
		if t.LastMessage != nil {
			fmt.Fprintf(a.out, "       %s: %s\n", t.LastMessage.Role, preview(t.LastMessage.Content, 60))
		}
	}
	return nil
}

func (a *App) NewThread(ctx context.Context, title string) error {
	t, err := a.api.CreateThread(ctx, title)
	if err != nil {
		return a.check(ctx, err)
	}
	a.switchTo(t)
	fmt.Fprintln(a.out, "Started", t.DisplayTitle())
	return a.save(ctx)
}

// Open switches to a thread by its number in the last /threads listing
// or by id, then prints its history.
func (a *App) Open(ctx context.Context, ref string) error {
	if ref == "" {
		return errors.New("usage: /open <n|id>")
	}

	if n, err := strconv.Atoi(ref); err == nil {
		if a.threads == nil {
			if err := a.refreshThreads(ctx); err != nil {
				return err
			}
		}
		if n < 1 || n > len(a.threads) {
			return fmt.Errorf("no thread #%d, see /threads", n)
		}
		a.switchTo(&a.threads[n-1])
	} else {
		if err := a.refreshThreads(ctx); err != nil {
			return err
		}
		found := false
		for i := range a.threads {
			if a.threads[i].ID == ref {
				a.switchTo(&a.threads[i])
				found = true
				break
			}
		}
		if !found {
			return fmt.Errorf("thread %s: %w", ref, common.ErrorNotFound)
		}
	}

	if err := a.save(ctx); err != nil {
		return err
	}
	return a.History(ctx)
}

func (a *App) refreshThreads(ctx context.Context) error {
	threads, err := a.api.Threads(ctx)
	if err != nil {
		return a.check(ctx, err)
	}
	a.threads = threads
	return nil
}

func (a *App) switchTo(t *models.Thread) {
	if t.ID != a.threadID {
		a.attachments = nil
	}
	a.threadID = t.ID
	a.threadTitle = ""
	if t.Title != nil {
		a.threadTitle = *t.Title
	}
}

// History prints the current thread. Attachments are numbered across the
// thread for /download.
func (a *App) History(ctx context.Context) error {
	if a.threadID == "" {
		return errNoThread
	}
	msgs, err := a.api.Messages(ctx, a.threadID)
	if err != nil {
		return a.check(ctx, err)
	}

	a.attachments = a.attachments[:0]
	if len(msgs) == 0 {
		fmt.Fprintln(a.out, "(empty thread)")
	}
	for _, m := range msgs {
		who := "you"
		if m.Role == "assistant" {
			who = "assistant"
		}
		content := m.Content
		if m.Metadata.Status == "failed" {
			content += " [failed]"
		}
		fmt.Fprintf(a.out, "%s: %s\n", who, content)
		for _, att := range m.Metadata.Attachments {
			a.attachments = append(a.attachments, att)
			fmt.Fprintf(a.out, "  [%d] %s (%s, %s)\n", len(a.attachments), att.Name, att.Type, humanSize(att.Size))
		}
	}
	return nil
}

// Send streams one turn into the current thread, creating a thread first
// when none is selected. Pending attachments go with it and are cleared
// once the server accepted the turn.
func (a *App) Send(ctx context.Context, text string) error {
	if text == "" && len(a.pending) == 0 {
		return errors.New("nothing to send, /attach a file or type a message")
	}

	if a.threadID == "" {
		t, err := a.api.CreateThread(ctx, "")
		if err != nil {
			return a.check(ctx, err)
		}
		a.switchTo(t)
		if err := a.save(ctx); err != nil {
			return err
		}
	}

	started := false
	_, err := a.api.Stream(ctx, a.threadID, text, a.pending, func(fragment string) {
		if !started {
			fmt.Fprint(a.out, "assistant: ")
			started = true
		}
		fmt.Fprint(a.out, fragment)
	})
	if started {
		fmt.Fprintln(a.out)
	}

	if err == nil || errors.Is(err, client.ErrStreamFailed) || errors.Is(err, client.ErrStreamIncomplete) {
		a.pending = nil
	}
	if err != nil {
		return a.check(ctx, err)
	}

	if a.threadTitle == "" {
		a.refreshTitle(ctx)
	}
	return nil
}

// refreshTitle picks up the title the server derived from the first turn.
func (a *App) refreshTitle(ctx context.Context) {
	if err := a.refreshThreads(ctx); err != nil {
		return
	}
	for i := range a.threads {
		if a.threads[i].ID == a.threadID && a.threads[i].Title != nil {
			a.threadTitle = *a.threads[i].Title
		}
	}
}

func preview(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}

func humanSize(n int64) string {
	switch {
	case n >= 1<<20:
		return fmt.Sprintf("%.1f MiB", float64(n)/(1<<20))
	case n >= 1<<10:
		return fmt.Sprintf("%.1f KiB", float64(n)/(1<<10))
	}
	return fmt.Sprintf("%d B", n)
}
