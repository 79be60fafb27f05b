// Command demo runs the comment UI against an in-memory server seeded
// with a small thread. Log in as alice@example.com or mod@example.com,
// password "demo".
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/njyeung/comentario/backend"
	"github.com/njyeung/comentario/engine"
	"github.com/njyeung/comentario/logger"
	"github.com/njyeung/comentario/model"
	"github.com/njyeung/comentario/tui"
)

const (
	domain = "demo.local"
	path   = "/hello-world"
)

func main() {
	log, logFile, err := logger.New(filepath.Join(os.TempDir(), "comentario-demo"), logger.ParseLevel("debug"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer logFile.Close()
	adapter := &logger.Adapter{L: log}

	eng, err := engine.New(engine.Options{
		Backend: seed(time.Now()),
		Tokens:  backend.NewMemoryTokenStore(),
		Logger:  adapter,
		Domain:  domain,
		Path:    path,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := tui.Run(ctx, eng, tui.Options{AutoInit: true, Logger: adapter}); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func seed(now time.Time) *backend.MemoryBackend {
	mb := backend.NewMemoryBackend()
	mb.ConfigurePage(domain, path, backend.PageConfig{
		ModerateAnonymous: true,
		Moderators:        []model.CommenterID{"mod"},
		OAuthProviders:    map[string]bool{"commento": true},
	})
	mb.AddAccount("alice@example.com", "demo", model.Commenter{ID: "alice", Name: "Alice"})
	mb.AddAccount("mod@example.com", "demo", model.Commenter{ID: "mod", Name: "Moderator"})
	mb.AddAccount("bob@example.com", "demo", model.Commenter{ID: "bob", Name: "Bob"})

	ago := func(d time.Duration) string { return now.Add(-d).UTC().Format(time.RFC3339) }
	comments := []model.Comment{
		{ID: "welcome", ParentID: model.RootID, CommenterID: "mod", Score: 4, CreationDate: ago(72 * time.Hour),
			Markdown: "Welcome! Be kind and stay on topic."},
		{ID: "q1", ParentID: model.RootID, CommenterID: "alice", Score: 7, CreationDate: ago(30 * time.Hour),
			Markdown: "Does this work with self-hosted servers?"},
		{ID: "a1", ParentID: "q1", CommenterID: "bob", Score: 3, CreationDate: ago(29 * time.Hour),
			Markdown: "Yes, point server_url at your instance."},
		{ID: "a2", ParentID: "a1", CommenterID: "alice", Score: 1, CreationDate: ago(28 * time.Hour),
			Markdown: "Thanks, that did it."},
		{ID: "gone", ParentID: "q1", CommenterID: "bob", CreationDate: ago(27 * time.Hour), Deleted: true},
		{ID: "late", ParentID: "gone", CommenterID: "alice", CreationDate: ago(26 * time.Hour),
			Markdown: "Replying to a comment that was removed."},
		{ID: "anon", ParentID: model.RootID, CommenterID: model.AnonymousCommenterID, CreationDate: ago(2 * time.Hour),
			State: model.StateUnapproved, Markdown: "First time here, nice post."},
		{ID: "recent", ParentID: model.RootID, CommenterID: "bob", Score: -2, CreationDate: ago(10 * time.Minute),
			Markdown: "I disagree with most of this."},
	}
	for _, c := range comments {
		mb.AddComment(domain, path, c)
	}
	mb.SetAttributes(domain, path, model.PageAttributes{StickyCommentID: "welcome"})
	return mb
}
