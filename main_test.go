package main

import (
	"testing"

	"github.com/njyeung/comentario/config"
	"github.com/spf13/cobra"
)

func TestApplyFlags(t *testing.T) {
	newCmd := func() *cobra.Command {
		cmd := &cobra.Command{Use: "test"}
		f := cmd.Flags()
		f.String("server", "", "")
		f.String("page", "", "")
		f.String("page-id", "", "")
		f.Bool("hide-deleted", false, "")
		f.Bool("plain", false, "")
		f.String("log-level", "", "")
		return cmd
	}

	t.Run("set flags override", func(t *testing.T) {
		cmd := newCmd()
		if err := cmd.ParseFlags([]string{"--server", "https://c.example.com", "--page", "https://blog.example.com/post", "--plain"}); err != nil {
			t.Fatalf("ParseFlags() error = %v", err)
		}
		cfg := config.NewConfig(t.TempDir())
		cfg.ServerURL = "https://old.example.com"

		applyFlags(cmd, cfg)

		if cfg.ServerURL != "https://c.example.com" {
			t.Errorf("ServerURL = %s", cfg.ServerURL)
		}
		if cfg.PageURL != "https://blog.example.com/post" {
			t.Errorf("PageURL = %s", cfg.PageURL)
		}
		if !cfg.Plain {
			t.Error("Plain should be set")
		}
	})

	t.Run("unset flags keep config", func(t *testing.T) {
		cmd := newCmd()
		cfg := config.NewConfig(t.TempDir())
		cfg.ServerURL = "https://old.example.com"
		cfg.HideDeleted = true

		applyFlags(cmd, cfg)

		if cfg.ServerURL != "https://old.example.com" || !cfg.HideDeleted || cfg.LogLevel != "info" {
			t.Errorf("config changed without flags: %+v", cfg)
		}
	})
}
