package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/njyeung/comentario/config"
	"github.com/njyeung/comentario/tui"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

var rootCmd = &cobra.Command{
	Use:   "comentario",
	Short: "Read and write Comentario comments from the terminal",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		ctx, cancel := signalContext()
		defer cancel()

		if addr, _ := cmd.Flags().GetString("metrics-addr"); addr != "" {
			a.serveMetrics(ctx, addr)
		}

		return tui.Run(ctx, a.engine, tui.Options{
			Fragment: a.page.Fragment,
			AutoInit: a.cfg.AutoInit,
			Theme:    a.cfg.Theme,
			Plain:    a.cfg.Plain,
			Logger:   a.adapter,
		})
	},
}

var printCmd = &cobra.Command{
	Use:   "print",
	Short: "Print the comments of the page and exit",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		ctx, cancel := signalContext()
		defer cancel()

		if err := a.engine.Load(ctx); err != nil {
			return err
		}
		_ = a.engine.Focus(a.page.Fragment)

		width := 80
		if w, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil && w > 0 {
			width = w
		}
		return tui.Print(os.Stdout, a.engine.View(), width)
	},
}

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Log in with email and password",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		email, _ := cmd.Flags().GetString("email")
		if email == "" {
			fmt.Print("Email: ")
			line, err := bufio.NewReader(os.Stdin).ReadString('\n')
			if err != nil {
				return fmt.Errorf("reading email: %w", err)
			}
			email = strings.TrimSpace(line)
		}

		fmt.Print("Password: ")
		password, err := term.ReadPassword(int(os.Stdin.Fd()))
		fmt.Println()
		if err != nil {
			return fmt.Errorf("reading password: %w", err)
		}

		ctx, cancel := signalContext()
		defer cancel()

		if err := a.engine.Login(ctx, email, string(password)); err != nil {
			return err
		}
		if !a.engine.Authenticated() {
			return errors.New("login did not complete")
		}
		v := a.engine.View()
		fmt.Printf("Logged in as %s\n", v.Self.Name)
		return nil
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Log out and forget the stored token",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		ctx, cancel := signalContext()
		defer cancel()

		if err := a.engine.Logout(ctx); err != nil {
			return err
		}
		fmt.Println("Logged out")
		return nil
	},
}

// config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		path, _ := cmd.Flags().GetString("config")
		if path == "" {
			path = config.DefaultPath()
		}

		cfg := config.NewConfig(config.DefaultBaseDir())
		applyFlags(cmd, cfg)

		if err := config.Init(path, cfg); err != nil {
			return fmt.Errorf("failed to initialize config: %w", err)
		}

		fmt.Printf("Configuration initialized at %s\n", path)
		return nil
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		path, _ := cmd.Flags().GetString("config")
		if path == "" {
			path = config.DefaultPath()
		}

		cfg, err := config.ReadFromFile(path)
		if err != nil {
			return fmt.Errorf("failed to read config: %w", err)
		}
		if _, err := config.LoadEnv(cfg); err != nil {
			return err
		}
		applyFlags(cmd, cfg)

		fmt.Printf("# %s\n", path)
		m := &config.Manager{Format: config.FormatFor(path)}
		return m.Write(os.Stdout, cfg)
	},
}

func init() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true
	rootCmd.SilenceUsage = true

	pf := rootCmd.PersistentFlags()
	pf.StringP("config", "c", "", "config file (default "+config.DefaultPath()+")")
	pf.String("server", "", "comment server URL")
	pf.StringP("page", "p", "", "URL of the page whose comments to show")
	pf.String("page-id", "", "page path to use instead of the one in --page")
	pf.Bool("hide-deleted", false, "hide deleted comments")
	pf.Bool("plain", false, "disable colours")
	pf.String("log-level", "", "log level (debug, info, warn, error)")

	rootCmd.Flags().String("metrics-addr", "", "serve request metrics on this address, e.g. :9100")
	loginCmd.Flags().String("email", "", "account email")

	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configShowCmd)

	rootCmd.AddCommand(printCmd)
	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(logoutCmd)
	rootCmd.AddCommand(configCmd)
}
