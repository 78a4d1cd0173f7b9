package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/marksapp/marks/pkg/marks/client"
	"github.com/marksapp/marks/pkg/marks/reconciler"
	"github.com/marksapp/marks/pkg/marks/tui"
	"github.com/urfave/cli/v3"
)

func main() {
	app := &cli.Command{
		Name:    "marks",
		Usage:   "Personal bookmarks with live sync across sessions",
		Version: "0.1.0",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "server",
				Aliases: []string{"s"},
				Usage:   "Base URL of the marks server",
				Value:   "http://localhost:8080",
				Sources: cli.EnvVars("MARKS_SERVER"),
			},
			&cli.StringFlag{
				Name:    "token",
				Aliases: []string{"t"},
				Usage:   "Session token or API key",
				Sources: cli.EnvVars("MARKS_TOKEN"),
			},
			&cli.StringFlag{
				Name:    "email",
				Aliases: []string{"e"},
				Usage:   "Account email (password login)",
				Sources: cli.EnvVars("MARKS_EMAIL"),
			},
			&cli.StringFlag{
				Name:    "password",
				Aliases: []string{"p"},
				Usage:   "Account password (password login)",
				Sources: cli.EnvVars("MARKS_PASSWORD"),
			},
		},
		Action: run,
	}

	if err := app.Run(context.Background(), os.Args); err != nil {
		log.Fatalf("marks: %v", err)
	}
}

func run(ctx context.Context, cmd *cli.Command) error {
	c := client.New(cmd.String("server"))

	switch {
	case cmd.String("token") != "":
		c.SetToken(cmd.String("token"))
	case cmd.String("email") != "" && cmd.String("password") != "":
		if _, err := c.Login(ctx, cmd.String("email"), cmd.String("password")); err != nil {
			return fmt.Errorf("login failed: %w", err)
		}
	default:
		return errors.New("provide --token or --email and --password")
	}

	// Verify the credential before opening the session
	if _, err := c.Me(ctx); err != nil {
		return fmt.Errorf("credential check failed: %w", err)
	}

	snapshot, err := c.Snapshot(ctx)
	if err != nil {
		return fmt.Errorf("snapshot fetch failed: %w", err)
	}

	recon := reconciler.New(c)
	recon.Initialize(snapshot)
	defer recon.Close()

	sub, err := c.Subscribe(ctx)
	if err != nil {
		return fmt.Errorf("change feed subscription failed: %w", err)
	}
	defer sub.Close()

	model := tui.NewModel(ctx, recon, sub)
	p := tea.NewProgram(model, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("error running TUI: %w", err)
	}

	return nil
}
