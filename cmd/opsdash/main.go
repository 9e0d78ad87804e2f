package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"

	"github.com/nexport/opsdash/internal/access"
	"github.com/nexport/opsdash/internal/config"
	"github.com/nexport/opsdash/internal/dashboard"
	"github.com/nexport/opsdash/internal/events"
	"github.com/nexport/opsdash/internal/probe"
	"github.com/nexport/opsdash/internal/tui"
)

func main() {
	snapshot := flag.Bool("snapshot", false, "fetch once, print the board as text, and exit")
	userFlag := flag.String("user", "", "login user (overrides config)")
	flag.Parse()

	// Create signal-aware context for graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Local .env carries the password so it stays out of config files
	_ = godotenv.Load()

	cfg, err := config.LoadDefault()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error getting home directory: %v\n", err)
		os.Exit(1)
	}
	globalPath := filepath.Join(homeDir, ".opsdash", "config.json")
	projectPath := filepath.Join(".opsdash", "config.json")

	user := cfg.Backend.User
	if *userFlag != "" {
		user = *userFlag
	}
	password := os.Getenv("OPSDASH_PASSWORD")
	if password == "" {
		fmt.Fprintln(os.Stderr, "OPSDASH_PASSWORD is not set")
		os.Exit(1)
	}

	sess, err := probe.Login(ctx, cfg.Backend.BaseURL, user, password)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error logging in: %v\n", err)
		os.Exit(1)
	}

	caps := access.Resolve(sess.Roles)
	client := probe.NewClient(cfg.Backend.BaseURL, sess.Token)
	registry := dashboard.WithDetailLinks(dashboard.DefaultRegistry(cfg, time.Now), cfg.Backend.BaseURL)

	if *snapshot {
		runSnapshot(ctx, client, registry, caps)
		return
	}

	bus := events.NewBus()
	defer bus.Close()

	runner := dashboard.NewRunner(client, bus)
	model := tui.New(bus, runner, registry, caps, cfg, globalPath, projectPath)

	// Start Bubble Tea program in a goroutine so main can handle shutdown
	p := tea.NewProgram(model, tea.WithAltScreen())

	errChan := make(chan error, 1)
	go func() {
		_, err := p.Run()
		errChan <- err
	}()

	select {
	case err := <-errChan:
		// Normal TUI exit (user pressed 'q')
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	case <-ctx.Done():
		// Signal received; restore default handling so a second Ctrl+C
		// force-exits
		stop()
		p.Quit()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		select {
		case err := <-errChan:
			if err != nil {
				log.Printf("TUI exit error: %v", err)
			}
		case <-shutdownCtx.Done():
			log.Println("Shutdown timeout exceeded, forcing exit")
		}
	}
}

// runSnapshot fetches every enabled widget once and prints the settled
// board, for cron jobs and terminals without a TTY.
func runSnapshot(ctx context.Context, client *probe.Client, registry []dashboard.Descriptor, caps access.Capabilities) {
	board := dashboard.NewBoard(registry, caps)

	if err := dashboard.RunSnapshot(ctx, client, board); err != nil {
		fmt.Fprintf(os.Stderr, "Error fetching board: %v\n", err)
		os.Exit(1)
	}

	fmt.Print(tui.RenderSnapshot(board))
	if board.Errored() > 0 {
		os.Exit(1)
	}
}
