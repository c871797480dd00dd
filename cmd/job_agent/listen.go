package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/jonathan/job-agent/internal/applier"
	"github.com/jonathan/job-agent/internal/gateway"
	"github.com/jonathan/job-agent/internal/lifecycle"
	"github.com/jonathan/job-agent/internal/store"
	"github.com/jonathan/job-agent/internal/types"
)

var listenCmd = &cobra.Command{
	Use:   "listen",
	Short: "Process approval decisions interactively",
	Long:  "Read approval tokens (apply_<id>, skip_<id>, review_<id>) and query commands (stats, pending, applied, runs) from stdin, execute them against the job store, and print the outcome of each.",
	RunE:  runListen,
}

var (
	listenProfilePath  string
	listenDBURL        string
	listenAutoSubmit   bool
	listenArtifactsDir string
	listenVerbose      bool
)

func init() {
	listenCmd.Flags().StringVarP(&listenProfilePath, "profile", "p", "", "Path to candidate profile JSON (required)")
	listenCmd.Flags().StringVar(&listenDBURL, "db-url", "", "PostgreSQL connection URL (or DATABASE_URL)")
	listenCmd.Flags().BoolVar(&listenAutoSubmit, "auto-submit", false, "Click submit controls after filling forms")
	listenCmd.Flags().StringVar(&listenArtifactsDir, "artifacts-dir", "artifacts", "Directory for screenshots and page dumps")
	listenCmd.Flags().BoolVarP(&listenVerbose, "verbose", "v", false, "Print detailed debug information")

	listenCmd.MarkFlagRequired("profile")

	rootCmd.AddCommand(listenCmd)
}

func runListen(cmd *cobra.Command, args []string) error {
	url := listenDBURL
	if url == "" {
		url = os.Getenv("DATABASE_URL")
	}
	if url == "" {
		return fmt.Errorf("--db-url or DATABASE_URL is required")
	}

	profile, err := types.LoadProfile(listenProfilePath)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := store.Connect(ctx, url)
	if err != nil {
		return err
	}
	defer st.Close()
	if err := st.Init(ctx); err != nil {
		return err
	}

	filler := applier.New(applier.Options{
		AutoSubmit:   listenAutoSubmit,
		ArtifactsDir: listenArtifactsDir,
		Verbose:      listenVerbose,
	})
	console := gateway.NewConsoleNotifier(os.Stdout)
	engine := lifecycle.NewEngine(st, filler, console, profile)
	dispatcher := gateway.NewDispatcher(engine, console, 64)

	fmt.Println("Listening for approval tokens. Commands: apply_<id>, skip_<id>, review_<id>, stats, pending, applied, runs.")

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return dispatcher.Run(gctx)
	})
	g.Go(func() error {
		return readTokens(gctx, os.Stdin, dispatcher.Submit)
	})

	if err := g.Wait(); err != nil && err != context.Canceled {
		return err
	}
	return nil
}

// readTokens feeds lines from r into submit until r is exhausted or ctx is
// cancelled. The blocking read runs in its own goroutine, which the loop
// abandons on cancellation: a Ctrl-C must not wait for the next stdin line.
func readTokens(ctx context.Context, r io.Reader, submit func(string) bool) error {
	lines := make(chan string)
	scanErr := make(chan error, 1)
	go func() {
		scanner := bufio.NewScanner(r)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
		scanErr <- scanner.Err()
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err := <-scanErr:
			return err
		case token := <-lines:
			if !submit(token) {
				log.Printf("[LISTENER] queue full, dropped %q", token)
			}
		}
	}
}
