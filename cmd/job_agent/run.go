package main

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/jonathan/job-agent/internal/applier"
	"github.com/jonathan/job-agent/internal/config"
	"github.com/jonathan/job-agent/internal/gateway"
	"github.com/jonathan/job-agent/internal/lifecycle"
	"github.com/jonathan/job-agent/internal/orchestrator"
	"github.com/jonathan/job-agent/internal/store"
	"github.com/jonathan/job-agent/internal/types"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run one ingestion and application pass",
	Long:  "Fetch pre-scored jobs from a feed file, register new ones, and either apply automatically or print approval requests. With --schedule the pass repeats on an interval.",
	RunE:  runRun,
}

var (
	runConfigPath   string
	runJobsFile     string
	runProfilePath  string
	runDBURL        string
	runAutoSubmit   bool
	runThreshold    float64
	runMaxJobs      int
	runArtifactsDir string
	runDryRun       bool
	runSchedule     bool
	runEvery        time.Duration
	runVerbose      bool
)

func init() {
	runCmd.Flags().StringVarP(&runConfigPath, "config", "c", "", "Path to JSON config file")
	runCmd.Flags().StringVar(&runJobsFile, "jobs-file", "", "Path to pre-scored jobs JSON feed (required)")
	runCmd.Flags().StringVarP(&runProfilePath, "profile", "p", "", "Path to candidate profile JSON (required)")
	runCmd.Flags().StringVar(&runDBURL, "db-url", "", "PostgreSQL connection URL (or DATABASE_URL)")
	runCmd.Flags().BoolVar(&runAutoSubmit, "auto-submit", false, "Apply to matched jobs directly and click submit controls")
	runCmd.Flags().Float64Var(&runThreshold, "threshold", 0.7, "Minimum match score to act on a job")
	runCmd.Flags().IntVar(&runMaxJobs, "max-jobs", 5, "Maximum jobs to process per pass (0 = unlimited)")
	runCmd.Flags().StringVar(&runArtifactsDir, "artifacts-dir", "artifacts", "Directory for screenshots and page dumps")
	runCmd.Flags().BoolVar(&runDryRun, "dry-run", false, "Register and score jobs without applying or notifying")
	runCmd.Flags().BoolVar(&runSchedule, "schedule", false, "Repeat the pass on an interval until interrupted")
	runCmd.Flags().DurationVar(&runEvery, "every", 6*time.Hour, "Interval between scheduled passes")
	runCmd.Flags().BoolVarP(&runVerbose, "verbose", "v", false, "Print detailed debug information")

	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}
	if cfg.JobsFile == "" {
		return fmt.Errorf("--jobs-file is required")
	}
	if cfg.ProfilePath == "" {
		return fmt.Errorf("--profile is required")
	}
	if cfg.DatabaseURL == "" {
		return fmt.Errorf("--db-url or DATABASE_URL is required")
	}

	profile, err := types.LoadProfile(cfg.ProfilePath)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := store.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer st.Close()
	if err := st.Init(ctx); err != nil {
		return err
	}

	filler := applier.New(applier.Options{
		AutoSubmit:   cfg.AutoSubmit,
		ArtifactsDir: cfg.ArtifactsDir,
		Verbose:      cfg.Verbose,
	})
	notifier := gateway.NewConsoleNotifier(os.Stdout)
	engine := lifecycle.NewEngine(st, filler, notifier, profile)

	opts := orchestrator.Options{
		Source:    orchestrator.FileSource{Path: cfg.JobsFile},
		Engine:    engine,
		Recorder:  st,
		Notifier:  notifier,
		Threshold: cfg.MatchThreshold,
		MaxJobs:   cfg.MaxJobsPerRun,
		AutoApply: cfg.AutoSubmit,
		ScoreOnly: runDryRun,
		Verbose:   cfg.Verbose,
	}

	if !runSchedule {
		_, err := orchestrator.Pass(ctx, opts)
		return err
	}

	log.Printf("[SCHEDULER] running every %s, Ctrl-C to stop", runEvery)
	ticker := time.NewTicker(runEvery)
	defer ticker.Stop()
	for {
		if _, err := orchestrator.Pass(ctx, opts); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			log.Printf("[SCHEDULER] pass failed: %v", err)
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

// resolveConfig merges the config file, environment, and CLI flags. Flags
// the user set explicitly always win; then the config file; then env vars;
// then flag defaults.
func resolveConfig(cmd *cobra.Command) (config.Config, error) {
	fileCfg := config.Config{}
	if runConfigPath != "" {
		loaded, err := config.LoadConfig(runConfigPath)
		if err != nil {
			return config.Config{}, err
		}
		if err := loaded.Validate(); err != nil {
			return config.Config{}, err
		}
		fileCfg = *loaded
	}

	envCfg := config.Config{
		DatabaseURL: os.Getenv("DATABASE_URL"),
	}
	if v := os.Getenv("AUTO_APPLY"); v != "" {
		envCfg.AutoSubmit, _ = strconv.ParseBool(v)
	}
	if v := os.Getenv("MATCH_THRESHOLD"); v != "" {
		envCfg.MatchThreshold, _ = strconv.ParseFloat(v, 64)
	}
	if v := os.Getenv("MAX_JOBS_PER_RUN"); v != "" {
		envCfg.MaxJobsPerRun, _ = strconv.Atoi(v)
	}

	merged := fileCfg.MergeWithDefaults(envCfg)

	// CLI flags that were explicitly set take precedence over everything.
	cfg := config.Config{
		JobsFile:       runJobsFile,
		ProfilePath:    runProfilePath,
		DatabaseURL:    runDBURL,
		AutoSubmit:     runAutoSubmit,
		MatchThreshold: runThreshold,
		MaxJobsPerRun:  runMaxJobs,
		ArtifactsDir:   runArtifactsDir,
		Verbose:        runVerbose,
	}
	if !cmd.Flags().Changed("jobs-file") {
		cfg.JobsFile = merged.JobsFile
	}
	if !cmd.Flags().Changed("profile") {
		cfg.ProfilePath = merged.ProfilePath
	}
	if !cmd.Flags().Changed("db-url") && merged.DatabaseURL != "" {
		cfg.DatabaseURL = merged.DatabaseURL
	}
	if !cmd.Flags().Changed("auto-submit") {
		cfg.AutoSubmit = merged.AutoSubmit
	}
	if !cmd.Flags().Changed("threshold") && merged.MatchThreshold != 0 {
		cfg.MatchThreshold = merged.MatchThreshold
	}
	if !cmd.Flags().Changed("max-jobs") && merged.MaxJobsPerRun != 0 {
		cfg.MaxJobsPerRun = merged.MaxJobsPerRun
	}
	if !cmd.Flags().Changed("artifacts-dir") && merged.ArtifactsDir != "" {
		cfg.ArtifactsDir = merged.ArtifactsDir
	}
	if !cmd.Flags().Changed("verbose") {
		cfg.Verbose = merged.Verbose
	}

	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}
