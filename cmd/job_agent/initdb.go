package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jonathan/job-agent/internal/store"
)

var initDBCmd = &cobra.Command{
	Use:   "init-db",
	Short: "Create the jobs and runs tables",
	Long:  "Connect to PostgreSQL and create the agent's schema if it does not exist.",
	RunE:  runInitDB,
}

var initDBURL string

func init() {
	initDBCmd.Flags().StringVar(&initDBURL, "db-url", "", "PostgreSQL connection URL (or DATABASE_URL)")
	rootCmd.AddCommand(initDBCmd)
}

func runInitDB(cmd *cobra.Command, args []string) error {
	url := initDBURL
	if url == "" {
		url = os.Getenv("DATABASE_URL")
	}
	if url == "" {
		return fmt.Errorf("--db-url or DATABASE_URL is required")
	}

	ctx := cmd.Context()
	st, err := store.Connect(ctx, url)
	if err != nil {
		return err
	}
	defer st.Close()

	if err := st.Init(ctx); err != nil {
		return err
	}
	fmt.Println("Schema initialized.")
	return nil
}
