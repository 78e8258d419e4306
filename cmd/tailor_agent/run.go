package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/jonathan/doc-tailor/internal/config"
)

// pollInterval is how often the one-shot run checks job progress.
const pollInterval = 500 * time.Millisecond

var runCommand = &cobra.Command{
	Use:   "run",
	Short: "Run the tailoring pipeline once for a single posting",
	Long: `Submits one job posting through the full pipeline: extract -> match -> generate -> render.

Configuration can be loaded from a JSON file using --config. Command-line arguments override config file values.`,
	RunE: runOnce,
}

var (
	runConfigPath  string
	runPostingPath string
	runProfilePath string
	runAPIKey      string
	runArtifactDir string
	runDatabaseURL string
)

func init() {
	runCommand.Flags().StringVar(&runConfigPath, "config", "", "Path to config.json file (values can be overridden by other flags)")
	runCommand.Flags().StringVarP(&runPostingPath, "posting", "p", "", "Path to job posting text or HTML file (required)")
	runCommand.Flags().StringVar(&runProfilePath, "profile", "", "Path to applicant profile JSON")
	runCommand.Flags().StringVar(&runAPIKey, "api-key", "", "Gemini API Key (optional, defaults to GEMINI_API_KEY env var)")
	runCommand.Flags().StringVarP(&runArtifactDir, "out", "o", "", "Directory rendered documents are written to")
	runCommand.Flags().StringVar(&runDatabaseURL, "db-url", "", "PostgreSQL connection URL (optional, defaults to DATABASE_URL env var)")

	rootCmd.AddCommand(runCommand)
}

func runOnce(cmd *cobra.Command, _ []string) error {
	if runPostingPath == "" {
		return fmt.Errorf("--posting is required")
	}

	cfg, err := resolveConfig(runConfigPath, func(c *config.Config) {
		if cmd.Flags().Changed("profile") {
			c.ProfilePath = runProfilePath
		}
		if cmd.Flags().Changed("api-key") {
			c.APIKey = runAPIKey
		}
		if cmd.Flags().Changed("out") {
			c.ArtifactDir = runArtifactDir
		}
		if cmd.Flags().Changed("db-url") {
			c.DatabaseURL = runDatabaseURL
		}
	})
	if err != nil {
		return err
	}

	posting, err := os.ReadFile(runPostingPath)
	if err != nil {
		return fmt.Errorf("failed to read posting file: %w", err)
	}

	ctx := context.Background()
	eng, err := buildEngine(ctx, cfg)
	if err != nil {
		return err
	}
	defer eng.Close()

	id, err := eng.orch.Submit(ctx, string(posting))
	if err != nil {
		return err
	}
	fmt.Printf("Job %s submitted\n", id)

	// Poll until the job reaches a terminal state.
	var lastStage string
	for {
		j, err := eng.orch.GetStatus(ctx, id)
		if err != nil {
			return err
		}
		if n := len(j.StageResults); n > 0 && j.StageResults[n-1].Stage != lastStage {
			lastStage = j.StageResults[n-1].Stage
			fmt.Printf("  %s done (%dms)\n", lastStage, j.StageResults[n-1].DurationMs)
		}
		if j.Status.Terminal() {
			if j.Failure != nil {
				return fmt.Errorf("job failed at %s (%s): %s", j.Failure.Stage, j.Failure.Kind, j.Failure.Message)
			}
			for _, path := range j.ArtifactPaths {
				fmt.Printf("Wrote %s\n", path)
			}
			return nil
		}
		time.Sleep(pollInterval)
	}
}
