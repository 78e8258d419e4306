package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/jonathan/doc-tailor/internal/config"
	"github.com/jonathan/doc-tailor/internal/server"
)

var (
	serveConfigPath string
	servePort       int
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the REST API server",
	Long:  `Start an HTTP server that exposes REST endpoints for submitting postings and tracking tailoring jobs.`,
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveConfigPath, "config", "", "Path to config.json file")
	serveCmd.Flags().IntVar(&servePort, "port", 0, "Port to listen on (overrides config)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := resolveConfig(serveConfigPath, func(c *config.Config) {
		if cmd.Flags().Changed("port") {
			c.Port = servePort
		}
	})
	if err != nil {
		return err
	}

	eng, err := buildEngine(context.Background(), cfg)
	if err != nil {
		return err
	}
	defer eng.Close()

	srv := server.New(server.Config{Port: cfg.Port}, eng.orch, eng.metrics)
	return srv.Start()
}
