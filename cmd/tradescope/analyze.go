package main

import (
	"encoding/json"
	"fmt"
	"mime"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"tradescope/internal/app"
	"tradescope/internal/logger"
	"tradescope/internal/upload"
)

var continueOut string

// builderOptions are applied to every app builder the CLI creates.
var builderOptions []app.AppBuilderOption

var analyzeCmd = &cobra.Command{
	Use:   "analyze <image>",
	Short: "Analyze one chart image and print the result as JSON",
	Args:  cobra.ExactArgs(1),
	RunE:  runAnalyze,
}

func init() {
	analyzeCmd.Flags().StringVar(&continueOut, "continue", "", "also generate a continuation image and write it to this path")
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	cfg, closeLogs, err := loadConfig()
	if err != nil {
		return err
	}
	defer closeLogs()

	data, err := os.ReadFile(args[0])
	if err != nil {
		return err
	}
	img, err := upload.FromBytes(data, mime.TypeByExtension(filepath.Ext(args[0])))
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	client, err := app.NewAppBuilder(cfg, builderOptions...).BuildInference(ctx)
	if err != nil {
		return err
	}

	res, err := client.Analyze(ctx, img)
	if err != nil {
		return err
	}
	out, err := json.MarshalIndent(res, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(out))

	if continueOut == "" {
		return nil
	}
	next, err := client.Continue(ctx, img, res)
	if err != nil {
		return err
	}
	if err := os.WriteFile(continueOut, next.Data, 0o644); err != nil {
		return err
	}
	logger.Infof("continuation image written to %s (%s, %d bytes)", continueOut, next.MIMEType, len(next.Data))
	return nil
}
