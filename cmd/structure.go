package cmd

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spigell/ups-ranker/internal/ingest"
	"github.com/spigell/ups-ranker/internal/logger"
)

var structureCmd = &cobra.Command{
	Use:   "structure",
	Short: "Draft a test structure csv from the platform problems json with the configured ai provider",
	Run: func(cmd *cobra.Command, _ []string) {
		structure(cmd)
	},
}

func init() {
	rootCmd.AddCommand(structureCmd)

	structureCmd.Flags().String("problems", "", "json file with the platform problems")
	structureCmd.Flags().String("output-file", "", "write the csv to this file instead of stdout")

	structureCmd.MarkFlagRequired("problems")
}

func structure(cmd *cobra.Command) {
	ctx := context.Background()

	logger, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	config, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}

	problems, err := os.ReadFile(cmd.Flag("problems").Value.String())
	if err != nil {
		logger.Fatal("reading problems", zap.Error(err))
	}

	assistant, err := newAssistant(ctx, config.AI, logger)
	if err != nil {
		logger.Fatal("creating ai assistant", zap.Error(err))
	}

	ts, err := assistant.GenerateTestStructure(ctx, string(problems))
	if err != nil {
		logger.Fatal("generating test structure", zap.Error(err))
	}

	var buf bytes.Buffer
	if err := ingest.WriteTestStructure(&buf, ts); err != nil {
		logger.Fatal("encoding test structure", zap.Error(err))
	}

	if file := cmd.Flag("output-file").Value.String(); file != "" {
		if err := os.WriteFile(file, buf.Bytes(), 0o644); err != nil {
			logger.Fatal("writing test structure", zap.Error(err))
		}
		logger.Info("test structure written", zap.String("filename", file), zap.Int("sections", len(ts)))
		return
	}

	fmt.Print(buf.String())
}
