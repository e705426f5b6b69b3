package cmd

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spigell/ups-ranker/internal/ai"
	"github.com/spigell/ups-ranker/internal/ingest"
	"github.com/spigell/ups-ranker/internal/logger"
)

var jdWeightsCmd = &cobra.Command{
	Use:   "jd-weights",
	Short: "Draft jd skill weights from a job description with the configured ai provider",
	Run: func(cmd *cobra.Command, _ []string) {
		jdWeights(cmd)
	},
}

func init() {
	rootCmd.AddCommand(jdWeightsCmd)

	jdWeightsCmd.Flags().String("jd-text", "", "file with the free-form job description")
	jdWeightsCmd.Flags().String("role", "", "role title")
	jdWeightsCmd.Flags().String("structure", "", "csv file with the test structure, its skills are weighted")
	jdWeightsCmd.Flags().String("output-file", "", "write the yaml settings to this file instead of stdout")

	jdWeightsCmd.MarkFlagRequired("jd-text")
}

func jdWeights(cmd *cobra.Command) {
	ctx := context.Background()

	logger, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	config, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}

	structurePath := cmd.Flag("structure").Value.String()
	if structurePath == "" {
		structurePath = config.Inputs.Structure
	}
	if structurePath == "" {
		logger.Fatal("test structure is required", zap.String("hint", "pass --structure or set inputs.structure"))
	}

	structure, err := ingest.LoadTestStructure(structurePath)
	if err != nil {
		logger.Fatal("loading test structure", zap.Error(err))
	}

	text, err := os.ReadFile(cmd.Flag("jd-text").Value.String())
	if err != nil {
		logger.Fatal("reading job description", zap.Error(err))
	}

	assistant, err := newAssistant(ctx, config.AI, logger)
	if err != nil {
		logger.Fatal("creating ai assistant", zap.Error(err))
	}

	jd, err := assistant.GenerateJDWeights(ctx, ai.JDRequest{
		Role:           strings.TrimSpace(cmd.Flag("role").Value.String()),
		JobDescription: string(text),
		Skills:         structure.Skills(),
	})
	if err != nil {
		logger.Fatal("generating jd weights", zap.Error(err))
	}

	// The draft is printed as is; weights outside [0, 1] are left for the reviewer.
	if err := jd.Validate(); err != nil {
		logger.Warn("generated jd settings need review", zap.Error(err))
	}

	out, err := ingest.MarshalJDSettings(jd)
	if err != nil {
		logger.Fatal("encoding jd settings", zap.Error(err))
	}

	if file := cmd.Flag("output-file").Value.String(); file != "" {
		if err := os.WriteFile(file, out, 0o644); err != nil {
			logger.Fatal("writing jd settings", zap.Error(err))
		}
		logger.Info("jd settings written", zap.String("filename", file))
		return
	}

	fmt.Print(string(out))
}
