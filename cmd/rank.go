package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spigell/ups-ranker/internal/assessment"
	"github.com/spigell/ups-ranker/internal/ingest"
	"github.com/spigell/ups-ranker/internal/logger"
	"github.com/spigell/ups-ranker/internal/pipeline"
	"github.com/spigell/ups-ranker/internal/report"
)

const (
	PromptInspect    = "Inspect a candidate"
	PromptSummary    = "Show summary"
	PromptDumpToFile = "Dump report to file"
	PromptExit       = "Exit"
	PromptBack       = "back"
)

var errExit = errors.New("exit requested")

var prompt = promptui.Select{
	Label: "What next?",
	Items: []string{PromptInspect, PromptSummary, PromptDumpToFile, PromptExit},
}

var rankCmd = &cobra.Command{
	Use:   "rank",
	Short: "Score, rank and recommend candidates",
	Run: func(cmd *cobra.Command, _ []string) {
		rank(cmd)
	},
}

func init() {
	rootCmd.AddCommand(rankCmd)

	rankCmd.Flags().String("jd", "", "yaml file with the role and skill weights")
	rankCmd.Flags().String("rubric", "", "yaml file overriding the default rubric")
	rankCmd.Flags().String("structure", "", "csv file with the test structure")
	rankCmd.Flags().String("candidates", "", "candidate results: csv or platform json")
	rankCmd.Flags().StringP("format", "o", "", "output format: ascii, markdown or json")
	rankCmd.Flags().String("output-file", "", "write the json report to this file")
	rankCmd.Flags().BoolP("auto-approve", "y", false, "print the report and exit without the interactive menu")

	viper.BindPFlag("inputs.jd", rankCmd.Flags().Lookup("jd"))
	viper.BindPFlag("inputs.rubric", rankCmd.Flags().Lookup("rubric"))
	viper.BindPFlag("inputs.structure", rankCmd.Flags().Lookup("structure"))
	viper.BindPFlag("inputs.candidates", rankCmd.Flags().Lookup("candidates"))
	viper.BindPFlag("output.format", rankCmd.Flags().Lookup("format"))
	viper.BindPFlag("output.file", rankCmd.Flags().Lookup("output-file"))
}

// rank is the main command for the cli.
func rank(cmd *cobra.Command) {
	ctx := context.Background()

	logger, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	config, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}

	logger.Info("starting the ups-ranker", zap.String("version", version))

	// do not bother error since there is a valid parseable config
	pretty, _ := json.MarshalIndent(config, "", "  ")
	logger.Debug(fmt.Sprintf("starting with config: \n %s", pretty))

	if err := validateInputs(config.Inputs); err != nil {
		logger.Fatal("checking inputs", zap.Error(err))
	}

	format, err := report.ParseFormat(config.Output.Format)
	if err != nil {
		logger.Fatal("checking output format", zap.Error(err))
	}

	jd, err := ingest.LoadJDSettings(config.Inputs.JD)
	if err != nil {
		logger.Fatal("loading jd settings", zap.Error(err))
	}

	rubric, err := ingest.LoadRubric(config.Inputs.Rubric)
	if err != nil {
		logger.Fatal("loading rubric", zap.Error(err))
	}

	structure, err := ingest.LoadTestStructure(config.Inputs.Structure)
	if err != nil {
		logger.Fatal("loading test structure", zap.Error(err))
	}

	data, err := os.ReadFile(config.Inputs.Candidates)
	if err != nil {
		logger.Fatal("reading candidates", zap.Error(err))
	}

	source := pipeline.Source{
		Data:   data,
		Format: ingest.DetectFormat(config.Inputs.Candidates, data),
	}

	collab := newCollaborators(ctx, config.AI, logger)
	for _, st := range pipeline.Describe(pipeline.DefaultStages(collab)) {
		logger.Debug("pipeline stage", zap.String("name", st.Name), zap.Bool("enabled", st.Enabled), zap.String("reason", st.Reason))
	}

	rep, err := pipeline.Process(ctx, jd, rubric, structure, source, collab, pipeline.Options{
		Concurrency: config.Insights.Concurrency,
		Logger:      logger,
	})
	if err != nil {
		logger.Fatal("could not generate report", zap.Error(err))
	}

	out, err := report.Render(rep, format)
	if err != nil {
		logger.Fatal("rendering report", zap.Error(err))
	}
	fmt.Println(out)

	if config.Output.File != "" {
		if err := report.WriteFile(config.Output.File, rep); err != nil {
			logger.Fatal("writing report", zap.Error(err))
		}
		logger.Info("report written", zap.String("filename", config.Output.File))
	}

	if cmd.Flag("auto-approve").Value.String() == "true" || len(rep.ExecutiveSummary) == 0 {
		return
	}

	for {
		_, action, err := prompt.Run()
		if err != nil {
			logger.Fatal("exiting", zap.Error(err))
		}

		if err := handleAction(action, logger, rep); err != nil {
			if errors.Is(err, errExit) {
				return
			}
			logger.Fatal("exiting", zap.Error(err))
		}
	}
}

func validateInputs(in *InputsConfig) error {
	missing := make([]string, 0)
	if in.JD == "" {
		missing = append(missing, "inputs.jd")
	}
	if in.Structure == "" {
		missing = append(missing, "inputs.structure")
	}
	if in.Candidates == "" {
		missing = append(missing, "inputs.candidates")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required inputs: %s", strings.Join(missing, ", "))
	}
	return nil
}

func handleAction(action string, logger *zap.Logger, rep *assessment.FullReport) error {
	switch action {
	case PromptInspect:
		return inspect(rep)
	case PromptSummary:
		pretty, _ := json.MarshalIndent(rep.Totals, "", "  ")
		logger.Info(string(pretty), zap.String("role", rep.Role), zap.String("report_id", rep.ID))
		return nil
	case PromptDumpToFile:
		filename, err := report.DumpToTmpFile(rep)
		if err != nil {
			return fmt.Errorf("dump report to file: %w", err)
		}
		logger.Info("dumping result to file", zap.String("filename", filename))
		return nil
	case PromptExit:
		logger.Info("exiting", zap.String("reason", "got exit from prompt"))
		return errExit
	default:
		return fmt.Errorf("invalid action: %s", action)
	}
}

func inspect(rep *assessment.FullReport) error {
	items := make([]string, 0, len(rep.ExecutiveSummary)+1)
	for _, c := range rep.ExecutiveSummary {
		items = append(items, candidateLabel(c))
	}

	for {
		candidatePrompt := promptui.Select{
			Label: "Choose a candidate and press ENTER",
			Items: append(items, PromptBack),
			Size:  10,
		}

		idx, selected, err := candidatePrompt.Run()
		if err != nil {
			return err
		}
		if selected == PromptBack {
			return nil
		}

		fmt.Println(report.Candidate(rep.ExecutiveSummary[idx]))
	}
}

func candidateLabel(c assessment.RankedCandidate) string {
	return fmt.Sprintf("#%d %s (%s) / %.3f / %s", c.Rank, c.Name, c.CandidateID, c.FinalScore, c.Recommendation)
}
