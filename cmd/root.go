package cmd

import (
	"errors"
	"log"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	app       = "ups-ranker"
	envPrefix = "UPS"
)

type Config struct {
	Inputs   *InputsConfig   `mapstructure:"inputs"`
	Insights *InsightsConfig `mapstructure:"insights"`
	AI       *AIConfig       `mapstructure:"ai"`
	Output   *OutputConfig   `mapstructure:"output"`
}

type InputsConfig struct {
	JD         string `mapstructure:"jd"`
	Rubric     string `mapstructure:"rubric"`
	Structure  string `mapstructure:"structure"`
	Candidates string `mapstructure:"candidates"`
}

type InsightsConfig struct {
	Concurrency int `mapstructure:"concurrency"`
}

type AIConfig struct {
	Enabled       bool             `mapstructure:"enabled"`
	Provider      string           `mapstructure:"provider"`
	MaxLogLength  int              `mapstructure:"max-log-length"`
	ResumeTimeout time.Duration    `mapstructure:"resume-timeout"`
	Gemini        *GeminiConfig    `mapstructure:"gemini"`
	Anthropic     *AnthropicConfig `mapstructure:"anthropic"`
}

type GeminiConfig struct {
	APIKeyFile string `mapstructure:"api-key-file"`
	Model      string `mapstructure:"model"`
	MaxRetries int    `mapstructure:"max-retries"`
}

type AnthropicConfig struct {
	APIKeyFile string `mapstructure:"api-key-file"`
	Model      string `mapstructure:"model"`
	MaxTokens  int    `mapstructure:"max-tokens"`
	MaxRetries int    `mapstructure:"max-retries"`
}

type OutputConfig struct {
	Format string `mapstructure:"format"`
	File   string `mapstructure:"file"`
}

var (
	// Used for flags.
	cfgFile string

	rootCmd = &cobra.Command{
		Use:   app,
		Short: "ups-ranker scores, ranks and recommends candidates from assessment results",
	}
)

// Execute executes the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "a config file (default is ups-ranker.yaml in current directory)")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "verbose/debug output")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "json format for logging")

	viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))

	viper.SetDefault("insights.concurrency", 4)
	viper.SetDefault("output.format", "ascii")
	viper.SetDefault("ai.provider", "gemini")
	viper.SetDefault("ai.max-log-length", 200)
	viper.SetDefault("ai.resume-timeout", "20s")
}

func initConfig() {
	// Only rank and the ai drafting commands need a config.
	if rankCmd.CalledAs() == "" && jdWeightsCmd.CalledAs() == "" && structureCmd.CalledAs() == "" {
		return
	}

	viper.SetEnvPrefix(envPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
		// An explicitly requested config must be readable.
		if err := viper.ReadInConfig(); err != nil {
			log.Fatal(err)
		}
		return
	}

	viper.AddConfigPath(".")
	viper.SetConfigName(app)
	viper.SetConfigType("yaml")

	// Inputs may come from flags and env alone.
	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			log.Fatal(err)
		}
	}
}

func getConfig() (*Config, error) {
	var config *Config
	err := viper.Unmarshal(&config)
	if err != nil {
		return config, err
	}
	if config == nil {
		config = &Config{}
	}
	if config.Inputs == nil {
		config.Inputs = &InputsConfig{}
	}
	if config.Insights == nil {
		config.Insights = &InsightsConfig{}
	}
	if config.Output == nil {
		config.Output = &OutputConfig{}
	}

	return config, nil
}
