package cmd

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spigell/rallypoint/internal/ai/gemini"
	"github.com/spigell/rallypoint/internal/logger"
	"github.com/spigell/rallypoint/internal/recommend"
)

const (
	app       = "rallypoint"
	envPrefix = "RALLYPOINT"
)

type Config struct {
	Server   *ServerConfig   `mapstructure:"server"`
	Database *DatabaseConfig `mapstructure:"database"`
	AI       *AIConfig       `mapstructure:"ai"`
}

type ServerConfig struct {
	Listen            string        `mapstructure:"listen"`
	ReadTimeout       time.Duration `mapstructure:"read-timeout"`
	WriteTimeout      time.Duration `mapstructure:"write-timeout"`
	ShutdownTimeout   time.Duration `mapstructure:"shutdown-timeout"`
	EnrichConcurrency int           `mapstructure:"enrich-concurrency"`
}

type DatabaseConfig struct {
	Path string `mapstructure:"path"`
}

type AIConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	Provider     string        `mapstructure:"provider"`
	Timeout      time.Duration `mapstructure:"timeout"`
	ProbeTimeout time.Duration `mapstructure:"probe-timeout"`
	Gemini       *GeminiConfig `mapstructure:"gemini"`
}

type GeminiConfig struct {
	APIKey       string `mapstructure:"api-key"`
	APIKeyFile   string `mapstructure:"api-key-file"`
	Model        string `mapstructure:"model"`
	MaxRetries   int    `mapstructure:"max-retries"`
	MaxLogLength int    `mapstructure:"max-log-length"`
}

var (
	// Used for flags.
	cfgFile string
	envFile string

	rootCmd = &cobra.Command{
		Use:          app,
		Short:        "rallypoint collects project requests and staffs job postings with team recommendations",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if cmd == versionCmd {
				return nil
			}
			return initConfig(viper.GetViper())
		},
	}
)

// Execute executes the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	setDefaults(viper.GetViper())

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "a config file (default is rallypoint.yaml in current directory, optional)")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file loaded into the environment when present")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "verbose/debug output")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "json format for logging")

	viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.listen", ":8000")
	v.SetDefault("server.read-timeout", 15*time.Second)
	v.SetDefault("server.write-timeout", 60*time.Second)
	v.SetDefault("server.shutdown-timeout", 10*time.Second)
	v.SetDefault("server.enrich-concurrency", 4)

	v.SetDefault("database.path", "rallypoint.db")

	v.SetDefault("ai.enabled", true)
	v.SetDefault("ai.provider", "gemini")
	v.SetDefault("ai.timeout", recommend.DefaultTimeout)
	v.SetDefault("ai.probe-timeout", recommend.DefaultProbeTimeout)
	v.SetDefault("ai.gemini.api-key", "")
	v.SetDefault("ai.gemini.api-key-file", "")
	v.SetDefault("ai.gemini.model", gemini.DefaultModel)
	v.SetDefault("ai.gemini.max-retries", 2)
	v.SetDefault("ai.gemini.max-log-length", 200)
}

// initConfig loads the dotenv file, binds the environment and reads the
// config file. A missing default config file is not an error.
func initConfig(v *viper.Viper) error {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("loading %s: %w", envFile, err)
		}
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if err := v.BindEnv("ai.gemini.api-key", "GEMINI_API_KEY"); err != nil {
		return fmt.Errorf("binding GEMINI_API_KEY environment variable: %w", err)
	}
	if err := v.BindEnv("ai.gemini.api-key-file", "GEMINI_API_KEY_FILE"); err != nil {
		return fmt.Errorf("binding GEMINI_API_KEY_FILE environment variable: %w", err)
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("reading config %s: %w", cfgFile, err)
		}
		return nil
	}

	v.AddConfigPath(".")
	v.SetConfigName(app)
	v.SetConfigType("yaml")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("reading config: %w", err)
	}

	return nil
}

func getConfig(v *viper.Viper) (*Config, error) {
	var config *Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}

	if config == nil || config.Server == nil || config.Database == nil || config.AI == nil || config.AI.Gemini == nil {
		return nil, errors.New("incomplete configuration")
	}

	return config, nil
}

func newLogger() (*zap.Logger, error) {
	log, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		return nil, fmt.Errorf("creating a logger: %w", err)
	}
	return log, nil
}
