package cmd

import (
	"errors"
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spigell/havewant/internal/config"
	"github.com/spigell/havewant/internal/logger"
)

const (
	app = "havewant"
)

var (
	// Used for flags.
	cfgFile string

	rootCmd = &cobra.Command{
		Use:   app,
		Short: "havewant matches what people have with what other people want",
	}
)

// Execute executes the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "a config file (default is havewant.yaml in current directory)")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "verbose/debug output")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "json format for logging")

	viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))

	config.SetDefaults(viper.GetViper())
}

func initConfig() {
	// .env is optional, real environment variables win over it.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Fatalf("loading .env: %v", err)
	}

	config.BindEnv(viper.GetViper())

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigName(app)
	}

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		// Without an explicit --config everything may come from the environment.
		if cfgFile != "" || !errors.As(err, &notFound) {
			log.Fatal(err)
		}
	}
}

func getConfig() (*config.Config, error) {
	cfg, err := config.Load(viper.GetViper())
	if err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

func newLogger(cfg *config.Config) *zap.Logger {
	opts := logger.Options{
		JSON:  viper.GetBool("json"),
		Debug: viper.GetBool("debug"),
	}
	if cfg != nil {
		opts.File = cfg.Log.File
		opts.MaxSizeMB = cfg.Log.MaxSize
		opts.MaxBackups = cfg.Log.MaxBackups
		opts.MaxAgeDays = cfg.Log.MaxAge
	}

	l, err := logger.New(opts)
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	return l
}

// setup loads the config and builds the logger shared by every command.
func setup() (*config.Config, *zap.Logger) {
	cfg, err := getConfig()
	if err != nil {
		newLogger(nil).Fatal("getting a config", zap.Error(err))
	}

	return cfg, newLogger(cfg)
}
