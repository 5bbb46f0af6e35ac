package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/frahmantamala/lingkungan/internal"
	"github.com/frahmantamala/lingkungan/pkg/logger"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "lingkungan",
	Short: "Lingkungan administration",
	Long:  `Approval of Doa Lingkungan contributions and posting into the Kas Lingkungan ledger.`,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func loadConfig(path string) (*internal.Config, error) {
	// A .env next to the binary is optional; real environment variables win.
	_ = godotenv.Load()

	if os.Getenv("APP_ENV") == "production" || os.Getenv("DOCKER_ENV") == "true" {
		cfg := internal.LoadConfigFromEnv()
		if err := cfg.Validate(); err != nil {
			return nil, fmt.Errorf("error validating config from environment: %w", err)
		}
		return cfg, nil
	}

	v := viper.New()
	v.AddConfigPath(path)
	v.SetConfigName("config")
	v.SetConfigType("yml")
	v.SetEnvPrefix("ENV")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("http_server.port", 8080)
	v.SetDefault("http_server.validate_requests", true)
	v.SetDefault("database.driver", internal.DriverPostgres)
	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("security.jwt_issuer", "lingkungan")
	v.SetDefault("security.access_token_duration", "12h")
	v.SetDefault("approval.reset_policy", "keep")
	v.SetDefault("approval.timezone", "Asia/Jakarta")
	v.SetDefault("approval.view_cache_size", 128)
	v.SetDefault("approval.view_cache_ttl", "1m")
	v.SetDefault("observability.logging.env", "development")

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error reading config: %w", err)
	}

	var cfg internal.Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("error validating config: %w", err)
	}

	return &cfg, nil
}

// bootstrap loads config and initializes the process-wide logger from it.
func bootstrap() (*internal.Config, error) {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return nil, err
	}
	logger.InitWithLevel(cfg.Observability.Logging.Env, cfg.Observability.Logging.Level)
	return cfg, nil
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", ".", "directory containing config.yml")

	rootCmd.AddCommand(httpServerCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(seedCmd)
	rootCmd.AddCommand(tokenCmd)
}
