// Package config loads CLI settings from config files, the environment and
// .env files.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/mitchellh/go-homedir"
	"github.com/spf13/afero"
	"github.com/spf13/viper"
)

// AppFs is the file system used by the CLI. Tests replace it with an
// in-memory one.
var AppFs = afero.NewOsFs()

// FileName is the config file name without extension.
const FileName = ".entityql"

// Config holds the application configuration
type Config struct {
	ModelPath   string
	Dialect     string
	OutputPath  string
	DatabaseURL string
	Debug       bool
}

func newViper(fs afero.Fs) *viper.Viper {
	v := viper.New()
	v.SetFs(fs)
	v.SetConfigName(FileName)
	v.SetConfigType("yaml")
	v.SetEnvPrefix("ENTITYQL")
	v.AutomaticEnv()

	v.SetDefault("model_path", "model.yaml")
	v.SetDefault("dialect", "postgresql")
	v.SetDefault("output_path", "")
	v.SetDefault("debug", false)
	return v
}

// Load reads .entityql.yaml from the working directory, the home directory
// or ~/.config/entityql, whichever is found first. ENTITYQL_* environment
// variables override file values. DATABASE_URL comes from the environment
// after .env and then .env.local have been applied.
func Load() (*Config, error) {
	v := newViper(AppFs)
	v.AddConfigPath(".")
	if home, err := homedir.Dir(); err == nil {
		v.AddConfigPath(home)
		v.AddConfigPath(filepath.Join(home, ".config", "entityql"))
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	if err := loadEnv(".env", false); err != nil {
		return nil, err
	}
	if err := loadEnv(".env.local", true); err != nil {
		return nil, err
	}

	return &Config{
		ModelPath:   v.GetString("model_path"),
		Dialect:     v.GetString("dialect"),
		OutputPath:  v.GetString("output_path"),
		DatabaseURL: os.Getenv("DATABASE_URL"),
		Debug:       v.GetBool("debug"),
	}, nil
}

// loadEnv applies a dotenv file if it exists. Without override, variables
// already set in the environment win.
func loadEnv(path string, override bool) error {
	f, err := AppFs.Open(path)
	if err != nil {
		return nil
	}
	defer f.Close()

	vars, err := godotenv.Parse(f)
	if err != nil {
		return fmt.Errorf("failed to parse %s: %w", path, err)
	}
	for k, val := range vars {
		if _, set := os.LookupEnv(k); set && !override {
			continue
		}
		if err := os.Setenv(k, val); err != nil {
			return err
		}
	}
	return nil
}

// Save writes cfg to dir/.entityql.yaml and returns the file path.
// DatabaseURL is never written.
func Save(cfg *Config, dir string) (string, error) {
	v := newViper(AppFs)
	v.Set("model_path", cfg.ModelPath)
	v.Set("dialect", cfg.Dialect)
	v.Set("output_path", cfg.OutputPath)
	v.Set("debug", cfg.Debug)

	if err := AppFs.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	path := filepath.Join(dir, FileName+".yaml")
	if err := v.WriteConfigAs(path); err != nil {
		return "", fmt.Errorf("failed to write config: %w", err)
	}
	return path, nil
}
