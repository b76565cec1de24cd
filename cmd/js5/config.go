package main

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// config mirrors js5.yaml.
type config struct {
	Cache struct {
		Dir      string `mapstructure:"dir"`
		ReadOnly bool   `mapstructure:"read_only"`
	} `mapstructure:"cache"`

	Write struct {
		Compression string `mapstructure:"compression"`
		Whirlpool   bool   `mapstructure:"whirlpool"`
		Sizes       bool   `mapstructure:"sizes"`
	} `mapstructure:"write"`

	Log struct {
		Level string `mapstructure:"level"`
	} `mapstructure:"log"`

	Output struct {
		Format string `mapstructure:"format"`
	} `mapstructure:"output"`

	Verify struct {
		Workers int    `mapstructure:"workers"`
		Keys    string `mapstructure:"keys"`
	} `mapstructure:"verify"`
}

func (a *app) load(cmd *cobra.Command) error {
	v := a.v
	if a.configFile != "" {
		v.SetConfigFile(a.configFile)
	} else {
		v.SetConfigName("js5")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.js5")
	}

	v.SetDefault("cache.dir", ".")
	v.SetDefault("cache.read_only", false)
	v.SetDefault("write.compression", "gzip")
	v.SetDefault("write.whirlpool", false)
	v.SetDefault("write.sizes", false)
	v.SetDefault("log.level", "warn")
	v.SetDefault("output.format", "table")
	v.SetDefault("verify.workers", 0)
	v.SetDefault("verify.keys", "")

	v.SetEnvPrefix("JS5")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("read config: %w", err)
		}
	}
	if err := v.Unmarshal(&a.cfg); err != nil {
		return fmt.Errorf("decode config: %w", err)
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(a.cfg.Log.Level)); err != nil {
		return fmt.Errorf("log level: %w", err)
	}
	a.logger = slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
	return nil
}
