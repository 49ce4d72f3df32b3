package main

import (
	"os"

	"gopkg.in/yaml.v3"

	"github.com/syssam/indexerd"
)

// fileConfig is the optional --config YAML file (§6): process-wide defaults
// for flags the operator would otherwise have to repeat on every invocation.
// applyFileConfig fills in only flags still at their zero or default value;
// it does not know whether a flag was passed, so a flag given explicitly
// with its default value (or --metrics=false) is still overridden by the file.
type fileConfig struct {
	Database    string `yaml:"database"`
	PostgresDSN string `yaml:"postgres_dsn"`
	SQLitePath  string `yaml:"sqlite_path"`
	FuelHost    string `yaml:"fuel_node_host"`
	FuelPort    int    `yaml:"fuel_node_port"`
	LogLevel    string `yaml:"log_level"`
	Metrics     bool   `yaml:"metrics"`
}

func loadFileConfig(path string) (*fileConfig, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, indexerd.NewError(indexerd.KindConfiguration, "cmd.loadFileConfig", "reading --config file", err)
	}
	var cfg fileConfig
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return nil, indexerd.NewError(indexerd.KindConfiguration, "cmd.loadFileConfig", "parsing --config file", err)
	}
	return &cfg, nil
}

// applyFileConfig fills any flag still at its zero/default value from cfg.
func applyFileConfig(cfg *fileConfig) {
	if flagPostgresDSN == "" {
		flagPostgresDSN = cfg.PostgresDSN
	}
	if flagSQLitePath == "" {
		flagSQLitePath = cfg.SQLitePath
	}
	if cfg.Database != "" && flagDatabase == "postgres" {
		flagDatabase = cfg.Database
	}
	if cfg.FuelHost != "" && flagFuelHost == "127.0.0.1" {
		flagFuelHost = cfg.FuelHost
	}
	if cfg.FuelPort != 0 && flagFuelPort == 4000 {
		flagFuelPort = cfg.FuelPort
	}
	if flagLogLevel == "" {
		flagLogLevel = cfg.LogLevel
	}
	if cfg.Metrics {
		flagMetrics = true
	}
}
