package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Environment variables read by LoadEnv.
const (
	EnvSeed        = "MMUSIM_SEED"
	EnvTraceDB     = "MMUSIM_TRACE_DB"
	EnvMonitorPort = "MMUSIM_MONITOR_PORT"
)

// Env holds settings taken from the environment.
type Env struct {
	Seed        *uint64
	TraceDB     string
	MonitorPort int
}

// LoadEnv reads the optional .env files and then the process environment.
// Variables already set in the process take precedence over the files.
func LoadEnv(files ...string) (Env, error) {
	err := godotenv.Load(files...)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Env{}, fmt.Errorf("failed to load env file: %w", err)
	}

	var env Env

	if s, ok := os.LookupEnv(EnvSeed); ok && s != "" {
		seed, err := strconv.ParseUint(s, 0, 64)
		if err != nil {
			return Env{}, fmt.Errorf("invalid %s: %w", EnvSeed, err)
		}

		env.Seed = &seed
	}

	env.TraceDB = os.Getenv(EnvTraceDB)

	if s, ok := os.LookupEnv(EnvMonitorPort); ok && s != "" {
		port, err := strconv.Atoi(s)
		if err != nil || port < 0 || port > 65535 {
			return Env{}, fmt.Errorf("invalid %s: %q", EnvMonitorPort, s)
		}

		env.MonitorPort = port
	}

	return env, nil
}

// Apply copies environment overrides into the config.
func (e Env) Apply(c *HierarchyConfig) {
	if e.Seed != nil {
		c.Seed = *e.Seed
	}
}
