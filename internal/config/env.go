package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"github.com/hunkoufanchi777/SynCW/internal/tensor"
)

// Environment keys recognised by ApplyEnv.
const (
	EnvDataDir   = "SYNCW_DATA_DIR"
	EnvSeed      = "SYNCW_SEED"
	EnvStorePath = "SYNCW_STORE_PATH"
	EnvRunName   = "SYNCW_RUN"
	EnvRankAlgo  = "SYNCW_RANK_ALGO"
	EnvDynamic   = "SYNCW_DYNAMIC"
	EnvDevice    = "SYNCW_DEVICE"
)

// ReadEnvFile parses a .env file. A missing file yields an empty map.
func ReadEnvFile(path string) (map[string]string, error) {
	env, err := godotenv.Read(path)
	if errors.Is(err, fs.ErrNotExist) {
		return map[string]string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return env, nil
}

// ApplyEnv overrides configuration fields from environment-style pairs.
// Unknown keys are ignored. Substitutions, such as an unknown rank
// algorithm falling back to dense, are reported to logger.
func (c *Config) ApplyEnv(env map[string]string, logger *log.Logger) error {
	if v, ok := env[EnvDataDir]; ok && v != "" {
		c.DataDir = v
	}
	if v, ok := env[EnvStorePath]; ok && v != "" {
		c.StorePath = v
	}
	if v, ok := env[EnvRunName]; ok && v != "" {
		c.RunName = v
	}
	if v, ok := env[EnvSeed]; ok && v != "" {
		seed, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("%w: %s=%q", ErrInvalidConfig, EnvSeed, v)
		}
		c.Seed = seed
	}
	if v, ok := env[EnvDynamic]; ok && v != "" {
		dynamic, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("%w: %s=%q", ErrInvalidConfig, EnvDynamic, v)
		}
		c.Dynamic = dynamic
	}
	if v, ok := env[EnvDevice]; ok && v != "" {
		dev, err := tensor.ParseDevice(v)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
		}
		c.Device = dev
	}
	if v, ok := env[EnvRankAlgo]; ok && v != "" {
		c.ApplyAlgorithm(v, logger)
	}
	return nil
}
