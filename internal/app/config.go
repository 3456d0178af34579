package app

import (
	"os"

	"gopkg.in/yaml.v3"

	"github.com/yungbote/docchat-backend/internal/logger"
	"github.com/yungbote/docchat-backend/internal/utils"
)

type Config struct {
	Port              string
	MaxTokensPerChunk int
}

type fileConfig struct {
	Port    string `yaml:"port"`
	Chunker struct {
		MaxTokensPerChunk int `yaml:"maxTokensPerChunk"`
	} `yaml:"chunker"`
}

// LoadConfig resolves defaults, then an optional YAML file at CONFIG_PATH,
// then environment variables. Env wins.
func LoadConfig(log *logger.Logger) Config {
	cfg := Config{
		Port:              "8080",
		MaxTokensPerChunk: 300,
	}

	path := os.Getenv("CONFIG_PATH")
	if path == "" {
		path = "config.yaml"
	}
	if raw, err := os.ReadFile(path); err == nil {
		var fc fileConfig
		if err := yaml.Unmarshal(raw, &fc); err != nil {
			log.Warn("Ignoring malformed config file", "path", path, "error", err)
		} else {
			if fc.Port != "" {
				cfg.Port = fc.Port
			}
			if fc.Chunker.MaxTokensPerChunk > 0 {
				cfg.MaxTokensPerChunk = fc.Chunker.MaxTokensPerChunk
			}
			log.Info("Loaded config file", "path", path)
		}
	}

	cfg.Port = utils.GetEnv("PORT", cfg.Port, log)
	cfg.MaxTokensPerChunk = utils.GetEnvAsInt("MAX_TOKENS_PER_CHUNK", cfg.MaxTokensPerChunk, log)
	return cfg
}
