package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/gamma-omg/rag-context/knowledge"
	"gopkg.in/yaml.v3"
)

type ProviderConfig struct {
	Model  string `yaml:"model"`
	ApiKey string `yaml:"api_key"`
}

type ChromaConfig struct {
	Addr        string          `yaml:"addr"`
	Collection  string          `yaml:"collection"`
	QueueSize   int             `yaml:"queue_size"`
	RequestSize int             `yaml:"request_size"`
	OpenAI      *ProviderConfig `yaml:"open_ai"`
	Gemini      *ProviderConfig `yaml:"gemini"`
}

type Config struct {
	LogFile          string        `yaml:"log"`
	LogLevel         slog.Level    `yaml:"log_level"`
	DocRoot          string        `yaml:"doc_root"`
	MergeEventsMs    int           `yaml:"write_debounce_ms"`
	MaxChunkChars    int           `yaml:"max_chunk_chars"`
	TopK             int           `yaml:"top_k"`
	ScenariosFile    string        `yaml:"scenarios_file"`
	ScenariosBaseDir string        `yaml:"scenarios_base_dir"`
	ServerAddr       string        `yaml:"server_addr"`
	MetricsAddr      string        `yaml:"metrics_addr"`
	Chroma           *ChromaConfig `yaml:"chroma"`
}

func readConfig(cfgPath string) (*Config, error) {
	cfgFile, err := os.Open(cfgPath)
	if err != nil {
		return nil, fmt.Errorf("unable to open config file: %w", err)
	}
	defer cfgFile.Close()

	cfg := &Config{}
	dec := yaml.NewDecoder(cfgFile)
	err = dec.Decode(cfg)
	if err != nil {
		return nil, fmt.Errorf("unable to parse config file: %w", err)
	}

	cfg.applyDefaults()
	return cfg, nil
}

func (cfg *Config) applyDefaults() {
	if cfg.MergeEventsMs <= 0 {
		cfg.MergeEventsMs = 500
	}
	if cfg.MaxChunkChars <= 0 {
		cfg.MaxChunkChars = knowledge.DefaultMaxChunkChars
	}
	if cfg.TopK <= 0 {
		cfg.TopK = knowledge.DefaultTopK
	}
	if cfg.ServerAddr == "" {
		cfg.ServerAddr = "localhost:8080"
	}
	if cfg.Chroma != nil {
		if cfg.Chroma.Collection == "" {
			cfg.Chroma.Collection = "rag-context"
		}
		if cfg.Chroma.QueueSize <= 0 {
			cfg.Chroma.QueueSize = 64
		}
	}
}
