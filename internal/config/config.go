// Package config loads the application configuration from an optional YAML
// file layered over built-in defaults. Secrets (database URL) come from the
// environment, typically via a .env file loaded by the binaries.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"hockey-rules-rag/internal/casebook"
	"hockey-rules-rag/internal/classifier"
)

// Retrieval holds the retrieval knobs.
type Retrieval struct {
	TopKChunks         int     `yaml:"top_k_chunks"`
	TopKRules          int     `yaml:"top_k_rules"`
	TopKSituations     int     `yaml:"top_k_situations"`
	Threshold          float64 `yaml:"threshold"`
	SituationThreshold float64 `yaml:"situation_threshold"`
}

// Ollama holds the model endpoints.
type Ollama struct {
	// Host overrides OLLAMA_HOST when set.
	Host        string  `yaml:"host"`
	EmbedModel  string  `yaml:"embed_model"`
	ChatModel   string  `yaml:"chat_model"`
	Temperature float64 `yaml:"temperature"`
}

// Chunking holds the text chunking parameters.
type Chunking struct {
	MaxTokens int `yaml:"max_tokens"`
	Overlap   int `yaml:"overlap"`
}

// Paths locates the corpus and index artifacts on disk.
type Paths struct {
	RulesJSON       string `yaml:"rules_json"`
	SituationsJSON  string `yaml:"situations_json"`
	RuleEntries     string `yaml:"rule_entries"`
	SituationItems  string `yaml:"situation_items"`
	RulebookIndex   string `yaml:"rulebook_index"`
	RulebookMapping string `yaml:"rulebook_mapping"`
	CasebookIndex   string `yaml:"casebook_index"`
	CasebookMapping string `yaml:"casebook_mapping"`
}

// Config is the full application configuration.
type Config struct {
	EmbeddingDim       int                     `yaml:"embedding_dim"`
	Retrieval          Retrieval               `yaml:"retrieval"`
	Ollama             Ollama                  `yaml:"ollama"`
	Chunking           Chunking                `yaml:"chunking"`
	Paths              Paths                   `yaml:"paths"`
	RulebookSignatures classifier.SignatureSet `yaml:"rulebook_signatures"`
	CasebookSignatures casebook.Signatures     `yaml:"casebook_signatures"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		EmbeddingDim: 384,
		Retrieval: Retrieval{
			TopKChunks:         10,
			TopKRules:          3,
			TopKSituations:     2,
			Threshold:          0.6,
			SituationThreshold: 0.8,
		},
		Ollama: Ollama{
			EmbedModel:  "all-minilm",
			ChatModel:   "llama3.1",
			Temperature: 0.0,
		},
		Chunking: Chunking{
			MaxTokens: 256,
			Overlap:   1,
		},
		Paths: Paths{
			RulesJSON:       "data/json/rules.json",
			SituationsJSON:  "data/json/situations.json",
			RuleEntries:     "data/json/rules_for_embedding.json",
			SituationItems:  "data/json/situations_for_embedding.json",
			RulebookIndex:   "data/index/rulebook.index",
			RulebookMapping: "data/index/rulebook_mapping.json",
			CasebookIndex:   "data/index/casebook.index",
			CasebookMapping: "data/index/casebook_mapping.json",
		},
		RulebookSignatures: classifier.DefaultSignatures(),
		CasebookSignatures: casebook.DefaultSignatures(),
	}
}

// Load reads the YAML file at path over the defaults. An empty path returns
// the defaults unchanged.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("reading config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config %s: %w", path, err)
	}
	return cfg, nil
}

// DatabaseURL returns the Postgres connection string from the environment,
// or empty when the database backend is unused.
func DatabaseURL() string {
	return os.Getenv("DATABASE_URL")
}
