package main

import (
	"context"
	"flag"
	"log"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/joho/godotenv"

	"hockey-rules-rag/internal/chunker"
	"hockey-rules-rag/internal/config"
	"hockey-rules-rag/internal/corpus"
	"hockey-rules-rag/internal/database"
	"hockey-rules-rag/internal/embedding"
	"hockey-rules-rag/internal/models"
	"hockey-rules-rag/internal/vectorindex"
)

func main() {
	configPath := flag.String("config", "", "Path to YAML config file (optional)")
	ollamaHost := flag.String("ollama", "", "Ollama host (default uses OLLAMA_HOST env var)")
	embeddingModel := flag.String("model", "", "Ollama model for embeddings (default from config)")
	maxConcurrent := flag.Int("max-concurrent", runtime.NumCPU()/2, "Maximum concurrent embedding requests")
	usePostgres := flag.Bool("pg", false, "Also store embeddings in Postgres (DATABASE_URL)")
	flag.Parse()

	// Secrets like DATABASE_URL may live in a local .env file.
	_ = godotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if *ollamaHost != "" {
		cfg.Ollama.Host = *ollamaHost
	}
	if *embeddingModel != "" {
		cfg.Ollama.EmbedModel = *embeddingModel
	}

	ctx := context.Background()

	embedder, err := embedding.NewOllamaEmbedder(cfg.Ollama.Host, cfg.Ollama.EmbedModel)
	if err != nil {
		log.Fatalf("Failed to create embedder: %v", err)
	}
	embedder.MaxConcurrent = *maxConcurrent

	var db *database.DB
	if *usePostgres {
		connStr := config.DatabaseURL()
		if connStr == "" {
			log.Fatal("DATABASE_URL is required with -pg")
		}
		db, err = database.NewDB(connStr, cfg.EmbeddingDim)
		if err != nil {
			log.Fatalf("Failed to connect to database: %v", err)
		}
		defer db.Close()

		if err := db.Initialize(ctx); err != nil {
			log.Fatalf("Failed to initialize database: %v", err)
		}
		log.Println("Database initialized successfully")
	}

	indexRulebook(ctx, cfg, embedder, db)
	indexCasebook(ctx, cfg, embedder, db)
}

func indexRulebook(ctx context.Context, cfg config.Config, embedder *embedding.OllamaEmbedder, db *database.DB) {
	var entries []models.RuleEntry
	if err := corpus.ReadJSON(cfg.Paths.RuleEntries, &entries); err != nil {
		log.Fatalf("Failed to load rule entries: %v", err)
	}
	log.Printf("Loaded %d rule entries from %s", len(entries), cfg.Paths.RuleEntries)

	c := chunker.New(cfg.Chunking.MaxTokens, cfg.Chunking.Overlap)

	var mapping []models.ChunkMeta
	var texts []string
	for _, entry := range entries {
		for _, chunk := range c.Chunk(entry.Text) {
			mapping = append(mapping, models.ChunkMeta{
				RuleID:       entry.ID,
				ChunkText:    chunk,
				RuleTitle:    entry.RuleTitle,
				SubruleTitle: entry.SubruleTitle,
			})
			texts = append(texts, chunk)
		}
	}
	log.Printf("Chunked %d rule entries into %d chunks", len(entries), len(texts))

	embeddings := embedAll(ctx, embedder, texts, "rulebook chunks")

	index := vectorindex.NewFlat(cfg.EmbeddingDim)
	if err := index.Add(embeddings...); err != nil {
		log.Fatalf("Failed to build rulebook index: %v", err)
	}
	saveIndex(index, cfg.Paths.RulebookIndex)
	writeJSON(cfg.Paths.RulebookMapping, mapping)
	log.Printf("Saved rulebook index (%d vectors) and mapping", index.Len())

	if db != nil {
		stored := 0
		for i, meta := range mapping {
			if err := db.StoreChunk(ctx, meta, embeddings[i]); err != nil {
				log.Printf("Warning: Failed to store chunk %d: %v", i, err)
				continue
			}
			stored++
		}
		log.Printf("Stored %d/%d chunks in Postgres", stored, len(mapping))
	}
}

func indexCasebook(ctx context.Context, cfg config.Config, embedder *embedding.OllamaEmbedder, db *database.DB) {
	var situations []models.SituationEntry
	if err := corpus.ReadJSON(cfg.Paths.SituationItems, &situations); err != nil {
		log.Fatalf("Failed to load situations: %v", err)
	}
	log.Printf("Loaded %d situations from %s", len(situations), cfg.Paths.SituationItems)

	// Only the question is embedded; the answer rides along as metadata.
	texts := make([]string, len(situations))
	for i, situation := range situations {
		texts[i] = situation.Question
	}

	embeddings := embedAll(ctx, embedder, texts, "situation questions")

	index := vectorindex.NewFlat(cfg.EmbeddingDim)
	if err := index.Add(embeddings...); err != nil {
		log.Fatalf("Failed to build casebook index: %v", err)
	}
	saveIndex(index, cfg.Paths.CasebookIndex)
	writeJSON(cfg.Paths.CasebookMapping, situations)
	log.Printf("Saved casebook index (%d vectors) and mapping", index.Len())

	if db != nil {
		stored := 0
		for i, situation := range situations {
			if err := db.StoreSituation(ctx, situation, embeddings[i]); err != nil {
				log.Printf("Warning: Failed to store situation %s: %v", situation.SituationID, err)
				continue
			}
			stored++
		}
		log.Printf("Stored %d/%d situations in Postgres", stored, len(situations))
	}
}

func embedAll(ctx context.Context, embedder *embedding.OllamaEmbedder, texts []string, what string) [][]float64 {
	log.Printf("Creating embeddings for %d %s...", len(texts), what)
	embeddingStart := time.Now()

	progressFunc := func(processed, total int) {
		if processed%50 != 0 && processed != total {
			return
		}
		elapsedTime := time.Since(embeddingStart)
		estimatedTotal := elapsedTime * time.Duration(total) / time.Duration(processed)
		estimatedRemaining := estimatedTotal - elapsedTime

		log.Printf("Progress: %d/%d %s processed (%.1f%%) - Est. remaining: %v",
			processed, total, what, float64(processed)/float64(total)*100, estimatedRemaining.Round(time.Second))
	}

	embeddings, err := embedder.EmbedBatchWithProgress(ctx, texts, progressFunc)
	if err != nil {
		log.Fatalf("Failed to create embeddings: %v", err)
	}
	log.Printf("Embedded %d %s in %v", len(texts), what, time.Since(embeddingStart))
	return embeddings
}

func saveIndex(index *vectorindex.Flat, path string) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		log.Fatalf("Failed to create index directory: %v", err)
	}
	if err := index.Save(path); err != nil {
		log.Fatalf("Failed to save index %s: %v", path, err)
	}
}

func writeJSON(path string, v any) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		log.Fatalf("Failed to create output directory: %v", err)
	}
	if err := corpus.WriteJSON(path, v); err != nil {
		log.Fatalf("Failed to write %s: %v", path, err)
	}
}
