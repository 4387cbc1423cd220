package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"hockey-rules-rag/internal/chunker"
	"hockey-rules-rag/internal/config"
	"hockey-rules-rag/internal/corpus"
	"hockey-rules-rag/internal/database"
	"hockey-rules-rag/internal/embedding"
	"hockey-rules-rag/internal/llm"
	"hockey-rules-rag/internal/models"
	"hockey-rules-rag/internal/pipeline"
	"hockey-rules-rag/internal/prompt"
	"hockey-rules-rag/internal/retriever"
	"hockey-rules-rag/internal/vectorindex"
)

func main() {
	configPath := flag.String("config", "", "Path to YAML config file (optional)")
	ollamaHost := flag.String("ollama", "", "Ollama host (default uses OLLAMA_HOST env var)")
	chatModel := flag.String("model", "", "Ollama model for answering (default from config)")
	embeddingModel := flag.String("embedding-model", "", "Ollama model for embeddings (default from config)")
	interactive := flag.Bool("i", false, "Run in interactive mode")
	queryFlag := flag.String("q", "", "Query to answer (non-interactive mode)")
	showPrompt := flag.Bool("show-prompt", false, "Print the generated prompt alongside the answer")
	usePostgres := flag.Bool("pg", false, "Retrieve from Postgres (DATABASE_URL) instead of the flat indexes")
	flag.Parse()

	_ = godotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if *ollamaHost != "" {
		cfg.Ollama.Host = *ollamaHost
	}
	if *chatModel != "" {
		cfg.Ollama.ChatModel = *chatModel
	}
	if *embeddingModel != "" {
		cfg.Ollama.EmbedModel = *embeddingModel
	}

	ctx := context.Background()

	p, cleanup, err := buildPipeline(cfg, *usePostgres)
	if err != nil {
		log.Fatalf("Failed to build pipeline: %v", err)
	}
	defer cleanup()

	if *interactive {
		runInteractiveMode(ctx, p, *showPrompt)
		return
	}

	if *queryFlag == "" {
		log.Fatal("Query is required in non-interactive mode. Use -q 'your question'")
	}

	startTime := time.Now()
	resp, err := p.ProcessQuery(ctx, *queryFlag)
	if err != nil {
		log.Fatalf("Failed to process query: %v", err)
	}
	log.Printf("Query processed in %v", time.Since(startTime))

	if *showPrompt {
		fmt.Println(resp.Prompt)
		fmt.Println()
	}
	fmt.Println(formatAnswer(resp))
}

func buildPipeline(cfg config.Config, usePostgres bool) (*pipeline.Pipeline, func(), error) {
	cleanup := func() {}

	rulebook, err := corpus.LoadRuleBook(cfg.Paths.RuleEntries)
	if err != nil {
		return nil, cleanup, fmt.Errorf("loading rulebook: %w", err)
	}

	params := retriever.Params{
		TopKChunks:         cfg.Retrieval.TopKChunks,
		TopKRules:          cfg.Retrieval.TopKRules,
		TopKSituations:     cfg.Retrieval.TopKSituations,
		Threshold:          cfg.Retrieval.Threshold,
		SituationThreshold: cfg.Retrieval.SituationThreshold,
	}

	var r *retriever.Retriever
	if usePostgres {
		connStr := config.DatabaseURL()
		if connStr == "" {
			return nil, cleanup, fmt.Errorf("DATABASE_URL is required with -pg")
		}
		db, err := database.NewDB(connStr, cfg.EmbeddingDim)
		if err != nil {
			return nil, cleanup, fmt.Errorf("connecting to database: %w", err)
		}
		cleanup = db.Close
		r = retriever.NewFromSources(params, db, db, rulebook)
	} else {
		rulebookIndex, err := vectorindex.Load(cfg.Paths.RulebookIndex)
		if err != nil {
			return nil, cleanup, fmt.Errorf("loading rulebook index: %w", err)
		}
		casebookIndex, err := vectorindex.Load(cfg.Paths.CasebookIndex)
		if err != nil {
			return nil, cleanup, fmt.Errorf("loading casebook index: %w", err)
		}

		var rulebookMapping []models.ChunkMeta
		if err := corpus.ReadJSON(cfg.Paths.RulebookMapping, &rulebookMapping); err != nil {
			return nil, cleanup, fmt.Errorf("loading rulebook mapping: %w", err)
		}
		var casebookMapping []models.SituationEntry
		if err := corpus.ReadJSON(cfg.Paths.CasebookMapping, &casebookMapping); err != nil {
			return nil, cleanup, fmt.Errorf("loading casebook mapping: %w", err)
		}
		r = retriever.New(params, rulebookIndex, casebookIndex, rulebookMapping, casebookMapping, rulebook)
	}

	embedder, err := embedding.NewOllamaEmbedder(cfg.Ollama.Host, cfg.Ollama.EmbedModel)
	if err != nil {
		return nil, cleanup, fmt.Errorf("creating embedder: %w", err)
	}
	generator, err := llm.NewOllamaLLM(cfg.Ollama.Host, cfg.Ollama.ChatModel, cfg.Ollama.Temperature)
	if err != nil {
		return nil, cleanup, fmt.Errorf("creating LLM client: %w", err)
	}

	return &pipeline.Pipeline{
		Embedder:  embedder,
		Retriever: r,
		Prompt:    prompt.NewBuilder(rulebook),
		Generator: generator,
		Chunker:   chunker.New(cfg.Chunking.MaxTokens, cfg.Chunking.Overlap),
	}, cleanup, nil
}

func runInteractiveMode(ctx context.Context, p *pipeline.Pipeline, showPrompt bool) {
	scanner := bufio.NewScanner(os.Stdin)

	fmt.Println("Hockey Rules Assistant - Ask questions about ice hockey rules (type 'exit' to quit)")

	for {
		fmt.Print("\n> ")
		if !scanner.Scan() {
			break
		}

		input := scanner.Text()
		if strings.ToLower(input) == "exit" || strings.ToLower(input) == "quit" {
			break
		}
		if strings.TrimSpace(input) == "" {
			continue
		}

		fmt.Print("Searching hockey rules... ")

		resp, err := p.ProcessQuery(ctx, input)
		if err != nil {
			fmt.Printf("\rError: %v\n", err)
			continue
		}

		if showPrompt {
			fmt.Println("\r" + resp.Prompt)
			fmt.Println()
			fmt.Println(formatAnswer(resp))
			continue
		}
		fmt.Println("\r" + formatAnswer(resp))
	}
}

func formatAnswer(resp *models.Response) string {
	var sb strings.Builder
	sb.WriteString(resp.Answer)

	if len(resp.TopRules) > 0 {
		sb.WriteString("\n\nRetrieved rules:\n")
		for i, rule := range resp.TopRules {
			fmt.Fprintf(&sb, "  %d. %s (Score: %.4f)\n", i+1, prompt.RuleHeading(rule), rule.ScoreSum)
		}
	}
	if len(resp.Situations) > 0 {
		sb.WriteString("\nRetrieved situations:\n")
		for i, situation := range resp.Situations {
			fmt.Fprintf(&sb, "  %d. Situation %s (Rule %s, Similarity: %.4f)\n",
				i+1, situation.SituationID, situation.RuleID, situation.Similarity)
		}
	}

	return sb.String()
}
