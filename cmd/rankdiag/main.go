// Command rankdiag runs one discovery pass against Microsoft Graph and prints
// the ranked results with their scores.
//
//	GRAPH_TOKEN=eyJ... go run ./cmd/rankdiag "benefits 2023"
package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"echo-assistant-be/internal/bootstrap"
	"echo-assistant-be/internal/config"
	"echo-assistant-be/internal/pkg/logger"
	"echo-assistant-be/pkg/discovery"
	"echo-assistant-be/pkg/extractor"
	"echo-assistant-be/pkg/graph"
	"echo-assistant-be/pkg/ranking"
	"echo-assistant-be/pkg/vectorindex"

	"github.com/fatih/color"
)

func main() {
	if len(os.Args) < 2 {
		color.Red("usage: rankdiag <query>")
		os.Exit(2)
	}
	query := strings.Join(os.Args[1:], " ")

	token := os.Getenv("GRAPH_TOKEN")
	if token == "" {
		color.Red("GRAPH_TOKEN is not set")
		os.Exit(2)
	}

	cfg := config.Load()
	log := logger.NewIsolatedLogger("logs/rankdiag.log")

	embedder, err := bootstrap.NewEmbeddingProvider(cfg.Ai)
	if err != nil {
		color.Red("Embedding provider: %v", err)
		os.Exit(1)
	}

	client := graph.NewClient(cfg.Graph.BaseURL, cfg.Graph.MaxRetries, log)
	svc := discovery.NewService(
		client,
		extractor.New(extractor.NewTesseractOCR(cfg.Search.TesseractLanguage), extractor.PDFTextLayer{}, extractor.FitzRasterizer{}, log),
		ranking.NewRanker(embedder, vectorindex.NewMemoryIndex()),
		discovery.Options{Timeout: cfg.Search.PipelineTimeout, ExtractConcurrency: cfg.Search.ExtractConcurrency},
		log,
	)

	color.Cyan("🔎 Query: %q (provider %s)\n", query, cfg.Ai.EmbeddingProvider)

	results, err := svc.Discover(context.Background(), "rankdiag", query, graph.NewCredential(token, nil))
	if err != nil {
		color.Red("Discovery failed: %v", err)
		os.Exit(1)
	}
	if len(results) == 0 {
		color.Yellow("No files found.")
		return
	}

	for i, r := range results {
		line := fmt.Sprintf("%2d. %-50s %.4f", i+1, r.Name, r.Score)
		switch {
		case r.Score >= 0.5:
			color.Green("%s", line)
		case r.Score >= 0.25:
			color.Yellow("%s", line)
		default:
			fmt.Println(line)
		}
		fmt.Printf("    %s\n", r.WebURL)
	}
}
