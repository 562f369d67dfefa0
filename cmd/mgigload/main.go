// Command mgigload bulk-ingests resume text files from the command line,
// sharing the server's config, store and embedding pipeline.
package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/krippilippa/matchagig-fast/internal/config"
	dbRedis "github.com/krippilippa/matchagig-fast/internal/db/redis"
	"github.com/krippilippa/matchagig-fast/internal/domain/canon"
	logpkg "github.com/krippilippa/matchagig-fast/internal/logger"
	"github.com/krippilippa/matchagig-fast/internal/metrics"
	"github.com/krippilippa/matchagig-fast/internal/repository/blob"
	chunkrepo "github.com/krippilippa/matchagig-fast/internal/repository/chunks"
	"github.com/krippilippa/matchagig-fast/internal/repository/embcache"
	resumerepo "github.com/krippilippa/matchagig-fast/internal/repository/resume"
	openaiEmb "github.com/krippilippa/matchagig-fast/internal/transport/openai"
	ingestuc "github.com/krippilippa/matchagig-fast/internal/usecase/ingest"
)

func main() {
	app := &cli.App{
		Name:  "mgigload",
		Usage: "Bulk resume loader for the matchagig index",
		Commands: []*cli.Command{
			{
				Name:      "ingest",
				Usage:     "Ingest one or more resume text files",
				ArgsUsage: "FILE [FILE...]",
				Action:    ingestCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "env",
						Aliases: []string{"e"},
						Usage:   "Config environment (local, dev, prod)",
						Value:   config.GetEnv(),
					},
					&cli.StringFlag{
						Name:  "name",
						Usage: "Resume name (single file only; defaults to the file name)",
					},
					&cli.StringFlag{
						Name:  "source",
						Usage: "Original source file to store alongside the text (single file only)",
					},
					&cli.DurationFlag{
						Name:  "timeout",
						Usage: "Per-file ingestion timeout",
						Value: 2 * time.Minute,
					},
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func ingestCommand(c *cli.Context) error {
	if c.NArg() == 0 {
		return fmt.Errorf("at least one input file is required")
	}
	if c.NArg() > 1 && (c.String("name") != "" || c.String("source") != "") {
		return fmt.Errorf("--name and --source apply to a single file only")
	}

	cfg, err := config.Load(c.String("env"))
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := logpkg.New(c.String("env"), cfg.Logging.Level)
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	store, err := dbRedis.NewStore(dbRedis.Config{
		Addrs:    cfg.Database.Addrs,
		Password: cfg.Database.Password,
	})
	if err != nil {
		return fmt.Errorf("create store: %w", err)
	}
	defer store.Close()

	ctx := context.Background()
	if err := store.WaitForReady(ctx, time.Duration(cfg.Database.ReadinessTimeout)*time.Second); err != nil {
		return fmt.Errorf("store not ready: %w", err)
	}

	metrics.RegisterEmbeddingMetrics()

	base := openaiEmb.NewEmbedder(&openaiEmb.Config{
		APIKey:     cfg.Embedding.APIKey,
		BaseURL:    cfg.Embedding.BaseURL,
		Model:      cfg.Embedding.Model,
		Dimensions: cfg.Embedding.Dimensions,
		Provider:   cfg.Embedding.Provider,
		Logger:     logger,
	})
	embedder := embcache.New(base, store, metrics.EmbeddingCacheTotal, logger)

	chunks := chunkrepo.New(store, cfg.Embedding.Dimensions).WithHNSW(chunkrepo.HNSWConfig{
		M:           cfg.Search.HNSWM,
		EFConstruct: cfg.Search.HNSWEFConstruct,
	})
	if err := chunks.EnsureIndex(ctx); err != nil {
		return fmt.Errorf("ensure chunk index: %w", err)
	}

	svc := ingestuc.New(
		resumerepo.New(store),
		chunks,
		blob.New(cfg.Storage.BlobDir, cfg.Storage.PublicBaseURL),
		embedder,
		ingestuc.Options{
			MinChunkLen: cfg.Ingest.MinChunkLen,
			MaxChunkLen: cfg.Ingest.MaxChunkLen,
			MaxChars:    cfg.Ingest.MaxChars,
			BatchSize:   cfg.Embedding.BatchSize,
			Flatten:     canon.ParseFlatten(cfg.Ingest.Flatten),
		},
	)

	failures := 0
	for _, path := range c.Args().Slice() {
		if err := ingestFile(ctx, c, svc, path); err != nil {
			fmt.Fprintf(os.Stderr, "%s: %v\n", path, err)
			failures++
		}
	}
	if failures > 0 {
		return fmt.Errorf("%d of %d files failed", failures, c.NArg())
	}
	return nil
}

func ingestFile(ctx context.Context, c *cli.Context, svc *ingestuc.Service, path string) error {
	text, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return err
	}

	in := ingestuc.Input{
		Name: c.String("name"),
		Text: string(text),
	}
	if in.Name == "" {
		in.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	if src := c.String("source"); src != "" {
		data, err := os.ReadFile(filepath.Clean(src))
		if err != nil {
			return fmt.Errorf("read source: %w", err)
		}
		in.Source = data
		in.SourceExt = strings.TrimPrefix(filepath.Ext(src), ".")
	}

	fileCtx, cancel := context.WithTimeout(ctx, c.Duration("timeout"))
	defer cancel()

	res, err := svc.Ingest(fileCtx, in)
	if err != nil {
		return err
	}

	if res.AlreadyIngested {
		fmt.Printf("%s: already ingested as %s\n", path, res.ResumeID)
		return nil
	}
	fmt.Printf("%s: ingested as %s (%d chunks)\n", path, res.ResumeID, res.Chunks)
	return nil
}
