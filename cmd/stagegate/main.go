package main

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/stagegate/internal/cache"
	"github.com/kailas-cloud/stagegate/internal/chunkstore"
	"github.com/kailas-cloud/stagegate/internal/config"
	"github.com/kailas-cloud/stagegate/internal/domain"
	"github.com/kailas-cloud/stagegate/internal/evidence"
	"github.com/kailas-cloud/stagegate/internal/fetch"
	"github.com/kailas-cloud/stagegate/internal/fusion"
	"github.com/kailas-cloud/stagegate/internal/index/lexical"
	"github.com/kailas-cloud/stagegate/internal/index/semantic"
	logpkg "github.com/kailas-cloud/stagegate/internal/logger"
	"github.com/kailas-cloud/stagegate/internal/metrics"
	"github.com/kailas-cloud/stagegate/internal/ops"
	"github.com/kailas-cloud/stagegate/internal/pipeline"
	openaiemb "github.com/kailas-cloud/stagegate/internal/provider/openai"
	"github.com/kailas-cloud/stagegate/internal/report"
	"github.com/kailas-cloud/stagegate/internal/rubric"
	"github.com/kailas-cloud/stagegate/internal/store"
	filestore "github.com/kailas-cloud/stagegate/internal/store/file"
	redisstore "github.com/kailas-cloud/stagegate/internal/store/redis"
	"github.com/kailas-cloud/stagegate/internal/verify"
	"github.com/kailas-cloud/stagegate/internal/version"
)

// runnerFunc adapts the pipeline to the verification harness.
type runnerFunc func(ctx context.Context) (domain.ScoredRecord, error)

func (f runnerFunc) Run(ctx context.Context) (domain.ScoredRecord, error) { return f(ctx) }

func main() {
	// Load configuration based on ENV
	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	mode, err := cache.ParseMode(cfg.Mode)
	if err != nil {
		logger.Fatal("Invalid cache mode", zap.Error(err))
	}

	logger.Info("Starting stagegate scoring pass",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.String("mode", string(mode)),
		zap.String("cache_driver", cfg.Cache.Driver),
		zap.Float64("alpha", cfg.Fusion.Alpha),
		zap.Int("k", cfg.Fusion.K),
	)

	// Register metrics explicitly (no init())
	metrics.RegisterEmbeddingMetrics()
	metrics.RegisterPipelineMetrics()

	ctx := context.Background()

	// Cache store based on driver
	var kv store.KV
	switch cfg.Cache.Driver {
	case "file":
		kv, err = filestore.New(cfg.Cache.Dir)
		if err != nil {
			logger.Fatal("Failed to create file cache store", zap.Error(err))
		}
	case "redis":
		rs, rerr := redisstore.NewStore(redisstore.Config{
			Addrs:    cfg.Cache.Redis.Addrs,
			Password: cfg.Cache.Redis.Password,
		})
		if rerr != nil {
			logger.Fatal("Failed to create redis cache store", zap.Error(rerr))
		}
		defer rs.Close()
		readiness := time.Duration(cfg.Cache.Redis.ReadinessTimeout) * time.Second
		if err := rs.WaitForReady(ctx, readiness); err != nil {
			logger.Fatal("Cache store not ready", zap.Error(err))
		}
		kv = rs
	default:
		logger.Fatal("Unknown cache driver", zap.String("driver", cfg.Cache.Driver))
	}

	ledger, err := cache.OpenLedger(cfg.Cache.LedgerPath)
	if err != nil {
		logger.Fatal("Failed to open ledger", zap.Error(err))
	}
	defer func() { _ = ledger.Close() }()

	// Embedder chain — only FETCH mode constructs the provider transport, so
	// a REPLAY run has no network path to begin with.
	var provider domain.Embedder
	if mode == cache.ModeFetch {
		provider = openaiemb.NewEmbedder(&openaiemb.Config{
			APIKey:     cfg.Embedding.APIKey,
			BaseURL:    cfg.Embedding.BaseURL,
			Model:      cfg.Embedding.Model,
			Dimensions: cfg.Embedding.Dimensions,
			Provider:   cfg.Embedding.Provider,
			Logger:     logger,
		})
	}

	embedder, err := cache.NewCachedEmbedder(
		mode, provider, kv, ledger,
		cache.ProviderParams{
			Provider:   cfg.Embedding.Provider,
			Model:      cfg.Embedding.Model,
			Dimensions: cfg.Embedding.Dimensions,
		},
		metrics.CacheAccessTotal, logger,
	)
	if err != nil {
		logger.Fatal("Failed to create cached embedder", zap.Error(err))
	}

	// Ops surface runs alongside the pass when enabled.
	var opsServer *ops.Server
	if cfg.Ops.Enabled {
		opsServer = ops.NewServer(cfg.Ops.Addr, logger)
		go func() {
			if err := opsServer.Start(); err != nil {
				logger.Error("Ops server failed", zap.Error(err))
			}
		}()
	}

	chunks, err := chunkstore.Load(cfg.Corpus.Path)
	if err != nil {
		logger.Fatal("Failed to load corpus", zap.Error(err))
	}
	logger.Info("Corpus loaded", zap.Int("chunks", len(chunks)))

	if mode == cache.ModeFetch {
		prefetcher := fetch.New(embedder, fetch.Config{
			Workers: cfg.Fetch.Workers,
			RPS:     cfg.Fetch.RPS,
			Burst:   cfg.Fetch.Burst,
			Timeout: time.Duration(cfg.Fetch.TimeoutSec) * time.Second,
		}, logger)
		if _, err := prefetcher.Warm(ctx, chunks); err != nil {
			logger.Fatal("Cache warm failed", zap.Error(err))
		}
	}

	def, err := rubric.Load(cfg.Rubric.Path)
	if err != nil {
		logger.Fatal("Failed to load rubric", zap.Error(err))
	}
	themes := cfg.Scoring.Themes
	if len(themes) == 0 {
		themes = def.Themes()
	}

	lexIdx := lexical.New(chunks, 0, 0, logger)
	semIdx, err := semantic.Build(ctx, chunks, embedder, logger)
	if err != nil {
		logger.Fatal("Failed to build semantic index", zap.Error(err))
	}

	svc, err := pipeline.New(
		lexIdx, semIdx,
		evidence.NewExtractor(domain.MaxQuoteWords, logger),
		rubric.NewScorer(def, logger),
		fusion.Params{Alpha: cfg.Fusion.Alpha, K: cfg.Fusion.K},
		logger,
	)
	if err != nil {
		logger.Fatal("Failed to create pipeline", zap.Error(err))
	}

	outcome, err := svc.Run(ctx, cfg.Scoring.Query, themes, chunks)
	if err != nil {
		logger.Fatal("Scoring pass failed", zap.Error(err))
	}
	logger.Info("Scoring pass complete",
		zap.Float64("overall_maturity", outcome.Record.OverallMaturity),
		zap.String("determinism_hash", outcome.Record.DeterminismHash),
	)

	harness := verify.NewHarness(runnerFunc(func(ctx context.Context) (domain.ScoredRecord, error) {
		out, err := svc.Run(ctx, cfg.Scoring.Query, themes, chunks)
		if err != nil {
			return domain.ScoredRecord{}, err
		}
		return out.Record, nil
	}), cfg.Verify.Runs, logger)

	detReport, verifyErr := harness.Verify(ctx)
	if verifyErr != nil {
		logger.Error("Determinism verification failed", zap.Error(verifyErr))
	}

	if err := writeReports(cfg.Reports.Dir, outcome, detReport); err != nil {
		logger.Fatal("Failed to write reports", zap.Error(err))
	}
	logger.Info("Reports written", zap.String("dir", cfg.Reports.Dir))

	if opsServer != nil {
		waitForSignal(logger)
		if err := opsServer.Shutdown(ctx); err != nil {
			logger.Error("Ops server shutdown failed", zap.Error(err))
		}
	}

	if verifyErr != nil {
		os.Exit(1)
	}
}

// writeReports renders the scored record plus the audit artifacts.
func writeReports(dir string, outcome pipeline.Outcome, det report.DeterminismReport) error {
	if err := report.WriteJSON(filepath.Join(dir, "score.json"), outcome.Record); err != nil {
		return err
	}

	audit := report.BuildEvidenceAudit(outcome.Record.Dimensions, rubric.DefaultMinQuotes, rubric.DefaultMinPages)
	if err := report.WriteJSON(filepath.Join(dir, "evidence_audit.json"), audit); err != nil {
		return err
	}

	var cited []domain.EvidenceRecord
	for _, d := range outcome.Record.Dimensions {
		cited = append(cited, d.Evidence...)
	}
	evidenceIDs, topkIDs := evidence.IDs(cited, outcome.TopK)
	if err := report.WriteJSON(filepath.Join(dir, "parity.json"), report.BuildParity(evidenceIDs, topkIDs)); err != nil {
		return err
	}

	return report.WriteJSON(filepath.Join(dir, "determinism.json"), det)
}

func waitForSignal(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	logger.Info("Shutting down", zap.String("signal", sig.String()))
}
