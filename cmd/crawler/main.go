package main

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/alvmarrod/wiki-weaver/internal/config"
	"github.com/alvmarrod/wiki-weaver/internal/crawler"
	"github.com/alvmarrod/wiki-weaver/internal/memory"
	"github.com/alvmarrod/wiki-weaver/internal/metrics"
	"github.com/alvmarrod/wiki-weaver/internal/render"
	"github.com/alvmarrod/wiki-weaver/internal/storage"
	"github.com/alvmarrod/wiki-weaver/internal/version"
	"github.com/sirupsen/logrus"
)

func main() {
	// Configure logging
	logrus.SetLevel(logrus.InfoLevel)
	logrus.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})

	logrus.Infof("Wiki Weaver v%s starting...", version.Version)

	cfg := loadConfig()
	if level, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
		logrus.SetLevel(level)
	}

	logrus.Infof("Configuration loaded: seed=%s, depth=%d, delay=%v",
		cfg.SeedURL, cfg.MaxDepth, cfg.RequestDelay())

	extractor, err := crawler.NewArticleExtractor(cfg.BaseURL, cfg.ArticlePrefix, cfg.NamespaceSeparator)
	if err != nil {
		logrus.Fatalf("Failed to initialize link extractor: %v", err)
	}
	fetcher := crawler.NewCollyFetcher(cfg.UserAgent, cfg.RequestTimeout())

	tracker := metrics.NewTracker()

	c := crawler.NewCrawler(fetcher, extractor,
		crawler.WithDelay(cfg.RequestDelay()),
		crawler.WithMetricsCallback(tracker.Record),
		crawler.WithFetchTimeCallback(tracker.RecordFetchTime),
		crawler.WithSkipCallback(tracker.IncrementEntriesSkipped),
	)

	// Cancel the crawl on SIGINT/SIGTERM
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Start progress logger
	var wg sync.WaitGroup
	stopProgress := make(chan struct{})
	wg.Add(1)
	go func() {
		defer wg.Done()
		ticker := time.NewTicker(10 * time.Second)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				logrus.Info(tracker.LogProgress())
			case <-stopProgress:
				return
			}
		}
	}()

	graph, err := c.Crawl(ctx, cfg.SeedURL, cfg.MaxDepth)

	terminationReason := "queue_empty"
	switch {
	case err == nil:
	case errors.Is(err, context.Canceled):
		terminationReason = "signal"
		logrus.Warn("Received signal, crawl stopped early")
	default:
		logrus.Fatalf("Crawl failed: %v", err)
	}

	// Restore default signal handling so a second signal kills the process
	stop()

	logrus.Info("Initiating shutdown...")
	logrus.Info("Step 1/4: Stopping progress logger...")
	close(stopProgress)
	wg.Wait()

	logrus.Info("Step 2/4: Exporting graph to database...")
	exportGraph(cfg.DBPath, graph)

	logrus.Info("Step 3/4: Rendering graph...")
	if err := render.All(graph,
		render.NewFileRenderer(cfg.DOTPath, render.DOTRenderer{}),
		render.NewFileRenderer(cfg.ReportPath, render.MarkdownRenderer{}),
	); err != nil {
		logrus.Errorf("Rendering incomplete: %v", err)
	}

	logrus.Info("Step 4/4: Writing final metrics...")
	final := tracker.Finish(terminationReason)
	logrus.WithFields(logrus.Fields{
		"elapsed":      metrics.Elapsed(final).Round(time.Millisecond),
		"avg_fetch_ms": final.AvgFetchTimeMs,
		"termination":  final.TerminationReason,
	}).Info("Final stats: " + metrics.Summary(final))

	if cfg.MetricsPath != "" {
		if err := metrics.WriteToFile(cfg.MetricsPath, final); err != nil {
			logrus.Errorf("Failed to write metrics: %v", err)
		} else {
			logrus.Infof("Metrics written to %s", cfg.MetricsPath)
		}
	}

	logrus.Info("Done. Goodbye!")
}

// loadConfig reads the config file named by the first argument, or
// config.json, falling back to defaults when the file does not exist
func loadConfig() *config.Config {
	path := "config.json"
	if len(os.Args) > 1 {
		path = os.Args[1]
	}

	cfg, err := config.LoadConfig(path)
	if errors.Is(err, fs.ErrNotExist) {
		logrus.Warnf("Config file %s not found, using defaults", path)
		return config.Default()
	}
	if err != nil {
		logrus.Fatalf("Failed to load config: %v", err)
	}
	return cfg
}

// exportGraph writes the graph snapshot to SQLite; an empty path disables it
func exportGraph(dbPath string, graph *memory.Graph) {
	if dbPath == "" {
		logrus.Info("Database export disabled")
		return
	}

	store, err := storage.NewStorage(dbPath)
	if err != nil {
		logrus.Errorf("Failed to initialize storage: %v", err)
		return
	}
	defer store.Close()

	if err := graph.Flush(store); err != nil {
		logrus.Errorf("Failed to flush graph: %v", err)
		return
	}
	if err := graph.VerifyStored(store); err != nil {
		logrus.Errorf("Exported graph does not match the crawl: %v", err)
		return
	}
	nodes, edges := graph.GetStats()
	logrus.Infof("Graph exported to %s (%d nodes, %d edges)", dbPath, nodes, edges)
}
