package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/alvmarrod/ref-weaver/internal/config"
	"github.com/alvmarrod/ref-weaver/internal/crawler"
	"github.com/alvmarrod/ref-weaver/internal/metrics"
	"github.com/alvmarrod/ref-weaver/internal/storage"
	"github.com/alvmarrod/ref-weaver/internal/version"
	"github.com/sirupsen/logrus"
)

func main() {
	configPath := flag.String("config", "config.json", "path to the JSON configuration file")
	flag.Parse()

	// Configure logging
	logrus.SetLevel(logrus.InfoLevel)
	logrus.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})

	logrus.Infof("Ref Weaver v%s starting...", version.Version)

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		logrus.Fatalf("Failed to load config: %v", err)
	}
	logrus.SetLevel(cfg.Level())

	logrus.Infof("Configuration loaded: origin=%q, window=[%d, %d), api=%s",
		cfg.Origin, cfg.MinUTC, cfg.MaxUTC, cfg.APIBaseURL)

	store, err := storage.NewStorage(cfg.DBPath)
	if err != nil {
		logrus.Fatalf("Failed to initialize storage: %v", err)
	}
	defer store.Close()

	logrus.Infof("Database initialized: %s", cfg.DBPath)

	tracker := metrics.NewTracker()

	var origin crawler.OriginSelector
	if cfg.Origin != "" {
		origin = crawler.StaticOrigin(cfg.Origin)
	} else {
		logrus.Info("No origin configured, asking for a random community")
		origin = crawler.NewRandomOrigin(cfg.RandomURL, cfg.UserAgent, cfg.RequestTimeout())
	}

	run := &storage.Run{
		MinUTC:    cfg.MinUTC,
		MaxUTC:    cfg.MaxUTC,
		StartedAt: time.Now(),
	}

	// Output names depend on the origin, so stores are opened at the end of the crawl
	var graphFile *storage.GraphMLFile
	var graphFileMu sync.Mutex
	openSinks := func(originName string) ([]storage.GraphSink, error) {
		run.Origin = originName
		if err := store.StartRun(run); err != nil {
			return nil, err
		}

		graphFileMu.Lock()
		graphFile = storage.NewGraphMLFile(cfg.OutputDir, originName, cfg.MinUTC)
		graphFileMu.Unlock()

		return []storage.GraphSink{
			graphFile,
			&storage.RunSink{Store: store, RunID: run.RunID},
		}, nil
	}

	c, err := crawler.NewFromConfig(cfg, origin, tracker, openSinks)
	if err != nil {
		logrus.Fatalf("Failed to initialize crawler: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Setup signal handler for graceful shutdown
	sigChan := make(chan os.Signal, 2)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		sig := <-sigChan
		logrus.Infof("Received signal: %v, finishing current community...", sig)
		cancel()

		sig = <-sigChan // Second signal = force quit
		logrus.Warnf("Received second signal (%v) - forcing immediate exit!", sig)
		logrus.Warn("Attempting emergency save...")

		originName := c.Origin()
		if originName != "" {
			emergency := storage.NewGraphMLFile(cfg.OutputDir, originName, cfg.MinUTC)
			if err := c.Graph().Flush(emergency); err != nil {
				logrus.Errorf("Emergency graph save failed: %v", err)
			} else {
				logrus.Infof("Emergency graph saved to %s", emergency.Path)
			}
		}

		if err := tracker.WriteToFile(cfg.MetricsPath, "forced_exit"); err != nil {
			logrus.Errorf("Emergency metrics save failed: %v", err)
		}
		os.Exit(1)
	}()

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
				logrus.Infof("%s | Frontier: %d", tracker.LogProgress(), c.FrontierSize())
			case <-stopProgress:
				return
			}
		}
	}()

	graph, runErr := c.Run(ctx)

	close(stopProgress)
	wg.Wait()

	if graph == nil {
		logrus.Fatalf("Crawl failed: %v", runErr)
	}
	if runErr != nil {
		logrus.Errorf("Failed to persist graph: %v", runErr)
	}

	reason := c.TerminationReason()

	graphFileMu.Lock()
	if graphFile != nil && runErr == nil {
		logrus.Infof("Graph written to %s", graphFile.Path)
	}
	graphFileMu.Unlock()

	if run.RunID != "" {
		if err := store.FinishRun(run.RunID, reason); err != nil {
			logrus.Errorf("Failed to finish run %s: %v", run.RunID, err)
		}
	}

	logrus.Info("Final stats: " + tracker.LogProgress())

	if err := tracker.WriteToFile(cfg.MetricsPath, reason); err != nil {
		logrus.Errorf("Failed to write metrics: %v", err)
	} else {
		logrus.Infof("Metrics written to %s", cfg.MetricsPath)
	}

	logrus.Info("Shutdown complete. Goodbye!")
}
