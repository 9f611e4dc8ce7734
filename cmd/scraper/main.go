// Command scraper runs extractions from the command line, without the API
// server or database. Results land on disk only.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/crosslister/product-scraper/internal/botcheck"
	"github.com/crosslister/product-scraper/internal/browser"
	"github.com/crosslister/product-scraper/internal/config"
	"github.com/crosslister/product-scraper/internal/proxy"
	"github.com/crosslister/product-scraper/internal/ratelimit"
	"github.com/crosslister/product-scraper/internal/scraper"
	"github.com/crosslister/product-scraper/internal/selector"
	"github.com/crosslister/product-scraper/internal/stealth"
)

func main() {
	var (
		urlList   = flag.String("urls", "", "comma-separated product URLs")
		urlFile   = flag.String("file", "", "file with one product URL per line")
		outputDir = flag.String("output", "", "directory for product folders (default from config)")
		maxImages = flag.Int("max-images", 0, "maximum images per product (default from config)")
		delayMin  = flag.Duration("delay-min", 0, "minimum delay between runs (default from config)")
		delayMax  = flag.Duration("delay-max", 0, "maximum delay between runs (default from config)")
		headless  = flag.Bool("headless", true, "run the browser headless")
	)
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	if *outputDir == "" {
		*outputDir = cfg.Scraper.OutputDir
	}
	if *maxImages == 0 {
		*maxImages = cfg.Scraper.MaxImages
	}
	if *delayMin == 0 {
		*delayMin = cfg.Scraper.DelayMin
	}
	if *delayMax == 0 {
		*delayMax = cfg.Scraper.DelayMax
	}

	urls, err := collectURLs(*urlList, *urlFile)
	if err != nil {
		logger.Error("failed to read URLs", "error", err)
		os.Exit(1)
	}
	if len(urls) == 0 {
		fmt.Fprintln(os.Stderr, "no URLs given: use -urls or -file")
		flag.Usage()
		os.Exit(2)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	proxies := proxy.NewPool(nil, false)
	if cfg.Scraper.ProxyFile != "" {
		proxies, err = proxy.LoadFromFile(cfg.Scraper.ProxyFile, cfg.Scraper.ProxyEnabled)
		if err != nil {
			logger.Error("failed to load proxies", "error", err)
			os.Exit(1)
		}
		logger.Info("proxy pool loaded", "enabled", proxies.Enabled(), "size", proxies.Size())
	}

	opts := browser.DefaultOptions()
	opts.Headless = *headless
	b, err := browser.New(opts, proxies)
	if err != nil {
		logger.Error("failed to initialize browser", "error", err)
		os.Exit(1)
	}
	defer b.Close()

	overrides, err := selector.LoadOverrides(cfg.Scraper.SelectorOverride)
	if err != nil {
		logger.Error("failed to load selector overrides", "error", err)
		os.Exit(1)
	}

	limiter := ratelimit.NewAdaptiveLimiter(*delayMin, *delayMax)
	metrics := scraper.NewMetrics()

	orchestrator := scraper.NewOrchestrator(scraper.OrchestratorConfig{
		Sessions:   b,
		Registry:   scraper.NewDefaultRegistry(overrides, logger),
		Stealth:    stealth.NewController(500*time.Millisecond, 2*time.Second),
		Sensor:     botcheck.NewSensor(),
		Artifacts:  scraper.NewArtifactWriter(nil, metrics, logger),
		Limiter:    limiter,
		Metrics:    metrics,
		Logger:     logger,
		NavTimeout: cfg.Scraper.NavTimeout,
		OnOutcome: func(_ string, err error) {
			if err != nil {
				limiter.RecordError()
			} else {
				limiter.RecordSuccess()
			}
		},
	})

	targets := make([]scraper.Target, 0, len(urls))
	for _, u := range urls {
		targets = append(targets, scraper.Target{
			URL:       u,
			OutputDir: *outputDir,
			MaxImages: *maxImages,
		})
	}

	summary := orchestrator.RunBatch(ctx, targets)
	printSummary(summary, *outputDir)

	if len(summary.Succeeded) == 0 && len(targets) > 0 {
		os.Exit(1)
	}
}

func collectURLs(urlList, urlFile string) ([]string, error) {
	var urls []string

	for _, u := range strings.Split(urlList, ",") {
		u = strings.TrimSpace(u)
		if u != "" {
			urls = append(urls, u)
		}
	}

	if urlFile != "" {
		f, err := os.Open(urlFile)
		if err != nil {
			return nil, err
		}
		defer f.Close()

		scanner := bufio.NewScanner(f)
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			if line == "" || strings.HasPrefix(line, "#") {
				continue
			}
			urls = append(urls, line)
		}
		if err := scanner.Err(); err != nil {
			return nil, err
		}
	}

	return urls, nil
}

func printSummary(summary *scraper.Summary, outputDir string) {
	fmt.Println()
	fmt.Println("==== Batch summary ====")
	fmt.Printf("Succeeded:   %d\n", len(summary.Succeeded))
	fmt.Printf("Failed:      %d\n", len(summary.Failed))
	fmt.Printf("Unsupported: %d\n", len(summary.Unsupported))
	fmt.Printf("Skipped:     %d (duplicates)\n", len(summary.Skipped))
	fmt.Printf("Output:      %s\n", outputDir)

	if len(summary.Failed) > 0 {
		fmt.Println("\nFailed URLs:")
		for _, u := range summary.Failed {
			fmt.Printf("  %s\n", u)
		}
	}
	if len(summary.Unsupported) > 0 {
		fmt.Println("\nUnsupported URLs:")
		for _, u := range summary.Unsupported {
			fmt.Printf("  %s\n", u)
		}
		fmt.Printf("\nExplicitly supported domains: %s (anything else uses the generic extractor)\n",
			strings.Join(summary.SupportedDomains, ", "))
	}
}
