package scraper

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/crosslister/product-scraper/internal/botcheck"
	"github.com/crosslister/product-scraper/internal/browser"
	"github.com/crosslister/product-scraper/internal/models"
	"github.com/crosslister/product-scraper/internal/ratelimit"
	"github.com/crosslister/product-scraper/internal/stealth"
)

const seenCacheSize = 2048

// Target describes one extraction run.
type Target struct {
	URL       string
	OutputDir string
	MaxImages int
}

// Summary aggregates the outcome of a batch run.
type Summary struct {
	Succeeded        []string
	Failed           []string
	Unsupported      []string
	Skipped          []string
	SupportedDomains []string
}

// Orchestrator drives a full extraction: fresh browser session, stealth
// setup, bot-detection check with one evasion retry, adapter extraction,
// and artifact persistence. Every run gets its own session and the session
// is always closed, success or failure.
type Orchestrator struct {
	sessions    browser.SessionFactory
	registry    *Registry
	stealth     *stealth.Controller
	sensor      *botcheck.Sensor
	artifacts   *ArtifactWriter
	limiter     ratelimit.Limiter
	metrics     *Metrics
	logger      *slog.Logger
	navTimeout  time.Duration
	seen        *lru.Cache[string, struct{}]
	onOutcome   func(url string, err error)
}

type OrchestratorConfig struct {
	Sessions   browser.SessionFactory
	Registry   *Registry
	Stealth    *stealth.Controller
	Sensor     *botcheck.Sensor
	Artifacts  *ArtifactWriter
	Limiter    ratelimit.Limiter
	Metrics    *Metrics
	Logger     *slog.Logger
	NavTimeout time.Duration

	// OnOutcome is called after every run with the terminal error, nil
	// on success. Used to feed adaptive rate limiting.
	OnOutcome func(url string, err error)
}

func NewOrchestrator(cfg OrchestratorConfig) *Orchestrator {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.NavTimeout == 0 {
		cfg.NavTimeout = 60 * time.Second
	}
	seen, _ := lru.New[string, struct{}](seenCacheSize)
	return &Orchestrator{
		sessions:   cfg.Sessions,
		registry:   cfg.Registry,
		stealth:    cfg.Stealth,
		sensor:     cfg.Sensor,
		artifacts:  cfg.Artifacts,
		limiter:    cfg.Limiter,
		metrics:    cfg.Metrics,
		logger:     cfg.Logger.With("component", "orchestrator"),
		navTimeout: cfg.NavTimeout,
		seen:       seen,
		onOutcome:  cfg.OnOutcome,
	}
}

// Run extracts a single target. The returned result always carries either
// the product data and local image paths, or the terminal error.
func (o *Orchestrator) Run(ctx context.Context, target Target) models.ExtractionResult {
	start := time.Now()

	adapter, ok := o.registry.Select(target.URL)
	if !ok {
		err := fmt.Errorf("no adapter for URL %q", target.URL)
		o.metrics.IncRun("none", "unsupported")
		return o.fail(target.URL, "none", err)
	}

	log := o.logger.With("adapter", adapter.Name(), "url", target.URL)
	log.Info("starting extraction")

	result, err := o.runWithSession(ctx, adapter, target, log)
	if err != nil {
		o.metrics.IncRun(adapter.Name(), "failure")
		o.metrics.IncError(err)
		o.metrics.ObserveRun(time.Since(start))
		return o.fail(target.URL, adapter.Name(), err)
	}

	o.metrics.IncRun(adapter.Name(), "success")
	o.metrics.ObserveRun(time.Since(start))
	if o.onOutcome != nil {
		o.onOutcome(target.URL, nil)
	}
	log.Info("extraction complete", "images", len(result.Images), "duration", time.Since(start))
	return *result
}

func (o *Orchestrator) runWithSession(ctx context.Context, adapter Adapter, target Target, log *slog.Logger) (result *models.ExtractionResult, err error) {
	session, err := o.sessions.NewSession()
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	defer session.Close()

	// Adapter code touches a live page; a panic there must fail the run,
	// not the process.
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("extraction panicked: %v", r)
		}
	}()

	if err := session.Navigate(target.URL, o.navTimeout); err != nil {
		return nil, &ErrNavigation{Err: err}
	}

	applied := o.stealth.ApplyShims(session)
	log.Debug("stealth shims applied", "count", applied)
	o.stealth.SimulateHumanBehavior(session)

	sensor := o.sensor.WithIndicators(adapter.BlockIndicators())
	if err := o.checkBlocked(sensor, session, target.URL, log); err != nil {
		return nil, err
	}

	adapter.Prepare(session)

	product, err := adapter.ExtractFields(session)
	if err != nil {
		return nil, err
	}
	product.Link = target.URL

	maxImages := target.MaxImages
	if maxImages <= 0 {
		maxImages = 10
	}
	imageURLs := adapter.ExtractImages(session, maxImages)

	dir, saved, err := o.artifacts.Persist(product, imageURLs, target.OutputDir)
	if err != nil {
		return nil, err
	}

	return &models.ExtractionResult{
		Success:    true,
		Product:    product,
		Images:     saved,
		FolderPath: dir,
	}, nil
}

// checkBlocked senses bot detection with the adapter's sensor and, on a
// hit, makes one evasion pass before giving up.
func (o *Orchestrator) checkBlocked(sensor *botcheck.Sensor, session browser.Session, url string, log *slog.Logger) error {
	blocked, indicator := senseOnce(sensor, session)
	if !blocked {
		return nil
	}

	log.Warn("bot detection triggered, attempting evasion", "indicator", indicator)
	o.stealth.SimulateHumanBehavior(session)

	blocked, indicator = senseOnce(sensor, session)
	if blocked {
		return &ErrBotDetected{Indicator: indicator, URL: url}
	}
	log.Info("evasion pass cleared the block")
	return nil
}

func senseOnce(sensor *botcheck.Sensor, session browser.Session) (bool, string) {
	content, err := session.Content()
	if err != nil {
		content = ""
	}
	title, err := session.Title()
	if err != nil {
		title = ""
	}
	return sensor.IsBlocked(content, title)
}

func (o *Orchestrator) fail(url, adapterName string, err error) models.ExtractionResult {
	o.logger.Error("extraction failed", "adapter", adapterName, "url", url, "error", err)
	if o.onOutcome != nil {
		o.onOutcome(url, err)
	}
	return models.ExtractionResult{Success: false, Error: err.Error()}
}

// RunBatch processes targets sequentially, pacing runs through the rate
// limiter and skipping URLs already handled this session. A failed target
// never aborts the batch.
func (o *Orchestrator) RunBatch(ctx context.Context, targets []Target) *Summary {
	summary := &Summary{SupportedDomains: o.registry.SupportedDomains()}

	for i, target := range targets {
		if ctx.Err() != nil {
			o.logger.Warn("batch cancelled", "remaining", len(targets)-i)
			break
		}

		if _, dup := o.seen.Get(target.URL); dup {
			o.logger.Info("skipping duplicate URL", "url", target.URL)
			summary.Skipped = append(summary.Skipped, target.URL)
			continue
		}
		o.seen.Add(target.URL, struct{}{})

		if _, ok := o.registry.Select(target.URL); !ok {
			summary.Unsupported = append(summary.Unsupported, target.URL)
			continue
		}

		if i > 0 && o.limiter != nil {
			if err := o.limiter.Wait(ctx); err != nil {
				break
			}
		}

		result := o.Run(ctx, target)
		if result.Success {
			summary.Succeeded = append(summary.Succeeded, target.URL)
		} else {
			summary.Failed = append(summary.Failed, target.URL)
		}
	}

	o.logger.Info("batch complete",
		"succeeded", len(summary.Succeeded),
		"failed", len(summary.Failed),
		"unsupported", len(summary.Unsupported),
		"skipped", len(summary.Skipped))
	return summary
}
