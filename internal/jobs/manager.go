// Package jobs coordinates scrape and post jobs: it owns the job state
// machine and applies extraction outcomes to products atomically.
package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/crosslister/product-scraper/internal/database"
	"github.com/crosslister/product-scraper/internal/events"
	"github.com/crosslister/product-scraper/internal/models"
	"github.com/crosslister/product-scraper/internal/scraper"
)

// Runner executes one extraction. Satisfied by *scraper.Orchestrator.
type Runner interface {
	Run(ctx context.Context, target scraper.Target) models.ExtractionResult
}

type Manager struct {
	db        *database.DB
	products  *database.ProductRepository
	jobs      *database.JobRepository
	publisher *events.Publisher
	runner    Runner
	outputDir string
	maxImages int
	logger    *slog.Logger

	// one browser, one run at a time
	runMu sync.Mutex
}

type ManagerConfig struct {
	DB        *database.DB
	Runner    Runner
	Publisher *events.Publisher
	OutputDir string
	MaxImages int
	Logger    *slog.Logger
}

func NewManager(cfg ManagerConfig) *Manager {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Manager{
		db:        cfg.DB,
		products:  database.NewProductRepository(cfg.DB),
		jobs:      database.NewJobRepository(cfg.DB),
		publisher: cfg.Publisher,
		runner:    cfg.Runner,
		outputDir: cfg.OutputDir,
		maxImages: cfg.MaxImages,
		logger:    cfg.Logger.With("component", "jobs"),
	}
}

// SubmitScrape registers a product (or reuses the existing one for the URL)
// and queues a scrape job for it.
func (m *Manager) SubmitScrape(ctx context.Context, url string) (*models.Product, *models.Job, error) {
	product, err := m.products.GetByURL(ctx, url)
	if err != nil {
		if !errors.Is(err, pgx.ErrNoRows) {
			return nil, nil, err
		}
		product, err = m.products.Create(ctx, url)
		if err != nil {
			return nil, nil, err
		}
	}

	job, err := m.jobs.Create(ctx, product.ID, url, models.JobTypeScrape)
	if err != nil {
		return nil, nil, err
	}

	m.logger.Info("scrape job queued", "job_id", job.ID, "product_id", product.ID, "url", url)
	return product, job, nil
}

func (m *Manager) commitSuccess(ctx context.Context, product *models.Product, job *models.Job, result *models.ExtractionResult) error {
	ApplyResult(product, result)

	resultJSON, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to marshal result: %w", err)
	}

	err = m.db.WithTx(ctx, func(tx pgx.Tx) error {
		if err := m.products.ApplyExtraction(ctx, tx, product); err != nil {
			return err
		}
		if err := m.products.ReplaceImages(ctx, tx, product.ID, result.Images); err != nil {
			return err
		}
		if err := m.jobs.CompleteWithTx(ctx, tx, job.ID, resultJSON); err != nil {
			return err
		}
		if product.Status == models.ProductReadyToPost {
			if err := m.publisher.ProductReady(ctx, tx, product); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to commit scrape result: %w", err)
	}

	m.logger.Info("scrape job completed",
		"job_id", job.ID,
		"product_id", product.ID,
		"status", product.Status,
		"missing", product.MissingFields)
	return nil
}

func (m *Manager) commitFailure(ctx context.Context, product *models.Product, job *models.Job, scrapeErr string) error {
	err := m.db.WithTx(ctx, func(tx pgx.Tx) error {
		if err := m.jobs.FailWithTx(ctx, tx, job.ID, scrapeErr); err != nil {
			return err
		}
		if _, err := tx.Exec(ctx,
			`UPDATE products SET status = $1, updated_at = $2 WHERE id = $3`,
			models.ProductFailed, time.Now(), product.ID); err != nil {
			return err
		}
		return m.publisher.ScrapeFailed(ctx, tx, product, job, scrapeErr)
	})
	if err != nil {
		return fmt.Errorf("failed to commit scrape failure: %w", err)
	}

	m.logger.Warn("scrape job failed", "job_id", job.ID, "product_id", product.ID, "error", scrapeErr)
	return nil
}

// SubmitPost validates a product is postable and queues a post job. The
// posting itself is done by an external consumer of the event stream.
func (m *Manager) SubmitPost(ctx context.Context, productID uuid.UUID) (*models.Job, error) {
	product, err := m.products.GetByID(ctx, productID)
	if err != nil {
		return nil, err
	}

	if product.Status != models.ProductReadyToPost {
		return nil, fmt.Errorf("product %s is %s, expected %s (missing: %v)",
			product.ID, product.Status, models.ProductReadyToPost, product.MissingFields)
	}

	job, err := m.jobs.Create(ctx, product.ID, product.URL, models.JobTypePost)
	if err != nil {
		return nil, err
	}

	m.logger.Info("post job queued", "job_id", job.ID, "product_id", product.ID)
	return job, nil
}

// ConfirmPosted records that the posting collaborator listed the product.
// This is the only path into the posted status. The product's open post
// job completes in the same transaction so polling its status reflects
// the listing.
func (m *Manager) ConfirmPosted(ctx context.Context, productID uuid.UUID, marketplaceURL string) (*models.Product, error) {
	product, err := m.products.GetByID(ctx, productID)
	if err != nil {
		return nil, err
	}

	jobResult, err := json.Marshal(map[string]string{"marketplace_url": marketplaceURL})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal post result: %w", err)
	}

	err = m.db.WithTx(ctx, func(tx pgx.Tx) error {
		if err := m.products.MarkPosted(ctx, tx, product.ID); err != nil {
			return err
		}
		if err := m.jobs.CompleteOpenWithTx(ctx, tx, product.ID, models.JobTypePost, jobResult); err != nil {
			return err
		}
		record := &database.PostingRecord{
			ProductID:      product.ID,
			Status:         "posted",
			MarketplaceURL: marketplaceURL,
		}
		if err := m.products.AddPostingRecord(ctx, tx, record); err != nil {
			return err
		}
		return m.publisher.ProductPosted(ctx, tx, product)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to confirm posting: %w", err)
	}

	now := time.Now()
	product.Status = models.ProductPosted
	product.PostedAt = &now

	m.logger.Info("product posted", "product_id", product.ID)
	return product, nil
}

// FailPost records that the posting collaborator could not list the
// product. The open post job fails, a history row is written, and the
// product stays postable.
func (m *Manager) FailPost(ctx context.Context, productID uuid.UUID, reason string) error {
	product, err := m.products.GetByID(ctx, productID)
	if err != nil {
		return err
	}

	err = m.db.WithTx(ctx, func(tx pgx.Tx) error {
		if err := m.jobs.FailOpenWithTx(ctx, tx, product.ID, models.JobTypePost, reason); err != nil {
			return err
		}
		record := &database.PostingRecord{
			ProductID: product.ID,
			Status:    "failed",
			Error:     reason,
		}
		return m.products.AddPostingRecord(ctx, tx, record)
	})
	if err != nil {
		return fmt.Errorf("failed to record posting failure: %w", err)
	}

	m.logger.Warn("post job failed", "product_id", product.ID, "reason", reason)
	return nil
}

// StartWorker polls for pending scrape jobs until the context is cancelled.
func (m *Manager) StartWorker(ctx context.Context, pollInterval time.Duration) {
	if pollInterval <= 0 {
		pollInterval = 3 * time.Second
	}

	m.logger.Info("scrape worker started", "poll_interval", pollInterval)
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			m.logger.Info("scrape worker stopped")
			return
		case <-ticker.C:
			m.drainPending(ctx)
		}
	}
}

func (m *Manager) drainPending(ctx context.Context) {
	for {
		job, err := m.jobs.ClaimPending(ctx, models.JobTypeScrape)
		if err != nil {
			if !errors.Is(err, pgx.ErrNoRows) {
				m.logger.Error("failed to claim job", "error", err)
			}
			return
		}

		if err := m.runClaimed(ctx, job); err != nil {
			m.logger.Error("job execution failed", "job_id", job.ID, "error", err)
		}

		if ctx.Err() != nil {
			return
		}
	}
}

// runClaimed executes a job that is already marked running.
func (m *Manager) runClaimed(ctx context.Context, job *models.Job) error {
	m.runMu.Lock()
	defer m.runMu.Unlock()

	product, err := m.products.GetByID(ctx, job.ProductID)
	if err != nil {
		return fmt.Errorf("failed to load product: %w", err)
	}

	result := m.runner.Run(ctx, scraper.Target{
		URL:       job.TargetURL,
		OutputDir: m.outputDir,
		MaxImages: m.maxImages,
	})

	if result.Success {
		return m.commitSuccess(ctx, product, job, &result)
	}
	return m.commitFailure(ctx, product, job, result.Error)
}

// ApplyResult folds an extraction result into the product and recomputes
// its completeness. Empty extracted fields never overwrite values a user
// already filled in by hand.
func ApplyResult(product *models.Product, result *models.ExtractionResult) {
	if result.Product != nil {
		if result.Product.Title != "" {
			product.Title = result.Product.Title
		}
		if result.Product.Price != "" {
			product.Price = result.Product.Price
		}
		if result.Product.Description != "" {
			product.Description = result.Product.Description
		}
	}
	if result.FolderPath != "" {
		product.FolderPath = result.FolderPath
	}
	product.ImageCount = len(result.Images)
	product.Recompute()
}
