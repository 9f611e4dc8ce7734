// Package events defines the lifecycle events published to downstream
// consumers (the posting service, dashboards) through the transactional
// outbox.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/crosslister/product-scraper/internal/database"
	"github.com/crosslister/product-scraper/internal/models"
)

const (
	// TypeProductReady fires when a product reaches ready_to_post.
	TypeProductReady = "PRODUCT_READY"
	// TypeScrapeFailed fires when a scrape job fails terminally.
	TypeScrapeFailed = "SCRAPE_FAILED"
	// TypeProductPosted fires when the posting collaborator confirms a listing.
	TypeProductPosted = "PRODUCT_POSTED"
)

// ProductReadyPayload announces a fully collected product.
type ProductReadyPayload struct {
	ProductID  string   `json:"product_id"`
	URL        string   `json:"url"`
	Title      string   `json:"title"`
	Price      string   `json:"price"`
	FolderPath string   `json:"folder_path"`
	ImageCount int      `json:"image_count"`
	ReadyAt    string   `json:"ready_at"`
	Missing    []string `json:"missing_fields,omitempty"`
}

// ScrapeFailedPayload carries the terminal error of a failed job.
type ScrapeFailedPayload struct {
	ProductID string `json:"product_id"`
	JobID     string `json:"job_id"`
	URL       string `json:"url"`
	Error     string `json:"error"`
	FailedAt  string `json:"failed_at"`
}

// Publisher writes events to the outbox inside the caller's transaction so
// state change and event commit atomically.
type Publisher struct {
	outbox *database.OutboxRepository
}

func NewPublisher(outbox *database.OutboxRepository) *Publisher {
	return &Publisher{outbox: outbox}
}

func (p *Publisher) ProductReady(ctx context.Context, tx pgx.Tx, product *models.Product) error {
	payload, err := json.Marshal(ProductReadyPayload{
		ProductID:  product.ID.String(),
		URL:        product.URL,
		Title:      product.Title,
		Price:      product.Price,
		FolderPath: product.FolderPath,
		ImageCount: product.ImageCount,
		ReadyAt:    time.Now().Format(time.RFC3339),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	return p.outbox.InsertWithTx(ctx, tx, &database.OutboxEvent{
		AggregateType: "product",
		AggregateID:   product.ID.String(),
		EventType:     TypeProductReady,
		Payload:       payload,
	})
}

// ProductPostedPayload confirms a live listing.
type ProductPostedPayload struct {
	ProductID string `json:"product_id"`
	URL       string `json:"url"`
	Title     string `json:"title"`
	PostedAt  string `json:"posted_at"`
}

func (p *Publisher) ProductPosted(ctx context.Context, tx pgx.Tx, product *models.Product) error {
	payload, err := json.Marshal(ProductPostedPayload{
		ProductID: product.ID.String(),
		URL:       product.URL,
		Title:     product.Title,
		PostedAt:  time.Now().Format(time.RFC3339),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	return p.outbox.InsertWithTx(ctx, tx, &database.OutboxEvent{
		AggregateType: "product",
		AggregateID:   product.ID.String(),
		EventType:     TypeProductPosted,
		Payload:       payload,
	})
}

func (p *Publisher) ScrapeFailed(ctx context.Context, tx pgx.Tx, product *models.Product, job *models.Job, scrapeErr string) error {
	payload, err := json.Marshal(ScrapeFailedPayload{
		ProductID: product.ID.String(),
		JobID:     job.ID.String(),
		URL:       job.TargetURL,
		Error:     scrapeErr,
		FailedAt:  time.Now().Format(time.RFC3339),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	return p.outbox.InsertWithTx(ctx, tx, &database.OutboxEvent{
		AggregateType: "product",
		AggregateID:   product.ID.String(),
		EventType:     TypeScrapeFailed,
		Payload:       payload,
	})
}
