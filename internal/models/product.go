package models

import (
	"time"

	"github.com/google/uuid"
)

// ProductStatus tracks a product through the relisting lifecycle.
type ProductStatus string

const (
	// ProductPending is the intake state, before any extraction has run.
	ProductPending ProductStatus = "pending"
	// ProductCollected means extraction succeeded but fields are missing.
	ProductCollected ProductStatus = "collected"
	// ProductReadyToPost means all fields and at least one image are present.
	ProductReadyToPost ProductStatus = "ready_to_post"
	// ProductPosted is terminal, set by the posting collaborator only.
	ProductPosted ProductStatus = "posted"
	// ProductFailed means the most recent job errored.
	ProductFailed ProductStatus = "failed"
)

// JobStatus tracks a single execution attempt.
type JobStatus string

const (
	JobPending   JobStatus = "pending"
	JobRunning   JobStatus = "running"
	JobCompleted JobStatus = "completed"
	JobFailed    JobStatus = "failed"
)

// JobType distinguishes scrape jobs from post jobs.
type JobType string

const (
	JobTypeScrape JobType = "scrape"
	JobTypePost   JobType = "post"
)

// ProductData holds the fields extracted from a single product page.
// Title is required for a successful extraction; everything else is
// best-effort and may stay empty.
type ProductData struct {
	Title       string `json:"title"`
	Price       string `json:"price"`
	Description string `json:"description"`
	Brand       string `json:"brand,omitempty"`
	Color       string `json:"color,omitempty"`
	Tags        string `json:"tags,omitempty"`
	Link        string `json:"link"`
}

// ExtractionResult is the outcome of one adapter run. Exactly one of
// (Success=true, Product!=nil) or (Success=false, Error!="") holds.
// Images are local file paths; an empty list on success is not an error.
type ExtractionResult struct {
	Success    bool         `json:"success"`
	Product    *ProductData `json:"product,omitempty"`
	Images     []string     `json:"images"`
	FolderPath string       `json:"folder_path,omitempty"`
	Error      string       `json:"error,omitempty"`
}

// Product is the persistent entity accumulating extraction results.
type Product struct {
	ID            uuid.UUID     `json:"id"`
	URL           string        `json:"url"`
	Title         string        `json:"title,omitempty"`
	Price         string        `json:"price,omitempty"`
	Description   string        `json:"description,omitempty"`
	Status        ProductStatus `json:"status"`
	MissingFields []string      `json:"missing_fields"`
	FolderPath    string        `json:"folder_path,omitempty"`
	ImageCount    int           `json:"image_count"`
	ScrapedAt     *time.Time    `json:"scraped_at,omitempty"`
	PostedAt      *time.Time    `json:"posted_at,omitempty"`
	CreatedAt     time.Time     `json:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at"`
}

// Job is one tracked scrape or post attempt for a product.
type Job struct {
	ID          uuid.UUID  `json:"id"`
	ProductID   uuid.UUID  `json:"product_id"`
	TargetURL   string     `json:"target_url"`
	Type        JobType    `json:"type"`
	Status      JobStatus  `json:"status"`
	Result      []byte     `json:"result,omitempty"`
	Error       string     `json:"error,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// MissingFields returns the subset of {title, price, description, images}
// that is absent, in that fixed order.
func MissingFields(title, price, description string, imageCount int) []string {
	missing := make([]string, 0, 4)
	if title == "" {
		missing = append(missing, "title")
	}
	if price == "" {
		missing = append(missing, "price")
	}
	if description == "" {
		missing = append(missing, "description")
	}
	if imageCount == 0 {
		missing = append(missing, "images")
	}
	return missing
}

// DeriveStatus recomputes the product status from its completeness. A posted
// product is never downgraded; a manual edit on a posted product keeps it
// posted.
func DeriveStatus(current ProductStatus, missing []string) ProductStatus {
	if current == ProductPosted {
		return ProductPosted
	}
	if len(missing) == 0 {
		return ProductReadyToPost
	}
	return ProductCollected
}

// Recompute applies the completeness derivation to the product in place and
// reports whether the status actually changed, so callers can skip redundant
// writes.
func (p *Product) Recompute() bool {
	p.MissingFields = MissingFields(p.Title, p.Price, p.Description, p.ImageCount)
	next := DeriveStatus(p.Status, p.MissingFields)
	if next == p.Status {
		return false
	}
	p.Status = next
	return true
}
