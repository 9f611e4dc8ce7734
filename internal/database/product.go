package database

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/crosslister/product-scraper/internal/models"
)

// ProductRepository handles product persistence and image records.
type ProductRepository struct {
	db *DB
}

func NewProductRepository(db *DB) *ProductRepository {
	return &ProductRepository{db: db}
}

const productColumns = `
	id, url, title, price, description, status, missing_fields,
	folder_path, image_count, scraped_at, posted_at, created_at, updated_at`

// Create inserts a new product in pending state.
func (r *ProductRepository) Create(ctx context.Context, url string) (*models.Product, error) {
	product := &models.Product{
		ID:            uuid.New(),
		URL:           url,
		Status:        models.ProductPending,
		MissingFields: []string{"title", "price", "description", "images"},
		CreatedAt:     time.Now(),
		UpdatedAt:     time.Now(),
	}

	query := `
		INSERT INTO products (
			id, url, status, missing_fields, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6)`

	_, err := r.db.Exec(ctx, query,
		product.ID, product.URL, product.Status, product.MissingFields,
		product.CreatedAt, product.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create product: %w", err)
	}

	return product, nil
}

func (r *ProductRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE id = $1`
	return r.scanOne(r.db.QueryRow(ctx, query, id))
}

func (r *ProductRepository) GetByURL(ctx context.Context, url string) (*models.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE url = $1`
	return r.scanOne(r.db.QueryRow(ctx, query, url))
}

// List returns products, optionally filtered by status, newest first.
func (r *ProductRepository) List(ctx context.Context, status models.ProductStatus, limit int) ([]*models.Product, error) {
	if limit <= 0 {
		limit = 100
	}

	query := `SELECT ` + productColumns + ` FROM products`
	args := []interface{}{}
	if status != "" {
		query += ` WHERE status = $1`
		args = append(args, status)
	}
	query += fmt.Sprintf(` ORDER BY created_at DESC LIMIT %d`, limit)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	defer rows.Close()

	var products []*models.Product
	for rows.Next() {
		product, err := r.scanOne(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, product)
	}
	return products, rows.Err()
}

// ApplyExtraction writes the result of a scrape run and the recomputed
// completeness in one update.
func (r *ProductRepository) ApplyExtraction(ctx context.Context, tx pgx.Tx, product *models.Product) error {
	now := time.Now()
	product.UpdatedAt = now
	product.ScrapedAt = &now

	query := `
		UPDATE products
		SET title = $1, price = $2, description = $3, status = $4,
			missing_fields = $5, folder_path = $6, image_count = $7,
			scraped_at = $8, updated_at = $9
		WHERE id = $10`

	result, err := tx.Exec(ctx, query,
		product.Title, product.Price, product.Description, product.Status,
		product.MissingFields, product.FolderPath, product.ImageCount,
		product.ScrapedAt, product.UpdatedAt, product.ID)
	if err != nil {
		return fmt.Errorf("failed to apply extraction: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("product not found: %s", product.ID)
	}
	return nil
}

// UpdateFields persists a manual edit and the recomputed status.
func (r *ProductRepository) UpdateFields(ctx context.Context, product *models.Product) error {
	product.UpdatedAt = time.Now()

	query := `
		UPDATE products
		SET title = $1, price = $2, description = $3, status = $4,
			missing_fields = $5, updated_at = $6
		WHERE id = $7`

	result, err := r.db.Exec(ctx, query,
		product.Title, product.Price, product.Description, product.Status,
		product.MissingFields, product.UpdatedAt, product.ID)
	if err != nil {
		return fmt.Errorf("failed to update product: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("product not found: %s", product.ID)
	}
	return nil
}

func (r *ProductRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status models.ProductStatus) error {
	query := `UPDATE products SET status = $1, updated_at = $2 WHERE id = $3`
	result, err := r.db.Exec(ctx, query, status, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to update status: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("product not found: %s", id)
	}
	return nil
}

// MarkPosted is the only path to the posted status. It runs in the caller's
// transaction so the status change and the lifecycle event commit together.
func (r *ProductRepository) MarkPosted(ctx context.Context, tx pgx.Tx, id uuid.UUID) error {
	now := time.Now()
	query := `UPDATE products SET status = $1, posted_at = $2, updated_at = $2 WHERE id = $3`
	result, err := tx.Exec(ctx, query, models.ProductPosted, now, id)
	if err != nil {
		return fmt.Errorf("failed to mark posted: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("product not found: %s", id)
	}
	return nil
}

func (r *ProductRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.Exec(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete product: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("product not found: %s", id)
	}
	return nil
}

// ReplaceImages swaps out the image records for a product.
func (r *ProductRepository) ReplaceImages(ctx context.Context, tx pgx.Tx, productID uuid.UUID, paths []string) error {
	if _, err := tx.Exec(ctx, `DELETE FROM product_images WHERE product_id = $1`, productID); err != nil {
		return fmt.Errorf("failed to clear images: %w", err)
	}

	for i, path := range paths {
		_, err := tx.Exec(ctx, `
			INSERT INTO product_images (id, product_id, file_path, image_order, created_at)
			VALUES ($1, $2, $3, $4, $5)`,
			uuid.New(), productID, path, i+1, time.Now())
		if err != nil {
			return fmt.Errorf("failed to insert image: %w", err)
		}
	}
	return nil
}

func (r *ProductRepository) GetImages(ctx context.Context, productID uuid.UUID) ([]string, error) {
	rows, err := r.db.Query(ctx, `
		SELECT file_path FROM product_images
		WHERE product_id = $1 ORDER BY image_order ASC`, productID)
	if err != nil {
		return nil, fmt.Errorf("failed to get images: %w", err)
	}
	defer rows.Close()

	var paths []string
	for rows.Next() {
		var path string
		if err := rows.Scan(&path); err != nil {
			return nil, fmt.Errorf("failed to scan image: %w", err)
		}
		paths = append(paths, path)
	}
	return paths, rows.Err()
}

// PostingRecord is one posting attempt outcome for a product.
type PostingRecord struct {
	ID             uuid.UUID `json:"id"`
	ProductID      uuid.UUID `json:"product_id"`
	Status         string    `json:"status"`
	MarketplaceURL string    `json:"marketplace_url,omitempty"`
	Error          string    `json:"error,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

// AddPostingRecord appends to the posting history inside the caller's
// transaction.
func (r *ProductRepository) AddPostingRecord(ctx context.Context, tx pgx.Tx, record *PostingRecord) error {
	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
	record.CreatedAt = time.Now()

	_, err := tx.Exec(ctx, `
		INSERT INTO posting_history (id, product_id, status, marketplace_url, error, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		record.ID, record.ProductID, record.Status, record.MarketplaceURL,
		record.Error, record.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to add posting record: %w", err)
	}
	return nil
}

func (r *ProductRepository) GetPostingHistory(ctx context.Context, productID uuid.UUID) ([]*PostingRecord, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, product_id, status, marketplace_url, error, created_at
		FROM posting_history
		WHERE product_id = $1 ORDER BY created_at DESC`, productID)
	if err != nil {
		return nil, fmt.Errorf("failed to get posting history: %w", err)
	}
	defer rows.Close()

	var records []*PostingRecord
	for rows.Next() {
		record := &PostingRecord{}
		err := rows.Scan(&record.ID, &record.ProductID, &record.Status,
			&record.MarketplaceURL, &record.Error, &record.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan posting record: %w", err)
		}
		records = append(records, record)
	}
	return records, rows.Err()
}

func (r *ProductRepository) scanOne(row pgx.Row) (*models.Product, error) {
	product := &models.Product{}
	err := row.Scan(
		&product.ID, &product.URL, &product.Title, &product.Price,
		&product.Description, &product.Status, &product.MissingFields,
		&product.FolderPath, &product.ImageCount, &product.ScrapedAt,
		&product.PostedAt, &product.CreatedAt, &product.UpdatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan product: %w", err)
	}
	return product, nil
}
