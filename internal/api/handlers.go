// Package api exposes the scrape pipeline over HTTP.
package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/crosslister/product-scraper/internal/database"
	"github.com/crosslister/product-scraper/internal/jobs"
	"github.com/crosslister/product-scraper/internal/models"
)

type Handlers struct {
	products *database.ProductRepository
	jobRepo  *database.JobRepository
	manager  *jobs.Manager
	logger   *slog.Logger
}

func NewHandlers(db *database.DB, manager *jobs.Manager, logger *slog.Logger) *Handlers {
	return &Handlers{
		products: database.NewProductRepository(db),
		jobRepo:  database.NewJobRepository(db),
		manager:  manager,
		logger:   logger,
	}
}

// ScrapeRequest submits a URL for extraction.
type ScrapeRequest struct {
	URL string `json:"url"`
}

type ScrapeResponse struct {
	JobID     string `json:"job_id"`
	ProductID string `json:"product_id"`
	Status    string `json:"status"`
}

// CreateScrape queues a scrape job; the worker picks it up.
func (h *Handlers) CreateScrape(w http.ResponseWriter, r *http.Request) {
	var req ScrapeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.URL == "" {
		h.respondError(w, http.StatusBadRequest, "url is required")
		return
	}

	product, job, err := h.manager.SubmitScrape(r.Context(), req.URL)
	if err != nil {
		h.logger.Error("failed to submit scrape", "error", err, "url", req.URL)
		h.respondError(w, http.StatusInternalServerError, "failed to create job")
		return
	}

	h.respondJSON(w, http.StatusAccepted, ScrapeResponse{
		JobID:     job.ID.String(),
		ProductID: product.ID.String(),
		Status:    string(job.Status),
	})
}

func (h *Handlers) GetJob(w http.ResponseWriter, r *http.Request) {
	id, ok := h.parseID(w, r, "jobID")
	if !ok {
		return
	}

	job, err := h.jobRepo.GetByID(r.Context(), id)
	if err != nil {
		h.respondError(w, http.StatusNotFound, "job not found")
		return
	}

	h.respondJSON(w, http.StatusOK, job)
}

func (h *Handlers) ListJobs(w http.ResponseWriter, r *http.Request) {
	jobList, err := h.jobRepo.List(r.Context(), 100)
	if err != nil {
		h.logger.Error("failed to list jobs", "error", err)
		h.respondError(w, http.StatusInternalServerError, "failed to list jobs")
		return
	}

	h.respondJSON(w, http.StatusOK, jobList)
}

func (h *Handlers) ListProducts(w http.ResponseWriter, r *http.Request) {
	status := models.ProductStatus(r.URL.Query().Get("status"))

	products, err := h.products.List(r.Context(), status, 100)
	if err != nil {
		h.logger.Error("failed to list products", "error", err)
		h.respondError(w, http.StatusInternalServerError, "failed to list products")
		return
	}

	h.respondJSON(w, http.StatusOK, products)
}

func (h *Handlers) GetProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := h.parseID(w, r, "productID")
	if !ok {
		return
	}

	product, err := h.products.GetByID(r.Context(), id)
	if err != nil {
		h.respondError(w, http.StatusNotFound, "product not found")
		return
	}

	h.respondJSON(w, http.StatusOK, product)
}

// UpdateProductRequest carries a manual edit. Only non-nil fields change.
type UpdateProductRequest struct {
	Title       *string `json:"title"`
	Price       *string `json:"price"`
	Description *string `json:"description"`
}

// UpdateProduct applies a manual edit and recomputes the product's
// completeness-derived status.
func (h *Handlers) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := h.parseID(w, r, "productID")
	if !ok {
		return
	}

	var req UpdateProductRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	product, err := h.products.GetByID(r.Context(), id)
	if err != nil {
		h.respondError(w, http.StatusNotFound, "product not found")
		return
	}

	if req.Title != nil {
		product.Title = *req.Title
	}
	if req.Price != nil {
		product.Price = *req.Price
	}
	if req.Description != nil {
		product.Description = *req.Description
	}
	product.Recompute()

	if err := h.products.UpdateFields(r.Context(), product); err != nil {
		h.logger.Error("failed to update product", "error", err, "product_id", id)
		h.respondError(w, http.StatusInternalServerError, "failed to update product")
		return
	}

	h.respondJSON(w, http.StatusOK, product)
}

func (h *Handlers) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := h.parseID(w, r, "productID")
	if !ok {
		return
	}

	if err := h.products.Delete(r.Context(), id); err != nil {
		h.respondError(w, http.StatusNotFound, "product not found")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) GetProductImages(w http.ResponseWriter, r *http.Request) {
	id, ok := h.parseID(w, r, "productID")
	if !ok {
		return
	}

	images, err := h.products.GetImages(r.Context(), id)
	if err != nil {
		h.logger.Error("failed to get images", "error", err, "product_id", id)
		h.respondError(w, http.StatusInternalServerError, "failed to get images")
		return
	}

	h.respondJSON(w, http.StatusOK, map[string]interface{}{
		"product_id": id.String(),
		"images":     images,
	})
}

func (h *Handlers) GetPostingHistory(w http.ResponseWriter, r *http.Request) {
	id, ok := h.parseID(w, r, "productID")
	if !ok {
		return
	}

	history, err := h.products.GetPostingHistory(r.Context(), id)
	if err != nil {
		h.logger.Error("failed to get posting history", "error", err, "product_id", id)
		h.respondError(w, http.StatusInternalServerError, "failed to get posting history")
		return
	}

	h.respondJSON(w, http.StatusOK, history)
}

// SubmitPost queues a post job for a ready product.
func (h *Handlers) SubmitPost(w http.ResponseWriter, r *http.Request) {
	id, ok := h.parseID(w, r, "productID")
	if !ok {
		return
	}

	job, err := h.manager.SubmitPost(r.Context(), id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			h.respondError(w, http.StatusNotFound, "product not found")
			return
		}
		h.respondError(w, http.StatusConflict, err.Error())
		return
	}

	h.respondJSON(w, http.StatusAccepted, map[string]string{
		"job_id": job.ID.String(),
		"status": string(job.Status),
	})
}

// ConfirmPostedRequest reports the live listing location.
type ConfirmPostedRequest struct {
	MarketplaceURL string `json:"marketplace_url"`
}

// ConfirmPosted is called by the posting collaborator once the listing is
// live.
func (h *Handlers) ConfirmPosted(w http.ResponseWriter, r *http.Request) {
	id, ok := h.parseID(w, r, "productID")
	if !ok {
		return
	}

	var req ConfirmPostedRequest
	if r.Body != nil {
		json.NewDecoder(r.Body).Decode(&req)
	}

	product, err := h.manager.ConfirmPosted(r.Context(), id, req.MarketplaceURL)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			h.respondError(w, http.StatusNotFound, "product not found")
			return
		}
		h.logger.Error("failed to confirm posting", "error", err, "product_id", id)
		h.respondError(w, http.StatusInternalServerError, "failed to confirm posting")
		return
	}

	h.respondJSON(w, http.StatusOK, product)
}

// PostFailedRequest carries the reason a listing attempt did not go live.
type PostFailedRequest struct {
	Error string `json:"error"`
}

// PostFailed is called by the posting collaborator when a listing attempt
// fails. The product stays postable and can be resubmitted.
func (h *Handlers) PostFailed(w http.ResponseWriter, r *http.Request) {
	id, ok := h.parseID(w, r, "productID")
	if !ok {
		return
	}

	var req PostFailedRequest
	if r.Body != nil {
		json.NewDecoder(r.Body).Decode(&req)
	}

	if err := h.manager.FailPost(r.Context(), id, req.Error); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			h.respondError(w, http.StatusNotFound, "product not found")
			return
		}
		h.logger.Error("failed to record posting failure", "error", err, "product_id", id)
		h.respondError(w, http.StatusInternalServerError, "failed to record posting failure")
		return
	}

	h.respondJSON(w, http.StatusOK, map[string]string{"status": "recorded"})
}

func (h *Handlers) parseID(w http.ResponseWriter, r *http.Request, param string) (uuid.UUID, bool) {
	raw := chi.URLParam(r, param)
	id, err := uuid.Parse(raw)
	if err != nil {
		h.respondError(w, http.StatusBadRequest, param+" must be a valid UUID")
		return uuid.Nil, false
	}
	return id, true
}

func (h *Handlers) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to encode response", "error", err)
	}
}

func (h *Handlers) respondError(w http.ResponseWriter, status int, message string) {
	h.respondJSON(w, status, map[string]string{"error": message})
}
