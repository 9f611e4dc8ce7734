package scraper

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/crosslister/product-scraper/internal/models"
)

const photosDirName = "Photos"

// ArtifactWriter lays a scraped product out on disk: one directory per
// product named after its title, an info.txt with the structured fields,
// and a Photos/ subdirectory with the downloaded images.
type ArtifactWriter struct {
	client  *http.Client
	metrics *Metrics
	logger  *slog.Logger
}

func NewArtifactWriter(client *http.Client, metrics *Metrics, logger *slog.Logger) *ArtifactWriter {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ArtifactWriter{
		client:  client,
		metrics: metrics,
		logger:  logger.With("component", "artifact_writer"),
	}
}

// Persist writes the product directory and downloads the images. It returns
// the directory path and the local paths of the images that downloaded
// successfully. Individual image failures are logged and skipped; only
// filesystem errors are fatal.
func (w *ArtifactWriter) Persist(product *models.ProductData, imageURLs []string, outputDir string) (string, []string, error) {
	dirName := SanitizeTitle(product.Title)
	if dirName == "" {
		dirName = "untitled-product"
	}
	productDir := filepath.Join(outputDir, dirName)

	if _, err := os.Stat(productDir); err == nil {
		return "", nil, &ErrPersistence{Path: productDir, Err: os.ErrExist}
	}
	if err := os.MkdirAll(productDir, 0o755); err != nil {
		return "", nil, &ErrPersistence{Path: productDir, Err: err}
	}

	if err := w.writeInfoFile(productDir, product); err != nil {
		return "", nil, err
	}

	saved, err := w.downloadImages(productDir, imageURLs)
	if err != nil {
		return "", nil, err
	}

	w.logger.Info("artifacts written", "dir", productDir, "images", len(saved))
	return productDir, saved, nil
}

func (w *ArtifactWriter) writeInfoFile(productDir string, product *models.ProductData) error {
	var b strings.Builder
	fmt.Fprintf(&b, "Title: %s\n", product.Title)
	fmt.Fprintf(&b, "Price: %s\n", product.Price)
	fmt.Fprintf(&b, "Description: %s\n", product.Description)
	fmt.Fprintf(&b, "Link: %s\n", product.Link)
	if product.Brand != "" {
		fmt.Fprintf(&b, "Brand: %s\n", product.Brand)
	}
	if product.Color != "" {
		fmt.Fprintf(&b, "Color: %s\n", product.Color)
	}
	if product.Tags != "" {
		fmt.Fprintf(&b, "Tags: %s\n", product.Tags)
	}

	infoPath := filepath.Join(productDir, "info.txt")
	if err := os.WriteFile(infoPath, []byte(b.String()), 0o644); err != nil {
		return &ErrPersistence{Path: infoPath, Err: err}
	}
	return nil
}

func (w *ArtifactWriter) downloadImages(productDir string, imageURLs []string) ([]string, error) {
	if len(imageURLs) == 0 {
		return nil, nil
	}

	photosDir := filepath.Join(productDir, photosDirName)
	if err := os.MkdirAll(photosDir, 0o755); err != nil {
		return nil, &ErrPersistence{Path: photosDir, Err: err}
	}

	var saved []string
	for i, imageURL := range imageURLs {
		dest := filepath.Join(photosDir, fmt.Sprintf("image_%d.jpg", i+1))
		if err := w.downloadOne(imageURL, dest); err != nil {
			w.logger.Warn("image download failed", "url", imageURL, "error", err)
			w.metrics.IncImageFailure()
			continue
		}
		w.metrics.IncImage()
		saved = append(saved, dest)
	}
	return saved, nil
}

func (w *ArtifactWriter) downloadOne(imageURL, dest string) error {
	resp, err := w.client.Get(imageURL)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	f, err := os.Create(dest)
	if err != nil {
		return err
	}
	defer f.Close()

	_, err = io.Copy(f, resp.Body)
	return err
}

// SanitizeTitle strips characters that are invalid in directory names and
// collapses the result to a reasonable length.
func SanitizeTitle(title string) string {
	title = strings.TrimSpace(title)
	replacer := strings.NewReplacer(
		"<", "", ">", "", ":", "", `"`, "", "/", "",
		`\`, "", "|", "", "?", "", "*", "",
	)
	title = replacer.Replace(title)
	title = strings.Join(strings.Fields(title), " ")
	if len(title) > 100 {
		// Cut on a rune boundary so multi-byte titles stay valid UTF-8.
		cut := 100
		for cut > 0 && !utf8.RuneStart(title[cut]) {
			cut--
		}
		title = strings.TrimSpace(title[:cut])
	}
	return title
}
