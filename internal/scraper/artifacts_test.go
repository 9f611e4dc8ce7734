package scraper

import (
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crosslister/product-scraper/internal/models"
)

func newTestWriter(t *testing.T) *ArtifactWriter {
	t.Helper()
	client := &http.Client{}
	httpmock.ActivateNonDefault(client)
	t.Cleanup(httpmock.DeactivateAndReset)
	return NewArtifactWriter(client, NewMetrics(), nil)
}

func TestArtifactWriter_Persist(t *testing.T) {
	writer := newTestWriter(t)
	httpmock.RegisterResponder("GET", "https://cdn.example.com/1.jpg",
		httpmock.NewStringResponder(200, "jpeg-bytes-1"))
	httpmock.RegisterResponder("GET", "https://cdn.example.com/2.jpg",
		httpmock.NewStringResponder(200, "jpeg-bytes-2"))

	outputDir := t.TempDir()
	product := &models.ProductData{
		Title:       "Walnut Desk",
		Price:       "249",
		Description: "Solid walnut top",
		Link:        "https://www.amazon.com/dp/B0TEST1234",
		Brand:       "DeskCo",
	}

	dir, saved, err := writer.Persist(product,
		[]string{"https://cdn.example.com/1.jpg", "https://cdn.example.com/2.jpg"}, outputDir)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(outputDir, "Walnut Desk"), dir)

	info, err := os.ReadFile(filepath.Join(dir, "info.txt"))
	require.NoError(t, err)
	assert.Contains(t, string(info), "Title: Walnut Desk\n")
	assert.Contains(t, string(info), "Price: 249\n")
	assert.Contains(t, string(info), "Link: https://www.amazon.com/dp/B0TEST1234\n")
	assert.Contains(t, string(info), "Brand: DeskCo\n")
	assert.NotContains(t, string(info), "Color:")

	require.Len(t, saved, 2)
	assert.Equal(t, filepath.Join(dir, "Photos", "image_1.jpg"), saved[0])
	body, err := os.ReadFile(saved[0])
	require.NoError(t, err)
	assert.Equal(t, "jpeg-bytes-1", string(body))
}

func TestArtifactWriter_SkipsFailedImageDownloads(t *testing.T) {
	writer := newTestWriter(t)
	httpmock.RegisterResponder("GET", "https://cdn.example.com/ok.jpg",
		httpmock.NewStringResponder(200, "jpeg-bytes"))
	httpmock.RegisterResponder("GET", "https://cdn.example.com/gone.jpg",
		httpmock.NewStringResponder(404, "not found"))

	dir, saved, err := writer.Persist(
		&models.ProductData{Title: "Lamp"},
		[]string{"https://cdn.example.com/gone.jpg", "https://cdn.example.com/ok.jpg"},
		t.TempDir())
	require.NoError(t, err)

	// failed download skipped, numbering keeps the source index
	require.Len(t, saved, 1)
	assert.Equal(t, filepath.Join(dir, "Photos", "image_2.jpg"), saved[0])
}

func TestArtifactWriter_ExistingDirectoryIsFatal(t *testing.T) {
	writer := newTestWriter(t)
	outputDir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(outputDir, "Lamp"), 0o755))

	_, _, err := writer.Persist(&models.ProductData{Title: "Lamp"}, nil, outputDir)
	require.Error(t, err)

	var persistErr *ErrPersistence
	require.ErrorAs(t, err, &persistErr)
	assert.ErrorIs(t, persistErr.Err, os.ErrExist)
}

func TestArtifactWriter_NoImagesWritesNoPhotosDir(t *testing.T) {
	writer := newTestWriter(t)

	dir, saved, err := writer.Persist(&models.ProductData{Title: "Basket"}, nil, t.TempDir())
	require.NoError(t, err)
	assert.Empty(t, saved)

	_, statErr := os.Stat(filepath.Join(dir, "Photos"))
	assert.True(t, os.IsNotExist(statErr))
}

func TestSanitizeTitle(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{`Chair: "Best" <Ever>?`, "Chair Best Ever"},
		{`A/B\C|D*E`, "ABCDE"},
		{"  spaced   out  title ", "spaced out title"},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, SanitizeTitle(tt.in))
	}
}

func TestSanitizeTitle_TruncatesOnRuneBoundary(t *testing.T) {
	// Byte 100 falls inside the two-byte "é"; the cut must not split it.
	in := strings.Repeat("a", 99) + "éé"
	got := SanitizeTitle(in)

	assert.True(t, utf8.ValidString(got))
	assert.Equal(t, strings.Repeat("a", 99), got)

	long := strings.Repeat("Gemütlicher Sessel ", 10)
	got = SanitizeTitle(long)
	assert.True(t, utf8.ValidString(got))
	assert.LessOrEqual(t, len(got), 100)
}
