package testutil

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
)

// StorefrontServer is a fake storefront serving catalog JSON, detail pages and images.
type StorefrontServer struct {
	*httptest.Server

	mu            sync.Mutex
	catalogs      map[string]string
	details       map[string]string
	failingImages map[string]bool
	hits          map[string]int
	queries       []string
}

// NewStorefrontServer starts a fake storefront that is closed when the test completes.
func NewStorefrontServer(t *testing.T) *StorefrontServer {
	t.Helper()

	s := &StorefrontServer{
		catalogs:      make(map[string]string),
		details:       make(map[string]string),
		failingImages: make(map[string]bool),
		hits:          make(map[string]int),
	}
	s.Server = httptest.NewServer(http.HandlerFunc(s.handle))
	t.Cleanup(s.Close)
	return s
}

// SetCatalog sets the JSON body served for the given page query value.
// An empty page is served when no page-specific body exists.
func (s *StorefrontServer) SetCatalog(page, body string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.catalogs[page] = body
}

// SetDetail sets the HTML served at /game/<slug>.
func (s *StorefrontServer) SetDetail(slug, html string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.details[slug] = html
}

// FailImage makes every image path containing name answer 500.
func (s *StorefrontServer) FailImage(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failingImages[name] = true
}

// ImageURL returns an absolute image URL on this server without the crop suffix.
func (s *StorefrontServer) ImageURL(name string) string {
	return s.URL + "/images/" + name
}

// Hits returns how many requests were made to exactly path.
func (s *StorefrontServer) Hits(path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hits[path]
}

// CatalogQueries returns the raw query strings of every catalog request.
func (s *StorefrontServer) CatalogQueries() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.queries...)
}

func (s *StorefrontServer) handle(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	s.hits[r.URL.Path]++
	s.mu.Unlock()

	switch {
	case r.URL.Path == "/games/ajax/filtered":
		s.serveCatalog(w, r)
	case strings.HasPrefix(r.URL.Path, "/game/"):
		s.serveDetail(w, strings.TrimPrefix(r.URL.Path, "/game/"))
	case strings.HasPrefix(r.URL.Path, "/images/"):
		s.serveImage(w, r.URL.Path)
	default:
		http.NotFound(w, r)
	}
}

func (s *StorefrontServer) serveCatalog(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	s.queries = append(s.queries, r.URL.RawQuery)
	body, ok := s.catalogs[r.URL.Query().Get("page")]
	if !ok {
		body, ok = s.catalogs[""]
	}
	s.mu.Unlock()

	if !ok {
		http.Error(w, "no catalog", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(body))
}

func (s *StorefrontServer) serveDetail(w http.ResponseWriter, slug string) {
	s.mu.Lock()
	html, ok := s.details[slug]
	s.mu.Unlock()

	if !ok {
		http.Error(w, "game not found", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write([]byte(html))
}

func (s *StorefrontServer) serveImage(w http.ResponseWriter, path string) {
	s.mu.Lock()
	failing := false
	for name := range s.failingImages {
		if strings.Contains(path, name) {
			failing = true
			break
		}
	}
	s.mu.Unlock()

	if failing {
		http.Error(w, "image unavailable", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "image/jpeg")
	_, _ = w.Write(SampleJPEG())
}

// SampleJPEG returns a small valid JPEG image.
func SampleJPEG() []byte {
	img := image.NewRGBA(image.Rect(0, 0, 8, 4))
	for x := 0; x < 8; x++ {
		for y := 0; y < 4; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 30), G: 90, B: uint8(y * 60), A: 255})
		}
	}
	var buf bytes.Buffer
	_ = jpeg.Encode(&buf, img, nil)
	return buf.Bytes()
}
