package export

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/bytedance/sonic"

	"github.com/vango-dev/suspense/internal/errors"
	"github.com/vango-dev/suspense/pkg/render"
)

// ManifestPath is where the manifest is written.
const ManifestPath = "manifest.json"

// Page is one route to prerender.
type Page struct {
	// Route is the URL path, e.g. "/" or "/counter".
	Route string
	Data  render.PageData
}

// Manifest lists the exported artifacts.
type Manifest struct {
	GeneratedAt time.Time       `json:"generated_at"`
	Files       []ManifestEntry `json:"files"`
}

// ManifestEntry describes one artifact.
type ManifestEntry struct {
	Route  string `json:"route,omitempty"`
	Path   string `json:"path"`
	Size   int    `json:"size"`
	SHA256 string `json:"sha256"`
}

// Exporter prerenders pages into a Store.
type Exporter struct {
	renderer *render.Renderer
	store    Store
	logger   *slog.Logger
	now      func() time.Time
}

// NewExporter creates an exporter. logger may be nil.
func NewExporter(r *render.Renderer, store Store, logger *slog.Logger) *Exporter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Exporter{renderer: r, store: store, logger: logger, now: time.Now}
}

// Export renders every page and writes it followed by the manifest. The
// first failure stops the export with E141.
func (e *Exporter) Export(ctx context.Context, pages ...Page) (*Manifest, error) {
	manifest := &Manifest{GeneratedAt: e.now().UTC()}
	seen := make(map[string]string, len(pages))

	for _, page := range pages {
		file := RoutePath(page.Route)
		if prev, dup := seen[file]; dup {
			return nil, errors.New("E141").WithDetailf("routes %q and %q both export to %s", prev, page.Route, file)
		}
		seen[file] = page.Route

		start := time.Now()
		var buf bytes.Buffer
		if err := e.renderer.RenderPage(ctx, &buf, render.ModeSinglePass, page.Data); err != nil {
			return nil, errors.New("E141").WithDetailf("render %s", page.Route).Wrap(err)
		}
		body := buf.Bytes()

		if err := e.store.Put(ctx, Artifact{Path: file, ContentType: "text/html; charset=utf-8", Body: body}); err != nil {
			return nil, errors.New("E141").WithDetailf("write %s", file).Wrap(err)
		}

		sum := sha256.Sum256(body)
		manifest.Files = append(manifest.Files, ManifestEntry{
			Route:  page.Route,
			Path:   file,
			Size:   len(body),
			SHA256: hex.EncodeToString(sum[:]),
		})
		e.logger.Info("exported page",
			"route", page.Route,
			"path", file,
			"bytes", len(body),
			"duration", time.Since(start))
	}

	sort.Slice(manifest.Files, func(i, j int) bool { return manifest.Files[i].Path < manifest.Files[j].Path })

	data, err := sonic.ConfigStd.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return nil, errors.New("E141").WithDetail("encode manifest").Wrap(err)
	}
	if err := e.store.Put(ctx, Artifact{Path: ManifestPath, ContentType: "application/json", Body: data}); err != nil {
		return nil, errors.New("E141").WithDetail("write manifest").Wrap(err)
	}

	e.logger.Info("export complete", "pages", len(manifest.Files), "location", e.store.Location())
	return manifest, nil
}

// RoutePath maps a route to its file: "/" is "index.html" and "/a/b" is
// "a/b/index.html".
func RoutePath(route string) string {
	clean := strings.Trim(path.Clean("/"+route), "/")
	if clean == "" {
		return "index.html"
	}
	return clean + "/index.html"
}
