// Package imagery fetches the backend's raster layers and decodes their dimensions
package imagery

import (
	"context"
	"fmt"
	"image"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	// Raster decoders. PNG is what the backend emits; the others cover
	// backgrounds and overlays exported by other tools.
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// maxRasterBytes caps a single raster download
const maxRasterBytes = 64 << 20

// Raster is a decoded image together with the URL it came from
type Raster struct {
	URL    string
	Image  image.Image
	Width  int
	Height int
	Format string
}

// ImageLoadError reports a raster that could not be fetched or decoded
type ImageLoadError struct {
	URL string
	Err error
}

func (e *ImageLoadError) Error() string {
	return fmt.Sprintf("image load error for %s: %v", e.URL, e.Err)
}

func (e *ImageLoadError) Unwrap() error {
	return e.Err
}

// Loader resolves raster URLs against the backend and decodes them
type Loader struct {
	client  *http.Client
	baseURL *url.URL
	header  http.Header
	logger  *zap.Logger
	onLoad  func(ok bool)
}

// Option configures a Loader
type Option func(*Loader)

// WithHTTPClient sets the HTTP client used for downloads
func WithHTTPClient(c *http.Client) Option {
	return func(l *Loader) { l.client = c }
}

// WithHeader adds a header (e.g. the session cookie) to every raster request
func WithHeader(key, value string) Option {
	return func(l *Loader) {
		if value != "" {
			l.header.Set(key, value)
		}
	}
}

// WithLogger sets the logger
func WithLogger(logger *zap.Logger) Option {
	return func(l *Loader) { l.logger = logger }
}

// WithLoadHook registers a callback invoked after every load attempt
func WithLoadHook(fn func(ok bool)) Option {
	return func(l *Loader) { l.onLoad = fn }
}

// NewLoader creates a loader for rasters served by baseURL.
// Relative raster URLs ("/static/images/..") are resolved against it.
func NewLoader(baseURL string, opts ...Option) (*Loader, error) {
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base URL %q: %w", baseURL, err)
	}
	l := &Loader{
		client:  &http.Client{Timeout: 60 * time.Second},
		baseURL: base,
		header:  http.Header{},
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l, nil
}

// Resolve turns a raster reference into an absolute URL
func (l *Loader) Resolve(ref string) (string, error) {
	u, err := url.Parse(ref)
	if err != nil {
		return "", err
	}
	return l.baseURL.ResolveReference(u).String(), nil
}

// Load fetches and decodes a single raster
func (l *Loader) Load(ctx context.Context, ref string) (*Raster, error) {
	r, err := l.load(ctx, ref)
	if l.onLoad != nil {
		l.onLoad(err == nil)
	}
	if err != nil {
		l.logger.Warn("raster load failed", zap.String("url", ref), zap.Error(err))
		return nil, &ImageLoadError{URL: ref, Err: err}
	}
	l.logger.Debug("raster loaded",
		zap.String("url", ref),
		zap.Int("width", r.Width),
		zap.Int("height", r.Height),
		zap.String("format", r.Format))
	return r, nil
}

func (l *Loader) load(ctx context.Context, ref string) (*Raster, error) {
	if strings.TrimSpace(ref) == "" {
		return nil, fmt.Errorf("empty URL")
	}
	abs, err := l.Resolve(ref)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, abs, nil)
	if err != nil {
		return nil, err
	}
	for k, v := range l.header {
		req.Header[k] = v
	}

	resp, err := l.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	img, format, err := image.Decode(io.LimitReader(resp.Body, maxRasterBytes))
	if err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}

	b := img.Bounds()
	if b.Dx() <= 0 || b.Dy() <= 0 {
		return nil, fmt.Errorf("empty image %dx%d", b.Dx(), b.Dy())
	}

	return &Raster{
		URL:    ref,
		Image:  img,
		Width:  b.Dx(),
		Height: b.Dy(),
		Format: format,
	}, nil
}

// LoadAll fetches rasters concurrently and returns them in argument order.
// Either every raster loads or an error is returned.
func (l *Loader) LoadAll(ctx context.Context, refs ...string) ([]*Raster, error) {
	result := make([]*Raster, len(refs))
	g, gctx := errgroup.WithContext(ctx)
	for i, ref := range refs {
		i, ref := i, ref
		g.Go(func() error {
			r, err := l.Load(gctx, ref)
			if err != nil {
				return err
			}
			result[i] = r
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return result, nil
}
