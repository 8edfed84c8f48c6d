package placeholder

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"
	"io"
	"log"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

var (
	// ErrEnrichmentFailed wraps every failure to fetch or derive a placeholder.
	ErrEnrichmentFailed = errors.New("placeholder: enrichment failed")
	// ErrTimeout additionally marks failures caused by the fetch deadline.
	ErrTimeout = errors.New("placeholder: image fetch timeout")
)

// DataURIPrefix precedes every derived placeholder.
const DataURIPrefix = "data:image/png;base64,"

// DefaultMaxPixels bounds the decoded size of a source image (40 megapixels).
const DefaultMaxPixels int64 = 40_000_000

// Options configures an Enricher.
type Options struct {
	// Size is the placeholder width in pixels; height keeps the aspect ratio.
	Size      int
	MaxBytes  int64
	// MaxPixels caps width*height declared by the image header.
	MaxPixels int64
	Timeout   time.Duration
	Logger    *log.Logger
}

// Enricher fetches poster images and turns them into tiny inline previews.
type Enricher struct {
	size      int
	maxBytes  int64
	maxPixels int64
	timeout   time.Duration
	client    *http.Client
	logger    *log.Logger
}

// New builds an Enricher, filling in defaults for zero options.
func New(opts Options) *Enricher {
	if opts.Size <= 0 {
		opts.Size = 4
	}
	if opts.MaxBytes <= 0 {
		opts.MaxBytes = 20 << 20
	}
	if opts.MaxPixels <= 0 {
		opts.MaxPixels = DefaultMaxPixels
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 15 * time.Second
	}
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	return &Enricher{
		size:      opts.Size,
		maxBytes:  opts.MaxBytes,
		maxPixels: opts.MaxPixels,
		timeout:   opts.Timeout,
		client: &http.Client{
			Timeout: opts.Timeout,
			Transport: &http.Transport{
				Proxy: http.ProxyFromEnvironment,
				DialContext: (&net.Dialer{
					Timeout:   opts.Timeout,
					KeepAlive: 30 * time.Second,
				}).DialContext,
				MaxIdleConnsPerHost:   8,
				TLSHandshakeTimeout:   opts.Timeout,
				ResponseHeaderTimeout: opts.Timeout,
			},
		},
		logger: opts.Logger,
	}
}

// Derive downloads imageURL and returns its placeholder as a base64 PNG data URI.
func (e *Enricher) Derive(ctx context.Context, imageURL string) (string, error) {
	parsed, err := url.Parse(imageURL)
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
		return "", fmt.Errorf("%w: invalid image url %q", ErrEnrichmentFailed, imageURL)
	}

	data, err := e.fetch(ctx, parsed.String())
	if err != nil {
		return "", err
	}

	encoded, err := EncodeLimited(data, e.size, e.maxPixels)
	if err != nil {
		return "", fmt.Errorf("%s: %w", imageURL, err)
	}
	return encoded, nil
}

func (e *Enricher) fetch(ctx context.Context, imageURL string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: build request: %w", ErrEnrichmentFailed, err)
	}
	req.Header.Set("Accept", "image/*")

	resp, err := e.client.Do(req)
	if err != nil {
		if isTimeout(err) {
			return nil, fmt.Errorf("%w: %w: %s", ErrEnrichmentFailed, ErrTimeout, imageURL)
		}
		return nil, fmt.Errorf("%w: fetch %s: %w", ErrEnrichmentFailed, imageURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		e.logger.Printf("placeholder: unexpected status %d for %s", resp.StatusCode, imageURL)
		return nil, fmt.Errorf("%w: fetch %s: upstream returned %d", ErrEnrichmentFailed, imageURL, resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, e.maxBytes+1))
	if err != nil {
		if isTimeout(err) {
			return nil, fmt.Errorf("%w: %w: %s", ErrEnrichmentFailed, ErrTimeout, imageURL)
		}
		return nil, fmt.Errorf("%w: read %s: %w", ErrEnrichmentFailed, imageURL, err)
	}
	if int64(len(data)) > e.maxBytes {
		return nil, fmt.Errorf("%w: %s exceeds %d bytes", ErrEnrichmentFailed, imageURL, e.maxBytes)
	}
	return data, nil
}

// Encode derives the placeholder for raw image bytes. Identical input always
// yields an identical string.
func Encode(data []byte, size int) (string, error) {
	return EncodeLimited(data, size, DefaultMaxPixels)
}

// EncodeLimited is Encode with an explicit pixel budget. Images whose header
// declares more than maxPixels are rejected before any pixel buffer is allocated.
func EncodeLimited(data []byte, size int, maxPixels int64) (string, error) {
	if size <= 0 {
		return "", fmt.Errorf("%w: placeholder size must be positive", ErrEnrichmentFailed)
	}
	if len(data) == 0 {
		return "", fmt.Errorf("%w: empty image", ErrEnrichmentFailed)
	}
	mt := mimetype.Detect(data)
	if !strings.HasPrefix(mt.String(), "image/") {
		return "", fmt.Errorf("%w: content is %s, not an image", ErrEnrichmentFailed, mt.String())
	}

	header, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("%w: decode %s header: %w", ErrEnrichmentFailed, mt.String(), err)
	}
	if header.Width <= 0 || header.Height <= 0 {
		return "", fmt.Errorf("%w: image has no pixels", ErrEnrichmentFailed)
	}
	if maxPixels > 0 && int64(header.Width)*int64(header.Height) > maxPixels {
		return "", fmt.Errorf("%w: image is %dx%d, over the %d pixel limit",
			ErrEnrichmentFailed, header.Width, header.Height, maxPixels)
	}

	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("%w: decode %s: %w", ErrEnrichmentFailed, mt.String(), err)
	}
	bounds := src.Bounds()
	if bounds.Dx() <= 0 || bounds.Dy() <= 0 {
		return "", fmt.Errorf("%w: image has no pixels", ErrEnrichmentFailed)
	}

	height := (size*bounds.Dy() + bounds.Dx()/2) / bounds.Dx()
	if height < 1 {
		height = 1
	}
	dst := image.NewNRGBA(image.Rect(0, 0, size, height))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, bounds, draw.Src, nil)

	var buf bytes.Buffer
	enc := png.Encoder{CompressionLevel: png.BestCompression}
	if err := enc.Encode(&buf, dst); err != nil {
		return "", fmt.Errorf("%w: encode png: %w", ErrEnrichmentFailed, err)
	}
	return DataURIPrefix + base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

// Decode parses a placeholder produced by Encode back into an image.
func Decode(placeholder string) (image.Image, error) {
	if !strings.HasPrefix(placeholder, DataURIPrefix) {
		return nil, fmt.Errorf("placeholder: missing %q prefix", DataURIPrefix)
	}
	raw, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(placeholder, DataURIPrefix))
	if err != nil {
		return nil, fmt.Errorf("placeholder: decode base64: %w", err)
	}
	img, err := png.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("placeholder: decode png: %w", err)
	}
	return img, nil
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
