package image

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/image/draw"
)

const (
	maxDimension    = 1024
	jpegQuality     = 65
	fetchTimeout    = 30 * time.Second
	maxDownloadSize = 20 << 20 // refuse to buffer more than 20MB of image data
)

// Payload is a compressed, size-bounded JPEG ready to attach to a post.
// It lives for the duration of one publish attempt and is never persisted.
type Payload struct {
	Data   []byte
	Width  int
	Height int
}

// Resolver locates a representative image for an article, downloads it and
// produces a bounded JPEG payload. Every failure degrades to "no image":
// Resolve never returns an error, only nil.
type Resolver struct {
	httpClient *http.Client
	userAgent  string
	maxBytes   int
}

// NewResolver creates a resolver with the given payload ceiling in kilobytes.
func NewResolver(httpClient *http.Client, userAgent string, maxSizeKB int) *Resolver {
	return &Resolver{
		httpClient: httpClient,
		userAgent:  userAgent,
		maxBytes:   maxSizeKB * 1024,
	}
}

// Resolve returns an image payload for the article, or nil when no usable
// image exists. hintURL is a pre-resolved image URL from the feed itself;
// when empty the article page is scraped for one.
func (r *Resolver) Resolve(ctx context.Context, articleURL string, hintURL string) *Payload {
	imageURL := hintURL
	if imageURL == "" {
		imageURL = r.locateImageURL(ctx, articleURL)
	}
	if imageURL == "" {
		slog.Debug("No image found for article", "url", articleURL)
		return nil
	}

	data := r.download(ctx, imageURL)
	if data == nil {
		return nil
	}

	payload, err := r.transform(data)
	if err != nil {
		slog.Debug("Image transform failed", "url", imageURL, "error", err)
		return nil
	}

	return payload
}

// locateImageURL fetches the article page and looks for the social preview
// image (og:image meta tag), falling back to the first inline image.
func (r *Resolver) locateImageURL(ctx context.Context, articleURL string) string {
	timeoutCtx, cancel := context.WithTimeout(ctx, fetchTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(timeoutCtx, "GET", articleURL, nil)
	if err != nil {
		return ""
	}
	req.Header.Set("User-Agent", r.userAgent)

	resp, err := r.httpClient.Do(req)
	if err != nil {
		slog.Debug("Failed to fetch article page", "url", articleURL, "error", err)
		return ""
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		slog.Debug("Article page returned non-OK status", "url", articleURL, "status", resp.StatusCode)
		return ""
	}

	doc, err := goquery.NewDocumentFromReader(io.LimitReader(resp.Body, maxDownloadSize))
	if err != nil {
		return ""
	}

	found := ""
	if content, ok := doc.Find(`meta[property="og:image"]`).First().Attr("content"); ok && content != "" {
		found = content
	} else if src, ok := doc.Find("img[src]").First().Attr("src"); ok && src != "" {
		found = src
	}
	if found == "" {
		return ""
	}

	// The final request URL accounts for redirects when resolving relative paths.
	base := resp.Request.URL
	ref, err := url.Parse(found)
	if err != nil {
		return ""
	}

	return base.ResolveReference(ref).String()
}

// download fetches the raw image bytes. Any transport failure or non-OK
// status yields nil.
func (r *Resolver) download(ctx context.Context, imageURL string) []byte {
	timeoutCtx, cancel := context.WithTimeout(ctx, fetchTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(timeoutCtx, "GET", imageURL, nil)
	if err != nil {
		return nil
	}
	req.Header.Set("User-Agent", r.userAgent)

	resp, err := r.httpClient.Do(req)
	if err != nil {
		slog.Debug("Failed to download image", "url", imageURL, "error", err)
		return nil
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		slog.Debug("Image download returned non-OK status", "url", imageURL, "status", resp.StatusCode)
		return nil
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxDownloadSize))
	if err != nil {
		return nil
	}

	return data
}

// transform decodes the image, downscales proportionally so the longer side
// is at most maxDimension, forces RGB and encodes a single JPEG pass at a
// fixed quality. Payloads above the ceiling are rejected outright; there is
// no multi-pass quality reduction.
func (r *Resolver) transform(data []byte) (*Payload, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}

	bounds := img.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()

	if width > maxDimension || height > maxDimension {
		if width >= height {
			height = height * maxDimension / width
			width = maxDimension
		} else {
			width = width * maxDimension / height
			height = maxDimension
		}
	}

	// Drawing into RGBA also flattens alpha and exotic color models before
	// the JPEG encode.
	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, img.Bounds(), draw.Over, nil)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, dst, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return nil, fmt.Errorf("encode JPEG: %w", err)
	}

	if buf.Len() > r.maxBytes {
		return nil, fmt.Errorf("compressed image exceeds size limit: %d > %d bytes", buf.Len(), r.maxBytes)
	}

	return &Payload{
		Data:   buf.Bytes(),
		Width:  width,
		Height: height,
	}, nil
}
