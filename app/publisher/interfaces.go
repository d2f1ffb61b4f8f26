package publisher

import (
	"context"

	"bskyrss/app/image"
)

// Transport is the authenticated publishing client. The concrete
// implementation is bsky.Client; tests substitute a fake.
type Transport interface {
	SendTextPost(ctx context.Context, text string, link string) error
	SendImagePost(ctx context.Context, text string, link string, image []byte, alt string) error
	GetRecentPosts(ctx context.Context, limit int) ([]string, error)
}

// ImageResolver produces a bounded image payload for an article, or nil
// when no usable image exists.
type ImageResolver interface {
	Resolve(ctx context.Context, articleURL string, hintURL string) *image.Payload
}
