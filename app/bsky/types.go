package bsky

import (
	"encoding/json"
	"errors"
)

// Wire types for the small slice of the AT protocol the bot speaks.

type createSessionRequest struct {
	Identifier string `json:"identifier"`
	Password   string `json:"password"`
}

type createSessionResponse struct {
	AccessJwt  string `json:"accessJwt"`
	RefreshJwt string `json:"refreshJwt"`
	Did        string `json:"did"`
	Handle     string `json:"handle"`
}

type uploadBlobResponse struct {
	// Blob is passed through verbatim into the post record; its internal
	// structure (CID ref, mime type, size) is owned by the PDS.
	Blob json.RawMessage `json:"blob"`
}

type createRecordRequest struct {
	Repo       string     `json:"repo"`
	Collection string     `json:"collection"`
	Record     postRecord `json:"record"`
}

type postRecord struct {
	Type      string       `json:"$type"`
	Text      string       `json:"text"`
	CreatedAt string       `json:"createdAt"`
	Facets    []facet      `json:"facets,omitempty"`
	Embed     *imagesEmbed `json:"embed,omitempty"`
}

type facet struct {
	Index    byteSlice      `json:"index"`
	Features []facetFeature `json:"features"`
}

type byteSlice struct {
	ByteStart int `json:"byteStart"`
	ByteEnd   int `json:"byteEnd"`
}

type facetFeature struct {
	Type string `json:"$type"`
	URI  string `json:"uri"`
}

type imagesEmbed struct {
	Type   string       `json:"$type"`
	Images []embedImage `json:"images"`
}

type embedImage struct {
	Alt   string          `json:"alt"`
	Image json.RawMessage `json:"image"`
}

type authorFeedResponse struct {
	Feed []struct {
		Post struct {
			Record struct {
				Text string `json:"text"`
			} `json:"record"`
		} `json:"post"`
	} `json:"feed"`
}

// Error is the XRPC error envelope returned by the PDS.
type Error struct {
	StatusCode int
	ErrorCode  string `json:"error"`
	Message    string `json:"message"`
}

func (e *Error) Error() string {
	if e.Message != "" {
		return e.ErrorCode + ": " + e.Message
	}
	return e.ErrorCode
}

// IsRateLimited reports whether the error is a rate-limit rejection that
// warrants a backoff-and-retry rather than giving up.
func IsRateLimited(err error) bool {
	var xrpcErr *Error
	if errors.As(err, &xrpcErr) {
		return xrpcErr.ErrorCode == "RateLimitExceeded" || xrpcErr.StatusCode == 429
	}
	return false
}

// isSessionExpired reports whether the error means the access token is no
// longer accepted and the session should be refreshed.
func isSessionExpired(err error) bool {
	var xrpcErr *Error
	if errors.As(err, &xrpcErr) {
		return xrpcErr.ErrorCode == "ExpiredToken" || xrpcErr.StatusCode == 401
	}
	return false
}
