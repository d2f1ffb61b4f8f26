package database

import "time"

// Post represents a published post record
type Post struct {
	ID            int64
	Title         string
	PublishedDate string
	CreatedAt     time.Time
}

type PostRepository interface {
	IsPosted(title string) (bool, error)
	SavePost(title string, publishedDate string) error
	GetPostCount() (int, error)
}
