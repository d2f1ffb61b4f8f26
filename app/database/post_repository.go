package database

import (
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
)

var _ PostRepository = (*SQLitePostRepository)(nil)

// SQLitePostRepository handles database operations for published post records
type SQLitePostRepository struct {
	db *DB
}

// NewPostRepository creates a new post repository
func NewPostRepository(db *DB) *SQLitePostRepository {
	return &SQLitePostRepository{db: db}
}

// IsPosted checks whether a post with the given title has already been
// published. The title is the natural key of the posts table.
func (r *SQLitePostRepository) IsPosted(title string) (bool, error) {
	var one int
	err := r.db.QueryRow(`SELECT 1 FROM posts WHERE title = ? LIMIT 1`, title).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check posted title: %w", err)
	}

	return true, nil
}

// SavePost records a published title. Records are append-only; a UNIQUE
// violation means another path already recorded the title and is benign.
func (r *SQLitePostRepository) SavePost(title string, publishedDate string) error {
	_, err := r.db.Exec(`
		INSERT INTO posts (title, published_date)
		VALUES (?, ?)
	`, title, publishedDate)

	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			slog.Debug("Post record already exists", "title", title)
			return nil
		}
		return fmt.Errorf("failed to save post: %w", err)
	}

	return nil
}

// GetPostCount returns the total number of recorded posts
func (r *SQLitePostRepository) GetPostCount() (int, error) {
	var count int
	err := r.db.QueryRow(`SELECT COUNT(*) FROM posts`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count posts: %w", err)
	}

	return count, nil
}
