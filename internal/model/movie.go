package model

import "time"

// MovieStatus は映画の公開状態を表す。
type MovieStatus string

const (
	// MovieStatusPublic は一般公開中であることを示す。
	MovieStatusPublic MovieStatus = "public"
	// MovieStatusPrivate は管理者のみ閲覧可能であることを示す。
	MovieStatusPrivate MovieStatus = "private"
)

// Movie は映画作品を表す。
type Movie struct {
	ID          string
	Title       string
	StoryLine   string
	ReleaseDate time.Time
	Status      MovieStatus
	Genres      []string
	Tags        []string
	PosterURL   string
	TrailerURL  string
	Language    string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
