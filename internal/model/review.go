package model

import "time"

// Review はユーザーによる映画レビューを表す。
// (OwnerID, MovieID)にはDB側でユニーク制約がかかっており、
// 同一ユーザーは同一映画に1件しかレビューを持てない。
type Review struct {
	ID        string
	OwnerID   string
	MovieID   string
	Content   string
	Rating    int // 0〜10
	CreatedAt time.Time
	UpdatedAt time.Time
}

// ReviewWithOwner はレビューと投稿者名を結合した読み取り用の構造体。
type ReviewWithOwner struct {
	Review
	OwnerName string
}
