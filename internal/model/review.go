package model

import "time"

// Review is a row of the `reviews` table.  A user reviews a restaurant at
// most once.
type Review struct {
	ID           uint64
	UserID       uint64
	RestaurantID uint64
	Rating       int
	Comment      *string
	CreatedAt    time.Time
}

// ReviewView is a review as listed publicly, with the author's name.
type ReviewView struct {
	ID       uint64  `json:"review_id"`
	UserName string  `json:"user_name"`
	Rating   int     `json:"rating"`
	Comment  *string `json:"comment"`
	Date     string  `json:"date"`
}
