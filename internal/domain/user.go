package domain

import "time"

// User is an account created from a Kakao profile on first login.
type User struct {
	ID           string
	KakaoID      string
	Email        string
	Name         string
	ProfileImage string
	CreatedAt    time.Time
}

// WishlistItem marks a bakery a user wants to visit.
type WishlistItem struct {
	ID        string
	UserID    string
	BakeryID  string
	Note      string
	Visited   bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// VisitRecord is a user's logged visit to a bakery. Rating is 1..5.
type VisitRecord struct {
	ID             string
	UserID         string
	BakeryID       string
	VisitDate      time.Time
	Rating         int
	BreadPurchased string
	Review         string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}
