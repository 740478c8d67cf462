package models

import (
	"time"

	"github.com/google/uuid"
)

// StartingTokens is the balance granted to every new account.
const StartingTokens = 100

// BanThreshold is the complaint count at which an account is banned.
const BanThreshold = 20

// User represents a marketplace member
type User struct {
	ID              uuid.UUID `json:"id" db:"id"`
	Email           string    `json:"email" db:"email"`
	Username        string    `json:"username" db:"username"`
	PasswordHash    string    `json:"-" db:"password_hash"`
	Location        string    `json:"location" db:"location"`
	Phone           string    `json:"phone" db:"phone"`
	Tokens          int       `json:"tokens" db:"tokens"`
	Stars           float64   `json:"stars" db:"stars"`
	SuccessRate     float64   `json:"success_rate" db:"success_rate"`
	ComplaintsCount int       `json:"complaints_count" db:"complaints_count"`
	IsBanned        bool      `json:"is_banned" db:"is_banned"`
	ProfileImage    *string   `json:"profile_image,omitempty" db:"profile_image"`
	CreatedAt       time.Time `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time `json:"updated_at" db:"updated_at"`
}

// Profile is the public view of a user returned by the API
type Profile struct {
	ID              uuid.UUID `json:"id"`
	Username        string    `json:"username"`
	Location        string    `json:"location"`
	Phone           string    `json:"phone"`
	Email           string    `json:"email"`
	Tokens          int       `json:"tokens"`
	Stars           float64   `json:"stars"`
	SuccessRate     float64   `json:"success_rate"`
	ComplaintsCount int       `json:"complaints_count"`
	ProfileImage    *string   `json:"profile_image,omitempty"`
}

// Profile returns the public view of the user
func (u *User) Profile() Profile {
	return Profile{
		ID:              u.ID,
		Username:        u.Username,
		Location:        u.Location,
		Phone:           u.Phone,
		Email:           u.Email,
		Tokens:          u.Tokens,
		Stars:           u.Stars,
		SuccessRate:     u.SuccessRate,
		ComplaintsCount: u.ComplaintsCount,
		ProfileImage:    u.ProfileImage,
	}
}
