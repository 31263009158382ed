package model

import "time"

// User is a marketplace account. A user sells and buys items.
type User struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	ImageURL     string    `json:"image_url,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// User field limits.
const (
	MinUserNameLength = 2
	MaxUserNameLength = 50
	MinPasswordLength = 6
	MaxPasswordLength = 100
)

// SignupInput holds the fields submitted at signup.
type SignupInput struct {
	Name            string `json:"name"`
	Email           string `json:"email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirmPassword"`
}

// ProfileUpdate holds the profile fields to change. Empty means "leave as is".
type ProfileUpdate struct {
	Name            string `json:"name"`
	Email           string `json:"email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirmPassword"`
}

// Empty reports whether the update carries no field.
func (u ProfileUpdate) Empty() bool {
	return u.Name == "" && u.Email == "" && u.Password == ""
}

// UserPage is one page of user listing results.
type UserPage struct {
	Users []User `json:"users"`
	Page  int    `json:"page"`
	Limit int    `json:"limit"`
}
