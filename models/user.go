package models

// User is a registered account. Email is globally unique; ID is assigned
// by the store on creation and immutable afterwards.
type User struct {
	ID           int64  `json:"id"`
	Username     string `json:"username"`
	Email        string `json:"email"`
	PasswordHash string `json:"-"` // Not exposed in API responses
}
