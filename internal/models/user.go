package models

import "time"

// User captures application-facing fields for an identity. PasswordHash
// never serializes; it only crosses the row-store boundary inside the
// storage adapter.
type User struct {
	ID           string     `json:"id"`
	Name         string     `json:"name"`
	Surname      string     `json:"surname"`
	Dob          *time.Time `json:"dob,omitempty"`
	Email        string     `json:"email"`
	Address      string     `json:"address,omitempty"`
	PhotoURL     string     `json:"photo,omitempty"`
	Role         string     `json:"role"`
	PasswordHash string     `json:"-"`
}
