package dto

import "github.com/finledger/backend/internal/models"

type RegisterRequest struct {
	Name     string `json:"name"`
	Surname  string `json:"surname"`
	Dob      string `json:"dob,omitempty"`
	Email    string `json:"email"`
	Address  string `json:"address,omitempty"`
	Password string `json:"password"`
	Role     string `json:"role,omitempty"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginResponse struct {
	Token string      `json:"token"`
	User  models.User `json:"user"`
}

type RegisterResponse struct {
	User models.User `json:"user"`
}
