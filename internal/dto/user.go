package dto

import "github.com/yukikurage/taskgenie-api/internal/models"

// UserDTO represents a user in API responses
type UserDTO struct {
	ID       uint64 `json:"id"`
	Username string `json:"username"`
}

// LoginResponse carries the user and the bearer token issued at login
type LoginResponse struct {
	User      UserDTO `json:"user"`
	Token     string  `json:"token"`
	ExpiresIn int64   `json:"expiresIn"`
}

// ToUserDTO converts a User model to UserDTO
func ToUserDTO(user models.User) UserDTO {
	return UserDTO{
		ID:       user.ID,
		Username: user.Username,
	}
}
