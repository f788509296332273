package user

import (
	"time"

	"github.com/google/uuid"
)

// User is a registered account. Usernames are unique across the store.
type User struct {
	ID           uuid.UUID `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
}
