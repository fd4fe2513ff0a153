package user

import "time"

type User struct {
	ID           string    `json:"id" db:"user_id"`
	Name         string    `json:"name" db:"name"`
	Email        string    `json:"email" db:"email"`
	Role         string    `json:"role" db:"role"`
	PasswordHash []byte    `json:"-" db:"password_hash"`
	PhotoURL     string    `json:"photoUrl" db:"photo_url"`
	PhotoID      string    `json:"-" db:"photo_id"`
	CreatedAt    time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt    time.Time `json:"updatedAt" db:"updated_at"`
}

type ProfileUp struct {
	Name *string `json:"name" validate:"omitempty,min=2,max=50"`
}

type PhotoUp struct {
	ID        string    `db:"photo_id"`
	URL       string    `db:"photo_url"`
	UserID    string    `db:"user_id"`
	UpdatedAt time.Time `db:"updated_at"`
}
