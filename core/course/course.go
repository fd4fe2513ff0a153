package course

import "time"

type Course struct {
	ID           string    `json:"id" db:"course_id"`
	Title        string    `json:"title" db:"title"`
	Subtitle     string    `json:"subtitle" db:"subtitle"`
	Description  string    `json:"description" db:"description"`
	Category     string    `json:"category" db:"category"`
	Level        string    `json:"level" db:"level"`
	Price        int       `json:"price" db:"price"`
	Published    bool      `json:"published" db:"published"`
	CreatorID    string    `json:"creatorId" db:"creator_id"`
	ThumbnailURL string    `json:"thumbnailUrl" db:"thumbnail_url"`
	ThumbnailID  string    `json:"-" db:"thumbnail_id"`
	CreatedAt    time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt    time.Time `json:"updatedAt" db:"updated_at"`
}

type CourseNew struct {
	Title    string `json:"title" validate:"required,min=3,max=100"`
	Category string `json:"category" validate:"required"`
}

type CourseUp struct {
	Title       *string `json:"title" validate:"omitempty,min=3,max=100"`
	Subtitle    *string `json:"subtitle"`
	Description *string `json:"description"`
	Category    *string `json:"category"`
	Level       *string `json:"level" validate:"omitempty,oneof=Beginner Medium Advance"`
	Price       *int    `json:"price" validate:"omitempty,gte=0,lte=10000"`
}

// Filter narrows catalog listings. Zero values mean "no constraint".
type Filter struct {
	Query      string
	Categories []string
	PriceSort  string
}
