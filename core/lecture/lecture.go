package lecture

import "time"

type Lecture struct {
	ID        string    `json:"id" db:"lecture_id"`
	CourseID  string    `json:"courseId" db:"course_id"`
	Index     int       `json:"index" db:"index"`
	Title     string    `json:"title" db:"title"`
	Free      bool      `json:"free" db:"free"`
	VideoURL  string    `json:"-" db:"video_url"`
	VideoID   string    `json:"-" db:"video_id"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`
}

type LectureNew struct {
	Title string `json:"title" validate:"required,min=1,max=120"`
	Index int    `json:"index" validate:"gte=0"`
}

type LectureUp struct {
	Title    *string `json:"title" validate:"omitempty,min=1,max=120"`
	Index    *int    `json:"index" validate:"omitempty,gte=0"`
	Free     *bool   `json:"free"`
	VideoURL *string `json:"videoUrl" validate:"omitempty,url"`
	VideoID  *string `json:"videoId"`
}

// full is the representation served to viewers entitled to the video.
type full struct {
	Lecture
	VideoURL string `json:"videoUrl"`
}
