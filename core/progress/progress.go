package progress

import "time"

// CourseProgress carries the derived completion flag for one
// (user, course) pair. The flag is a cache over the lecture rows,
// recomputed against the course's current lecture set on every write.
type CourseProgress struct {
	UserID    string    `json:"userId" db:"user_id"`
	CourseID  string    `json:"courseId" db:"course_id"`
	Completed bool      `json:"completed" db:"completed"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`
}

type LectureProgress struct {
	UserID    string    `json:"-" db:"user_id"`
	CourseID  string    `json:"-" db:"course_id"`
	LectureID string    `json:"lectureId" db:"lecture_id"`
	Viewed    bool      `json:"viewed" db:"viewed"`
	CreatedAt time.Time `json:"-" db:"created_at"`
	UpdatedAt time.Time `json:"-" db:"updated_at"`
}
