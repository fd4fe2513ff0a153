package purchase

import "time"

type Status string

const (
	Pending   Status = "pending"
	Completed Status = "completed"
)

const (
	ProviderStripe = "stripe"
	ProviderPaypal = "paypal"
)

// Purchase is the durable audit record of a checkout. Rows are never
// deleted; SessionID is the idempotence key binding the row to the
// gateway's checkout session.
type Purchase struct {
	ID        string    `json:"id" db:"purchase_id"`
	UserID    string    `json:"userId" db:"user_id"`
	CourseID  string    `json:"courseId" db:"course_id"`
	Amount    int       `json:"amount" db:"amount"`
	Provider  string    `json:"provider" db:"provider"`
	SessionID string    `json:"sessionId" db:"session_id"`
	Status    Status    `json:"status" db:"status"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`
}

type CheckoutNew struct {
	CourseID string `json:"courseId" validate:"required"`
}

type CourseSales struct {
	CourseID string `json:"-" db:"course_id"`
	Name     string `json:"name" db:"name"`
	Price    int    `json:"price" db:"price"`
	Sales    int    `json:"sales" db:"sales"`
	Revenue  int    `json:"revenue" db:"revenue"`
}

type Summary struct {
	TotalSales   int           `json:"totalSales"`
	TotalRevenue int           `json:"totalRevenue"`
	CourseSales  []CourseSales `json:"courseSales"`
}
