package domain

import "time"

// Contact is a phone contact eligible for outbound survey calls.
// Phone numbers are stored in E.164 form; uniqueness is not enforced.
type Contact struct {
	ID        int64     `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	Phone     string    `db:"phone" json:"phone"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`
}
