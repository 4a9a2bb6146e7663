package model

// Booking statuses.
const (
	StatusPending   = "pending"
	StatusPaid      = "paid"
	StatusCancelled = "cancelled"
)

// Booking represents a customer's reservation against a slot.
//
// CreatedAt is deliberately a string (RFC3339). A row whose timestamp does
// not parse is treated as older than the staleness threshold and reaped,
// so a corrupt value can never pin a slot forever.
type Booking struct {
	ID            string `gorm:"primaryKey;size:36" json:"id"`
	CustomerName  string `gorm:"size:256;index;not null" json:"customer_name"`
	CustomerEmail string `gorm:"size:256" json:"customer_email,omitempty"`
	Service       string `gorm:"size:128" json:"service"`
	Date          string `gorm:"size:10;not null;index" json:"date"`
	Time          string `gorm:"size:5;not null" json:"time"`
	Status        string `gorm:"size:16;not null;default:pending" json:"status"`
	CreatedAt     string `gorm:"size:64;not null" json:"created_at"`
}
