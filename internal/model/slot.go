package model

// Slot represents a bookable (date, time) unit.
//
// Date is stored as "2006-01-02" and Time as "15:04"; both are normalized
// by the parse package before they ever reach the database, so the
// composite unique index is the uniqueness guarantee for the pair.
type Slot struct {
	ID        int64  `gorm:"primaryKey;autoIncrement" json:"id"`
	Date      string `gorm:"size:10;not null;uniqueIndex:uq_slot_datetime" json:"date"`
	Time      string `gorm:"size:5;not null;uniqueIndex:uq_slot_datetime" json:"time"`
	Available bool   `gorm:"not null;default:true" json:"available"`
}
