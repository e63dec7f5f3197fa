package models

import "time"

// DeliveredAlert records that an alert for one transition has been sent, so a
// replayed comparison does not notify twice.
type DeliveredAlert struct {
	ID          uint      `json:"id" gorm:"primaryKey"`
	Fingerprint string    `json:"fingerprint" gorm:"size:191;uniqueIndex;not null"`
	CreatedAt   time.Time `json:"created_at"`
}
