package models

import "time"

// SnapshotRun is one capture of the tracked population written by the
// acquisition layer. CapturedAt is the snapshot timestamp; runs without one
// are treated as absent by readers.
type SnapshotRun struct {
	ID         uint           `json:"id" gorm:"primaryKey"`
	CapturedAt time.Time      `json:"captured_at" gorm:"index"`
	Source     string         `json:"source" gorm:"size:64"`
	CreatedAt  time.Time      `json:"created_at"`
	Items      []SnapshotItem `json:"items,omitempty" gorm:"foreignKey:RunID"`
}

// SnapshotItem stores one item's fields exactly as captured. Money and percent
// columns are text because the upstream source is uncontrolled free text; they
// are parsed when the snapshot is read.
type SnapshotItem struct {
	ID                 uint   `json:"id" gorm:"primaryKey"`
	RunID              uint   `json:"run_id" gorm:"index;not null"`
	ItemID             string `json:"item_id" gorm:"size:64;index;not null"`
	Name               string `json:"name"`
	Category           string `json:"category" gorm:"size:128"`
	Msrp               string `json:"msrp" gorm:"size:32"`
	Price              string `json:"price" gorm:"size:32"`
	Availability       string `json:"availability" gorm:"size:64"`
	Retired            string `json:"retired" gorm:"size:64"`
	RetirementEstimate string `json:"retirement_estimate"`
	PredictedPop       string `json:"predicted_pop" gorm:"size:32"`
	OneYearValue       string `json:"one_year_value" gorm:"size:32"`
	FirstYearGrowth    string `json:"first_year_growth" gorm:"size:32"`
}
