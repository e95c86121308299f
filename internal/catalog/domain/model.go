package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// CatalogTest is one orderable lab test. UnitPriceCents is the list price
// at the time of ordering; orders snapshot it and never read it back.
type CatalogTest struct {
	ID             snowflake.ID `gorm:"primaryKey" json:"id,string"`
	Code           string       `gorm:"size:32;uniqueIndex" json:"code"`
	Name           string       `gorm:"size:128" json:"name"`
	Description    string       `gorm:"size:512" json:"description,omitempty"`
	Category       string       `gorm:"size:64;index" json:"category,omitempty"`
	UnitPriceCents int64        `json:"unit_price_cents"`
	TurnaroundHrs  int32        `json:"turnaround_hours,omitempty"`
	Active         bool         `gorm:"index" json:"active"`
	CreatedAt      time.Time    `json:"created_at"`
	UpdatedAt      time.Time    `json:"updated_at"`
}

func (CatalogTest) TableName() string {
	return "catalog_tests"
}
