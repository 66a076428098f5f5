// Package domain contains persistence models for the subscriber directory.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// Subscriber binds an MSISDN to exactly one tariff plan. Rows are created
// lazily on first usage-record ingestion and never deleted.
type Subscriber struct {
	ID        snowflake.ID `gorm:"primaryKey" json:"id"`
	MSISDN    string       `gorm:"column:msisdn;type:text;not null;uniqueIndex" json:"msisdn"`
	PlanID    snowflake.ID `gorm:"column:plan_id;not null;index" json:"plan_id"`
	CreatedAt time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

// TableName sets the database table name.
func (Subscriber) TableName() string { return "subscribers" }
