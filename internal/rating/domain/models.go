// Package domain contains persistence models for rating outputs.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// DefaultCurrency is the only currency this engine prices in.
const DefaultCurrency = "USD"

// RatedEvent is the immutable result of rating one usage record. MSISDN
// and call type are denormalized for query convenience; the unique index
// on usage_record_id enforces at most one rated event per record.
type RatedEvent struct {
	ID            snowflake.ID `gorm:"primaryKey" json:"id"`
	UsageRecordID snowflake.ID `gorm:"column:usage_record_id;not null;uniqueIndex" json:"usage_record_id"`
	MSISDN        string       `gorm:"column:msisdn;type:text;not null;index" json:"msisdn"`
	CallType      string       `gorm:"column:call_type;type:text;not null" json:"call_type"`
	ChargeAmount  float64      `gorm:"column:charge_amount;not null" json:"charge_amount"`
	Currency      string       `gorm:"column:currency;type:text;not null" json:"currency"`
	RatedAt       time.Time    `gorm:"column:rated_at;not null" json:"rated_at"`
}

// TableName sets the database table name.
func (RatedEvent) TableName() string { return "rated_events" }
