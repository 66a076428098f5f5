// Package domain contains persistence models for raw usage ingestion.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// Call types accepted by the rating engine. Normalized to lowercase at
// ingestion; stored as-is afterwards.
const (
	CallTypeVoice = "voice"
	CallTypeSMS   = "sms"
	CallTypeData  = "data"
)

// UsageRecord is a raw CDR. Immutable once created; at most one rated
// event references it.
type UsageRecord struct {
	ID           snowflake.ID      `gorm:"primaryKey" json:"id"`
	MSISDN       string            `gorm:"column:msisdn;type:text;not null;index" json:"msisdn"`
	CallType     string            `gorm:"column:call_type;type:text;not null" json:"call_type"`
	DurationSecs int64             `gorm:"column:duration_secs;not null;default:0" json:"duration_secs"`
	BytesUsed    int64             `gorm:"column:bytes_used;not null;default:0" json:"bytes_used"`
	OccurredAt   time.Time         `gorm:"column:occurred_at;not null;index" json:"occurred_at"`
	Metadata     datatypes.JSONMap `gorm:"type:jsonb" json:"metadata,omitempty"`
	CreatedAt    time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

// TableName sets the database table name.
func (UsageRecord) TableName() string { return "usage_records" }
