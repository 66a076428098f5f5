// Package domain contains persistence models for the tariff catalog.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// TariffPlan is a named set of per-unit rates for voice, SMS and data.
// Plans are immutable once created; subscribers reference them by id.
type TariffPlan struct {
	ID              snowflake.ID `gorm:"primaryKey" json:"id"`
	Name            string       `gorm:"column:name;type:text;not null;uniqueIndex" json:"name"`
	VoiceRatePerMin float64      `gorm:"column:voice_rate_per_min;not null;default:0" json:"voice_rate_per_min"`
	SMSRate         float64      `gorm:"column:sms_rate;not null;default:0" json:"sms_rate"`
	DataRatePerMB   float64      `gorm:"column:data_rate_per_mb;not null;default:0" json:"data_rate_per_mb"`
	CreatedAt       time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

// TableName sets the database table name.
func (TariffPlan) TableName() string { return "tariff_plans" }
