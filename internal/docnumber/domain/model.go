package domain

import (
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
)

type Kind string

const (
	KindInvoice   Kind = "invoice"
	KindQuotation Kind = "quotation"
	KindReceipt   Kind = "receipt"
)

func ParseKind(raw string) (Kind, bool) {
	k := Kind(strings.ToLower(strings.TrimSpace(raw)))
	switch k {
	case KindInvoice, KindQuotation, KindReceipt:
		return k, true
	}
	return "", false
}

// Counter is the per vendor, per kind document sequence. NextNumber only
// ever grows; a number handed out is never handed out again.
type Counter struct {
	ID         snowflake.ID `gorm:"primaryKey"`
	VendorID   snowflake.ID `gorm:"column:vendor_id;not null"`
	Kind       Kind         `gorm:"type:text;not null"`
	Prefix     string       `gorm:"type:text;not null"`
	NextNumber int64        `gorm:"column:next_number;not null;default:1"`
	CreatedAt  time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt  time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (Counter) TableName() string { return "document_number_counters" }

// Allocation is a number handed out by a counter.
type Allocation struct {
	Kind     Kind   `json:"kind"`
	Prefix   string `json:"prefix"`
	Sequence int64  `json:"sequence"`
	Number   string `json:"number"`
}

// Preview shows the number the next allocation would produce without
// consuming it.
type Preview struct {
	Kind       Kind   `json:"kind"`
	Prefix     string `json:"prefix"`
	NextNumber int64  `json:"next_number"`
	Number     string `json:"number"`
}
