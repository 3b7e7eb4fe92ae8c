package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
)

// Product is a catalog entry. RFIDTag is globally unique when present; products
// without a tag are allowed and cannot collide.
type Product struct {
	ID         uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey" json:"-"`
	ProductID  string          `gorm:"column:product_id;uniqueIndex;not null" json:"productId"`
	Name       string          `gorm:"column:name;not null" json:"name"`
	Price      decimal.Decimal `gorm:"column:price;type:numeric(12,2);not null" json:"price"`
	Weight     float64         `gorm:"column:weight;not null" json:"weight"`
	ExpiryDate *time.Time      `gorm:"column:expiry_date" json:"expiryDate,omitempty"`
	Image      *string         `gorm:"column:image" json:"image,omitempty"`
	Tags       pq.StringArray  `gorm:"column:tags;type:text[]" json:"tags,omitempty"`
	RFIDTag    *string         `gorm:"column:rfid_tag;uniqueIndex" json:"rfidTag,omitempty"`
	CreatedAt  time.Time       `gorm:"column:created_at;autoCreateTime" json:"-"`
	UpdatedAt  time.Time       `gorm:"column:updated_at;autoUpdateTime" json:"-"`
}
