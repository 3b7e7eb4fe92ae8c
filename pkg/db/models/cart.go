package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Cart is the authoritative record for one physical trolley. Totals are never
// adjusted incrementally: RecomputeTotals derives them from the line items
// after every mutation so they cannot drift.
type Cart struct {
	ID                uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey" json:"-"`
	CartID            string          `gorm:"column:cart_id;uniqueIndex;not null" json:"cartId"`
	Items             []CartLineItem  `gorm:"foreignKey:CartRef;references:ID;constraint:OnDelete:CASCADE" json:"items"`
	TotalPrice        decimal.Decimal `gorm:"column:total_price;type:numeric(12,2);not null;default:0" json:"totalPrice"`
	TotalWeight       float64         `gorm:"column:total_weight;not null;default:0" json:"totalWeight"`
	Active            bool            `gorm:"column:active;not null;default:false" json:"active"`
	MeasuredWeight    float64         `gorm:"column:measured_weight;not null;default:0" json:"measuredWeight"`
	WeightDiscrepancy bool            `gorm:"column:weight_discrepancy;not null;default:false" json:"weightDiscrepancy"`
	LastWeightUpdate  *time.Time      `gorm:"column:last_weight_update" json:"lastWeightUpdate,omitempty"`
	CreatedAt         time.Time       `gorm:"column:created_at;autoCreateTime" json:"-"`
	UpdatedAt         time.Time       `gorm:"column:updated_at;autoUpdateTime" json:"-"`
}

// CartLineItem is one product slot in a cart; repeats are tracked by Quantity.
type CartLineItem struct {
	ID         uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey" json:"-"`
	CartRef    uuid.UUID       `gorm:"column:cart_ref;type:uuid;not null;index" json:"-"`
	ProductID  string          `gorm:"column:product_id;not null" json:"productId"`
	Name       string          `gorm:"column:name;not null" json:"name"`
	Price      decimal.Decimal `gorm:"column:price;type:numeric(12,2);not null" json:"price"`
	Weight     float64         `gorm:"column:weight;not null" json:"weight"`
	Quantity   int             `gorm:"column:quantity;not null;default:1" json:"quantity"`
	ExpiryDate *time.Time      `gorm:"column:expiry_date" json:"expiryDate,omitempty"`
	Image      *string         `gorm:"column:image" json:"image,omitempty"`
	AddedAt    time.Time       `gorm:"column:added_at;autoCreateTime" json:"addedAt"`
}

// FindItem returns the line item for the given product id, or nil.
func (c *Cart) FindItem(productID string) *CartLineItem {
	for i := range c.Items {
		if c.Items[i].ProductID == productID {
			return &c.Items[i]
		}
	}
	return nil
}

// RemoveItem drops the line item for the given product id, preserving the
// insertion order of the remaining items.
func (c *Cart) RemoveItem(productID string) bool {
	for i := range c.Items {
		if c.Items[i].ProductID == productID {
			c.Items = append(c.Items[:i], c.Items[i+1:]...)
			return true
		}
	}
	return false
}

// RecomputeTotals rederives TotalPrice and TotalWeight from the current line
// items.
func (c *Cart) RecomputeTotals() {
	total := decimal.Zero
	weight := 0.0
	for i := range c.Items {
		qty := decimal.NewFromInt(int64(c.Items[i].Quantity))
		total = total.Add(c.Items[i].Price.Mul(qty))
		weight += c.Items[i].Weight * float64(c.Items[i].Quantity)
	}
	c.TotalPrice = total
	c.TotalWeight = weight
}
