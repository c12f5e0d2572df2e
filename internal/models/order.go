package models

import (
	"time"

	"github.com/gocql/gocql"
)

// Order représente une commande déjà créée et payée (la création de
// commande est gérée par un autre service, on ne fait que la lire ici).
type Order struct {
	ID              gocql.UUID  `json:"id" db:"order_id"`
	OrderNumber     string      `json:"order_number" db:"order_number"`
	CustomerID      string      `json:"customer_id,omitempty" db:"customer_id"` // vide pour une commande invité
	ShopID          string      `json:"shop_id,omitempty" db:"shop_id"`
	PickupToken     string      `json:"-" db:"pickup_token"`
	PickupExpiresAt *time.Time  `json:"-" db:"pickup_expires_at"` // nil = sans expiration ; token vide = révoqué
	TrackingToken   string      `json:"-" db:"tracking_token"`
	PaymentIntentID string      `json:"-" db:"payment_intent_id"`
	TotalPrice      float64     `json:"total_price" db:"total_price"`
	CashPaid        float64     `json:"cash_paid" db:"cash_paid"`
	PointsUsed      int64       `json:"points_used" db:"points_used"`
	Status          string      `json:"status" db:"status"`
	Items           []OrderItem `json:"items"`
	CreatedAt       time.Time   `json:"created_at" db:"created_at"`
}

// OrderItem est une ligne de commande. DeliveredAt reste nil tant que la
// livraison n'est pas confirmée. L'éligibilité au retour n'est JAMAIS
// stockée : elle se calcule à la lecture (voir internal/returns).
type OrderItem struct {
	ItemID        gocql.UUID `json:"item_id" db:"item_id"`
	ProductID     gocql.UUID `json:"product_id" db:"product_id"`
	VariantID     string     `json:"variant_id,omitempty" db:"variant_id"`
	Name          string     `json:"name" db:"name"`
	Quantity      int        `json:"quantity" db:"quantity"`
	UnitPrice     float64    `json:"unit_price" db:"unit_price"`
	LineTotal     float64    `json:"line_total" db:"line_total"`
	DeliveredAt   *time.Time `json:"delivered_at,omitempty" db:"delivered_at"`
	MaxReturnDays int        `json:"max_return_days" db:"max_return_days"`
}

// FindItem retrouve une ligne de commande par son id.
func (o *Order) FindItem(itemID gocql.UUID) *OrderItem {
	for i := range o.Items {
		if o.Items[i].ItemID == itemID {
			return &o.Items[i]
		}
	}
	return nil
}
