package models

import (
	"time"

	"github.com/gocql/gocql"
)

// Statuts d'une demande de retour.
const (
	ReturnStatusPending    = "PENDING"
	ReturnStatusApproved   = "APPROVED"
	ReturnStatusDenied     = "DENIED"
	ReturnStatusCancelled  = "CANCELLED"
	ReturnStatusProcessing = "PROCESSING"
	ReturnStatusCompleted  = "COMPLETED"
)

// ReturnStatusTerminal indique si un statut est terminal pour le retour
// lui-même (un retour DENIED peut encore porter un appel, mais le retour
// ne bouge plus).
func ReturnStatusTerminal(status string) bool {
	switch status {
	case ReturnStatusCompleted, ReturnStatusDenied, ReturnStatusCancelled:
		return true
	}
	return false
}

// ReturnRequest est une demande de retour créée par un client ou un invité.
type ReturnRequest struct {
	ID             gocql.UUID        `json:"id" db:"return_id"`
	OrderID        gocql.UUID        `json:"order_id" db:"order_id"`
	OrderNumber    string            `json:"order_number" db:"order_number"`
	ShopOrderID    string            `json:"shop_order_id,omitempty" db:"shop_order_id"` // sous-commande boutique (commande multi-boutiques)
	CustomerID     string            `json:"customer_id,omitempty" db:"customer_id"`     // vide si demande invité
	ContactEmail   string            `json:"contact_email,omitempty" db:"contact_email"` // notification de décision (surtout pour les invités)
	Reason         string            `json:"reason" db:"reason"`
	Items          []ReturnItem      `json:"items"`
	Evidence       []MediaAttachment `json:"evidence,omitempty"`
	Status         string            `json:"status" db:"status"`
	ExpectedRefund *ExpectedRefund   `json:"expected_refund,omitempty"`
	RealizedRefund *RealizedRefund   `json:"realized_refund,omitempty"`
	SubmittedAt    time.Time         `json:"submitted_at" db:"submitted_at"`
	DecidedAt      *time.Time        `json:"decided_at,omitempty" db:"decided_at"`
	DecisionNotes  string            `json:"decision_notes,omitempty" db:"decision_notes"`
	AppealID       *gocql.UUID       `json:"appeal_id,omitempty" db:"appeal_id"`
}

// ReturnItem est une ligne de la demande : quelle ligne de commande, quelle
// quantité, quel motif. Immuable dès que le retour quitte PENDING.
type ReturnItem struct {
	OrderItemID    gocql.UUID `json:"order_item_id" db:"order_item_id"`
	ReturnQuantity int        `json:"return_quantity" db:"return_quantity"`
	Reason         string     `json:"reason,omitempty" db:"reason"`
}

// MediaAttachment est une pièce jointe (photo/vidéo) déjà validée et
// stockée. Créée à la soumission, jamais modifiée ensuite.
type MediaAttachment struct {
	URL              string   `json:"url" db:"url"`
	Category         string   `json:"category" db:"category"` // image | video
	SizeBytes        int64    `json:"size_bytes" db:"size_bytes"`
	DurationSeconds  *float64 `json:"duration_seconds,omitempty" db:"duration_seconds"`
	OriginalFilename string   `json:"original_filename" db:"original_filename"`
}

// ExpectedRefund est la projection (non contractuelle) du remboursement,
// recalculée tant que le retour est PENDING puis figée à l'approbation.
type ExpectedRefund struct {
	PaymentMethod    string    `json:"payment_method" db:"payment_method"`
	MonetaryRefund   float64   `json:"monetary_refund" db:"monetary_refund"`
	PointsRefund     int64     `json:"points_refund" db:"points_refund"`
	PointValue       float64   `json:"point_value" db:"point_value"` // taux point→euro figé au calcul
	PointsValue      float64   `json:"points_value" db:"points_value"`
	TotalRefundValue float64   `json:"total_refund_value" db:"total_refund_value"`
	IsFullReturn     bool      `json:"is_full_return" db:"is_full_return"`
	Description      string    `json:"description" db:"description"`
	ComputedAt       time.Time `json:"computed_at" db:"computed_at"`
}

// RealizedRefund est le remboursement effectivement traité, rapporté par
// le processeur de paiement à la complétion.
type RealizedRefund struct {
	Method      string    `json:"method" db:"method"`
	Amount      float64   `json:"amount" db:"amount"`
	Points      int64     `json:"points,omitempty" db:"points"`
	Reference   string    `json:"reference,omitempty" db:"reference"` // ex: id de refund Stripe
	ProcessedAt time.Time `json:"processed_at" db:"processed_at"`
	ProofURL    string    `json:"proof_url,omitempty" db:"proof_url"`
}
