package services

import (
	"fmt"
	"log"

	"github.com/stripe/stripe-go/v83"
	"github.com/stripe/stripe-go/v83/refund"

	"lumera_back_end/internal/models"
)

// InitiateMonetaryRefund lance le remboursement Stripe de la part monétaire
// d'un retour approuvé, au passage en PROCESSING. La part en points est
// rendue par le service de fidélité ; la confirmation finale arrive par le
// callback du processeur (handler refund-callback).
func InitiateMonetaryRefund(order *models.Order, ret *models.ReturnRequest) (string, error) {
	if ret.ExpectedRefund == nil {
		return "", fmt.Errorf("retour %s sans projection de remboursement", ret.ID)
	}
	amount := ret.ExpectedRefund.MonetaryRefund
	if amount <= 0 {
		// Commande payée intégralement en points : rien à demander à Stripe.
		return "", nil
	}
	if order.PaymentIntentID == "" {
		return "", fmt.Errorf("commande %s sans payment intent", order.ID)
	}

	params := &stripe.RefundParams{
		PaymentIntent: stripe.String(order.PaymentIntentID),
		Amount:        stripe.Int64(int64(amount * 100)),
		Reason:        stripe.String("requested_by_customer"),
	}

	stripeRefund, err := refund.New(params)
	if err != nil {
		return "", fmt.Errorf("refund Stripe: %w", err)
	}

	log.Printf("💰 Remboursement Stripe initié: %s (%.2f€) pour le retour %s", stripeRefund.ID, amount, ret.ID)
	return stripeRefund.ID, nil
}
