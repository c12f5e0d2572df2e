package returns

import (
	"fmt"
	"math"
	"time"

	"lumera_back_end/internal/models"
)

// roundCurrency arrondit au centime, règle du banquier (half-even).
func roundCurrency(v float64) float64 {
	return math.RoundToEven(v*100) / 100
}

// ComputeRefund projette le remboursement d'une sélection d'articles.
// La commande d'origine a pu être payée en mélange espèces + points de
// fidélité : on rembourse chaque composante au prorata de la valeur
// retournée. pointValue est le taux point→euro COURANT, figé dans le
// snapshot au moment du calcul (jamais le taux d'origine de la commande).
//
// Recalculable à volonté tant que le retour est PENDING ; figé ensuite.
func ComputeRefund(order *models.Order, items []models.ReturnItem, pointValue float64, now time.Time) *models.ExpectedRefund {
	var returnedTotal float64
	fullReturn := len(order.Items) > 0

	returnedQty := make(map[string]int, len(items))
	for _, ri := range items {
		returnedQty[ri.OrderItemID.String()] += ri.ReturnQuantity
	}

	for _, oi := range order.Items {
		qty := returnedQty[oi.ItemID.String()]
		if qty > 0 {
			returnedTotal += oi.UnitPrice * float64(qty)
		}
		if qty < oi.Quantity {
			fullReturn = false
		}
	}

	proportion := 0.0
	if order.TotalPrice > 0 {
		proportion = returnedTotal / order.TotalPrice
	}

	monetary := roundCurrency(order.CashPaid * proportion)
	points := int64(math.Round(float64(order.PointsUsed) * proportion))
	pointsValue := roundCurrency(float64(points) * pointValue)
	total := roundCurrency(monetary + pointsValue)

	method := "card"
	switch {
	case order.PointsUsed > 0 && order.CashPaid > 0:
		method = "mixed"
	case order.PointsUsed > 0:
		method = "points"
	}

	desc := fmt.Sprintf("Remboursement de %.2f€ sur le moyen de paiement d'origine", monetary)
	if points > 0 {
		desc = fmt.Sprintf("%s + %d points de fidélité (valeur %.2f€)", desc, points, pointsValue)
	}
	if fullReturn {
		desc += " — retour intégral de la commande"
	}

	return &models.ExpectedRefund{
		PaymentMethod:    method,
		MonetaryRefund:   monetary,
		PointsRefund:     points,
		PointValue:       pointValue,
		PointsValue:      pointsValue,
		TotalRefundValue: total,
		IsFullReturn:     fullReturn,
		Description:      desc,
		ComputedAt:       now,
	}
}
