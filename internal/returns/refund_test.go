package returns

import (
	"testing"
	"time"

	"github.com/gocql/gocql"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"lumera_back_end/internal/models"
)

func TestRoundCurrencyHalfEven(t *testing.T) {
	// Règle du banquier : .5 va vers le centime pair.
	assert.Equal(t, 0.12, roundCurrency(0.125))
	assert.Equal(t, 0.38, roundCurrency(0.375))
	assert.Equal(t, 0.62, roundCurrency(0.625))
	assert.Equal(t, 10.00, roundCurrency(10.0))
}

func refundOrder() *models.Order {
	itemA := gocql.UUID(uuid.New())
	itemB := gocql.UUID(uuid.New())
	return &models.Order{
		ID:          gocql.UUID(uuid.New()),
		OrderNumber: "CMD-1001",
		TotalPrice:  100,
		CashPaid:    100,
		Items: []models.OrderItem{
			{ItemID: itemA, Name: "Lampe", Quantity: 1, UnitPrice: 60, LineTotal: 60},
			{ItemID: itemB, Name: "Vase", Quantity: 2, UnitPrice: 20, LineTotal: 40},
		},
	}
}

func TestComputeRefundFullCashFullReturn(t *testing.T) {
	order := refundOrder()
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	items := []models.ReturnItem{
		{OrderItemID: order.Items[0].ItemID, ReturnQuantity: 1},
		{OrderItemID: order.Items[1].ItemID, ReturnQuantity: 2},
	}

	refund := ComputeRefund(order, items, 0, now)

	assert.Equal(t, "card", refund.PaymentMethod)
	assert.InDelta(t, 100.0, refund.MonetaryRefund, 0.001)
	assert.Zero(t, refund.PointsRefund)
	assert.InDelta(t, 100.0, refund.TotalRefundValue, 0.001)
	assert.True(t, refund.IsFullReturn)
	assert.Equal(t, now, refund.ComputedAt)
}

func TestComputeRefundMixedPaymentPartialReturn(t *testing.T) {
	order := refundOrder()
	order.CashPaid = 50
	order.PointsUsed = 5000
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	// Retour de la lampe et d'un vase : 80€ sur 100€ → proportion 0,8.
	items := []models.ReturnItem{
		{OrderItemID: order.Items[0].ItemID, ReturnQuantity: 1},
		{OrderItemID: order.Items[1].ItemID, ReturnQuantity: 1},
	}

	refund := ComputeRefund(order, items, 0.01, now)

	assert.Equal(t, "mixed", refund.PaymentMethod)
	assert.InDelta(t, 40.0, refund.MonetaryRefund, 0.001)
	assert.Equal(t, int64(4000), refund.PointsRefund)
	assert.InDelta(t, 40.0, refund.PointsValue, 0.001)
	assert.InDelta(t, 80.0, refund.TotalRefundValue, 0.001)
	assert.InDelta(t, 0.01, refund.PointValue, 0.0001)
	assert.False(t, refund.IsFullReturn)
}

func TestComputeRefundPointsOnly(t *testing.T) {
	order := refundOrder()
	order.CashPaid = 0
	order.PointsUsed = 10000
	now := time.Now()

	items := []models.ReturnItem{
		{OrderItemID: order.Items[1].ItemID, ReturnQuantity: 2},
	}

	refund := ComputeRefund(order, items, 0.01, now)

	assert.Equal(t, "points", refund.PaymentMethod)
	assert.Zero(t, refund.MonetaryRefund)
	assert.Equal(t, int64(4000), refund.PointsRefund)
	assert.InDelta(t, 40.0, refund.PointsValue, 0.001)
}

func TestComputeRefundFrozenPointRate(t *testing.T) {
	order := refundOrder()
	order.CashPaid = 0
	order.PointsUsed = 1000
	items := []models.ReturnItem{
		{OrderItemID: order.Items[0].ItemID, ReturnQuantity: 1},
	}

	// Le taux fourni au calcul est figé dans le snapshot, quel que soit le
	// taux en vigueur à la commande.
	refund := ComputeRefund(order, items, 0.02, time.Now())

	assert.InDelta(t, 0.02, refund.PointValue, 0.0001)
	assert.Equal(t, int64(600), refund.PointsRefund)
	assert.InDelta(t, 12.0, refund.PointsValue, 0.001)
}
