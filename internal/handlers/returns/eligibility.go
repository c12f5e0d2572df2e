package rt

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gocql/gocql"
	"github.com/google/uuid"
)

// GetOrderEligibility renvoie, pour chaque ligne de la commande, si elle
// est encore retournable et combien de jours il reste. Lecture seule,
// consommée par le front pour griser la sélection.
func (h *Handler) GetOrderEligibility(c *gin.Context) {
	identity, ok := h.resolveIdentity(c)
	if !ok {
		return
	}

	orderUUID, err := uuid.Parse(c.Param("orderId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "ID commande invalide"})
		return
	}

	eligibility, err := h.Engine.OrderEligibility(c.Request.Context(), identity, gocql.UUID(orderUUID))
	if err != nil {
		respondError(c, err)
		return
	}

	resp := gin.H{
		"order_id":    c.Param("orderId"),
		"eligibility": eligibility,
	}
	// Taux courant point→euro : le front projette la part points du
	// remboursement avant soumission.
	if rate, err := h.Points.PointValue(c.Request.Context()); err == nil {
		resp["point_value"] = rate
	}
	c.JSON(http.StatusOK, resp)
}
