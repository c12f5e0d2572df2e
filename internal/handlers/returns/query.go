package rt

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gocql/gocql"
	"github.com/google/uuid"
)

// GetReturn renvoie une demande de retour du périmètre de l'identité.
// Hors périmètre → 404 (jamais 403 : on ne confirme pas l'existence).
func (h *Handler) GetReturn(c *gin.Context) {
	identity, ok := h.resolveIdentity(c)
	if !ok {
		return
	}
	returnUUID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "ID retour invalide"})
		return
	}

	ret, err := h.Engine.Get(c.Request.Context(), identity, gocql.UUID(returnUUID))
	if err != nil {
		respondError(c, err)
		return
	}

	resp := gin.H{"return": ret}
	// L'appel éventuel est embarqué pour éviter un aller-retour au front.
	if ret.AppealID != nil {
		if appeal, err := h.Engine.GetAppealForReturn(c.Request.Context(), identity, ret.ID); err == nil {
			resp["appeal"] = appeal
		}
	}
	c.JSON(http.StatusOK, resp)
}

// ListReturnsForOrder renvoie l'historique des retours d'une commande.
func (h *Handler) ListReturnsForOrder(c *gin.Context) {
	identity, ok := h.resolveIdentity(c)
	if !ok {
		return
	}
	orderUUID, err := uuid.Parse(c.Param("orderId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "ID commande invalide"})
		return
	}

	list, err := h.Engine.ListForOrder(c.Request.Context(), identity, gocql.UUID(orderUUID))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"returns": list, "count": len(list)})
}

// ListMyReturns est le point d'entrée par numéro de commande. Pour un
// invité, la commande vient du token résolu ; un client authentifié la
// désigne par `order_number` (il ne connaît pas forcément l'UUID interne).
func (h *Handler) ListMyReturns(c *gin.Context) {
	identity, ok := h.resolveIdentity(c)
	if !ok {
		return
	}

	orderID := identity.OrderID
	if orderID == (gocql.UUID{}) {
		number := c.Query("order_number")
		if number == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Précisez order_number ou passez par /orders/:orderId/returns"})
			return
		}
		order, err := h.Engine.Store().GetOrderByNumber(c.Request.Context(), number)
		if err != nil {
			respondError(c, err)
			return
		}
		orderID = order.ID
	}

	// ListForOrder revérifie le périmètre : un numéro hors compte → 404.
	list, err := h.Engine.ListForOrder(c.Request.Context(), identity, orderID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"returns": list, "count": len(list)})
}

// GetAppealForReturn renvoie l'appel d'un retour, s'il existe.
func (h *Handler) GetAppealForReturn(c *gin.Context) {
	identity, ok := h.resolveIdentity(c)
	if !ok {
		return
	}
	returnUUID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "ID retour invalide"})
		return
	}

	appeal, err := h.Engine.GetAppealForReturn(c.Request.Context(), identity, gocql.UUID(returnUUID))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"appeal": appeal})
}

// ListPendingReturns est la file de travail opérateur.
func (h *Handler) ListPendingReturns(c *gin.Context) {
	status := c.DefaultQuery("status", "PENDING")

	list, err := h.Engine.Store().ListReturnsByStatus(c.Request.Context(), status, 100)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"returns": list, "count": len(list)})
}
