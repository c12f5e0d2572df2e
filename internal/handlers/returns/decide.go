package rt

import (
	"net/http"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gocql/gocql"
	"github.com/google/uuid"

	"lumera_back_end/internal/models"
	"lumera_back_end/internal/services"
	"lumera_back_end/internal/utils"
)

// DecideReturn tranche une demande PENDING (opérateur).
func (h *Handler) DecideReturn(c *gin.Context) {
	returnUUID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "ID retour invalide"})
		return
	}

	var req struct {
		Outcome string `json:"outcome" binding:"required"`
		Notes   string `json:"notes" binding:"max=500"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Données invalides", "details": err.Error()})
		return
	}

	ret, err := h.Engine.Decide(c.Request.Context(), gocql.UUID(returnUUID), req.Outcome, req.Notes)
	if err != nil {
		respondError(c, err)
		return
	}

	if ret.ContactEmail != "" {
		go utils.SendReturnDecisionEmail(ret.ContactEmail, ret)
	}

	c.JSON(http.StatusOK, gin.H{"message": "Décision enregistrée", "return": ret})
}

// StartProcessing passe un retour APPROVED en PROCESSING et initie le
// remboursement Stripe de la part monétaire. La part en points et la
// clôture arrivent par le callback du processeur.
func (h *Handler) StartProcessing(c *gin.Context) {
	returnUUID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "ID retour invalide"})
		return
	}
	returnID := gocql.UUID(returnUUID)

	ret, err := h.Engine.Store().GetReturn(c.Request.Context(), returnID)
	if err != nil {
		respondError(c, err)
		return
	}
	order, err := h.Engine.Store().GetOrder(c.Request.Context(), ret.OrderID)
	if err != nil {
		respondError(c, err)
		return
	}

	ret, err = h.Engine.Advance(c.Request.Context(), returnID, models.ReturnStatusProcessing, nil)
	if err != nil {
		respondError(c, err)
		return
	}

	stripeRefundID, err := services.InitiateMonetaryRefund(order, ret)
	if err != nil {
		// Le retour reste en PROCESSING : le remboursement sera relancé
		// manuellement, on ne revient pas en arrière dans la machine à états.
		c.JSON(http.StatusAccepted, gin.H{
			"message": "Retour en traitement, remboursement à relancer",
			"return":  ret,
			"warning": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":          "Retour en traitement",
		"return":           ret,
		"stripe_refund_id": stripeRefundID,
	})
}

// RefundCallback est invoqué par le processeur de paiement quand le
// remboursement est effectivement passé. Authentifié par secret partagé.
func (h *Handler) RefundCallback(c *gin.Context) {
	secret := os.Getenv("REFUND_CALLBACK_SECRET")
	if secret == "" || c.GetHeader("X-Processor-Secret") != secret {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Accès refusé"})
		return
	}

	returnUUID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "ID retour invalide"})
		return
	}

	var req struct {
		Method    string  `json:"method" binding:"required"`
		Amount    float64 `json:"amount"`
		Points    int64   `json:"points"`
		Reference string  `json:"reference"`
		ProofURL  string  `json:"proof_url"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Données invalides", "details": err.Error()})
		return
	}

	realized := &models.RealizedRefund{
		Method:      req.Method,
		Amount:      req.Amount,
		Points:      req.Points,
		Reference:   req.Reference,
		ProcessedAt: time.Now(),
		ProofURL:    req.ProofURL,
	}

	ret, err := h.Engine.Advance(c.Request.Context(), gocql.UUID(returnUUID), models.ReturnStatusCompleted, realized)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Retour clôturé", "return": ret})
}
