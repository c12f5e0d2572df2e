package rt

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gocql/gocql"
	"github.com/google/uuid"

	"lumera_back_end/internal/returns"
	"lumera_back_end/internal/services"
	"lumera_back_end/internal/utils"
)

// SubmitAppeal dépose l'unique appel d'un retour refusé. Multipart :
// reason, description?, files (au moins une pièce, l'appel est gagé
// sur les preuves).
func (h *Handler) SubmitAppeal(c *gin.Context) {
	identity, ok := h.resolveIdentity(c)
	if !ok {
		return
	}
	returnUUID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "ID retour invalide"})
		return
	}

	form, err := c.MultipartForm()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Formulaire multipart invalide"})
		return
	}

	attachments, mediaErrors, ok := h.processEvidence(c, form.File["files"], returns.MediaContextAppeal, "appeals")
	if !ok {
		return
	}

	appeal, err := h.Engine.SubmitAppeal(
		c.Request.Context(),
		identity,
		gocql.UUID(returnUUID),
		strings.TrimSpace(c.PostForm("reason")),
		strings.TrimSpace(c.PostForm("description")),
		attachments,
	)
	if err != nil {
		respondError(c, err)
		return
	}

	services.ClaimEvidence(c.Request.Context(), attachments)

	resp := gin.H{
		"message": "Appel déposé",
		"appeal":  appeal,
	}
	if len(mediaErrors) > 0 {
		resp["media_errors"] = mediaErrors
		resp["media_summary"] = returns.MediaSummary(len(form.File["files"]), mediaErrors)
	}
	c.JSON(http.StatusCreated, resp)
}

// DecideAppeal tranche un appel PENDING (opérateur). Le retour parent
// reste DENIED dans les deux cas : le remboursement d'un appel accepté
// est traité par l'équipe, hors machine à états.
func (h *Handler) DecideAppeal(c *gin.Context) {
	appealUUID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "ID appel invalide"})
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

	appeal, err := h.Engine.DecideAppeal(c.Request.Context(), gocql.UUID(appealUUID), req.Outcome, req.Notes)
	if err != nil {
		respondError(c, err)
		return
	}

	// Notification : l'email de contact vit sur le retour parent.
	if ret, err := h.Engine.Store().GetReturn(c.Request.Context(), appeal.ReturnID); err == nil && ret.ContactEmail != "" {
		order, _ := h.Engine.Store().GetOrder(c.Request.Context(), ret.OrderID)
		orderNumber := ""
		if order != nil {
			orderNumber = order.OrderNumber
		}
		go utils.SendAppealDecisionEmail(ret.ContactEmail, appeal, orderNumber)
	}

	c.JSON(http.StatusOK, gin.H{"message": "Décision d'appel enregistrée", "appeal": appeal})
}
