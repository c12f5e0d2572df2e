package rt

import (
	"encoding/json"
	"log"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gocql/gocql"
	"github.com/google/uuid"

	"lumera_back_end/internal/models"
	"lumera_back_end/internal/returns"
	"lumera_back_end/internal/services"
)

// itemSelection est la sélection d'articles envoyée par le front dans le
// champ multipart `items` (JSON).
type itemSelection struct {
	OrderItemID string `json:"order_item_id"`
	Quantity    int    `json:"quantity"`
	Reason      string `json:"reason"`
}

// SubmitReturn crée une demande de retour. Multipart :
//   - order_id (client authentifié) ou rien (invité : la commande vient du token)
//   - reason, items (JSON), shop_order_id?, contact_email?
//   - files : pièces jointes (photos/vidéos)
func (h *Handler) SubmitReturn(c *gin.Context) {
	identity, ok := h.resolveIdentity(c)
	if !ok {
		return
	}

	orderID, ok := h.targetOrderID(c, identity)
	if !ok {
		return
	}

	items, ok := parseItems(c)
	if !ok {
		return
	}

	form, err := c.MultipartForm()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Formulaire multipart invalide"})
		return
	}

	attachments, mediaErrors, ok := h.processEvidence(c, form.File["files"], returns.MediaContextReturn, "returns")
	if !ok {
		return
	}

	ret, err := h.Engine.Submit(c.Request.Context(), identity, returns.SubmitInput{
		OrderID:      orderID,
		ShopOrderID:  c.PostForm("shop_order_id"),
		Reason:       c.PostForm("reason"),
		ContactEmail: strings.TrimSpace(c.PostForm("contact_email")),
		Items:        items,
		Evidence:     attachments,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	// L'enregistrement existe : les pièces ne sont plus orphelines.
	services.ClaimEvidence(c.Request.Context(), attachments)

	resp := gin.H{
		"message": "Demande de retour créée",
		"return":  ret,
	}
	if len(mediaErrors) > 0 {
		resp["media_errors"] = mediaErrors
		resp["media_summary"] = returns.MediaSummary(len(form.File["files"]), mediaErrors)
	}
	c.JSON(http.StatusCreated, resp)
}

// targetOrderID détermine la commande visée : celle du token pour un
// invité, le champ order_id pour un client authentifié.
func (h *Handler) targetOrderID(c *gin.Context, identity models.Identity) (gocql.UUID, bool) {
	if identity.Kind != models.IdentityCustomer {
		return identity.OrderID, true
	}
	orderUUID, err := uuid.Parse(c.PostForm("order_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "order_id manquant ou invalide"})
		return gocql.UUID{}, false
	}
	return gocql.UUID(orderUUID), true
}

func parseItems(c *gin.Context) ([]models.ReturnItem, bool) {
	var selections []itemSelection
	if err := json.Unmarshal([]byte(c.PostForm("items")), &selections); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Champ items invalide (JSON attendu)"})
		return nil, false
	}

	items := make([]models.ReturnItem, 0, len(selections))
	for _, sel := range selections {
		itemUUID, err := uuid.Parse(sel.OrderItemID)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "order_item_id invalide: " + sel.OrderItemID})
			return nil, false
		}
		items = append(items, models.ReturnItem{
			OrderItemID:    gocql.UUID(itemUUID),
			ReturnQuantity: sel.Quantity,
			Reason:         sel.Reason,
		})
	}
	return items, true
}

// processEvidence valide le lot puis pousse les fichiers acceptés vers
// MinIO. Le rejet partiel n'est pas bloquant tant qu'au moins un fichier
// passe ; zéro fichier accepté arrête la soumission.
func (h *Handler) processEvidence(c *gin.Context, headers []*multipart.FileHeader, mediaCtx returns.MediaContext, scope string) ([]models.MediaAttachment, []string, bool) {
	infos := make([]returns.FileInfo, 0, len(headers))
	byName := make(map[string]*multipart.FileHeader, len(headers))

	for _, header := range headers {
		info := returns.FileInfo{
			Filename:    header.Filename,
			ContentType: header.Header.Get("Content-Type"),
			SizeBytes:   header.Size,
		}
		if info.Category() == "video" {
			info.DurationSeconds = probeDuration(header)
		}
		infos = append(infos, info)
		byName[header.Filename] = header
	}

	accepted, mediaErrors := returns.ValidateMedia(infos, mediaCtx)
	if len(accepted) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":         "Au moins une photo ou vidéo valide est requise",
			"media_errors":  mediaErrors,
			"media_summary": returns.MediaSummary(len(headers), mediaErrors),
		})
		return nil, nil, false
	}

	attachments := make([]models.MediaAttachment, 0, len(accepted))
	for _, info := range accepted {
		att, err := services.UploadEvidence(c.Request.Context(), scope, byName[info.Filename], info)
		if err != nil {
			log.Printf("❌ Upload pièce jointe %s: %v", info.Filename, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur stockage des pièces jointes"})
			return nil, nil, false
		}
		attachments = append(attachments, att)
	}
	return attachments, mediaErrors, true
}

func probeDuration(header *multipart.FileHeader) *float64 {
	f, err := header.Open()
	if err != nil {
		return nil
	}
	defer f.Close()
	return services.ProbeVideoDuration(f)
}

// CancelReturn annule une demande encore PENDING (action client/invité).
func (h *Handler) CancelReturn(c *gin.Context) {
	identity, ok := h.resolveIdentity(c)
	if !ok {
		return
	}
	returnUUID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "ID retour invalide"})
		return
	}

	ret, err := h.Engine.Cancel(c.Request.Context(), identity, gocql.UUID(returnUUID))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Demande annulée", "return": ret})
}

// UpdateReturnItems remplace la sélection d'articles tant que la demande
// est PENDING ; la projection de remboursement est recalculée.
func (h *Handler) UpdateReturnItems(c *gin.Context) {
	identity, ok := h.resolveIdentity(c)
	if !ok {
		return
	}
	returnUUID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "ID retour invalide"})
		return
	}

	var body struct {
		Items []itemSelection `json:"items" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Données invalides", "details": err.Error()})
		return
	}

	items := make([]models.ReturnItem, 0, len(body.Items))
	for _, sel := range body.Items {
		itemUUID, err := uuid.Parse(sel.OrderItemID)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "order_item_id invalide: " + sel.OrderItemID})
			return
		}
		items = append(items, models.ReturnItem{
			OrderItemID:    gocql.UUID(itemUUID),
			ReturnQuantity: sel.Quantity,
			Reason:         sel.Reason,
		})
	}

	ret, err := h.Engine.UpdateItems(c.Request.Context(), identity, gocql.UUID(returnUUID), items)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Sélection mise à jour", "return": ret})
}
