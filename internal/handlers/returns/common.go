package rt

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"lumera_back_end/internal/access"
	"lumera_back_end/internal/models"
	"lumera_back_end/internal/returns"
	"lumera_back_end/internal/services"
)

// Handler regroupe les dépendances des endpoints de retours.
type Handler struct {
	Engine   *returns.Engine
	Resolver *access.Resolver
	Points   *services.PointsClient
}

func NewHandler(engine *returns.Engine, resolver *access.Resolver, points *services.PointsClient) *Handler {
	return &Handler{Engine: engine, Resolver: resolver, Points: points}
}

// credentialsFrom extrait les trois formes d'identité possibles de la
// requête : bearer JWT, token de retrait, token de suivi + numéro.
func credentialsFrom(c *gin.Context) access.Credentials {
	creds := access.Credentials{
		PickupToken:   c.GetHeader("X-Pickup-Token"),
		TrackingToken: c.GetHeader("X-Tracking-Token"),
		OrderNumber:   c.Query("order_number"),
	}
	if creds.OrderNumber == "" {
		creds.OrderNumber = c.PostForm("order_number")
	}
	if authHeader := c.GetHeader("Authorization"); authHeader != "" {
		parts := strings.Split(authHeader, " ")
		if len(parts) == 2 && parts[0] == "Bearer" {
			creds.BearerToken = parts[1]
		}
	}
	return creds
}

// resolveIdentity résout l'identité ou répond 401 générique (on ne révèle
// pas si la cible existe).
func (h *Handler) resolveIdentity(c *gin.Context) (models.Identity, bool) {
	identity, err := h.Resolver.Resolve(c.Request.Context(), credentialsFrom(c))
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Accès refusé"})
		return models.Identity{}, false
	}
	return identity, true
}

// respondError mappe les erreurs typées du moteur vers les codes HTTP.
func respondError(c *gin.Context, err error) {
	var (
		validationErr *returns.ValidationError
		authErr       *returns.AuthorizationError
		conflictErr   *returns.ConflictError
		stateErr      *returns.StateError
		notFoundErr   *returns.NotFoundError
	)

	switch {
	case errors.As(err, &validationErr):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Données invalides", "details": validationErr.Reasons})
	case errors.As(err, &authErr):
		// Message générique : ne jamais confirmer l'existence de la cible.
		c.JSON(http.StatusForbidden, gin.H{"error": "Accès refusé"})
	case errors.As(err, &conflictErr):
		c.JSON(http.StatusConflict, gin.H{"error": conflictErr.Msg})
	case errors.As(err, &stateErr):
		c.JSON(http.StatusConflict, gin.H{"error": stateErr.Error()})
	case errors.As(err, &notFoundErr):
		c.JSON(http.StatusNotFound, gin.H{"error": notFoundErr.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur interne"})
	}
}
