package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// RequireOperator vérifie que l'utilisateur peut traiter les retours
// (décisions, avancement, appels).
func RequireOperator(c *gin.Context) {
	role, exists := c.Get("role")
	if !exists || (role != "operator" && role != "admin") {
		c.JSON(http.StatusForbidden, gin.H{"error": "Accès réservé aux opérateurs"})
		c.Abort()
		return
	}
	c.Next()
}
