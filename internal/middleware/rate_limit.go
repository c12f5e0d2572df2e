package middleware

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"lumera_back_end/internal/database"
)

const (
	// Limites par endpoint
	SubmitReturnMaxAttempts = 5  // soumissions de retour par heure et par appelant
	SubmitAppealMaxAttempts = 3  // appels par heure et par appelant
	APIMaxRequests          = 60 // par minute pour la consultation

	SubmitCooldown = 1 * time.Hour
	APICooldown    = 1 * time.Minute
)

// callerKey identifie l'appelant : user_id si authentifié, IP sinon
// (les invités n'ont pas de compte).
func callerKey(c *gin.Context) string {
	if userID := c.GetString("user_id"); userID != "" {
		return userID
	}
	return c.ClientIP()
}

// SubmitReturnRateLimit limite les soumissions de retour (anti-spam :
// chaque soumission déclenche des uploads MinIO).
func SubmitReturnRateLimit() gin.HandlerFunc {
	return submitLimiter("return_submit:", SubmitReturnMaxAttempts)
}

// SubmitAppealRateLimit limite les dépôts d'appel.
func SubmitAppealRateLimit() gin.HandlerFunc {
	return submitLimiter("appeal_submit:", SubmitAppealMaxAttempts)
}

func submitLimiter(prefix string, max int) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := context.Background()
		key := prefix + callerKey(c)

		attempts, _ := database.Redis.Get(ctx, key).Int()
		if attempts >= max {
			ttl := database.Redis.TTL(ctx, key).Val()
			c.JSON(http.StatusTooManyRequests, gin.H{
				"error":       fmt.Sprintf("Trop de demandes. Réessayez dans %d minutes", int(ttl.Minutes())+1),
				"retry_after": int(ttl.Seconds()),
			})
			c.Abort()
			return
		}

		c.Next()

		// Seules les soumissions acceptées comptent : une erreur de saisie
		// corrigée ne doit pas bloquer le client.
		if c.Writer.Status() == http.StatusCreated {
			pipe := database.Redis.Pipeline()
			pipe.Incr(ctx, key)
			pipe.Expire(ctx, key, SubmitCooldown)
			pipe.Exec(ctx)
		}
	}
}

// APIRateLimit limite la consultation par IP (général).
func APIRateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := context.Background()
		key := "api_requests:" + c.ClientIP()

		requests, _ := database.Redis.Get(ctx, key).Int()
		if requests >= APIMaxRequests {
			c.JSON(http.StatusTooManyRequests, gin.H{
				"error":       "Trop de requêtes. Réessayez dans 1 minute",
				"retry_after": 60,
			})
			c.Abort()
			return
		}

		pipe := database.Redis.Pipeline()
		pipe.Incr(ctx, key)
		pipe.Expire(ctx, key, APICooldown)
		pipe.Exec(ctx)

		c.Header("X-RateLimit-Limit", fmt.Sprintf("%d", APIMaxRequests))
		c.Header("X-RateLimit-Remaining", fmt.Sprintf("%d", APIMaxRequests-requests-1))

		c.Next()
	}
}
