package main

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stripe/stripe-go/v83"

	"lumera_back_end/internal/access"
	"lumera_back_end/internal/config"
	"lumera_back_end/internal/database"
	rt "lumera_back_end/internal/handlers/returns"
	"lumera_back_end/internal/returns"
	"lumera_back_end/internal/routes"
	"lumera_back_end/internal/services"
)

func main() {
	config.Load()

	secret := os.Getenv("STRIPE_SECRET_KEY")
	stripe.Key = secret
	if stripe.Key == "" {
		log.Fatal("❌ Impossible d'initialiser Stripe : clé manquante")
	}
	log.Println("✅ Stripe initialisé")

	database.ConnectDatabases()

	// ✅ Initialiser les prepared statements pour améliorer les performances
	database.InitPreparedStatements()

	// ✅ Pré-chauffer le cache Redis
	warmupRedisCache()

	// Nettoyage des pièces jointes orphelines (upload réussi, demande jamais créée)
	services.StartEvidenceJanitor(30 * time.Minute)

	store := returns.NewScyllaStore()
	points := services.NewPointsClient()
	engine := returns.NewEngine(store, points, config.AppealWindowDays())
	resolver := access.NewResolver(store)
	handler := rt.NewHandler(engine, resolver, points)

	r := gin.Default()
	routes.RegisterRoutes(r, handler)

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	log.Println("🚀 Serveur Lumera lancé sur le port", port)
	r.Run(":" + port)
}

// warmupRedisCache pré-chauffe le cache Redis pour éviter la latence du premier appel
func warmupRedisCache() {
	ctx := context.Background()
	if err := database.Redis.Ping(ctx).Err(); err == nil {
		log.Println("✅ Cache Redis pré-chauffé")
	}
}
