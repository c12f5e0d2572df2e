package config

import (
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

func Load() {
	err := godotenv.Load(".env")
	if err != nil {
		log.Println("⚠️  Aucun fichier .env trouvé — on continue avec les variables d'environnement du système")
	} else {
		log.Println("✅ Fichier .env chargé avec succès")
	}
}

// AppealWindowDays lit la fenêtre d'appel (jours après le refus).
func AppealWindowDays() int {
	if v := os.Getenv("RETURNS_APPEAL_WINDOW_DAYS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
		log.Printf("⚠️ RETURNS_APPEAL_WINDOW_DAYS invalide (%q), valeur par défaut utilisée", v)
	}
	return 7
}

// DefaultPointValue est le taux point→euro de repli si le service de
// fidélité est injoignable au démarrage.
func DefaultPointValue() float64 {
	if v := os.Getenv("POINTS_DEFAULT_VALUE"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f > 0 {
			return f
		}
	}
	return 0.01 // 1 point = 1 centime
}
