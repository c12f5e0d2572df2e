package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	"lumera_back_end/internal/config"
)

// PointsClient interroge le service de fidélité. On ne consomme ici que le
// taux courant point→euro et le solde : l'accumulation des points reste
// entièrement chez lui.
type PointsClient struct {
	baseURL string
	http    *http.Client
}

func NewPointsClient() *PointsClient {
	return &PointsClient{
		baseURL: os.Getenv("POINTS_SERVICE_URL"),
		http:    &http.Client{Timeout: 5 * time.Second},
	}
}

// PointValue renvoie le taux courant. En cas d'indisponibilité du service,
// on retombe sur le taux de repli configuré plutôt que de bloquer la
// soumission d'un retour.
func (c *PointsClient) PointValue(ctx context.Context) (float64, error) {
	if c.baseURL == "" {
		return config.DefaultPointValue(), nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/points/rate", nil)
	if err != nil {
		return 0, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		log.Printf("⚠️ Service de points injoignable, taux de repli utilisé: %v", err)
		return config.DefaultPointValue(), nil
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("service de points: statut %d", resp.StatusCode)
	}

	var body struct {
		PointValue float64 `json:"point_value"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return 0, fmt.Errorf("réponse du service de points illisible: %w", err)
	}
	if body.PointValue <= 0 {
		return 0, fmt.Errorf("taux de points invalide: %f", body.PointValue)
	}
	return body.PointValue, nil
}

// Balance renvoie le solde de points d'un client (affichage uniquement).
func (c *PointsClient) Balance(ctx context.Context, customerID string) (int64, error) {
	if c.baseURL == "" {
		return 0, fmt.Errorf("POINTS_SERVICE_URL non configuré")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/points/balance/"+customerID, nil)
	if err != nil {
		return 0, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("service de points: statut %d", resp.StatusCode)
	}

	var body struct {
		Balance int64 `json:"balance"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return 0, err
	}
	return body.Balance, nil
}
