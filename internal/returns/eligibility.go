package returns

import (
	"time"

	"lumera_back_end/internal/models"
)

// Eligibility est le résultat du calcul de fenêtre de retour pour une
// ligne de commande. Jamais persisté : toujours recalculé avec `now`.
type Eligibility struct {
	Eligible      bool `json:"eligible"`
	DaysRemaining int  `json:"days_remaining"`
}

// IsEligible décide si une ligne est encore retournable.
// Règles :
//   - pas encore livrée (deliveredAt nil) → non éligible ;
//   - daysRemaining = maxReturnDays - floor(jours écoulés depuis la livraison) ;
//   - éligible ssi daysRemaining > 0 (inégalité stricte : un article livré
//     il y a exactement maxReturnDays jours n'est plus retournable).
func IsEligible(deliveredAt *time.Time, maxReturnDays int, now time.Time) Eligibility {
	if deliveredAt == nil {
		return Eligibility{Eligible: false, DaysRemaining: 0}
	}
	elapsedDays := int(now.Sub(*deliveredAt).Hours() / 24)
	if elapsedDays < 0 {
		elapsedDays = 0
	}
	remaining := maxReturnDays - elapsedDays
	return Eligibility{
		Eligible:      remaining > 0,
		DaysRemaining: remaining,
	}
}

// ItemEligibility applique IsEligible à une ligne de commande.
func ItemEligibility(item *models.OrderItem, now time.Time) Eligibility {
	return IsEligible(item.DeliveredAt, item.MaxReturnDays, now)
}
