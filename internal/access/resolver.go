package access

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"lumera_back_end/internal/models"
	"lumera_back_end/internal/returns"
)

// OrderDirectory est la partie du service de commandes dont le résolveur a
// besoin : retrouver la commande liée à un token ou à un numéro.
type OrderDirectory interface {
	GetOrderByNumber(ctx context.Context, orderNumber string) (*models.Order, error)
	GetOrderByPickupToken(ctx context.Context, token string) (*models.Order, error)
}

// Credentials regroupe tout ce qu'une requête peut présenter. Trois formes
// admissibles, mutuellement exclusives, par ordre de priorité :
//  1. JWT porteur valide → client authentifié (les tokens sont ignorés) ;
//  2. token de suivi + numéro de commande, validés ENSEMBLE (le token seul
//     ou le numéro seul ne suffit pas — sinon on pourrait essayer un token
//     contre des numéros arbitraires) ;
//  3. token de retrait seul.
//
// Rien d'autre ne passe : pas de chemin anonyme.
type Credentials struct {
	BearerToken   string
	PickupToken   string
	TrackingToken string
	OrderNumber   string
}

type Resolver struct {
	dir       OrderDirectory
	jwtSecret []byte
	now       func() time.Time
}

func NewResolver(dir OrderDirectory) *Resolver {
	return &Resolver{
		dir:       dir,
		jwtSecret: []byte(os.Getenv("JWT_SECRET")),
		now:       time.Now,
	}
}

// Resolve produit l'identité de la requête, ou échoue fermé.
func (r *Resolver) Resolve(ctx context.Context, creds Credentials) (models.Identity, error) {
	// 1. Client authentifié
	if creds.BearerToken != "" {
		if customerID, err := r.verifyBearer(creds.BearerToken); err == nil {
			return models.Identity{Kind: models.IdentityCustomer, CustomerID: customerID}, nil
		} else {
			// Un bearer invalide n'est pas bloquant : la requête peut encore
			// porter un token invité valide.
			log.Printf("⚠️ JWT refusé: %v", err)
		}
	}

	// 2. Invité avec token de suivi + numéro de commande
	if creds.TrackingToken != "" && creds.OrderNumber != "" {
		order, err := r.dir.GetOrderByNumber(ctx, creds.OrderNumber)
		if err != nil {
			return models.Identity{}, &returns.AuthorizationError{}
		}
		if order.TrackingToken == "" || order.TrackingToken != creds.TrackingToken {
			return models.Identity{}, &returns.AuthorizationError{}
		}
		return models.Identity{
			Kind:        models.IdentityTrackingGuest,
			OrderID:     order.ID,
			OrderNumber: order.OrderNumber,
		}, nil
	}

	// 3. Invité avec token de retrait
	if creds.PickupToken != "" {
		order, err := r.dir.GetOrderByPickupToken(ctx, creds.PickupToken)
		if err != nil {
			return models.Identity{}, &returns.AuthorizationError{}
		}
		if order.PickupToken == "" { // token révoqué côté commande
			return models.Identity{}, &returns.AuthorizationError{}
		}
		if order.PickupExpiresAt != nil && r.now().After(*order.PickupExpiresAt) {
			return models.Identity{}, &returns.AuthorizationError{Msg: "token de retrait expiré"}
		}
		return models.Identity{
			Kind:        models.IdentityPickupGuest,
			OrderID:     order.ID,
			OrderNumber: order.OrderNumber,
		}, nil
	}

	return models.Identity{}, &returns.AuthorizationError{}
}

// verifyBearer vérifie le JWT (HS256) émis par le service d'authentification
// et en extrait l'identifiant client.
func (r *Resolver) verifyBearer(tokenString string) (string, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("méthode de signature inattendue: %v", token.Header["alg"])
		}
		return r.jwtSecret, nil
	})
	if err != nil {
		return "", err
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return "", fmt.Errorf("claims invalides")
	}
	if exp, ok := claims["exp"].(float64); ok && r.now().Unix() > int64(exp) {
		return "", fmt.Errorf("token expiré")
	}
	customerID, ok := claims["user_id"].(string)
	if !ok || customerID == "" {
		return "", fmt.Errorf("user_id manquant")
	}
	return customerID, nil
}

// SetClock remplace l'horloge (tests uniquement).
func (r *Resolver) SetClock(now func() time.Time) { r.now = now }

// SetSecret remplace le secret JWT (tests uniquement).
func (r *Resolver) SetSecret(secret []byte) { r.jwtSecret = secret }
