package returns

import (
	"context"
	"time"

	"github.com/gocql/gocql"

	"lumera_back_end/internal/models"
)

// Store est le port de persistance du moteur. L'implémentation ScyllaDB
// (scylla.go) porte les garanties transactionnelles (LWT) ; l'implémentation
// mémoire (memory.go) sert aux tests et au développement local.
//
// Convention : une cible absente se signale par *NotFoundError.
type Store interface {
	// Lecture des commandes (service de consultation, la création est externe).
	GetOrder(ctx context.Context, orderID gocql.UUID) (*models.Order, error)
	GetOrderByNumber(ctx context.Context, orderNumber string) (*models.Order, error)
	GetOrderByPickupToken(ctx context.Context, token string) (*models.Order, error)

	// Retours.
	CreateReturn(ctx context.Context, ret *models.ReturnRequest) error
	GetReturn(ctx context.Context, id gocql.UUID) (*models.ReturnRequest, error)
	ListReturnsByOrder(ctx context.Context, orderID gocql.UUID) ([]models.ReturnRequest, error)
	ListReturnsByStatus(ctx context.Context, status string, limit int) ([]models.ReturnRequest, error)

	// TransitionReturn passe le retour de `from` à `to` de façon conditionnelle
	// (compare-and-set sur le statut courant). Renvoie false si le statut a
	// changé entre-temps : l'appelant a perdu la course.
	TransitionReturn(ctx context.Context, id gocql.UUID, from, to, notes string, decidedAt *time.Time, realized *models.RealizedRefund) (bool, error)

	// UpdateReturnComposition remplace les lignes et la projection de
	// remboursement, uniquement si le retour est encore PENDING.
	UpdateReturnComposition(ctx context.Context, id gocql.UUID, items []models.ReturnItem, snapshot *models.ExpectedRefund) (bool, error)

	// ClaimItems marque les articles comme couverts par un retour ouvert,
	// atomiquement article par article. En cas de doublon, les marquages déjà
	// posés par CET appel sont relâchés et l'id de l'article en conflit est
	// renvoyé.
	ClaimItems(ctx context.Context, orderID, returnID gocql.UUID, itemIDs []gocql.UUID) (conflict *gocql.UUID, err error)
	ReleaseItems(ctx context.Context, orderID gocql.UUID, itemIDs []gocql.UUID) error

	// Appels. CreateAppeal renvoie false si le retour porte déjà un appel
	// (contrainte d'unicité posée par la couche de données, pas par l'UI).
	CreateAppeal(ctx context.Context, appeal *models.Appeal) (bool, error)
	GetAppeal(ctx context.Context, id gocql.UUID) (*models.Appeal, error)
	GetAppealByReturn(ctx context.Context, returnID gocql.UUID) (*models.Appeal, error)
	TransitionAppeal(ctx context.Context, id gocql.UUID, from, to, notes string, decidedAt time.Time) (bool, error)
}

// PointsLedger expose le service de fidélité : on ne consomme ici que le
// taux courant point→euro (le solde et l'accumulation restent chez lui).
type PointsLedger interface {
	PointValue(ctx context.Context) (float64, error)
}
