package returns

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/gocql/gocql"

	"lumera_back_end/internal/database"
	"lumera_back_end/internal/models"
)

const returnCacheTTL = 5 * time.Minute

// ScyllaStore est l'implémentation de production du Store : keyspace
// orders en lecture, keyspace returns en écriture. Les garanties
// anti-course passent par les LWT (IF NOT EXISTS / IF status = ?),
// le cache de lecture par Redis.
type ScyllaStore struct{}

func NewScyllaStore() *ScyllaStore { return &ScyllaStore{} }

// =============================================
// COMMANDES (lecture seule)
// =============================================

func (s *ScyllaStore) GetOrder(ctx context.Context, orderID gocql.UUID) (*models.Order, error) {
	session, err := database.GetOrdersSession()
	if err != nil {
		return nil, err
	}

	var o models.Order
	o.ID = orderID
	err = session.Query(`
		SELECT order_number, customer_id, shop_id, pickup_token, pickup_expires_at,
		       tracking_token, payment_intent_id, total_price, cash_paid, points_used, status, created_at
		FROM orders WHERE order_id = ?
	`, orderID).WithContext(ctx).Scan(
		&o.OrderNumber, &o.CustomerID, &o.ShopID, &o.PickupToken, &o.PickupExpiresAt,
		&o.TrackingToken, &o.PaymentIntentID, &o.TotalPrice, &o.CashPaid, &o.PointsUsed, &o.Status, &o.CreatedAt)
	if err == gocql.ErrNotFound {
		return nil, &NotFoundError{Entity: "commande"}
	}
	if err != nil {
		return nil, fmt.Errorf("lecture commande: %w", err)
	}

	if err := s.loadOrderItems(ctx, session, &o); err != nil {
		return nil, err
	}
	return &o, nil
}

func (s *ScyllaStore) loadOrderItems(ctx context.Context, session *gocql.Session, o *models.Order) error {
	iter := session.Query(`
		SELECT item_id, product_id, variant_id, name, quantity, unit_price,
		       line_total, delivered_at, max_return_days
		FROM order_items WHERE order_id = ?
	`, o.ID).WithContext(ctx).Iter()

	var it models.OrderItem
	for iter.Scan(&it.ItemID, &it.ProductID, &it.VariantID, &it.Name, &it.Quantity,
		&it.UnitPrice, &it.LineTotal, &it.DeliveredAt, &it.MaxReturnDays) {
		o.Items = append(o.Items, it)
		it = models.OrderItem{}
	}
	if err := iter.Close(); err != nil {
		return fmt.Errorf("lecture lignes de commande: %w", err)
	}
	return nil
}

func (s *ScyllaStore) GetOrderByNumber(ctx context.Context, orderNumber string) (*models.Order, error) {
	session, err := database.GetOrdersSession()
	if err != nil {
		return nil, err
	}
	var orderID gocql.UUID
	err = session.Query("SELECT order_id FROM orders_by_number WHERE order_number = ?", orderNumber).
		WithContext(ctx).Scan(&orderID)
	if err == gocql.ErrNotFound {
		return nil, &NotFoundError{Entity: "commande"}
	}
	if err != nil {
		return nil, fmt.Errorf("lecture commande par numéro: %w", err)
	}
	return s.GetOrder(ctx, orderID)
}

func (s *ScyllaStore) GetOrderByPickupToken(ctx context.Context, token string) (*models.Order, error) {
	session, err := database.GetOrdersSession()
	if err != nil {
		return nil, err
	}
	var orderID gocql.UUID
	err = session.Query("SELECT order_id FROM orders_by_pickup_token WHERE pickup_token = ?", token).
		WithContext(ctx).Scan(&orderID)
	if err == gocql.ErrNotFound {
		return nil, &NotFoundError{Entity: "commande"}
	}
	if err != nil {
		return nil, fmt.Errorf("lecture commande par token: %w", err)
	}
	return s.GetOrder(ctx, orderID)
}

// =============================================
// RETOURS
// =============================================

// Les structures imbriquées (lignes, pièces, projections) sont stockées en
// colonnes JSON : elles voyagent toujours ensemble, jamais requêtées seules.

func (s *ScyllaStore) CreateReturn(ctx context.Context, ret *models.ReturnRequest) error {
	session, err := database.GetReturnsSession()
	if err != nil {
		return err
	}

	itemsJSON, _ := json.Marshal(ret.Items)
	evidenceJSON, _ := json.Marshal(ret.Evidence)
	expectedJSON, _ := json.Marshal(ret.ExpectedRefund)

	err = session.Query(`
		INSERT INTO returns (return_id, order_id, order_number, shop_order_id, customer_id,
			contact_email, reason, items, evidence, status, expected_refund, submitted_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, ret.ID, ret.OrderID, ret.OrderNumber, ret.ShopOrderID, ret.CustomerID,
		ret.ContactEmail, ret.Reason, string(itemsJSON), string(evidenceJSON), ret.Status,
		string(expectedJSON), ret.SubmittedAt).WithContext(ctx).Exec()
	if err != nil {
		return fmt.Errorf("création retour: %w", err)
	}

	err = session.Query(`
		INSERT INTO returns_by_order (order_id, return_id, submitted_at) VALUES (?, ?, ?)
	`, ret.OrderID, ret.ID, ret.SubmittedAt).WithContext(ctx).Exec()
	if err != nil {
		log.Printf("⚠️ Index returns_by_order non mis à jour pour %s: %v", ret.ID, err)
	}
	return nil
}

func (s *ScyllaStore) GetReturn(ctx context.Context, id gocql.UUID) (*models.ReturnRequest, error) {
	// 1. Cache Redis
	cacheKey := "return:" + id.String()
	if data, err := database.Redis.Get(ctx, cacheKey).Result(); err == nil {
		var ret models.ReturnRequest
		if json.Unmarshal([]byte(data), &ret) == nil {
			return &ret, nil
		}
	}

	session, err := database.GetReturnsSession()
	if err != nil {
		return nil, err
	}

	var (
		ret                                                 models.ReturnRequest
		itemsJSON, evidenceJSON, expectedJSON, realizedJSON string
		appealID                                            *gocql.UUID
	)
	ret.ID = id
	err = session.Query(`
		SELECT order_id, order_number, shop_order_id, customer_id, contact_email,
		       reason, items, evidence, status, expected_refund, realized_refund,
		       submitted_at, decided_at, decision_notes, appeal_id
		FROM returns WHERE return_id = ?
	`, id).WithContext(ctx).Scan(
		&ret.OrderID, &ret.OrderNumber, &ret.ShopOrderID, &ret.CustomerID, &ret.ContactEmail, &ret.Reason,
		&itemsJSON, &evidenceJSON, &ret.Status, &expectedJSON, &realizedJSON,
		&ret.SubmittedAt, &ret.DecidedAt, &ret.DecisionNotes, &appealID)
	if err == gocql.ErrNotFound {
		return nil, &NotFoundError{Entity: "retour"}
	}
	if err != nil {
		return nil, fmt.Errorf("lecture retour: %w", err)
	}

	json.Unmarshal([]byte(itemsJSON), &ret.Items)
	json.Unmarshal([]byte(evidenceJSON), &ret.Evidence)
	if expectedJSON != "" && expectedJSON != "null" {
		json.Unmarshal([]byte(expectedJSON), &ret.ExpectedRefund)
	}
	if realizedJSON != "" && realizedJSON != "null" {
		json.Unmarshal([]byte(realizedJSON), &ret.RealizedRefund)
	}
	ret.AppealID = appealID

	// 2. Mise en cache
	if data, err := json.Marshal(ret); err == nil {
		database.Redis.Set(ctx, cacheKey, data, returnCacheTTL)
	}
	return &ret, nil
}

func (s *ScyllaStore) invalidateReturnCache(ctx context.Context, id gocql.UUID) {
	database.Redis.Del(ctx, "return:"+id.String())
}

func (s *ScyllaStore) ListReturnsByOrder(ctx context.Context, orderID gocql.UUID) ([]models.ReturnRequest, error) {
	session, err := database.GetReturnsSession()
	if err != nil {
		return nil, err
	}
	iter := session.Query("SELECT return_id FROM returns_by_order WHERE order_id = ?", orderID).
		WithContext(ctx).Iter()

	var ids []gocql.UUID
	var rid gocql.UUID
	for iter.Scan(&rid) {
		ids = append(ids, rid)
	}
	if err := iter.Close(); err != nil {
		return nil, fmt.Errorf("lecture retours de la commande: %w", err)
	}

	out := make([]models.ReturnRequest, 0, len(ids))
	for _, id := range ids {
		ret, err := s.GetReturn(ctx, id)
		if err != nil {
			return nil, err
		}
		out = append(out, *ret)
	}
	return out, nil
}

func (s *ScyllaStore) ListReturnsByStatus(ctx context.Context, status string, limit int) ([]models.ReturnRequest, error) {
	session, err := database.GetReturnsSession()
	if err != nil {
		return nil, err
	}
	q := session.Query("SELECT return_id FROM returns WHERE status = ? LIMIT ? ALLOW FILTERING", status, limit).
		WithContext(ctx)
	iter := q.Iter()

	var ids []gocql.UUID
	var rid gocql.UUID
	for iter.Scan(&rid) {
		ids = append(ids, rid)
	}
	if err := iter.Close(); err != nil {
		return nil, fmt.Errorf("liste des retours %s: %w", status, err)
	}

	out := make([]models.ReturnRequest, 0, len(ids))
	for _, id := range ids {
		ret, err := s.GetReturn(ctx, id)
		if err != nil {
			return nil, err
		}
		out = append(out, *ret)
	}
	return out, nil
}

func (s *ScyllaStore) TransitionReturn(ctx context.Context, id gocql.UUID, from, to, notes string, decidedAt *time.Time, realized *models.RealizedRefund) (bool, error) {
	session, err := database.GetReturnsSession()
	if err != nil {
		return false, err
	}

	// LWT : un seul gagnant si deux décisions arrivent en même temps.
	var q *gocql.Query
	switch {
	case realized != nil:
		realizedJSON, _ := json.Marshal(realized)
		q = session.Query(`
			UPDATE returns SET status = ?, realized_refund = ? WHERE return_id = ? IF status = ?
		`, to, string(realizedJSON), id, from)
	case decidedAt != nil:
		q = session.Query(`
			UPDATE returns SET status = ?, decision_notes = ?, decided_at = ? WHERE return_id = ? IF status = ?
		`, to, notes, *decidedAt, id, from)
	default:
		q = session.Query(`
			UPDATE returns SET status = ? WHERE return_id = ? IF status = ?
		`, to, id, from)
	}

	var current string
	applied, err := q.WithContext(ctx).ScanCAS(&current)
	if err != nil {
		return false, fmt.Errorf("transition retour: %w", err)
	}
	if applied {
		s.invalidateReturnCache(ctx, id)
	}
	return applied, nil
}

func (s *ScyllaStore) UpdateReturnComposition(ctx context.Context, id gocql.UUID, items []models.ReturnItem, snapshot *models.ExpectedRefund) (bool, error) {
	session, err := database.GetReturnsSession()
	if err != nil {
		return false, err
	}
	itemsJSON, _ := json.Marshal(items)
	expectedJSON, _ := json.Marshal(snapshot)

	var current string
	applied, err := session.Query(`
		UPDATE returns SET items = ?, expected_refund = ? WHERE return_id = ? IF status = ?
	`, string(itemsJSON), string(expectedJSON), id, models.ReturnStatusPending).
		WithContext(ctx).ScanCAS(&current)
	if err != nil {
		return false, fmt.Errorf("mise à jour composition: %w", err)
	}
	if applied {
		s.invalidateReturnCache(ctx, id)
	}
	return applied, nil
}

// =============================================
// RÉSERVATION D'ARTICLES (anti double-soumission)
// =============================================

// ClaimItems pose une réservation par article via INSERT IF NOT EXISTS :
// deux soumissions concurrentes sur la même ligne ne peuvent pas gagner
// toutes les deux. En cas de conflit, ce qui vient d'être posé est rendu.
func (s *ScyllaStore) ClaimItems(ctx context.Context, orderID, returnID gocql.UUID, itemIDs []gocql.UUID) (*gocql.UUID, error) {
	session, err := database.GetReturnsSession()
	if err != nil {
		return nil, err
	}

	var claimed []gocql.UUID
	for _, itemID := range itemIDs {
		var existingReturn gocql.UUID
		applied, err := session.Query(`
			INSERT INTO return_item_claims (order_id, item_id, return_id) VALUES (?, ?, ?) IF NOT EXISTS
		`, orderID, itemID, returnID).WithContext(ctx).ScanCAS(&existingReturn)
		if err != nil {
			s.releaseClaims(ctx, session, orderID, claimed)
			return nil, fmt.Errorf("réservation article: %w", err)
		}
		if !applied && existingReturn != returnID {
			s.releaseClaims(ctx, session, orderID, claimed)
			conflicted := itemID
			return &conflicted, nil
		}
		claimed = append(claimed, itemID)
	}
	return nil, nil
}

func (s *ScyllaStore) releaseClaims(ctx context.Context, session *gocql.Session, orderID gocql.UUID, itemIDs []gocql.UUID) {
	for _, itemID := range itemIDs {
		if err := session.Query(`
			DELETE FROM return_item_claims WHERE order_id = ? AND item_id = ?
		`, orderID, itemID).WithContext(ctx).Exec(); err != nil {
			log.Printf("⚠️ Réservation non relâchée (commande %s, article %s): %v", orderID, itemID, err)
		}
	}
}

func (s *ScyllaStore) ReleaseItems(ctx context.Context, orderID gocql.UUID, itemIDs []gocql.UUID) error {
	session, err := database.GetReturnsSession()
	if err != nil {
		return err
	}
	s.releaseClaims(ctx, session, orderID, itemIDs)
	return nil
}

// =============================================
// APPELS
// =============================================

// CreateAppeal s'appuie sur appeals_by_return (clé primaire = return_id,
// INSERT IF NOT EXISTS) : l'invariant « un seul appel par retour » est
// porté par la couche de données, pas par un bouton caché.
func (s *ScyllaStore) CreateAppeal(ctx context.Context, appeal *models.Appeal) (bool, error) {
	session, err := database.GetReturnsSession()
	if err != nil {
		return false, err
	}

	var existing gocql.UUID
	applied, err := session.Query(`
		INSERT INTO appeals_by_return (return_id, appeal_id) VALUES (?, ?) IF NOT EXISTS
	`, appeal.ReturnID, appeal.ID).WithContext(ctx).ScanCAS(&existing)
	if err != nil {
		return false, fmt.Errorf("unicité appel: %w", err)
	}
	if !applied {
		return false, nil
	}

	evidenceJSON, _ := json.Marshal(appeal.Evidence)
	err = session.Query(`
		INSERT INTO appeals (appeal_id, return_id, reason, description, evidence, status, submitted_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, appeal.ID, appeal.ReturnID, appeal.Reason, appeal.Description,
		string(evidenceJSON), appeal.Status, appeal.SubmittedAt).WithContext(ctx).Exec()
	if err != nil {
		// On rend la réservation d'unicité, sinon le retour resterait
		// inappelable sans appel existant.
		session.Query("DELETE FROM appeals_by_return WHERE return_id = ?", appeal.ReturnID).WithContext(ctx).Exec()
		return false, fmt.Errorf("création appel: %w", err)
	}

	err = session.Query("UPDATE returns SET appeal_id = ? WHERE return_id = ?", appeal.ID, appeal.ReturnID).
		WithContext(ctx).Exec()
	if err != nil {
		log.Printf("⚠️ appeal_id non reporté sur le retour %s: %v", appeal.ReturnID, err)
	}
	s.invalidateReturnCache(ctx, appeal.ReturnID)
	return true, nil
}

func (s *ScyllaStore) GetAppeal(ctx context.Context, id gocql.UUID) (*models.Appeal, error) {
	session, err := database.GetReturnsSession()
	if err != nil {
		return nil, err
	}

	var a models.Appeal
	var evidenceJSON string
	a.ID = id
	err = session.Query(`
		SELECT return_id, reason, description, evidence, status, submitted_at, decided_at, decision_notes
		FROM appeals WHERE appeal_id = ?
	`, id).WithContext(ctx).Scan(
		&a.ReturnID, &a.Reason, &a.Description, &evidenceJSON, &a.Status,
		&a.SubmittedAt, &a.DecidedAt, &a.DecisionNotes)
	if err == gocql.ErrNotFound {
		return nil, &NotFoundError{Entity: "appel"}
	}
	if err != nil {
		return nil, fmt.Errorf("lecture appel: %w", err)
	}
	json.Unmarshal([]byte(evidenceJSON), &a.Evidence)
	return &a, nil
}

func (s *ScyllaStore) GetAppealByReturn(ctx context.Context, returnID gocql.UUID) (*models.Appeal, error) {
	session, err := database.GetReturnsSession()
	if err != nil {
		return nil, err
	}
	var appealID gocql.UUID
	err = session.Query("SELECT appeal_id FROM appeals_by_return WHERE return_id = ?", returnID).
		WithContext(ctx).Scan(&appealID)
	if err == gocql.ErrNotFound {
		return nil, &NotFoundError{Entity: "appel"}
	}
	if err != nil {
		return nil, fmt.Errorf("lecture appel du retour: %w", err)
	}
	return s.GetAppeal(ctx, appealID)
}

func (s *ScyllaStore) TransitionAppeal(ctx context.Context, id gocql.UUID, from, to, notes string, decidedAt time.Time) (bool, error) {
	session, err := database.GetReturnsSession()
	if err != nil {
		return false, err
	}
	var current string
	applied, err := session.Query(`
		UPDATE appeals SET status = ?, decision_notes = ?, decided_at = ? WHERE appeal_id = ? IF status = ?
	`, to, notes, decidedAt, id, from).WithContext(ctx).ScanCAS(&current)
	if err != nil {
		return false, fmt.Errorf("transition appel: %w", err)
	}
	return applied, nil
}
