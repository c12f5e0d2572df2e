package returns

import (
	"context"
	"sync"
	"time"

	"github.com/gocql/gocql"

	"lumera_back_end/internal/models"
)

// MemoryStore est l'implémentation en mémoire du Store : tests et
// développement local sans cluster ScyllaDB. Le mutex donne les mêmes
// garanties d'atomicité que les LWT côté base.
type MemoryStore struct {
	mu      sync.RWMutex
	orders  map[gocql.UUID]*models.Order
	returns map[gocql.UUID]*models.ReturnRequest
	appeals map[gocql.UUID]*models.Appeal
	claims  map[gocql.UUID]map[gocql.UUID]gocql.UUID // order → item → retour réservataire
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		orders:  make(map[gocql.UUID]*models.Order),
		returns: make(map[gocql.UUID]*models.ReturnRequest),
		appeals: make(map[gocql.UUID]*models.Appeal),
		claims:  make(map[gocql.UUID]map[gocql.UUID]gocql.UUID),
	}
}

// PutOrder alimente le magasin (fixtures de test, seed local).
func (s *MemoryStore) PutOrder(o *models.Order) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *o
	s.orders[o.ID] = &cp
}

func (s *MemoryStore) GetOrder(_ context.Context, orderID gocql.UUID) (*models.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	o, ok := s.orders[orderID]
	if !ok {
		return nil, &NotFoundError{Entity: "commande"}
	}
	cp := *o
	return &cp, nil
}

func (s *MemoryStore) GetOrderByNumber(_ context.Context, orderNumber string) (*models.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, o := range s.orders {
		if o.OrderNumber == orderNumber {
			cp := *o
			return &cp, nil
		}
	}
	return nil, &NotFoundError{Entity: "commande"}
}

func (s *MemoryStore) GetOrderByPickupToken(_ context.Context, token string) (*models.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, o := range s.orders {
		if o.PickupToken != "" && o.PickupToken == token {
			cp := *o
			return &cp, nil
		}
	}
	return nil, &NotFoundError{Entity: "commande"}
}

func (s *MemoryStore) CreateReturn(_ context.Context, ret *models.ReturnRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *ret
	s.returns[ret.ID] = &cp
	return nil
}

func (s *MemoryStore) GetReturn(_ context.Context, id gocql.UUID) (*models.ReturnRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ret, ok := s.returns[id]
	if !ok {
		return nil, &NotFoundError{Entity: "retour"}
	}
	cp := *ret
	return &cp, nil
}

func (s *MemoryStore) ListReturnsByOrder(_ context.Context, orderID gocql.UUID) ([]models.ReturnRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.ReturnRequest
	for _, ret := range s.returns {
		if ret.OrderID == orderID {
			out = append(out, *ret)
		}
	}
	return out, nil
}

func (s *MemoryStore) ListReturnsByStatus(_ context.Context, status string, limit int) ([]models.ReturnRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.ReturnRequest
	for _, ret := range s.returns {
		if ret.Status == status {
			out = append(out, *ret)
			if limit > 0 && len(out) >= limit {
				break
			}
		}
	}
	return out, nil
}

func (s *MemoryStore) TransitionReturn(_ context.Context, id gocql.UUID, from, to, notes string, decidedAt *time.Time, realized *models.RealizedRefund) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ret, ok := s.returns[id]
	if !ok {
		return false, &NotFoundError{Entity: "retour"}
	}
	if ret.Status != from {
		return false, nil
	}
	ret.Status = to
	if notes != "" {
		ret.DecisionNotes = notes
	}
	if decidedAt != nil {
		t := *decidedAt
		ret.DecidedAt = &t
	}
	if realized != nil {
		r := *realized
		ret.RealizedRefund = &r
	}
	return true, nil
}

func (s *MemoryStore) UpdateReturnComposition(_ context.Context, id gocql.UUID, items []models.ReturnItem, snapshot *models.ExpectedRefund) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ret, ok := s.returns[id]
	if !ok {
		return false, &NotFoundError{Entity: "retour"}
	}
	if ret.Status != models.ReturnStatusPending {
		return false, nil
	}
	ret.Items = append([]models.ReturnItem(nil), items...)
	cp := *snapshot
	ret.ExpectedRefund = &cp
	return true, nil
}

func (s *MemoryStore) ClaimItems(_ context.Context, orderID, returnID gocql.UUID, itemIDs []gocql.UUID) (*gocql.UUID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	byOrder := s.claims[orderID]
	if byOrder == nil {
		byOrder = make(map[gocql.UUID]gocql.UUID)
		s.claims[orderID] = byOrder
	}
	var claimed []gocql.UUID
	for _, itemID := range itemIDs {
		if holder, taken := byOrder[itemID]; taken {
			if holder != returnID {
				// Conflit : on rend ce que cet appel vient de poser.
				for _, c := range claimed {
					delete(byOrder, c)
				}
				conflicted := itemID
				return &conflicted, nil
			}
			continue // déjà tenu par ce retour, rien à poser
		}
		byOrder[itemID] = returnID
		claimed = append(claimed, itemID)
	}
	return nil, nil
}

func (s *MemoryStore) ReleaseItems(_ context.Context, orderID gocql.UUID, itemIDs []gocql.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	byOrder := s.claims[orderID]
	for _, itemID := range itemIDs {
		delete(byOrder, itemID)
	}
	return nil
}

func (s *MemoryStore) CreateAppeal(_ context.Context, appeal *models.Appeal) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ret, ok := s.returns[appeal.ReturnID]
	if !ok {
		return false, &NotFoundError{Entity: "retour"}
	}
	if ret.AppealID != nil {
		return false, nil
	}
	cp := *appeal
	s.appeals[appeal.ID] = &cp
	id := appeal.ID
	ret.AppealID = &id
	return true, nil
}

func (s *MemoryStore) GetAppeal(_ context.Context, id gocql.UUID) (*models.Appeal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.appeals[id]
	if !ok {
		return nil, &NotFoundError{Entity: "appel"}
	}
	cp := *a
	return &cp, nil
}

func (s *MemoryStore) GetAppealByReturn(_ context.Context, returnID gocql.UUID) (*models.Appeal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, a := range s.appeals {
		if a.ReturnID == returnID {
			cp := *a
			return &cp, nil
		}
	}
	return nil, &NotFoundError{Entity: "appel"}
}

func (s *MemoryStore) TransitionAppeal(_ context.Context, id gocql.UUID, from, to, notes string, decidedAt time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.appeals[id]
	if !ok {
		return false, &NotFoundError{Entity: "appel"}
	}
	if a.Status != from {
		return false, nil
	}
	a.Status = to
	a.DecisionNotes = notes
	t := decidedAt
	a.DecidedAt = &t
	return true, nil
}
