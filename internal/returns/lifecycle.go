package returns

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/gocql/gocql"
	"github.com/google/uuid"

	"lumera_back_end/internal/models"
)

const (
	// Longueur maximale des motifs saisis par le client.
	MaxReasonLength     = 500
	MaxItemReasonLength = 200

	DefaultAppealWindowDays = 7
)

// Engine est la machine à états du cycle retour + appel. Toutes les
// opérations sont synchrones ; les garanties anti-course (double
// soumission, double décision, double appel) reposent sur le Store.
type Engine struct {
	store            Store
	ledger           PointsLedger
	appealWindowDays int
	now              func() time.Time
}

func NewEngine(store Store, ledger PointsLedger, appealWindowDays int) *Engine {
	if appealWindowDays <= 0 {
		appealWindowDays = DefaultAppealWindowDays
	}
	return &Engine{
		store:            store,
		ledger:           ledger,
		appealWindowDays: appealWindowDays,
		now:              time.Now,
	}
}

// SubmitInput porte une demande de retour déjà authentifiée : l'identité a
// été résolue en amont (internal/access) et les pièces jointes ont déjà
// passé le validateur de médias puis le stockage.
type SubmitInput struct {
	OrderID      gocql.UUID
	ShopOrderID  string
	Reason       string
	ContactEmail string
	Items        []models.ReturnItem
	Evidence     []models.MediaAttachment
}

// Submit crée une demande de retour en PENDING.
func (e *Engine) Submit(ctx context.Context, identity models.Identity, in SubmitInput) (*models.ReturnRequest, error) {
	order, err := e.store.GetOrder(ctx, in.OrderID)
	if err != nil {
		return nil, err
	}
	// Hors périmètre → introuvable, pour ne pas confirmer l'existence de la
	// commande à un porteur de token deviné.
	if !identity.CanAccessOrder(order) {
		return nil, &NotFoundError{Entity: "commande"}
	}

	if err := e.validateItems(order, in.Items); err != nil {
		return nil, err
	}
	if len(in.Reason) > MaxReasonLength {
		return nil, NewValidationError(fmt.Sprintf("motif trop long (max %d caractères)", MaxReasonLength))
	}
	if in.ContactEmail != "" && !strings.Contains(in.ContactEmail, "@") {
		return nil, NewValidationError("adresse e-mail de contact invalide")
	}
	// Au moins une pièce acceptée : exigence du moteur, pas seulement de l'UI.
	if len(in.Evidence) == 0 {
		return nil, NewValidationError("au moins une photo ou vidéo est requise")
	}

	itemIDs := make([]gocql.UUID, 0, len(in.Items))
	for _, it := range in.Items {
		itemIDs = append(itemIDs, it.OrderItemID)
	}

	retID := gocql.UUID(uuid.New())
	conflict, err := e.store.ClaimItems(ctx, order.ID, retID, itemIDs)
	if err != nil {
		return nil, err
	}
	if conflict != nil {
		item := order.FindItem(*conflict)
		name := conflict.String()
		if item != nil {
			name = item.Name
		}
		return nil, &ConflictError{Msg: fmt.Sprintf("un retour est déjà en cours pour l'article %s", name)}
	}

	snapshot, err := e.computeSnapshot(ctx, order, in.Items)
	if err != nil {
		e.releaseQuietly(ctx, order.ID, itemIDs)
		return nil, err
	}

	ret := &models.ReturnRequest{
		ID:             retID,
		OrderID:        order.ID,
		OrderNumber:    order.OrderNumber,
		ShopOrderID:    in.ShopOrderID,
		CustomerID:     identity.CustomerID,
		ContactEmail:   in.ContactEmail,
		Reason:         in.Reason,
		Items:          in.Items,
		Evidence:       in.Evidence,
		Status:         models.ReturnStatusPending,
		ExpectedRefund: snapshot,
		SubmittedAt:    e.now(),
	}
	if err := e.store.CreateReturn(ctx, ret); err != nil {
		e.releaseQuietly(ctx, order.ID, itemIDs)
		return nil, err
	}

	log.Printf("📦 Demande de retour %s créée pour la commande %s (%d article(s))", ret.ID, order.OrderNumber, len(ret.Items))
	return ret, nil
}

// validateItems vérifie l'appartenance, les quantités et l'éligibilité de
// chaque ligne demandée. Les erreurs sont cumulées pour que le client
// puisse tout corriger d'un coup.
func (e *Engine) validateItems(order *models.Order, items []models.ReturnItem) error {
	if len(items) == 0 {
		return NewValidationError("aucun article sélectionné")
	}
	now := e.now()
	var reasons []string
	seen := make(map[string]bool, len(items))

	for _, ri := range items {
		key := ri.OrderItemID.String()
		if seen[key] {
			reasons = append(reasons, fmt.Sprintf("article %s sélectionné deux fois", key))
			continue
		}
		seen[key] = true

		item := order.FindItem(ri.OrderItemID)
		if item == nil {
			reasons = append(reasons, fmt.Sprintf("l'article %s n'appartient pas à cette commande", key))
			continue
		}
		if ri.ReturnQuantity < 1 || ri.ReturnQuantity > item.Quantity {
			reasons = append(reasons, fmt.Sprintf("quantité invalide pour %s (entre 1 et %d)", item.Name, item.Quantity))
		}
		if len(ri.Reason) > MaxItemReasonLength {
			reasons = append(reasons, fmt.Sprintf("motif trop long pour %s (max %d caractères)", item.Name, MaxItemReasonLength))
		}
		if elig := ItemEligibility(item, now); !elig.Eligible {
			reasons = append(reasons, fmt.Sprintf("la fenêtre de retour de %s est expirée", item.Name))
		}
	}

	if len(reasons) > 0 {
		return &ValidationError{Reasons: reasons}
	}
	return nil
}

func (e *Engine) computeSnapshot(ctx context.Context, order *models.Order, items []models.ReturnItem) (*models.ExpectedRefund, error) {
	rate := 0.0
	if order.PointsUsed > 0 {
		v, err := e.ledger.PointValue(ctx)
		if err != nil {
			return nil, fmt.Errorf("taux de points indisponible: %w", err)
		}
		rate = v
	}
	return ComputeRefund(order, items, rate, e.now()), nil
}

func (e *Engine) releaseQuietly(ctx context.Context, orderID gocql.UUID, itemIDs []gocql.UUID) {
	if err := e.store.ReleaseItems(ctx, orderID, itemIDs); err != nil {
		log.Printf("⚠️ Impossible de relâcher les articles de la commande %s: %v", orderID, err)
	}
}

// UpdateItems remplace la sélection d'articles tant que le retour est
// PENDING, et recalcule la projection de remboursement (taux du moment).
func (e *Engine) UpdateItems(ctx context.Context, identity models.Identity, returnID gocql.UUID, items []models.ReturnItem) (*models.ReturnRequest, error) {
	ret, err := e.store.GetReturn(ctx, returnID)
	if err != nil {
		return nil, err
	}
	if !identity.CanAccessReturn(ret) {
		return nil, &NotFoundError{Entity: "retour"}
	}
	if ret.Status != models.ReturnStatusPending {
		return nil, &StateError{Op: "modification", From: ret.Status}
	}

	order, err := e.store.GetOrder(ctx, ret.OrderID)
	if err != nil {
		return nil, err
	}
	if err := e.validateItems(order, items); err != nil {
		return nil, err
	}

	oldIDs := itemIDsOf(ret.Items)
	newIDs := itemIDsOf(items)
	added := diffIDs(newIDs, oldIDs)
	removed := diffIDs(oldIDs, newIDs)

	// Réserver d'abord les lignes ajoutées, relâcher les retirées en
	// dernier : le marquage « retour ouvert » d'un article conservé n'est
	// jamais levé pendant l'édition, une soumission concurrente ne peut
	// pas s'y glisser.
	conflict, err := e.store.ClaimItems(ctx, order.ID, ret.ID, added)
	if err != nil {
		return nil, err
	}
	if conflict != nil {
		return nil, &ConflictError{Msg: "un autre retour couvre déjà un des articles sélectionnés"}
	}

	snapshot, err := e.computeSnapshot(ctx, order, items)
	if err != nil {
		e.releaseQuietly(ctx, order.ID, added)
		return nil, err
	}
	ok, err := e.store.UpdateReturnComposition(ctx, ret.ID, items, snapshot)
	if err != nil {
		e.releaseQuietly(ctx, order.ID, added)
		return nil, err
	}
	if !ok {
		e.releaseQuietly(ctx, order.ID, added)
		return nil, &StateError{Op: "modification", From: "non-PENDING"}
	}

	if len(removed) > 0 {
		e.releaseQuietly(ctx, order.ID, removed)
	}
	ret.Items = items
	ret.ExpectedRefund = snapshot
	return ret, nil
}

// diffIDs renvoie les ids de a absents de b.
func diffIDs(a, b []gocql.UUID) []gocql.UUID {
	inB := make(map[gocql.UUID]bool, len(b))
	for _, id := range b {
		inB[id] = true
	}
	var out []gocql.UUID
	for _, id := range a {
		if !inB[id] {
			out = append(out, id)
		}
	}
	return out
}

func itemIDsOf(items []models.ReturnItem) []gocql.UUID {
	ids := make([]gocql.UUID, 0, len(items))
	for _, it := range items {
		ids = append(ids, it.OrderItemID)
	}
	return ids
}

// Decide tranche un retour PENDING : APPROVED ou DENIED. Exactement un
// gagnant en cas d'appels concurrents ; le perdant reçoit un conflit, pas
// un écrasement silencieux. APPROVED fige la projection telle quelle.
func (e *Engine) Decide(ctx context.Context, returnID gocql.UUID, outcome, notes string) (*models.ReturnRequest, error) {
	if outcome != models.ReturnStatusApproved && outcome != models.ReturnStatusDenied {
		return nil, NewValidationError("décision invalide (APPROVED ou DENIED)")
	}
	ret, err := e.store.GetReturn(ctx, returnID)
	if err != nil {
		return nil, err
	}
	if ret.Status != models.ReturnStatusPending {
		return nil, &StateError{Op: "décision", From: ret.Status}
	}

	decidedAt := e.now()
	ok, err := e.store.TransitionReturn(ctx, returnID, models.ReturnStatusPending, outcome, notes, &decidedAt, nil)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, &ConflictError{Msg: "cette demande a déjà été traitée"}
	}

	// Refus : les articles redeviennent retournables.
	if outcome == models.ReturnStatusDenied {
		e.releaseQuietly(ctx, ret.OrderID, itemIDsOf(ret.Items))
	}

	ret.Status = outcome
	ret.DecidedAt = &decidedAt
	ret.DecisionNotes = notes
	log.Printf("⚖️ Retour %s → %s", returnID, outcome)
	return ret, nil
}

// Advance fait avancer un retour approuvé, strictement séquentiel :
// APPROVED → PROCESSING → COMPLETED, sans saut possible. COMPLETED exige
// le remboursement réalisé dans la même opération.
func (e *Engine) Advance(ctx context.Context, returnID gocql.UUID, to string, realized *models.RealizedRefund) (*models.ReturnRequest, error) {
	ret, err := e.store.GetReturn(ctx, returnID)
	if err != nil {
		return nil, err
	}

	var from string
	switch to {
	case models.ReturnStatusProcessing:
		from = models.ReturnStatusApproved
	case models.ReturnStatusCompleted:
		from = models.ReturnStatusProcessing
		if realized == nil {
			return nil, NewValidationError("un remboursement réalisé est requis pour clore le retour")
		}
	default:
		return nil, NewValidationError("transition invalide (PROCESSING ou COMPLETED)")
	}
	if ret.Status != from {
		return nil, &StateError{Op: "passage à " + to, From: ret.Status}
	}

	ok, err := e.store.TransitionReturn(ctx, returnID, from, to, "", nil, realized)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, &ConflictError{Msg: "le retour a changé de statut entre-temps"}
	}

	ret.Status = to
	ret.RealizedRefund = realized
	log.Printf("🔄 Retour %s → %s", returnID, to)
	return ret, nil
}

// Cancel annule un retour encore PENDING (action client).
func (e *Engine) Cancel(ctx context.Context, identity models.Identity, returnID gocql.UUID) (*models.ReturnRequest, error) {
	ret, err := e.store.GetReturn(ctx, returnID)
	if err != nil {
		return nil, err
	}
	if !identity.CanAccessReturn(ret) {
		return nil, &NotFoundError{Entity: "retour"}
	}
	if ret.Status != models.ReturnStatusPending {
		return nil, &StateError{Op: "annulation", From: ret.Status}
	}

	now := e.now()
	ok, err := e.store.TransitionReturn(ctx, returnID, models.ReturnStatusPending, models.ReturnStatusCancelled, "", &now, nil)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, &ConflictError{Msg: "cette demande a déjà été traitée"}
	}
	e.releaseQuietly(ctx, ret.OrderID, itemIDsOf(ret.Items))
	ret.Status = models.ReturnStatusCancelled
	return ret, nil
}

// Get renvoie un retour si — et seulement si — l'identité le couvre.
func (e *Engine) Get(ctx context.Context, identity models.Identity, returnID gocql.UUID) (*models.ReturnRequest, error) {
	ret, err := e.store.GetReturn(ctx, returnID)
	if err != nil {
		return nil, err
	}
	if !identity.CanAccessReturn(ret) {
		return nil, &NotFoundError{Entity: "retour"}
	}
	return ret, nil
}

// ListForOrder renvoie l'historique de retours d'une commande du périmètre.
func (e *Engine) ListForOrder(ctx context.Context, identity models.Identity, orderID gocql.UUID) ([]models.ReturnRequest, error) {
	order, err := e.store.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !identity.CanAccessOrder(order) {
		return nil, &NotFoundError{Entity: "commande"}
	}
	return e.store.ListReturnsByOrder(ctx, orderID)
}

// OrderEligibility calcule, pour l'affichage, l'éligibilité de chaque ligne.
func (e *Engine) OrderEligibility(ctx context.Context, identity models.Identity, orderID gocql.UUID) (map[string]Eligibility, error) {
	order, err := e.store.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !identity.CanAccessOrder(order) {
		return nil, &NotFoundError{Entity: "commande"}
	}
	now := e.now()
	out := make(map[string]Eligibility, len(order.Items))
	for i := range order.Items {
		out[order.Items[i].ItemID.String()] = ItemEligibility(&order.Items[i], now)
	}
	return out, nil
}

// SubmitAppeal crée l'unique appel d'un retour refusé. Préconditions :
// parent DENIED, pas d'appel existant, fenêtre d'appel ouverte, au moins
// une pièce jointe acceptée.
func (e *Engine) SubmitAppeal(ctx context.Context, identity models.Identity, returnID gocql.UUID, reason, description string, evidence []models.MediaAttachment) (*models.Appeal, error) {
	ret, err := e.store.GetReturn(ctx, returnID)
	if err != nil {
		return nil, err
	}
	if !identity.CanAccessReturn(ret) {
		return nil, &NotFoundError{Entity: "retour"}
	}
	if ret.Status != models.ReturnStatusDenied {
		return nil, &StateError{Op: "appel", From: ret.Status}
	}
	if ret.AppealID != nil {
		return nil, &ConflictError{Msg: "un appel existe déjà pour ce retour"}
	}
	if ret.DecidedAt == nil || e.now().After(ret.DecidedAt.AddDate(0, 0, e.appealWindowDays)) {
		return nil, &StateError{Op: "appel (fenêtre expirée)", From: ret.Status}
	}
	if len(evidence) == 0 {
		return nil, NewValidationError("au moins une pièce jointe est requise pour faire appel")
	}
	if len(reason) > MaxReasonLength || len(description) > MaxReasonLength {
		return nil, NewValidationError(fmt.Sprintf("motif ou description trop long (max %d caractères)", MaxReasonLength))
	}

	appeal := &models.Appeal{
		ID:          gocql.UUID(uuid.New()),
		ReturnID:    returnID,
		Reason:      reason,
		Description: description,
		Evidence:    evidence,
		Status:      models.AppealStatusPending,
		SubmittedAt: e.now(),
	}
	created, err := e.store.CreateAppeal(ctx, appeal)
	if err != nil {
		return nil, err
	}
	if !created {
		// La contrainte d'unicité a joué : un appel concurrent a gagné.
		return nil, &ConflictError{Msg: "un appel existe déjà pour ce retour"}
	}

	log.Printf("📨 Appel %s créé pour le retour %s", appeal.ID, returnID)
	return appeal, nil
}

// DecideAppeal tranche un appel PENDING. Les deux issues sont terminales.
func (e *Engine) DecideAppeal(ctx context.Context, appealID gocql.UUID, outcome, notes string) (*models.Appeal, error) {
	if outcome != models.AppealStatusApproved && outcome != models.AppealStatusDenied {
		return nil, NewValidationError("décision invalide (APPROVED ou DENIED)")
	}
	appeal, err := e.store.GetAppeal(ctx, appealID)
	if err != nil {
		return nil, err
	}
	if appeal.Status != models.AppealStatusPending {
		return nil, &StateError{Op: "décision d'appel", From: appeal.Status}
	}

	decidedAt := e.now()
	ok, err := e.store.TransitionAppeal(ctx, appealID, models.AppealStatusPending, outcome, notes, decidedAt)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, &ConflictError{Msg: "cet appel a déjà été traité"}
	}

	appeal.Status = outcome
	appeal.DecidedAt = &decidedAt
	appeal.DecisionNotes = notes
	log.Printf("⚖️ Appel %s → %s", appealID, outcome)
	return appeal, nil
}

// GetAppealForReturn renvoie l'appel d'un retour du périmètre, s'il existe.
func (e *Engine) GetAppealForReturn(ctx context.Context, identity models.Identity, returnID gocql.UUID) (*models.Appeal, error) {
	ret, err := e.store.GetReturn(ctx, returnID)
	if err != nil {
		return nil, err
	}
	if !identity.CanAccessReturn(ret) {
		return nil, &NotFoundError{Entity: "retour"}
	}
	return e.store.GetAppealByReturn(ctx, returnID)
}

// SetClock remplace l'horloge (tests uniquement).
func (e *Engine) SetClock(now func() time.Time) { e.now = now }

// Store expose le port de persistance aux handlers opérateur (listes).
func (e *Engine) Store() Store { return e.store }
