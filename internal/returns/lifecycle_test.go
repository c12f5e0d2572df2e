package returns

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/gocql/gocql"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lumera_back_end/internal/models"
)

type fixedLedger struct{ rate float64 }

func (f fixedLedger) PointValue(context.Context) (float64, error) { return f.rate, nil }

var testNow = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

// newTestOrder construit une commande livrée il y a 5 jours, payée moitié
// espèces moitié points, avec deux lignes retournables.
func newTestOrder() *models.Order {
	delivered := testNow.AddDate(0, 0, -5)
	return &models.Order{
		ID:          gocql.UUID(uuid.New()),
		OrderNumber: "CMD-2001",
		CustomerID:  "cust-42",
		TotalPrice:  100,
		CashPaid:    50,
		PointsUsed:  5000,
		Status:      "DELIVERED",
		Items: []models.OrderItem{
			{ItemID: gocql.UUID(uuid.New()), Name: "Lampe", Quantity: 1, UnitPrice: 60, LineTotal: 60, DeliveredAt: &delivered, MaxReturnDays: 30},
			{ItemID: gocql.UUID(uuid.New()), Name: "Vase", Quantity: 2, UnitPrice: 20, LineTotal: 40, DeliveredAt: &delivered, MaxReturnDays: 30},
		},
	}
}

func newTestEngine(t *testing.T, order *models.Order) (*Engine, *MemoryStore) {
	t.Helper()
	store := NewMemoryStore()
	store.PutOrder(order)
	engine := NewEngine(store, fixedLedger{rate: 0.01}, 7)
	engine.SetClock(func() time.Time { return testNow })
	return engine, store
}

func customerIdentity() models.Identity {
	return models.Identity{Kind: models.IdentityCustomer, CustomerID: "cust-42"}
}

func trackingIdentity(order *models.Order) models.Identity {
	return models.Identity{
		Kind:        models.IdentityTrackingGuest,
		OrderID:     order.ID,
		OrderNumber: order.OrderNumber,
	}
}

func evidence() []models.MediaAttachment {
	return []models.MediaAttachment{
		{URL: "https://minio.local/returns/p.jpg", Category: "image", SizeBytes: 1 << 20, OriginalFilename: "p.jpg"},
	}
}

func submitLamp(t *testing.T, engine *Engine, order *models.Order) *models.ReturnRequest {
	t.Helper()
	ret, err := engine.Submit(context.Background(), customerIdentity(), SubmitInput{
		OrderID: order.ID,
		Reason:  "Abîmée à la réception",
		Items: []models.ReturnItem{
			{OrderItemID: order.Items[0].ItemID, ReturnQuantity: 1, Reason: "cassée"},
		},
		Evidence: evidence(),
	})
	require.NoError(t, err)
	return ret
}

func TestSubmitCreatesPendingReturn(t *testing.T) {
	order := newTestOrder()
	engine, store := newTestEngine(t, order)

	ret := submitLamp(t, engine, order)

	assert.Equal(t, models.ReturnStatusPending, ret.Status)
	assert.Equal(t, order.ID, ret.OrderID)
	assert.Equal(t, "cust-42", ret.CustomerID)
	assert.Equal(t, testNow, ret.SubmittedAt)
	require.Len(t, ret.Items, 1)
	assert.Equal(t, order.Items[0].ItemID, ret.Items[0].OrderItemID)

	// Projection : 60€ sur 100€ → 0,6 de chaque composante.
	require.NotNil(t, ret.ExpectedRefund)
	assert.InDelta(t, 30.0, ret.ExpectedRefund.MonetaryRefund, 0.001)
	assert.Equal(t, int64(3000), ret.ExpectedRefund.PointsRefund)
	assert.Equal(t, "mixed", ret.ExpectedRefund.PaymentMethod)
	assert.False(t, ret.ExpectedRefund.IsFullReturn)

	persisted, err := store.GetReturn(context.Background(), ret.ID)
	require.NoError(t, err)
	assert.Equal(t, ret.Items, persisted.Items)
}

func TestSubmitCollectsAllItemErrors(t *testing.T) {
	order := newTestOrder()
	engine, _ := newTestEngine(t, order)

	_, err := engine.Submit(context.Background(), customerIdentity(), SubmitInput{
		OrderID: order.ID,
		Items: []models.ReturnItem{
			{OrderItemID: gocql.UUID(uuid.New()), ReturnQuantity: 1}, // hors commande
			{OrderItemID: order.Items[1].ItemID, ReturnQuantity: 5},  // quantité > 2
		},
		Evidence: evidence(),
	})

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	// Les erreurs sont cumulées : le client corrige tout d'un coup.
	assert.Len(t, verr.Reasons, 2)
}

func TestSubmitRejectsExpiredWindow(t *testing.T) {
	order := newTestOrder()
	expired := testNow.AddDate(0, 0, -30)
	order.Items[0].DeliveredAt = &expired
	engine, _ := newTestEngine(t, order)

	_, err := engine.Submit(context.Background(), customerIdentity(), SubmitInput{
		OrderID:  order.ID,
		Items:    []models.ReturnItem{{OrderItemID: order.Items[0].ItemID, ReturnQuantity: 1}},
		Evidence: evidence(),
	})

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Reasons[0], "expirée")
}

func TestSubmitRequiresEvidence(t *testing.T) {
	order := newTestOrder()
	engine, _ := newTestEngine(t, order)

	_, err := engine.Submit(context.Background(), customerIdentity(), SubmitInput{
		OrderID: order.ID,
		Items:   []models.ReturnItem{{OrderItemID: order.Items[0].ItemID, ReturnQuantity: 1}},
	})

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
}

func TestSubmitOutOfScopeOrderIsNotFound(t *testing.T) {
	order := newTestOrder()
	engine, _ := newTestEngine(t, order)
	stranger := models.Identity{Kind: models.IdentityCustomer, CustomerID: "cust-99"}

	_, err := engine.Submit(context.Background(), stranger, SubmitInput{
		OrderID:  order.ID,
		Items:    []models.ReturnItem{{OrderItemID: order.Items[0].ItemID, ReturnQuantity: 1}},
		Evidence: evidence(),
	})

	// Hors périmètre → introuvable, jamais « interdit ».
	var nfe *NotFoundError
	require.ErrorAs(t, err, &nfe)
}

func TestSubmitConflictOnOverlappingItems(t *testing.T) {
	order := newTestOrder()
	engine, _ := newTestEngine(t, order)
	submitLamp(t, engine, order)

	// Même article, retour toujours ouvert → conflit nommant l'article.
	_, err := engine.Submit(context.Background(), customerIdentity(), SubmitInput{
		OrderID:  order.ID,
		Items:    []models.ReturnItem{{OrderItemID: order.Items[0].ItemID, ReturnQuantity: 1}},
		Evidence: evidence(),
	})
	var cerr *ConflictError
	require.ErrorAs(t, err, &cerr)
	assert.Contains(t, cerr.Msg, "Lampe")

	// Sélection disjointe → accepté.
	ret2, err := engine.Submit(context.Background(), customerIdentity(), SubmitInput{
		OrderID:  order.ID,
		Items:    []models.ReturnItem{{OrderItemID: order.Items[1].ItemID, ReturnQuantity: 2}},
		Evidence: evidence(),
	})
	require.NoError(t, err)
	assert.Equal(t, models.ReturnStatusPending, ret2.Status)
}

func TestCancelReleasesItems(t *testing.T) {
	order := newTestOrder()
	engine, _ := newTestEngine(t, order)
	ret := submitLamp(t, engine, order)

	cancelled, err := engine.Cancel(context.Background(), customerIdentity(), ret.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ReturnStatusCancelled, cancelled.Status)

	// L'article redevient retournable.
	_, err = engine.Submit(context.Background(), customerIdentity(), SubmitInput{
		OrderID:  order.ID,
		Items:    []models.ReturnItem{{OrderItemID: order.Items[0].ItemID, ReturnQuantity: 1}},
		Evidence: evidence(),
	})
	require.NoError(t, err)
}

func TestDecideDeniedReleasesItems(t *testing.T) {
	order := newTestOrder()
	engine, _ := newTestEngine(t, order)
	ret := submitLamp(t, engine, order)

	denied, err := engine.Decide(context.Background(), ret.ID, models.ReturnStatusDenied, "preuves insuffisantes")
	require.NoError(t, err)
	assert.Equal(t, models.ReturnStatusDenied, denied.Status)
	require.NotNil(t, denied.DecidedAt)

	_, err = engine.Submit(context.Background(), customerIdentity(), SubmitInput{
		OrderID:  order.ID,
		Items:    []models.ReturnItem{{OrderItemID: order.Items[0].ItemID, ReturnQuantity: 1}},
		Evidence: evidence(),
	})
	require.NoError(t, err)
}

func TestApprovedFlowKeepsItemsClaimed(t *testing.T) {
	order := newTestOrder()
	engine, _ := newTestEngine(t, order)
	ret := submitLamp(t, engine, order)

	_, err := engine.Decide(context.Background(), ret.ID, models.ReturnStatusApproved, "")
	require.NoError(t, err)

	_, err = engine.Advance(context.Background(), ret.ID, models.ReturnStatusProcessing, nil)
	require.NoError(t, err)

	realized := &models.RealizedRefund{Method: "card", Amount: 30, Points: 3000, Reference: "re_123", ProcessedAt: testNow}
	completed, err := engine.Advance(context.Background(), ret.ID, models.ReturnStatusCompleted, realized)
	require.NoError(t, err)
	assert.Equal(t, models.ReturnStatusCompleted, completed.Status)
	require.NotNil(t, completed.RealizedRefund)
	assert.Equal(t, "re_123", completed.RealizedRefund.Reference)

	// L'article est parti : la réservation reste posée après complétion.
	_, err = engine.Submit(context.Background(), customerIdentity(), SubmitInput{
		OrderID:  order.ID,
		Items:    []models.ReturnItem{{OrderItemID: order.Items[0].ItemID, ReturnQuantity: 1}},
		Evidence: evidence(),
	})
	var cerr *ConflictError
	require.ErrorAs(t, err, &cerr)
}

func TestDecideRejectsNonPending(t *testing.T) {
	order := newTestOrder()
	engine, _ := newTestEngine(t, order)
	ret := submitLamp(t, engine, order)

	_, err := engine.Decide(context.Background(), ret.ID, models.ReturnStatusApproved, "")
	require.NoError(t, err)

	_, err = engine.Decide(context.Background(), ret.ID, models.ReturnStatusDenied, "")
	var serr *StateError
	require.ErrorAs(t, err, &serr)
	assert.Equal(t, models.ReturnStatusApproved, serr.From)
}

func TestDecideRejectsUnknownOutcome(t *testing.T) {
	order := newTestOrder()
	engine, _ := newTestEngine(t, order)
	ret := submitLamp(t, engine, order)

	_, err := engine.Decide(context.Background(), ret.ID, "MAYBE", "")
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
}

func TestConcurrentDecideSingleWinner(t *testing.T) {
	order := newTestOrder()
	engine, _ := newTestEngine(t, order)
	ret := submitLamp(t, engine, order)

	const deciders = 8
	var wg sync.WaitGroup
	results := make(chan error, deciders)
	for i := 0; i < deciders; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := engine.Decide(context.Background(), ret.ID, models.ReturnStatusApproved, "")
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	wins := 0
	for err := range results {
		if err == nil {
			wins++
			continue
		}
		var cerr *ConflictError
		var serr *StateError
		assert.True(t, errors.As(err, &cerr) || errors.As(err, &serr), "erreur inattendue: %v", err)
	}
	assert.Equal(t, 1, wins)
}

func TestAdvanceRequiresRealizedRefund(t *testing.T) {
	order := newTestOrder()
	engine, _ := newTestEngine(t, order)
	ret := submitLamp(t, engine, order)

	_, err := engine.Decide(context.Background(), ret.ID, models.ReturnStatusApproved, "")
	require.NoError(t, err)
	_, err = engine.Advance(context.Background(), ret.ID, models.ReturnStatusProcessing, nil)
	require.NoError(t, err)

	_, err = engine.Advance(context.Background(), ret.ID, models.ReturnStatusCompleted, nil)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
}

func TestAdvanceRejectsSkippingProcessing(t *testing.T) {
	order := newTestOrder()
	engine, _ := newTestEngine(t, order)
	ret := submitLamp(t, engine, order)

	_, err := engine.Decide(context.Background(), ret.ID, models.ReturnStatusApproved, "")
	require.NoError(t, err)

	realized := &models.RealizedRefund{Method: "card", Amount: 30, ProcessedAt: testNow}
	_, err = engine.Advance(context.Background(), ret.ID, models.ReturnStatusCompleted, realized)
	var serr *StateError
	require.ErrorAs(t, err, &serr)
}

func TestUpdateItemsRecomputesSnapshot(t *testing.T) {
	order := newTestOrder()
	engine, _ := newTestEngine(t, order)
	ret := submitLamp(t, engine, order)

	updated, err := engine.UpdateItems(context.Background(), customerIdentity(), ret.ID, []models.ReturnItem{
		{OrderItemID: order.Items[1].ItemID, ReturnQuantity: 1},
	})
	require.NoError(t, err)

	// 20€ sur 100€ → 0,2 de chaque composante.
	require.NotNil(t, updated.ExpectedRefund)
	assert.InDelta(t, 10.0, updated.ExpectedRefund.MonetaryRefund, 0.001)
	assert.Equal(t, int64(1000), updated.ExpectedRefund.PointsRefund)

	// La lampe est relâchée, le vase est réservé.
	_, err = engine.Submit(context.Background(), customerIdentity(), SubmitInput{
		OrderID:  order.ID,
		Items:    []models.ReturnItem{{OrderItemID: order.Items[0].ItemID, ReturnQuantity: 1}},
		Evidence: evidence(),
	})
	require.NoError(t, err)
}

func TestUpdateItemsKeepsClaimsOnConflict(t *testing.T) {
	order := newTestOrder()
	engine, _ := newTestEngine(t, order)
	retLamp := submitLamp(t, engine, order)

	_, err := engine.Submit(context.Background(), customerIdentity(), SubmitInput{
		OrderID:  order.ID,
		Items:    []models.ReturnItem{{OrderItemID: order.Items[1].ItemID, ReturnQuantity: 2}},
		Evidence: evidence(),
	})
	require.NoError(t, err)

	// Le vase appartient à l'autre retour : conflit, et la lampe doit
	// rester réservée au retour d'origine.
	_, err = engine.UpdateItems(context.Background(), customerIdentity(), retLamp.ID, []models.ReturnItem{
		{OrderItemID: order.Items[1].ItemID, ReturnQuantity: 1},
	})
	var cerr *ConflictError
	require.ErrorAs(t, err, &cerr)

	_, err = engine.Submit(context.Background(), customerIdentity(), SubmitInput{
		OrderID:  order.ID,
		Items:    []models.ReturnItem{{OrderItemID: order.Items[0].ItemID, ReturnQuantity: 1}},
		Evidence: evidence(),
	})
	require.ErrorAs(t, err, &cerr)
}

// releaseHookStore intercepte ReleaseItems pour simuler une soumission
// concurrente au moment exact où des réservations sont relâchées.
type releaseHookStore struct {
	Store
	onRelease func(orderID gocql.UUID, itemIDs []gocql.UUID)
}

func (s *releaseHookStore) ReleaseItems(ctx context.Context, orderID gocql.UUID, itemIDs []gocql.UUID) error {
	if s.onRelease != nil {
		s.onRelease(orderID, itemIDs)
	}
	return s.Store.ReleaseItems(ctx, orderID, itemIDs)
}

// La modification de sélection réserve les nouvelles lignes AVANT de
// relâcher les anciennes : une soumission qui s'intercale au moment du
// relâchement ne peut pas voler un article que l'édition conserve ou
// vient de prendre.
func TestUpdateItemsClaimsBeforeRelease(t *testing.T) {
	order := newTestOrder()
	store := NewMemoryStore()
	store.PutOrder(order)
	hooked := &releaseHookStore{Store: store}
	engine := NewEngine(hooked, fixedLedger{rate: 0.01}, 7)
	engine.SetClock(func() time.Time { return testNow })

	ret := submitLamp(t, engine, order)

	var interleaved error
	hookFired := false
	hooked.onRelease = func(gocql.UUID, []gocql.UUID) {
		hookFired = true
		// Soumission concurrente sur le vase, que l'édition vient de réserver.
		_, interleaved = engine.Submit(context.Background(), customerIdentity(), SubmitInput{
			OrderID:  order.ID,
			Items:    []models.ReturnItem{{OrderItemID: order.Items[1].ItemID, ReturnQuantity: 1}},
			Evidence: evidence(),
		})
	}

	// Lampe → vase : le vase doit être réservé avant que la lampe soit rendue.
	updated, err := engine.UpdateItems(context.Background(), customerIdentity(), ret.ID, []models.ReturnItem{
		{OrderItemID: order.Items[1].ItemID, ReturnQuantity: 2},
	})
	require.NoError(t, err)
	require.Len(t, updated.Items, 1)

	require.True(t, hookFired)
	var cerr *ConflictError
	require.ErrorAs(t, interleaved, &cerr)

	// Après l'édition, la lampe rendue est de nouveau retournable.
	hooked.onRelease = nil
	_, err = engine.Submit(context.Background(), customerIdentity(), SubmitInput{
		OrderID:  order.ID,
		Items:    []models.ReturnItem{{OrderItemID: order.Items[0].ItemID, ReturnQuantity: 1}},
		Evidence: evidence(),
	})
	require.NoError(t, err)
}

// Une édition qui conserve un article ne relâche jamais sa réservation,
// même transitoirement.
func TestUpdateItemsNeverReleasesKeptItems(t *testing.T) {
	order := newTestOrder()
	store := NewMemoryStore()
	store.PutOrder(order)
	hooked := &releaseHookStore{Store: store}
	engine := NewEngine(hooked, fixedLedger{rate: 0.01}, 7)
	engine.SetClock(func() time.Time { return testNow })

	ret := submitLamp(t, engine, order)

	var released [][]gocql.UUID
	hooked.onRelease = func(_ gocql.UUID, itemIDs []gocql.UUID) {
		released = append(released, itemIDs)
	}

	// Même article, motif différent : rien à réserver, rien à relâcher.
	_, err := engine.UpdateItems(context.Background(), customerIdentity(), ret.ID, []models.ReturnItem{
		{OrderItemID: order.Items[0].ItemID, ReturnQuantity: 1, Reason: "rayée, pas cassée"},
	})
	require.NoError(t, err)
	assert.Empty(t, released)

	// La lampe reste couverte par le retour ouvert.
	_, err = engine.Submit(context.Background(), customerIdentity(), SubmitInput{
		OrderID:  order.ID,
		Items:    []models.ReturnItem{{OrderItemID: order.Items[0].ItemID, ReturnQuantity: 1}},
		Evidence: evidence(),
	})
	var cerr *ConflictError
	require.ErrorAs(t, err, &cerr)
}

// --- Appels ---

func deniedReturn(t *testing.T, engine *Engine, order *models.Order) *models.ReturnRequest {
	t.Helper()
	ret := submitLamp(t, engine, order)
	denied, err := engine.Decide(context.Background(), ret.ID, models.ReturnStatusDenied, "preuves insuffisantes")
	require.NoError(t, err)
	return denied
}

func TestSubmitAppealHappyPath(t *testing.T) {
	order := newTestOrder()
	engine, _ := newTestEngine(t, order)
	ret := deniedReturn(t, engine, order)

	appeal, err := engine.SubmitAppeal(context.Background(), customerIdentity(), ret.ID,
		"Nouvelles photos", "L'angle précédent ne montrait pas la fissure", evidence())
	require.NoError(t, err)
	assert.Equal(t, models.AppealStatusPending, appeal.Status)
	assert.Equal(t, ret.ID, appeal.ReturnID)

	got, err := engine.GetAppealForReturn(context.Background(), customerIdentity(), ret.ID)
	require.NoError(t, err)
	assert.Equal(t, appeal.ID, got.ID)
}

func TestSubmitAppealRequiresDeniedParent(t *testing.T) {
	order := newTestOrder()
	engine, _ := newTestEngine(t, order)
	ret := submitLamp(t, engine, order)

	_, err := engine.SubmitAppeal(context.Background(), customerIdentity(), ret.ID, "r", "", evidence())
	var serr *StateError
	require.ErrorAs(t, err, &serr)
	assert.Equal(t, models.ReturnStatusPending, serr.From)
}

func TestSubmitAppealRequiresEvidence(t *testing.T) {
	order := newTestOrder()
	engine, _ := newTestEngine(t, order)
	ret := deniedReturn(t, engine, order)

	_, err := engine.SubmitAppeal(context.Background(), customerIdentity(), ret.ID, "r", "", nil)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
}

func TestSubmitAppealSinglePerReturn(t *testing.T) {
	order := newTestOrder()
	engine, _ := newTestEngine(t, order)
	ret := deniedReturn(t, engine, order)

	_, err := engine.SubmitAppeal(context.Background(), customerIdentity(), ret.ID, "premier", "", evidence())
	require.NoError(t, err)

	_, err = engine.SubmitAppeal(context.Background(), customerIdentity(), ret.ID, "second", "", evidence())
	var cerr *ConflictError
	require.ErrorAs(t, err, &cerr)
}

func TestSubmitAppealWindowExpired(t *testing.T) {
	order := newTestOrder()
	engine, _ := newTestEngine(t, order)
	ret := deniedReturn(t, engine, order)

	// 8 jours après la décision, fenêtre de 7 jours : trop tard.
	engine.SetClock(func() time.Time { return testNow.AddDate(0, 0, 8) })

	_, err := engine.SubmitAppeal(context.Background(), customerIdentity(), ret.ID, "r", "", evidence())
	var serr *StateError
	require.ErrorAs(t, err, &serr)
}

func TestDecideAppealTerminal(t *testing.T) {
	order := newTestOrder()
	engine, _ := newTestEngine(t, order)
	ret := deniedReturn(t, engine, order)

	appeal, err := engine.SubmitAppeal(context.Background(), customerIdentity(), ret.ID, "r", "", evidence())
	require.NoError(t, err)

	decided, err := engine.DecideAppeal(context.Background(), appeal.ID, models.AppealStatusApproved, "photos convaincantes")
	require.NoError(t, err)
	assert.Equal(t, models.AppealStatusApproved, decided.Status)
	require.NotNil(t, decided.DecidedAt)

	// Les deux issues sont terminales : pas de seconde décision.
	_, err = engine.DecideAppeal(context.Background(), appeal.ID, models.AppealStatusDenied, "")
	var serr *StateError
	require.ErrorAs(t, err, &serr)
}

// Scénario complet côté invité de suivi : soumission, refus, appel, décision.
func TestTrackingGuestLifecycle(t *testing.T) {
	order := newTestOrder()
	order.CustomerID = "" // commande invitée
	order.TrackingToken = "trk-abc"
	engine, _ := newTestEngine(t, order)
	guest := trackingIdentity(order)

	ret, err := engine.Submit(context.Background(), guest, SubmitInput{
		OrderID:      order.ID,
		Reason:       "Couleur différente de la photo",
		ContactEmail: "guest@example.com",
		Items: []models.ReturnItem{
			{OrderItemID: order.Items[1].ItemID, ReturnQuantity: 2},
		},
		Evidence: evidence(),
	})
	require.NoError(t, err)
	assert.Empty(t, ret.CustomerID)
	assert.Equal(t, "guest@example.com", ret.ContactEmail)

	// L'invité voit son retour, un autre invité non.
	_, err = engine.Get(context.Background(), guest, ret.ID)
	require.NoError(t, err)
	otherGuest := models.Identity{Kind: models.IdentityTrackingGuest, OrderID: gocql.UUID(uuid.New()), OrderNumber: "CMD-0000"}
	_, err = engine.Get(context.Background(), otherGuest, ret.ID)
	var nfe *NotFoundError
	require.ErrorAs(t, err, &nfe)

	_, err = engine.Decide(context.Background(), ret.ID, models.ReturnStatusDenied, "usure normale")
	require.NoError(t, err)

	appeal, err := engine.SubmitAppeal(context.Background(), guest, ret.ID,
		"Défaut de fabrication", "La couture lâche des deux côtés", evidence())
	require.NoError(t, err)

	decided, err := engine.DecideAppeal(context.Background(), appeal.ID, models.AppealStatusDenied, "")
	require.NoError(t, err)
	assert.Equal(t, models.AppealStatusDenied, decided.Status)

	// Un seul appel, même après refus de l'appel.
	_, err = engine.SubmitAppeal(context.Background(), guest, ret.ID, "encore", "", evidence())
	var cerr *ConflictError
	require.ErrorAs(t, err, &cerr)
}
