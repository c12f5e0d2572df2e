package models

import "github.com/gocql/gocql"

// IdentityKind est un variant fermé : toute requête entre par exactement
// une de ces trois formes, jamais par un chemin anonyme.
type IdentityKind string

const (
	IdentityCustomer      IdentityKind = "customer"       // client authentifié (JWT)
	IdentityPickupGuest   IdentityKind = "pickup_guest"   // invité porteur d'un token de retrait
	IdentityTrackingGuest IdentityKind = "tracking_guest" // invité porteur d'un token de suivi + numéro de commande
)

// Identity est le résultat de la résolution d'accès. CustomerID n'est
// renseigné que pour un client authentifié ; OrderID/OrderNumber ne le
// sont que pour un invité (le token ne couvre qu'une seule commande).
type Identity struct {
	Kind        IdentityKind `json:"kind"`
	CustomerID  string       `json:"customer_id,omitempty"`
	OrderID     gocql.UUID   `json:"order_id,omitempty"`
	OrderNumber string       `json:"order_number,omitempty"`
}

// CanAccessOrder vérifie que l'identité résolue couvre bien la commande
// visée. Le switch est exhaustif : une forme inconnue ne passe jamais.
func (id Identity) CanAccessOrder(o *Order) bool {
	if o == nil {
		return false
	}
	switch id.Kind {
	case IdentityCustomer:
		return o.CustomerID != "" && o.CustomerID == id.CustomerID
	case IdentityPickupGuest:
		return o.ID == id.OrderID
	case IdentityTrackingGuest:
		return o.ID == id.OrderID && o.OrderNumber == id.OrderNumber
	}
	return false
}

// CanAccessReturn applique la même règle de périmètre à un retour existant.
func (id Identity) CanAccessReturn(ret *ReturnRequest) bool {
	if ret == nil {
		return false
	}
	switch id.Kind {
	case IdentityCustomer:
		return ret.CustomerID != "" && ret.CustomerID == id.CustomerID
	case IdentityPickupGuest:
		return ret.OrderID == id.OrderID
	case IdentityTrackingGuest:
		return ret.OrderID == id.OrderID && ret.OrderNumber == id.OrderNumber
	}
	return false
}
