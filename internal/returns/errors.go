package returns

import (
	"fmt"
	"strings"
)

// Erreurs typées du moteur de retours. Les handlers les mappent vers les
// codes HTTP ; rien n'est ré-essayé automatiquement.

// ValidationError : l'appelant peut corriger sa saisie (sélection
// d'articles, quantités, pièces jointes).
type ValidationError struct {
	Reasons []string
}

func (e *ValidationError) Error() string {
	if len(e.Reasons) == 0 {
		return "données invalides"
	}
	return strings.Join(e.Reasons, " ; ")
}

func NewValidationError(reasons ...string) *ValidationError {
	return &ValidationError{Reasons: reasons}
}

// AuthorizationError : identité non résoluble ou hors périmètre. Présentée
// de façon générique, sans révéler l'existence de la cible.
type AuthorizationError struct {
	Msg string
}

func (e *AuthorizationError) Error() string {
	if e.Msg == "" {
		return "accès refusé"
	}
	return e.Msg
}

// ConflictError : doublon (retour ouvert sur un article, second appel) ou
// course perdue sur une décision.
type ConflictError struct {
	Msg string
}

func (e *ConflictError) Error() string { return e.Msg }

// StateError : transition illégale de la machine à états.
type StateError struct {
	Op   string
	From string
}

func (e *StateError) Error() string {
	return fmt.Sprintf("opération %s impossible depuis le statut %s", e.Op, e.From)
}

// NotFoundError : la cible n'existe pas, ou est hors du périmètre de
// l'identité résolue (on préfère 404 à 403 pour ne rien divulguer).
type NotFoundError struct {
	Entity string
}

func (e *NotFoundError) Error() string { return e.Entity + " introuvable" }
