package models

import (
	"time"

	"github.com/gocql/gocql"
)

// Statuts d'un appel. Les deux décisions sont terminales : un seul appel
// par retour, pas d'escalade au-delà.
const (
	AppealStatusPending  = "PENDING"
	AppealStatusApproved = "APPROVED"
	AppealStatusDenied   = "DENIED"
)

// Appeal est l'unique recours possible contre un retour refusé.
type Appeal struct {
	ID            gocql.UUID        `json:"id" db:"appeal_id"`
	ReturnID      gocql.UUID        `json:"return_id" db:"return_id"`
	Reason        string            `json:"reason" db:"reason"`
	Description   string            `json:"description" db:"description"`
	Evidence      []MediaAttachment `json:"evidence"` // au moins une pièce exigée
	Status        string            `json:"status" db:"status"`
	SubmittedAt   time.Time         `json:"submitted_at" db:"submitted_at"`
	DecidedAt     *time.Time        `json:"decided_at,omitempty" db:"decided_at"`
	DecisionNotes string            `json:"decision_notes,omitempty" db:"decision_notes"`
}
