package models

// Flag values used by the collaborator backend for its two-state columns.
const (
	FlagYes = "S"
	FlagNo  = "N"
)

// CompletionRecord is the normalized in-memory form of one
// (product, phase, task) progression record. The backend's flag field names
// are not stable; the ledger store boundary detects them per record and maps
// them onto Completed/Validated, so nothing above the ledger ever sees the
// raw 'S'/'N' keys.
//
// Absence of a record is equivalent to Completed=false, Validated=false.
type CompletionRecord struct {
	ID        int  `json:"id,omitempty"` // zero until persisted
	ProductID int  `json:"productoId"`
	PhaseID   int  `json:"faseId"`
	TaskID    int  `json:"tareaFaseId"`
	Completed bool `json:"completada"`
	Validated bool `json:"validadaSupervisor"`
	UserID    int  `json:"usuarioId,omitempty"`
}

// Product is the external entity whose progression this service tracks.
// Only StatusID is ever written, and only through the notification protocol.
type Product struct {
	ID       int    `json:"id"`
	Name     string `json:"nombre"`
	StatusID int    `json:"estadoId"`
}

// ProductStatus is one entry of the external status catalog. The
// notification protocol matches the next phase against these by name/code.
type ProductStatus struct {
	ID   int    `json:"id"`
	Code string `json:"codigo,omitempty"`
	Name string `json:"nombre"`
}

// Role is the current user's role as returned by the role endpoint.
type Role struct {
	ID     int    `json:"id"`
	Name   string `json:"nombre"`
	Active bool   `json:"activo"`
}

// Actor is the result of resolving the current user once at session start.
// Supervisor detection happens during resolution and is never re-derived
// from the role name downstream.
type Actor struct {
	UserID     int    `json:"user_id"`
	RoleID     int    `json:"role_id,omitempty"`
	RoleName   string `json:"role_name,omitempty"`
	RoleActive bool   `json:"role_active"`
	Supervisor bool   `json:"supervisor"`
}
