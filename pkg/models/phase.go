// Package models defines the core domain models for product phase progression.
package models

import "slices"

// Phase is one step of the product progression workflow. Phases are created
// and ordered by an external admin flow; this service only reads them.
// Gating always operates on ascending-id order, whatever order the catalog
// endpoint happens to return.
type Phase struct {
	ID   int    `json:"id"`
	Code string `json:"codigo,omitempty"`
	Name string `json:"nombre" validate:"required"`
}

// Task is a checklist item belonging to exactly one phase. Ordering within a
// phase is the order returned by the catalog.
type Task struct {
	ID      int    `json:"id"`
	PhaseID int    `json:"faseId"`
	Name    string `json:"nombre" validate:"required"`
}

// SortPhases orders phases by ascending externally-assigned id, the order
// the gate engine evaluates them in.
func SortPhases(phases []Phase) []Phase {
	sorted := make([]Phase, len(phases))
	copy(sorted, phases)
	slices.SortFunc(sorted, func(a, b Phase) int {
		return a.ID - b.ID
	})

	return sorted
}

// PhaseIndex returns the position of the phase in ascending-id order, or -1
// when the phase is not in the catalog.
func PhaseIndex(phases []Phase, phaseID int) int {
	for i, phase := range phases {
		if phase.ID == phaseID {
			return i
		}
	}

	return -1
}
