// Package maildrop is the mail hand-off capability used by the
// notification protocol. Hand-off is fire and forget: once Compose returns
// nil the message is considered delivered to the mail system, and nothing
// upstream will try to take it back.
package maildrop

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrHandoffFailed indicates the message could not be handed to the mail
// system. The notification protocol treats this as a hard stop.
var ErrHandoffFailed = errors.New("mail hand-off failed")

// Message is a composed supervisor notification.
type Message struct {
	To            string
	ProductName   string
	PhaseName     string
	TaskNames     []string
	NextPhaseName string // empty for the terminal phase
	SentAt        time.Time
}

// Subject renders the message subject line.
func (m Message) Subject() string {
	return fmt.Sprintf("Fase %q completada - %s", m.PhaseName, m.ProductName)
}

// Body renders the plain-text message body.
func (m Message) Body() string {
	var b strings.Builder

	fmt.Fprintf(&b, "Producto: %s\n", m.ProductName)
	fmt.Fprintf(&b, "Fase completada: %s\n", m.PhaseName)

	next := m.NextPhaseName
	if next == "" {
		next = "ninguna"
	}

	fmt.Fprintf(&b, "Siguiente fase: %s\n", next)
	fmt.Fprintf(&b, "Fecha: %s\n", m.SentAt.Format(time.RFC3339))
	b.WriteString("Tareas completadas:\n")

	for _, name := range m.TaskNames {
		fmt.Fprintf(&b, "  - %s\n", name)
	}

	return b.String()
}

// Composer hands a message to the mail system.
type Composer interface {
	Compose(ctx context.Context, msg Message) error
}

// IsHandoffFailed checks whether an error is a mail hand-off failure.
func IsHandoffFailed(err error) bool {
	return errors.Is(err, ErrHandoffFailed)
}
