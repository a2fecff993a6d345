package maildrop

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"
)

// SMTPComposer delivers notifications through a plain SMTP relay.
type SMTPComposer struct {
	addr string // host:port
	from string
}

// NewSMTPComposer creates a composer for the given relay address and sender.
func NewSMTPComposer(addr, from string) *SMTPComposer {
	return &SMTPComposer{addr: addr, from: from}
}

func (c *SMTPComposer) Compose(_ context.Context, msg Message) error {
	var b strings.Builder

	fmt.Fprintf(&b, "From: %s\r\n", c.from)
	fmt.Fprintf(&b, "To: %s\r\n", msg.To)
	fmt.Fprintf(&b, "Subject: %s\r\n", msg.Subject())
	b.WriteString("Content-Type: text/plain; charset=utf-8\r\n")
	b.WriteString("\r\n")
	b.WriteString(msg.Body())

	err := smtp.SendMail(c.addr, nil, c.from, []string{msg.To}, []byte(b.String()))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrHandoffFailed, err)
	}

	return nil
}
