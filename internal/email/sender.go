package email

import (
	"context"
	"errors"
)

// Sender define la interfaz para envio de correos transaccionales.
// Un error nil significa que el proveedor acepto el mensaje.
type Sender interface {
	Send(ctx context.Context, to, subject, html string) error
}

type disabledSender struct {
	reason string
}

func NewDisabledSender(reason string) Sender {
	return &disabledSender{reason: reason}
}

func (s *disabledSender) Send(_ context.Context, _, _, _ string) error {
	if s.reason == "" {
		return errors.New("email sender disabled")
	}
	return errors.New(s.reason)
}
