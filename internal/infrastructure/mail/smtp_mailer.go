// Package mail entrega documentos por SMTP usando gomail.
package mail

import (
	"context"
	"errors"
	"fmt"
	"html"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gopkg.in/gomail.v2"

	"github.com/jhoicas/Facturas-api/internal/application/billing"
	"github.com/jhoicas/Facturas-api/internal/domain"
	"github.com/jhoicas/Facturas-api/pkg/config"
)

// DialFunc abre una conexión autenticada con el servidor SMTP.
type DialFunc func() (gomail.SendCloser, error)

var _ billing.Mailer = (*SMTPMailer)(nil)

// errNotConfigured se retorna cuando no hay SMTP_HOST/SMTP_USER.
var errNotConfigured = errors.New("SMTP no configurado")

// SMTPMailer implementa billing.Mailer. Cada envío abre su propia conexión:
// si el servidor no responde al dial, el envío falla con domain.ErrDelivery.
type SMTPMailer struct {
	from     string
	fromName string
	dial     DialFunc
	log      zerolog.Logger
	now      func() time.Time
}

// NewSMTPMailer construye el mailer a partir de la configuración. Sin servidor
// configurado el mailer queda deshabilitado y todo envío retorna domain.ErrDelivery.
func NewSMTPMailer(cfg config.SMTPConfig, log zerolog.Logger) *SMTPMailer {
	var dial DialFunc
	if cfg.Enabled() {
		d := gomail.NewDialer(cfg.Host, cfg.Port, cfg.User, cfg.Password)
		dial = d.Dial
	} else {
		dial = func() (gomail.SendCloser, error) { return nil, errNotConfigured }
	}
	return NewMailer(cfg.User, cfg.FromName, dial, log)
}

// NewMailer construye el mailer con un dial explícito.
func NewMailer(from, fromName string, dial DialFunc, log zerolog.Logger) *SMTPMailer {
	return &SMTPMailer{
		from:     from,
		fromName: fromName,
		dial:     dial,
		log:      log.With().Str("component", "mail").Logger(),
		now:      time.Now,
	}
}

// Verify abre y cierra una conexión para comprobar que el servidor es alcanzable.
func (m *SMTPMailer) Verify(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s, err := m.dial()
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrDelivery, err)
	}
	return s.Close()
}

// Deliver envía el documento adjunto con cuerpo de texto y alternativa HTML.
func (m *SMTPMailer) Deliver(ctx context.Context, d billing.Delivery) (*billing.Receipt, error) {
	if strings.TrimSpace(d.To) == "" {
		return nil, fmt.Errorf("%w: destinatario vacío", domain.ErrDelivery)
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrDelivery, err)
	}

	messageID := m.messageID()
	msg := m.buildMessage(d, messageID)

	s, err := m.dial()
	if err != nil {
		return nil, fmt.Errorf("%w: conectar SMTP: %v", domain.ErrDelivery, err)
	}
	defer func() { _ = s.Close() }()

	if err := gomail.Send(s, msg); err != nil {
		return nil, fmt.Errorf("%w: enviar a %s: %v", domain.ErrDelivery, d.To, err)
	}
	m.log.Debug().Str("to", d.To).Str("message_id", messageID).Msg("mensaje aceptado por el servidor SMTP")
	return &billing.Receipt{MessageID: messageID, To: d.To, SentAt: m.now()}, nil
}

func (m *SMTPMailer) buildMessage(d billing.Delivery, messageID string) *gomail.Message {
	msg := gomail.NewMessage()
	msg.SetAddressHeader("From", m.from, m.fromName)
	msg.SetHeader("To", d.To)
	msg.SetHeader("Subject", d.Subject)
	msg.SetHeader("Message-ID", messageID)
	msg.SetDateHeader("Date", m.now())

	msg.SetBody("text/plain", d.Text)
	msg.AddAlternative("text/html", htmlBody(d))

	if len(d.Document) > 0 {
		doc := d.Document
		msg.Attach(d.DocumentName,
			gomail.SetCopyFunc(func(w io.Writer) error {
				_, err := w.Write(doc)
				return err
			}),
			gomail.SetHeader(map[string][]string{"Content-Type": {"application/pdf"}}),
		)
	}
	return msg
}

func (m *SMTPMailer) messageID() string {
	domainPart := "localhost"
	if _, host, ok := strings.Cut(m.from, "@"); ok && host != "" {
		domainPart = host
	}
	return "<" + uuid.New().String() + "@" + domainPart + ">"
}

func htmlBody(d billing.Delivery) string {
	var b strings.Builder
	b.WriteString("<html><body>")
	b.WriteString("<h2>" + html.EscapeString(d.Subject) + "</h2>")
	for _, line := range strings.Split(d.Text, "\n") {
		b.WriteString("<p>" + html.EscapeString(line) + "</p>")
	}
	if d.DocumentName != "" {
		b.WriteString("<p><small>Adjunto: " + html.EscapeString(d.DocumentName) + "</small></p>")
	}
	b.WriteString("</body></html>")
	return b.String()
}
