package billing

import (
	"bytes"
	"context"
	"html/template"
	"io"
	"strings"

	"github.com/cockroachdb/errors"
	"gopkg.in/gomail.v2"

	"github.com/jhoicas/facturacion-sri/internal/domain"
	"github.com/jhoicas/facturacion-sri/internal/domain/entity"
	"github.com/jhoicas/facturacion-sri/pkg/logger"
	pkgsri "github.com/jhoicas/facturacion-sri/pkg/sri"
)

// NotificationPayload agrupa el XML autorizado y el RIDE para su entrega al comprador.
// MIME es el mensaje completo (.eml); el envío lo hace un colaborador externo.
type NotificationPayload struct {
	To        string
	Subject   string
	AccessKey string
	XML       []byte
	PDF       []byte
	MIME      []byte
}

// Notifier entrega la notificación de un comprobante autorizado.
type Notifier interface {
	Notify(ctx context.Context, payload *NotificationPayload) error
}

// LogNotifier registra la notificación sin enviarla; la entrega queda en manos del
// integrador que consume GET /api/documents/:id/notification. Es el único Notifier del
// servicio: no hay transporte SMTP ni cola.
type LogNotifier struct {
	Log *logger.Logger
}

func (n LogNotifier) Notify(_ context.Context, p *NotificationPayload) error {
	n.Log.Info().Str("access_key", p.AccessKey).Str("to", p.To).
		Int("bytes", len(p.MIME)).Msg("notificación lista para entrega")
	return nil
}

var notificationBody = template.Must(template.New("body").Parse(`<p>Estimado(a) {{.Buyer}},</p>
<p>{{.Issuer}} le informa que se ha emitido su comprobante electrónico.</p>
<table>
<tr><td>Tipo</td><td>{{.DocType}}</td></tr>
<tr><td>Número</td><td>{{.Number}}</td></tr>
<tr><td>Clave de acceso</td><td>{{.AccessKey}}</td></tr>
<tr><td>Autorización</td><td>{{.Authorization}}</td></tr>
<tr><td>Fecha de autorización</td><td>{{.AuthorizedAt}}</td></tr>
<tr><td>Valor total</td><td>{{.Total}}</td></tr>
</table>
<p>Se adjuntan el comprobante en formato XML y su representación impresa (RIDE).</p>`))

// BuildNotification arma el mensaje MIME de un comprobante AUTHORIZED con RIDE.
func BuildNotification(doc *entity.Document, company *entity.Company) (*NotificationPayload, error) {
	const op = "billing.BuildNotification"

	if doc == nil || company == nil {
		return nil, domain.InvalidInput(op, "documento y emisor requeridos")
	}
	if doc.Status != entity.StatusAuthorized || doc.AuthorizedAt == nil {
		return nil, domain.InvalidInput(op, "el comprobante %s no está autorizado", doc.ID)
	}
	var missing []string
	if strings.TrimSpace(doc.Payload.Buyer.Email) == "" {
		missing = append(missing, "email del comprador")
	}
	if len(doc.AuthorizedXML) == 0 {
		missing = append(missing, "XML autorizado")
	}
	if len(doc.ReceiptPDF) == 0 {
		missing = append(missing, "RIDE")
	}
	if len(missing) > 0 {
		return nil, domain.DataIncomplete(op, missing...)
	}

	issuer := company.TradeName
	if issuer == "" {
		issuer = company.LegalName
	}
	var body bytes.Buffer
	err := notificationBody.Execute(&body, map[string]string{
		"Buyer":         doc.Payload.Buyer.Name,
		"Issuer":        issuer,
		"DocType":       pkgsri.DocTypeNames[doc.DocType],
		"Number":        doc.Number(),
		"AccessKey":     doc.AccessKey,
		"Authorization": doc.AuthorizationNumber,
		"AuthorizedAt":  doc.AuthorizedAt.In(pkgsri.Location).Format("02/01/2006 15:04:05"),
		"Total":         doc.Payload.Totals.GrandTotal.StringFixed(2),
	})
	if err != nil {
		return nil, errors.Wrap(err, "plantilla de notificación")
	}

	to := doc.Payload.Buyer.Email
	subject := "Comprobante electrónico " + doc.Number()

	m := gomail.NewMessage(gomail.SetCharset("UTF-8"))
	if company.Email != "" {
		m.SetAddressHeader("From", company.Email, issuer)
	}
	m.SetAddressHeader("To", to, doc.Payload.Buyer.Name)
	m.SetHeader("Subject", subject)
	m.SetDateHeader("Date", *doc.AuthorizedAt)
	m.SetBody("text/html", body.String())
	attach(m, doc.AccessKey+".xml", "application/xml", doc.AuthorizedXML)
	attach(m, doc.AccessKey+".pdf", "application/pdf", doc.ReceiptPDF)

	var mime bytes.Buffer
	if _, err := m.WriteTo(&mime); err != nil {
		return nil, errors.Wrap(err, "serializar MIME")
	}
	return &NotificationPayload{
		To:        to,
		Subject:   subject,
		AccessKey: doc.AccessKey,
		XML:       doc.AuthorizedXML,
		PDF:       doc.ReceiptPDF,
		MIME:      mime.Bytes(),
	}, nil
}

func attach(m *gomail.Message, name, contentType string, data []byte) {
	m.Attach(name,
		gomail.SetHeader(map[string][]string{"Content-Type": {contentType + `; name="` + name + `"`}}),
		gomail.SetCopyFunc(func(w io.Writer) error {
			_, err := w.Write(data)
			return err
		}),
	)
}
