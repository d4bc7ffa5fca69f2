package sri

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/xml"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/beevik/etree"
	"github.com/cockroachdb/errors"
	"github.com/samber/lo"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/jhoicas/facturacion-sri/internal/domain"
	"github.com/jhoicas/facturacion-sri/internal/domain/entity"
	domainsri "github.com/jhoicas/facturacion-sri/internal/domain/sri"
	"github.com/jhoicas/facturacion-sri/internal/infrastructure/metrics"
	"github.com/jhoicas/facturacion-sri/pkg/config"
	"github.com/jhoicas/facturacion-sri/pkg/logger"
	"github.com/jhoicas/facturacion-sri/pkg/retry"
	pkgsri "github.com/jhoicas/facturacion-sri/pkg/sri"
)

// ── Constantes SOAP ────────────────────────────────────────────────────────────

const (
	soapNS          = "http://schemas.xmlsoap.org/soap/envelope/"
	nsRecepcion     = "http://ec.gob.sri.ws.recepcion"
	nsAutorizacion  = "http://ec.gob.sri.ws.autorizacion"
	opReception     = "recepcion"
	opAuthorization = "autorizacion"

	maxResponseBytes = 4 << 20 // el comprobante autorizado viaja dentro de la respuesta
	tracerName       = "github.com/jhoicas/facturacion-sri/internal/infrastructure/sri"
)

// errPending indica que el SRI aún no tiene una disposición final para la clave.
var errPending = errors.New("autorización pendiente en el SRI")

// ── Cliente ────────────────────────────────────────────────────────────────────

// SOAPClient consume RecepcionComprobantes y AutorizacionComprobantes del SRI.
// El endpoint se elige por el ambiente del propio comprobante (clave de acceso),
// así un mismo cliente atiende empresas en pruebas y en producción.
type SOAPClient struct {
	httpClient *http.Client
	cfg        config.SRIConfig
	log        *logger.Logger
	metrics    *metrics.Metrics
	tracer     trace.Tracer
}

// NewSOAPClient construye el cliente. El timeout por llamada se aplica con contexto,
// no en http.Client, para que cada intento tenga su propio presupuesto.
func NewSOAPClient(cfg config.SRIConfig, log *logger.Logger, m *metrics.Metrics) *SOAPClient {
	if log == nil {
		log = logger.Nop()
	}
	return &SOAPClient{
		httpClient: &http.Client{},
		cfg:        cfg,
		log:        log.Component("sri-ws"),
		metrics:    m,
		tracer:     otel.Tracer(tracerName),
	}
}

// WithHTTPClient reemplaza el http.Client (tests, proxies corporativos).
func (c *SOAPClient) WithHTTPClient(hc *http.Client) *SOAPClient {
	c.httpClient = hc
	return c
}

// ── Estructuras SOAP ──────────────────────────────────────────────────────────

type soapEnvelope struct {
	XMLName xml.Name   `xml:"soapenv:Envelope"`
	XmlnsS  string     `xml:"xmlns:soapenv,attr"`
	XmlnsEc string     `xml:"xmlns:ec,attr"`
	Header  soapHeader `xml:"soapenv:Header"`
	Body    soapBody   `xml:"soapenv:Body"`
}

type soapHeader struct{}

type soapBody struct {
	Content any
}

type validarComprobanteBody struct {
	XMLName xml.Name `xml:"ec:validarComprobante"`
	XML     string   `xml:"xml"` // comprobante firmado en Base64
}

type autorizacionComprobanteBody struct {
	XMLName     xml.Name `xml:"ec:autorizacionComprobante"`
	ClaveAcceso string   `xml:"claveAccesoComprobante"`
}

// ── Estructuras de respuesta SOAP ─────────────────────────────────────────────

type soapFault struct {
	FaultCode   string `xml:"faultcode"`
	FaultString string `xml:"faultstring"`
}

type faultEnvelope struct {
	Body struct {
		Fault *soapFault `xml:"Fault"`
	} `xml:"Body"`
}

type soapMessage struct {
	Identificador        string `xml:"identificador"`
	Mensaje              string `xml:"mensaje"`
	InformacionAdicional string `xml:"informacionAdicional"`
	Tipo                 string `xml:"tipo"`
}

type receptionEnvelope struct {
	Body struct {
		Response *struct {
			Respuesta struct {
				Estado       string `xml:"estado"`
				Comprobantes []struct {
					ClaveAcceso string        `xml:"claveAcceso"`
					Mensajes    []soapMessage `xml:"mensajes>mensaje"`
				} `xml:"comprobantes>comprobante"`
			} `xml:"RespuestaRecepcionComprobante"`
		} `xml:"validarComprobanteResponse"`
	} `xml:"Body"`
}

type soapAuthorization struct {
	Estado             string        `xml:"estado"`
	NumeroAutorizacion string        `xml:"numeroAutorizacion"`
	FechaAutorizacion  string        `xml:"fechaAutorizacion"`
	Ambiente           string        `xml:"ambiente"`
	Comprobante        string        `xml:"comprobante"`
	Mensajes           []soapMessage `xml:"mensajes>mensaje"`
}

type authorizationEnvelope struct {
	Body struct {
		Response *struct {
			Respuesta struct {
				ClaveAccesoConsultada string              `xml:"claveAccesoConsultada"`
				NumeroComprobantes    string              `xml:"numeroComprobantes"`
				Autorizaciones        []soapAuthorization `xml:"autorizaciones>autorizacion"`
			} `xml:"RespuestaAutorizacionComprobante"`
		} `xml:"autorizacionComprobanteResponse"`
	} `xml:"Body"`
}

// ── Errores de transporte ─────────────────────────────────────────────────────

// transportError marca fallos transitorios: red, timeout, HTTP no 2xx, SOAP Fault o
// cuerpo ilegible. Las respuestas de negocio (DEVUELTA, NO AUTORIZADO) no lo son.
type transportError struct {
	msg string
	err error
}

func (e *transportError) Error() string {
	if e.err == nil {
		return "sri-ws: " + e.msg
	}
	return "sri-ws: " + e.msg + ": " + e.err.Error()
}

func (e *transportError) Unwrap() error { return e.err }

func transport(msg string, err error) error { return &transportError{msg: msg, err: err} }

func isTransport(err error) bool {
	var t *transportError
	return errors.As(err, &t)
}

// ── Recepción ─────────────────────────────────────────────────────────────────

// Submit envía el comprobante firmado a validarComprobante. Reintenta solo fallos de
// transporte; DEVUELTA es una respuesta de negocio y se devuelve sin error.
func (c *SOAPClient) Submit(ctx context.Context, signedXML []byte) (*entity.SubmissionResult, error) {
	env, accessKey, err := identifyVoucher(signedXML)
	if err != nil {
		return nil, err
	}
	payload, err := marshalEnvelope(nsRecepcion, validarComprobanteBody{
		XML: base64.StdEncoding.EncodeToString(signedXML),
	})
	if err != nil {
		return nil, err
	}
	url := c.cfg.ReceptionURL(env)

	var result *entity.SubmissionResult
	policy := c.submitPolicy(accessKey)
	err = retry.Do(ctx, policy, isTransport, func(ctx context.Context, attempt int) error {
		raw, err := c.call(ctx, opReception, url, accessKey, attempt, payload)
		if err != nil {
			return err
		}
		result, err = parseReception(raw)
		return err
	})
	if err != nil {
		return nil, err
	}
	c.log.Info().Str("clave_acceso", accessKey).Str("estado", result.Status).
		Int("mensajes", len(result.Messages)).Msg("respuesta de recepción")
	return result, nil
}

func parseReception(raw []byte) (*entity.SubmissionResult, error) {
	var env receptionEnvelope
	if err := xml.Unmarshal(raw, &env); err != nil {
		return nil, transport("respuesta de recepción ilegible", err)
	}
	if env.Body.Response == nil {
		return nil, transport("respuesta de recepción vacía o inesperada", nil)
	}
	resp := env.Body.Response.Respuesta
	var msgs []entity.AuthorityMessage
	for _, comp := range resp.Comprobantes {
		msgs = append(msgs, toMessages(comp.Mensajes)...)
	}
	status := strings.ToUpper(strings.TrimSpace(resp.Estado))
	switch status {
	case entity.ReceptionReceived:
	case entity.ReceptionReturned:
		if alreadyReceived(msgs) {
			status = entity.ReceptionReceived
		}
	default:
		return nil, transport("estado de recepción desconocido: "+resp.Estado, nil)
	}
	return &entity.SubmissionResult{Status: status, Messages: msgs}, nil
}

// alreadyReceived detecta una DEVUELTA cuyos únicos errores dicen que la clave ya fue
// recibida (43) o está en procesamiento (70): un intento anterior llegó al SRI.
func alreadyReceived(msgs []entity.AuthorityMessage) bool {
	errs := lo.Filter(msgs, func(m entity.AuthorityMessage, _ int) bool {
		return !strings.EqualFold(m.Type, "ADVERTENCIA") && !strings.EqualFold(m.Type, "INFORMATIVO")
	})
	if len(errs) == 0 {
		return false
	}
	return lo.EveryBy(errs, func(m entity.AuthorityMessage) bool {
		return m.Identifier == pkgsri.MsgAccessKeyRegistered || m.Identifier == pkgsri.MsgAccessKeyInProcess
	})
}

// ── Autorización ──────────────────────────────────────────────────────────────

// QueryAuthorization consulta autorizacionComprobante una vez (con reintentos de
// transporte). Un resultado pendiente no es error: ver AuthorizationResult.Pending.
func (c *SOAPClient) QueryAuthorization(ctx context.Context, accessKey string) (*entity.AuthorizationResult, error) {
	parts, err := domainsri.ParseAccessKey(accessKey)
	if err != nil {
		return nil, err
	}
	payload, err := marshalEnvelope(nsAutorizacion, autorizacionComprobanteBody{ClaveAcceso: accessKey})
	if err != nil {
		return nil, err
	}
	url := c.cfg.AuthorizationURL(parts.Environment)

	var result *entity.AuthorizationResult
	policy := c.queryPolicy(accessKey)
	err = retry.Do(ctx, policy, isTransport, func(ctx context.Context, attempt int) error {
		raw, err := c.call(ctx, opAuthorization, url, accessKey, attempt, payload)
		if err != nil {
			return err
		}
		result, err = parseAuthorization(raw)
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// AwaitAuthorization sondea la autorización mientras esté pendiente, acotado por
// PollAttempts, PollDelay y PollMaxDuration. Agotar el sondeo con el comprobante aún
// pendiente devuelve TransportExhausted: el documento queda para re-drive.
func (c *SOAPClient) AwaitAuthorization(ctx context.Context, accessKey string) (*entity.AuthorizationResult, error) {
	const op = "sri.AwaitAuthorization"

	pollCtx := ctx
	if c.cfg.PollMaxDuration > 0 {
		var cancel context.CancelFunc
		pollCtx, cancel = context.WithTimeout(ctx, c.cfg.PollMaxDuration)
		defer cancel()
	}

	var result *entity.AuthorizationResult
	polls := 0
	policy := retry.Fixed(op, c.cfg.PollAttempts, c.cfg.PollDelay)
	policy.OnRetry = func(attempt int, _ error, wait time.Duration) {
		c.log.Debug().Str("clave_acceso", accessKey).Int("consulta", attempt).
			Dur("espera", wait).Msg("autorización en proceso")
	}
	err := retry.Do(pollCtx, policy, func(err error) bool { return errors.Is(err, errPending) },
		func(ctx context.Context, attempt int) error {
			polls = attempt
			res, err := c.QueryAuthorization(ctx, accessKey)
			if err != nil {
				return err
			}
			if res.Pending() {
				return errPending
			}
			result = res
			return nil
		})
	switch {
	case err == nil:
		c.log.Info().Str("clave_acceso", accessKey).Str("estado", result.Status).
			Int("consultas", polls).Msg("disposición de autorización")
		return result, nil
	case ctx.Err() != nil:
		return nil, err
	case pollCtx.Err() != nil:
		return nil, domain.TransportExhausted(op, polls, errors.Wrapf(errPending, "tope de %s alcanzado", c.cfg.PollMaxDuration))
	}
	return nil, err
}

func parseAuthorization(raw []byte) (*entity.AuthorizationResult, error) {
	var env authorizationEnvelope
	if err := xml.Unmarshal(raw, &env); err != nil {
		return nil, transport("respuesta de autorización ilegible", err)
	}
	if env.Body.Response == nil {
		return nil, transport("respuesta de autorización vacía o inesperada", nil)
	}
	resp := env.Body.Response.Respuesta
	if len(resp.Autorizaciones) == 0 || strings.TrimSpace(resp.NumeroComprobantes) == "0" {
		return &entity.AuthorizationResult{Status: entity.AuthorizationInProcess}, nil
	}

	// Con varios intentos previos el SRI devuelve una autorización por envío;
	// cualquier AUTORIZADO prevalece.
	auth, found := lo.Find(resp.Autorizaciones, func(a soapAuthorization) bool {
		return normalizeStatus(a.Estado) == entity.AuthorizationAuthorized
	})
	if !found {
		auth = resp.Autorizaciones[0]
	}
	return &entity.AuthorizationResult{
		Status:       normalizeStatus(auth.Estado),
		Number:       strings.TrimSpace(auth.NumeroAutorizacion),
		AuthorizedAt: parseAuthorizationDate(auth.FechaAutorizacion),
		Environment:  strings.TrimSpace(auth.Ambiente),
		Voucher:      []byte(strings.TrimSpace(auth.Comprobante)),
		Messages:     toMessages(auth.Mensajes),
	}, nil
}

func normalizeStatus(s string) string {
	return strings.Join(strings.Fields(strings.ToUpper(s)), " ")
}

var authorizationDateLayouts = []string{time.RFC3339Nano, "2006-01-02T15:04:05", "02/01/2006 15:04:05"}

// parseAuthorizationDate admite las variantes que ha publicado el SRI; sin zona se
// asume hora de Ecuador. Devuelve el instante cero si ninguna aplica.
func parseAuthorizationDate(s string) time.Time {
	s = strings.TrimSpace(s)
	for _, layout := range authorizationDateLayouts {
		if t, err := time.ParseInLocation(layout, s, pkgsri.Location); err == nil {
			return t
		}
	}
	return time.Time{}
}

func toMessages(in []soapMessage) []entity.AuthorityMessage {
	return lo.Map(in, func(m soapMessage, _ int) entity.AuthorityMessage {
		return entity.AuthorityMessage{
			Identifier:     strings.TrimSpace(m.Identificador),
			Message:        strings.TrimSpace(m.Mensaje),
			AdditionalInfo: strings.TrimSpace(m.InformacionAdicional),
			Type:           strings.TrimSpace(m.Tipo),
		}
	})
}

// ── HTTP ──────────────────────────────────────────────────────────────────────

// submitPolicy y queryPolicy tienen presupuestos independientes: SRI_SUBMIT_* y SRI_QUERY_*.
func (c *SOAPClient) submitPolicy(accessKey string) retry.Policy {
	return c.policy("sri.Submit", accessKey, c.cfg.SubmitAttempts, c.cfg.SubmitDelay)
}

func (c *SOAPClient) queryPolicy(accessKey string) retry.Policy {
	return c.policy("sri.QueryAuthorization", accessKey, c.cfg.QueryAttempts, c.cfg.QueryDelay)
}

func (c *SOAPClient) policy(name, accessKey string, attempts int, delay time.Duration) retry.Policy {
	p := retry.Policy{
		Name:        name,
		MaxAttempts: attempts,
		Delay:       delay,
		Multiplier:  2,
	}
	p.OnRetry = func(attempt int, err error, wait time.Duration) {
		c.log.Warn().Err(err).Str("operacion", name).Str("clave_acceso", accessKey).
			Int("intento", attempt).Int("max_intentos", p.MaxAttempts).Dur("espera", wait).
			Msg("fallo de transporte con el SRI, reintentando")
	}
	return p
}

// call hace un POST SOAP medido y trazado.
func (c *SOAPClient) call(ctx context.Context, operation, url, accessKey string, attempt int, payload []byte) ([]byte, error) {
	ctx, span := c.tracer.Start(ctx, "sri."+operation,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("sri.endpoint", url),
			attribute.String("sri.clave_acceso", accessKey),
			attribute.Int("sri.intento", attempt),
		))
	defer span.End()

	start := time.Now()
	raw, err := c.post(ctx, url, payload)
	c.metrics.ObserveSRICall(operation, time.Since(start), err)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return raw, err
}

func (c *SOAPClient) post(ctx context.Context, url string, payload []byte) ([]byte, error) {
	if c.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.cfg.Timeout)
		defer cancel()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, domain.InvalidInput("sri-ws", "endpoint inválido %q: %v", url, err)
	}
	req.Header.Set("Content-Type", "text/xml; charset=utf-8")
	req.Header.Set("SOAPAction", "")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, transport("llamada HTTP fallida", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, transport("leer respuesta", err)
	}

	// SOAP Fault (error de protocolo o del servicio); suele venir con HTTP 500.
	var fault faultEnvelope
	if xml.Unmarshal(raw, &fault) == nil && fault.Body.Fault != nil {
		return nil, transport("SOAP Fault ["+fault.Body.Fault.FaultCode+"]: "+fault.Body.Fault.FaultString, nil)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, transport("HTTP "+resp.Status, nil)
	}
	return raw, nil
}

func marshalEnvelope(ns string, body any) ([]byte, error) {
	envelope := soapEnvelope{XmlnsS: soapNS, XmlnsEc: ns, Body: soapBody{Content: body}}
	out, err := xml.Marshal(envelope)
	if err != nil {
		return nil, errors.Wrap(err, "soap: serializar envelope")
	}
	return append([]byte(xml.Header), out...), nil
}

// identifyVoucher lee ambiente y clave de acceso de infoTributaria.
func identifyVoucher(signedXML []byte) (env, accessKey string, err error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(signedXML); err != nil {
		return "", "", domain.InvalidInput("sri.Submit", "XML firmado mal formado: %v", err)
	}
	envEl := doc.FindElement("//infoTributaria/ambiente")
	keyEl := doc.FindElement("//infoTributaria/claveAcceso")
	if envEl == nil || keyEl == nil {
		return "", "", domain.InvalidInput("sri.Submit", "el comprobante no declara ambiente ni claveAcceso")
	}
	return strings.TrimSpace(envEl.Text()), strings.TrimSpace(keyEl.Text()), nil
}
