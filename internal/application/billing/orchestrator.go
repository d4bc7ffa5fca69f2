package billing

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/jhoicas/facturacion-sri/internal/domain"
	"github.com/jhoicas/facturacion-sri/internal/domain/entity"
	"github.com/jhoicas/facturacion-sri/internal/domain/repository"
	domainsri "github.com/jhoicas/facturacion-sri/internal/domain/sri"
	"github.com/jhoicas/facturacion-sri/internal/infrastructure/metrics"
	"github.com/jhoicas/facturacion-sri/pkg/logger"
)

const tracerName = "github.com/jhoicas/facturacion-sri/internal/application/billing"

// Deps agrupa los colaboradores del orquestador.
type Deps struct {
	Documents    repository.DocumentRepository
	Companies    repository.CompanyRepository
	Tx           repository.TxRunner
	Builder      DocumentBuilder
	Validator    SchemaValidator
	Signer       Signer
	Certificates CertificateSource
	Authority    AuthorityClient
	Renderer     Renderer
	Notifier     Notifier // opcional
	Log          *logger.Logger
	Metrics      *metrics.Metrics
}

// OrchestratorConfig parametriza el orquestador; se construye una vez desde config.Config.
type OrchestratorConfig struct {
	PollMaxDuration time.Duration // tope del sondeo de autorización tras SUBMITTED
	RedriveBackoff  time.Duration // espera hasta el próximo re-drive tras agotar reintentos
}

// Orchestrator recorre la máquina de estados del comprobante:
//
//	PENDING → GENERATED → VALIDATED → SIGNED → SUBMITTED → AUTHORIZED | REJECTED
//
// Los defectos locales (datos, esquema, certificado, firma) terminan en ERROR con su
// diagnóstico. Agotar los reintentos de transporte deja el documento en su último
// estado alcanzado para re-drive. Process persiste tras cada transición y retoma desde
// el estado guardado, sin repetir etapas ya completadas.
type Orchestrator struct {
	deps   Deps
	cfg    OrchestratorConfig
	log    *logger.Logger
	locks  *keyedMutex
	tracer trace.Tracer
	now    func() time.Time
}

// NewOrchestrator construye el orquestador.
func NewOrchestrator(deps Deps, cfg OrchestratorConfig) *Orchestrator {
	log := deps.Log
	if log == nil {
		log = logger.Nop()
	}
	if cfg.RedriveBackoff <= 0 {
		cfg.RedriveBackoff = time.Minute
	}
	return &Orchestrator{
		deps:   deps,
		cfg:    cfg,
		log:    log.Component("orchestrator"),
		locks:  newKeyedMutex(),
		tracer: otel.Tracer(tracerName),
		now:    time.Now,
	}
}

// WithClock reemplaza el reloj (tests).
func (o *Orchestrator) WithClock(now func() time.Time) *Orchestrator {
	o.now = now
	return o
}

// Process avanza el documento hasta un estado terminal o hasta el primer fallo
// transitorio. Devuelve error solo si el documento no pudo avanzar por transporte,
// cancelación o persistencia; ERROR y REJECTED se informan en el propio documento.
func (o *Orchestrator) Process(ctx context.Context, documentID string) (*entity.Document, error) {
	unlock := o.locks.Lock(documentID)
	defer unlock()

	start := time.Now()
	defer func() { o.deps.Metrics.ObserveProcess(time.Since(start)) }()

	ctx, span := o.tracer.Start(ctx, "billing.Process",
		trace.WithAttributes(attribute.String("document_id", documentID)))
	defer span.End()

	doc, err := o.deps.Documents.GetByID(ctx, documentID)
	if err != nil {
		return nil, err
	}
	if doc.Status.IsTerminal() {
		return doc, nil
	}
	company, err := o.deps.Companies.GetByID(ctx, doc.CompanyID)
	if err != nil {
		return doc, errors.Wrapf(err, "emisor %s", doc.CompanyID)
	}

	for !doc.Status.IsTerminal() {
		// Una vez SUBMITTED el SRI ya tiene el comprobante: cancelar no tiene sentido.
		if doc.Status != entity.StatusSubmitted {
			if err := ctx.Err(); err != nil {
				return doc, err
			}
		}
		if err := o.step(ctx, doc, company); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return doc, err
		}
	}
	span.SetAttributes(attribute.String("status", string(doc.Status)))
	return doc, nil
}

func (o *Orchestrator) step(ctx context.Context, doc *entity.Document, company *entity.Company) error {
	ctx, span := o.tracer.Start(ctx, "billing.stage."+string(doc.Status))
	defer span.End()

	switch doc.Status {
	case entity.StatusPending:
		return o.generate(ctx, doc, company)
	case entity.StatusGenerated:
		return o.validate(ctx, doc)
	case entity.StatusValidated:
		return o.sign(ctx, doc, company)
	case entity.StatusSigned:
		return o.submit(ctx, doc)
	case entity.StatusSubmitted:
		return o.authorize(ctx, doc, company)
	}
	return domain.StateTransition(string(doc.Status), "?")
}

// ── PENDING → GENERATED ───────────────────────────────────────────────────────

// generate reserva el secuencial y construye el XML en una misma transacción: si la
// construcción falla el número se devuelve (PostgreSQL) o queda como hueco.
func (o *Orchestrator) generate(ctx context.Context, doc *entity.Document, company *entity.Company) error {
	saved := *doc
	err := o.deps.Tx.InTx(ctx, func(docs repository.DocumentRepository, seqs repository.SequenceRepository) error {
		if doc.Sequence == 0 {
			n, err := NewSequenceController(seqs).Reserve(ctx, doc.SequenceKey())
			if err != nil {
				return err
			}
			doc.Sequence = n
			o.deps.Metrics.IncReservation()
		}
		if doc.NumericCode == "" {
			code, err := domainsri.RandomNumericCode()
			if err != nil {
				return err
			}
			doc.NumericCode = code
		}
		key, err := domainsri.GenerateAccessKey(domainsri.AccessKeyInput{
			IssueDate:     doc.IssueDate,
			DocType:       doc.DocType,
			RUC:           company.RUC,
			Environment:   doc.Environment,
			Establishment: doc.Establishment,
			EmissionPoint: doc.EmissionPoint,
			Sequence:      doc.Sequence,
			NumericCode:   doc.NumericCode,
			EmissionType:  doc.EmissionType,
		})
		if err != nil {
			return err
		}
		doc.AccessKey = key

		xml, err := o.deps.Builder.BuildDocument(doc, company)
		if err != nil {
			return err
		}
		doc.GeneratedXML = xml
		if err := doc.Transition(entity.StatusGenerated, o.now()); err != nil {
			return err
		}
		return docs.Update(ctx, doc)
	})
	if err != nil {
		*doc = saved
		if isLocalDefect(err) {
			return o.fail(ctx, doc, err)
		}
		return err
	}
	o.transitioned(doc, entity.StatusPending)
	return nil
}

// ── GENERATED → VALIDATED ─────────────────────────────────────────────────────

func (o *Orchestrator) validate(ctx context.Context, doc *entity.Document) error {
	if err := o.deps.Validator.Validate(doc.GeneratedXML); err != nil {
		if isLocalDefect(err) {
			return o.fail(ctx, doc, err)
		}
		return err
	}
	return o.advance(ctx, doc, entity.StatusValidated)
}

// ── VALIDATED → SIGNED ────────────────────────────────────────────────────────

func (o *Orchestrator) sign(ctx context.Context, doc *entity.Document, company *entity.Company) error {
	cert, err := o.deps.Certificates.Certificate(ctx, company)
	if err != nil {
		if isLocalDefect(err) {
			return o.fail(ctx, doc, err)
		}
		return err
	}
	signed, err := o.deps.Signer.Sign(doc.GeneratedXML, cert)
	if err != nil {
		if isLocalDefect(err) {
			return o.fail(ctx, doc, err)
		}
		return err
	}
	doc.SignedXML = signed
	return o.advance(ctx, doc, entity.StatusSigned)
}

// ── SIGNED → SUBMITTED ────────────────────────────────────────────────────────

func (o *Orchestrator) submit(ctx context.Context, doc *entity.Document) error {
	doc.Attempts++
	res, err := o.deps.Authority.Submit(ctx, doc.SignedXML)
	if err != nil {
		return o.deferRetry(ctx, doc, err)
	}
	// El SRI ya tiene el comprobante: lo que sigue no se cancela.
	ctx = context.WithoutCancel(ctx)
	doc.AuthorityMessages = res.Messages
	if err := o.advance(ctx, doc, entity.StatusSubmitted); err != nil {
		return err
	}
	if res.Received() {
		return nil
	}
	// DEVUELTA: el SRI recibió el comprobante y lo rechazó en recepción.
	return o.reject(ctx, doc, "sri.Submit", res.Messages)
}

// ── SUBMITTED → AUTHORIZED | REJECTED ─────────────────────────────────────────

func (o *Orchestrator) authorize(ctx context.Context, doc *entity.Document, company *entity.Company) error {
	ctx = context.WithoutCancel(ctx)
	pollCtx := ctx
	if o.cfg.PollMaxDuration > 0 {
		var cancel context.CancelFunc
		pollCtx, cancel = context.WithTimeout(pollCtx, o.cfg.PollMaxDuration)
		defer cancel()
	}

	doc.Attempts++
	res, err := o.deps.Authority.AwaitAuthorization(pollCtx, doc.AccessKey)
	if err != nil {
		return o.deferRetry(ctx, doc, err)
	}
	doc.AuthorityMessages = res.Messages
	if res.Status != entity.AuthorizationAuthorized {
		return o.reject(ctx, doc, "sri.AwaitAuthorization", res.Messages)
	}

	doc.AuthorizationNumber = res.Number
	if doc.AuthorizationNumber == "" {
		doc.AuthorizationNumber = doc.AccessKey
	}
	authorizedAt := res.AuthorizedAt
	if authorizedAt.IsZero() {
		authorizedAt = o.now()
	}
	doc.AuthorizedAt = &authorizedAt
	doc.AuthorizedXML = res.Voucher
	if len(doc.AuthorizedXML) == 0 {
		doc.AuthorizedXML = doc.SignedXML
	}
	if err := o.advance(ctx, doc, entity.StatusAuthorized); err != nil {
		return err
	}
	o.finishAuthorized(ctx, doc, company)
	return nil
}

// finishAuthorized genera el RIDE y entrega la notificación. Sus fallos no revierten
// la autorización: quedan en LastError y el RIDE se puede regenerar bajo demanda.
// Solo escribe el RIDE o su diagnóstico; el resto del documento autorizado no cambia.
func (o *Orchestrator) finishAuthorized(ctx context.Context, doc *entity.Document, company *entity.Company) {
	log := o.docLog(doc)

	pdf, err := o.deps.Renderer.Render(ctx, doc, company)
	if err == nil {
		err = doc.AttachReceipt(pdf, o.now())
	}
	if err != nil {
		log.Error().Err(err).Msg("no se pudo generar el RIDE")
		cause := err
		if domain.KindOf(cause) != domain.KindRender {
			cause = domain.Render("ride.Render", "RIDE no generado", err)
		}
		if rerr := doc.RecordRenderFailure(*o.stageError(doc.Status, cause)); rerr != nil {
			log.Error().Err(rerr).Msg("diagnóstico de RIDE descartado")
			return
		}
	}
	if err := o.deps.Documents.Update(ctx, doc); err != nil {
		log.Error().Err(err).Msg("no se pudo persistir el RIDE")
		return
	}

	if o.deps.Notifier == nil || doc.Payload.Buyer.Email == "" || len(doc.ReceiptPDF) == 0 {
		return
	}
	payload, err := BuildNotification(doc, company)
	if err != nil {
		log.Warn().Err(err).Msg("notificación no generada")
		return
	}
	if err := o.deps.Notifier.Notify(ctx, payload); err != nil {
		log.Warn().Err(err).Msg("notificación no entregada")
	}
}

// ── Transiciones y fallos ─────────────────────────────────────────────────────

// advance aplica la transición y persiste; en error el documento conserva su estado.
func (o *Orchestrator) advance(ctx context.Context, doc *entity.Document, to entity.Status) error {
	from := doc.Status
	saved := *doc
	if err := doc.Transition(to, o.now()); err != nil {
		return err
	}
	// SIGNED y SUBMITTED esperan una llamada remota: si el proceso se corta antes de
	// registrar su resultado, el re-drive los retoma al vencer este plazo.
	if to == entity.StatusSigned || to == entity.StatusSubmitted {
		lease := o.now().Add(o.cfg.RedriveBackoff)
		doc.NextRetryAt = &lease
	}
	if err := o.deps.Documents.Update(ctx, doc); err != nil {
		*doc = saved
		return err
	}
	o.transitioned(doc, from)
	return nil
}

func (o *Orchestrator) transitioned(doc *entity.Document, from entity.Status) {
	o.deps.Metrics.IncTransition(string(from), string(doc.Status))
	o.docLog(doc).Info().Str("from", string(from)).Msg("transición de estado")
}

// fail lleva el documento a ERROR conservando el diagnóstico de la etapa.
func (o *Orchestrator) fail(ctx context.Context, doc *entity.Document, cause error) error {
	stage := doc.Status
	stageErr := o.stageError(stage, cause)
	doc.LastError = stageErr
	if err := o.advance(ctx, doc, entity.StatusError); err != nil {
		doc.LastError = nil
		return errors.CombineErrors(cause, err)
	}
	o.deps.Metrics.IncFailure(doc.LastError.Kind)
	o.docLog(doc).Warn().Str("stage", string(stage)).Str("kind", doc.LastError.Kind).
		Strs("details", doc.LastError.Details).Msg(doc.LastError.Message)
	return nil
}

// reject lleva el documento de SUBMITTED a REJECTED con los mensajes del SRI.
func (o *Orchestrator) reject(ctx context.Context, doc *entity.Document, op string, msgs []entity.AuthorityMessage) error {
	cause := domain.Rejected(op, entity.MessageStrings(msgs))
	stageErr := o.stageError(entity.StatusSubmitted, cause)
	saved := *doc
	if err := doc.Transition(entity.StatusRejected, o.now()); err != nil {
		return err
	}
	// Estado y diagnóstico se persisten juntos: no existe un REJECTED sin LastError.
	doc.LastError = stageErr
	if err := o.deps.Documents.Update(ctx, doc); err != nil {
		*doc = saved
		return err
	}
	o.transitioned(doc, entity.StatusSubmitted)
	o.deps.Metrics.IncFailure(doc.LastError.Kind)
	o.docLog(doc).Warn().Strs("mensajes", doc.LastError.Details).Msg("comprobante rechazado por el SRI")
	return nil
}

// deferRetry conserva el estado actual, adjunta el error y programa el próximo
// re-drive. También ante cancelación o errores no transitorios: un SIGNED o SUBMITTED
// sin NextRetryAt no vuelve a aparecer en el barrido.
func (o *Orchestrator) deferRetry(ctx context.Context, doc *entity.Document, cause error) error {
	next := o.now().Add(o.cfg.RedriveBackoff)
	doc.RecordFailure(*o.stageError(doc.Status, cause), &next)
	// El documento debe quedar registrado aunque el contexto del llamador expire.
	if err := o.deps.Documents.Update(context.WithoutCancel(ctx), doc); err != nil {
		return errors.CombineErrors(cause, err)
	}
	o.deps.Metrics.IncFailure(doc.LastError.Kind)
	o.docLog(doc).Warn().Err(cause).Int("attempt", doc.Attempts).
		Bool("retryable", domain.IsRetryable(cause)).Time("next_retry_at", next).
		Msg("etapa remota sin resultado; queda para re-drive")
	return cause
}

func (o *Orchestrator) stageError(stage entity.Status, err error) *entity.StageError {
	kind := string(domain.KindOf(err))
	if kind == "" {
		kind = "INTERNAL"
	}
	msg := err.Error()
	var de *domain.Error
	if errors.As(err, &de) && de.Message != "" {
		msg = de.Message
	}
	return &entity.StageError{
		Stage:   stage,
		Kind:    kind,
		Message: msg,
		Details: domain.DetailsOf(err),
		At:      o.now(),
	}
}

func (o *Orchestrator) docLog(doc *entity.Document) *logger.Logger {
	return o.log.WithFields(map[string]any{
		"document_id": doc.ID,
		"access_key":  doc.AccessKey,
		"status":      string(doc.Status),
	})
}

// isLocalDefect indica si el error es un defecto local no reintentable que lleva a ERROR.
func isLocalDefect(err error) bool {
	switch domain.KindOf(err) {
	case domain.KindInvalidInput, domain.KindDataIncomplete, domain.KindArithmeticMismatch,
		domain.KindSchemaValidation, domain.KindInvalidCertificate, domain.KindSigning:
		return true
	}
	return false
}
