package billing

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/facturacion-sri/internal/domain"
	"github.com/jhoicas/facturacion-sri/internal/domain/entity"
	domainsri "github.com/jhoicas/facturacion-sri/internal/domain/sri"
	pkgsri "github.com/jhoicas/facturacion-sri/pkg/sri"
)

func TestProcess_CaminoFeliz(t *testing.T) {
	h := newHarness(t)
	id := h.seed(t, pendingInvoice())

	doc, err := h.orch.Process(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, entity.StatusAuthorized, doc.Status)
	assert.Equal(t, int64(1), doc.Sequence)
	require.NoError(t, domainsri.ValidateAccessKey(doc.AccessKey))
	assert.True(t, strings.HasPrefix(doc.AccessKey, "22022026"+pkgsri.DocFactura+"1791234567001"))
	assert.Contains(t, string(doc.GeneratedXML), "<importeTotal>27.40</importeTotal>")
	assert.Contains(t, string(doc.SignedXML), "ds:Signature")
	assert.Equal(t, doc.AccessKey, doc.AuthorizationNumber)
	require.NotNil(t, doc.AuthorizedAt)
	assert.NotEmpty(t, doc.AuthorizedXML)
	assert.NotEmpty(t, doc.ReceiptPDF)
	assert.Nil(t, doc.LastError)

	stored := h.stored(t, id)
	assert.Equal(t, entity.StatusAuthorized, stored.Status, "el estado final debe quedar persistido")
	assert.Equal(t, doc.ReceiptPDF, stored.ReceiptPDF)

	require.Len(t, h.notifier.payloads, 1)
	assert.Equal(t, "cliente@example.com", h.notifier.payloads[0].To)
	assert.Equal(t, "Comprobante electrónico 001-001-000000001", h.notifier.payloads[0].Subject)
	assert.Zero(t, h.orch.locks.size(), "el lock por documento debe liberarse")
}

func TestProcess_SubmitAgotadoQuedaEnSigned(t *testing.T) {
	h := newHarness(t)
	h.authority.submitErr = domain.TransportExhausted("sri.Submit", 3, errors.New("i/o timeout"))
	id := h.seed(t, pendingInvoice())

	doc, err := h.orch.Process(context.Background(), id)
	require.Error(t, err)
	assert.True(t, domain.IsRetryable(err))
	assert.Equal(t, entity.StatusSigned, doc.Status)

	stored := h.stored(t, id)
	assert.Equal(t, entity.StatusSigned, stored.Status)
	require.NotNil(t, stored.LastError)
	assert.Equal(t, string(domain.KindTransportExhausted), stored.LastError.Kind)
	assert.Equal(t, entity.StatusSigned, stored.LastError.Stage)
	require.NotNil(t, stored.NextRetryAt)
	assert.True(t, stored.NextRetryAt.Equal(fixedNow.Add(2*time.Minute)))
	assert.Equal(t, 1, stored.Attempts)
}

func TestProcess_RedriveDesdeSignedOmiteEtapasPrevias(t *testing.T) {
	h := newHarness(t)
	h.authority.submitErr = domain.TransportExhausted("sri.Submit", 3, errors.New("connection refused"))
	id := h.seed(t, pendingInvoice())

	_, err := h.orch.Process(context.Background(), id)
	require.Error(t, err)
	require.Equal(t, 1, h.builder.calls)
	require.Equal(t, 1, h.signer.calls)
	signedBefore := h.stored(t, id).SignedXML

	h.authority.submitErr = nil
	doc, err := h.orch.Process(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, entity.StatusAuthorized, doc.Status)
	assert.Equal(t, 1, h.builder.calls, "el re-drive no debe reconstruir el XML")
	assert.Equal(t, 1, h.validator.calls, "el re-drive no debe revalidar")
	assert.Equal(t, 1, h.signer.calls, "el re-drive no debe volver a firmar")
	assert.Equal(t, 2, h.authority.submitCalls)
	assert.Equal(t, signedBefore, doc.SignedXML)
	assert.Equal(t, int64(1), doc.Sequence)
	assert.Nil(t, doc.NextRetryAt)
}

func TestProcess_ErrorDeEsquemaTerminaEnError(t *testing.T) {
	h := newHarness(t)
	violations := []string{"/factura/infoTributaria/ambiente: valor no permitido"}
	h.validator.err = domain.SchemaValidation("sri.Validate", violations)
	id := h.seed(t, pendingInvoice())

	doc, err := h.orch.Process(context.Background(), id)
	require.NoError(t, err, "un defecto local se informa en el documento")
	assert.Equal(t, entity.StatusError, doc.Status)
	require.NotNil(t, doc.LastError)
	assert.Equal(t, string(domain.KindSchemaValidation), doc.LastError.Kind)
	assert.Equal(t, entity.StatusGenerated, doc.LastError.Stage)
	assert.Equal(t, violations, doc.LastError.Details)
	assert.Zero(t, h.signer.calls)
	assert.Zero(t, h.authority.submitCalls)

	stored := h.stored(t, id)
	assert.Equal(t, entity.StatusError, stored.Status)
	assert.Equal(t, violations, stored.LastError.Details)
}

func TestProcess_CertificadoInvalidoTerminaEnError(t *testing.T) {
	h := newHarness(t)
	h.certs.err = domain.InvalidCertificate("signer.Load", errors.New("contraseña incorrecta"))
	id := h.seed(t, pendingInvoice())

	doc, err := h.orch.Process(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, entity.StatusError, doc.Status)
	assert.Equal(t, string(domain.KindInvalidCertificate), doc.LastError.Kind)
	assert.Equal(t, entity.StatusValidated, doc.LastError.Stage)
}

func TestProcess_FalloDeConstruccionNoConsumeElNumero(t *testing.T) {
	h := newHarness(t)
	doc := pendingInvoice()
	doc.Payload.Payments = nil
	id := h.seed(t, doc)

	got, err := h.orch.Process(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, entity.StatusError, got.Status)
	assert.Equal(t, string(domain.KindDataIncomplete), got.LastError.Kind)
	assert.Contains(t, got.LastError.Details, "pagos")

	stored := h.stored(t, id)
	assert.Zero(t, stored.Sequence, "un documento en ERROR no conserva el secuencial")
	assert.Empty(t, stored.AccessKey)
	assert.Empty(t, stored.GeneratedXML)
}

func TestProcess_DevueltaTerminaEnRejected(t *testing.T) {
	h := newHarness(t)
	msgs := []entity.AuthorityMessage{{Identifier: "35", Message: "ARCHIVO NO CUMPLE ESTRUCTURA XML", Type: "ERROR"}}
	h.authority.submitRes = &entity.SubmissionResult{Status: entity.ReceptionReturned, Messages: msgs}
	id := h.seed(t, pendingInvoice())

	doc, err := h.orch.Process(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, entity.StatusRejected, doc.Status)
	assert.Equal(t, msgs, doc.AuthorityMessages)
	require.NotNil(t, doc.LastError)
	assert.Equal(t, string(domain.KindRejected), doc.LastError.Kind)
	assert.Equal(t, []string{"35 ARCHIVO NO CUMPLE ESTRUCTURA XML"}, doc.LastError.Details)
	assert.Zero(t, h.authority.awaitCalls)
	assert.Empty(t, h.notifier.payloads)
}

func TestProcess_NoAutorizadoTerminaEnRejected(t *testing.T) {
	h := newHarness(t)
	msgs := []entity.AuthorityMessage{{Identifier: "56", Message: "ERROR ESTABLECIMIENTO CERRADO", Type: "ERROR"}}
	h.authority.awaitRes = &entity.AuthorizationResult{Status: entity.AuthorizationNotAuthorized, Messages: msgs}
	id := h.seed(t, pendingInvoice())

	doc, err := h.orch.Process(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, entity.StatusRejected, doc.Status)
	assert.Equal(t, msgs, doc.AuthorityMessages)
	assert.Equal(t, entity.StatusSubmitted, doc.LastError.Stage)
	assert.Nil(t, doc.AuthorizedAt)
	assert.Zero(t, h.renderer.calls)
}

func TestProcess_RechazoSePersisteUnaVezConDiagnostico(t *testing.T) {
	h := newHarness(t)
	rec := h.recordUpdates()
	msgs := []entity.AuthorityMessage{{Identifier: "56", Message: "ERROR ESTABLECIMIENTO CERRADO", Type: "ERROR"}}
	h.authority.awaitRes = &entity.AuthorizationResult{Status: entity.AuthorizationNotAuthorized, Messages: msgs}
	id := h.seed(t, pendingInvoice())

	_, err := h.orch.Process(context.Background(), id)
	require.NoError(t, err)

	rejected := rec.withStatus(entity.StatusRejected)
	require.Len(t, rejected, 1, "REJECTED se persiste en una sola escritura")
	require.NotNil(t, rejected[0].LastError, "nunca se guarda un REJECTED sin diagnóstico")
	assert.Equal(t, string(domain.KindRejected), rejected[0].LastError.Kind)
	assert.Equal(t, msgs, rejected[0].AuthorityMessages)
}

func TestProcess_RechazoNoPersistidoConservaSubmitted(t *testing.T) {
	h := newHarness(t)
	rec := h.recordUpdates()
	rec.failOn = entity.StatusRejected
	h.authority.awaitRes = &entity.AuthorizationResult{
		Status:   entity.AuthorizationNotAuthorized,
		Messages: []entity.AuthorityMessage{{Identifier: "56", Message: "ERROR ESTABLECIMIENTO CERRADO"}},
	}
	id := h.seed(t, pendingInvoice())

	doc, err := h.orch.Process(context.Background(), id)
	require.Error(t, err)
	assert.Equal(t, entity.StatusSubmitted, doc.Status)
	assert.Nil(t, doc.LastError)

	stored := h.stored(t, id)
	assert.Equal(t, entity.StatusSubmitted, stored.Status)
	assert.NotNil(t, stored.NextRetryAt, "queda para que el re-drive vuelva a consultar")
}

func TestProcess_TrasAutorizarSoloSeAdjuntaElRIDE(t *testing.T) {
	h := newHarness(t)
	rec := h.recordUpdates()
	id := h.seed(t, pendingInvoice())

	_, err := h.orch.Process(context.Background(), id)
	require.NoError(t, err)

	authorized := rec.withStatus(entity.StatusAuthorized)
	require.Len(t, authorized, 2, "transición y RIDE")
	first, last := authorized[0], authorized[1]
	assert.Empty(t, first.ReceiptPDF)
	assert.NotEmpty(t, last.ReceiptPDF)
	assert.Equal(t, first.AuthorizedXML, last.AuthorizedXML)
	assert.Equal(t, first.SignedXML, last.SignedXML)
	assert.Equal(t, first.AuthorizationNumber, last.AuthorizationNumber)
	assert.Equal(t, first.AuthorizedAt, last.AuthorizedAt)
	assert.Equal(t, first.AuthorityMessages, last.AuthorityMessages)
	assert.Equal(t, first.Attempts, last.Attempts)
}

func TestProcess_AutorizacionPendienteQuedaEnSubmitted(t *testing.T) {
	h := newHarness(t)
	h.authority.awaitErr = domain.TransportExhausted("sri.AwaitAuthorization", 10, errors.New("EN PROCESO"))
	id := h.seed(t, pendingInvoice())

	doc, err := h.orch.Process(context.Background(), id)
	require.Error(t, err)
	assert.Equal(t, entity.StatusSubmitted, doc.Status)
	stored := h.stored(t, id)
	assert.Equal(t, entity.StatusSubmitted, stored.Status)
	require.NotNil(t, stored.NextRetryAt)

	h.authority.awaitErr = nil
	doc, err = h.orch.Process(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, entity.StatusAuthorized, doc.Status)
	assert.Equal(t, 1, h.authority.submitCalls, "un documento SUBMITTED no se reenvía")
}

func TestProcess_CancelacionAntesDelEnvio(t *testing.T) {
	h := newHarness(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	h.certs.before = cancel
	id := h.seed(t, pendingInvoice())

	doc, err := h.orch.Process(ctx, id)
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, entity.StatusSigned, doc.Status)
	assert.Zero(t, h.authority.submitCalls, "cancelado antes del envío no debe llegar al SRI")
	stored := h.stored(t, id)
	assert.Equal(t, entity.StatusSigned, stored.Status)
	require.NotNil(t, stored.NextRetryAt, "el re-drive debe poder retomarlo")
	assert.True(t, stored.NextRetryAt.Equal(fixedNow.Add(2*time.Minute)))
}

func TestProcess_FalloNoReintentableEnEnvioQuedaProgramado(t *testing.T) {
	cases := map[string]error{
		"cancelado":  errors.Wrap(context.Canceled, "sri.Submit"),
		"inesperado": errors.New("respuesta de recepción sin estado"),
	}
	for name, submitErr := range cases {
		t.Run(name, func(t *testing.T) {
			h := newHarness(t)
			h.authority.submitErr = submitErr
			id := h.seed(t, pendingInvoice())

			_, err := h.orch.Process(context.Background(), id)
			require.Error(t, err)
			assert.False(t, domain.IsRetryable(err))

			stored := h.stored(t, id)
			assert.Equal(t, entity.StatusSigned, stored.Status)
			require.NotNil(t, stored.LastError)
			assert.Equal(t, entity.StatusSigned, stored.LastError.Stage)
			require.NotNil(t, stored.NextRetryAt, "un SIGNED sin NextRetryAt nunca vuelve al re-drive")
			assert.True(t, stored.NextRetryAt.Equal(fixedNow.Add(2*time.Minute)))

			due, err := h.docs.ListDueForRedrive(context.Background(), fixedNow.Add(24*time.Hour), 10)
			require.NoError(t, err)
			require.Len(t, due, 1)
			assert.Equal(t, id, due[0].ID)
		})
	}
}

func TestProcess_SondeoCanceladoQuedaProgramado(t *testing.T) {
	h := newHarness(t)
	h.authority.awaitErr = errors.Wrap(context.Canceled, "sri.AwaitAuthorization")
	id := h.seed(t, pendingInvoice())

	_, err := h.orch.Process(context.Background(), id)
	require.ErrorIs(t, err, context.Canceled)

	stored := h.stored(t, id)
	assert.Equal(t, entity.StatusSubmitted, stored.Status)
	require.NotNil(t, stored.NextRetryAt)
	due, err := h.docs.ListDueForRedrive(context.Background(), fixedNow.Add(24*time.Hour), 10)
	require.NoError(t, err)
	require.Len(t, due, 1)
}

func TestProcess_SubmittedIgnoraLaCancelacion(t *testing.T) {
	h := newHarness(t)
	id := h.seed(t, pendingInvoice())
	h.authority.awaitErr = domain.TransportExhausted("sri.AwaitAuthorization", 1, errors.New("EN PROCESO"))
	_, err := h.orch.Process(context.Background(), id)
	require.Error(t, err)
	require.Equal(t, entity.StatusSubmitted, h.stored(t, id).Status)

	h.authority.awaitErr = nil
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	doc, err := h.orch.Process(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, entity.StatusAuthorized, doc.Status)
	assert.NoError(t, h.authority.awaitCtxErr, "el sondeo usa un contexto desacoplado")
}

func TestProcess_EstadoTerminalNoHaceNada(t *testing.T) {
	h := newHarness(t)
	id := h.seed(t, pendingInvoice())
	_, err := h.orch.Process(context.Background(), id)
	require.NoError(t, err)

	doc, err := h.orch.Process(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, entity.StatusAuthorized, doc.Status)
	assert.Equal(t, 1, h.builder.calls)
	assert.Equal(t, 1, h.authority.submitCalls)
	assert.Equal(t, 1, h.renderer.calls)
}

func TestProcess_LlamadasConcurrentesSeSerializan(t *testing.T) {
	h := newHarness(t)
	h.authority.submitDelay = 20 * time.Millisecond
	id := h.seed(t, pendingInvoice())

	const callers = 8
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			doc, err := h.orch.Process(context.Background(), id)
			assert.NoError(t, err)
			assert.Equal(t, entity.StatusAuthorized, doc.Status)
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, h.authority.submitCalls)
	current, err := h.seqs.Current(context.Background(), h.stored(t, id).SequenceKey())
	require.NoError(t, err)
	assert.Equal(t, int64(1), current, "un solo secuencial reservado")
	assert.Zero(t, h.orch.locks.size())
}

func TestProcess_RIDEFallidoNoRevierteLaAutorizacion(t *testing.T) {
	h := newHarness(t)
	h.renderer.err = domain.Render("pdf.Render", "fuente no disponible", nil)
	id := h.seed(t, pendingInvoice())

	doc, err := h.orch.Process(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, entity.StatusAuthorized, doc.Status)
	require.NotNil(t, doc.LastError)
	assert.Equal(t, string(domain.KindRender), doc.LastError.Kind)
	assert.Equal(t, entity.StatusAuthorized, doc.LastError.Stage)
	assert.Empty(t, h.notifier.payloads)
	assert.Equal(t, string(domain.KindRender), h.stored(t, id).LastError.Kind)
}

func TestProcess_DocumentoInexistente(t *testing.T) {
	h := newHarness(t)
	_, err := h.orch.Process(context.Background(), "no-existe")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestProcess_SecuencialesConsecutivos(t *testing.T) {
	h := newHarness(t)
	for i, id := range []string{"doc-a", "doc-b", "doc-c"} {
		doc := pendingInvoice()
		doc.ID = id
		h.seed(t, doc)
		got, err := h.orch.Process(context.Background(), id)
		require.NoError(t, err)
		assert.Equal(t, int64(i+1), got.Sequence)
	}
}
