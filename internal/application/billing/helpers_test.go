package billing

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/facturacion-sri/internal/domain/entity"
	"github.com/jhoicas/facturacion-sri/internal/infrastructure/memory"
	"github.com/jhoicas/facturacion-sri/internal/infrastructure/metrics"
	infrasri "github.com/jhoicas/facturacion-sri/internal/infrastructure/sri"
	"github.com/jhoicas/facturacion-sri/internal/infrastructure/sri/signer"
	pkgsri "github.com/jhoicas/facturacion-sri/pkg/sri"
)

var fixedNow = time.Date(2026, 2, 22, 15, 0, 0, 0, pkgsri.Location)

func amount(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func testCompany() *entity.Company {
	return &entity.Company{
		ID:                   "empresa-1",
		RUC:                  "1791234567001",
		LegalName:            "Comercial Andina S.A.",
		TradeName:            "Andina",
		HeadOfficeAddress:    "Av. Amazonas N24-03 y Colón, Quito",
		EstablishmentAddress: "Av. Amazonas N24-03 y Colón, Quito",
		Establishment:        "001",
		EmissionPoint:        "001",
		Environment:          pkgsri.EnvironmentTest,
		EmissionType:         pkgsri.EmissionNormal,
		AccountingRequired:   true,
		Email:                "facturacion@andina.ec",
	}
}

// testSale: 10.00 × 2 al 12 % + 5.00 × 1 al 0 %, efectivo 27.40.
func testSale() *entity.Sale {
	return &entity.Sale{
		ID:        "venta-1",
		IssueDate: fixedNow,
		Buyer: entity.Buyer{
			IDType: pkgsri.IDTypeFinalConsumer,
			ID:     pkgsri.FinalConsumerID,
			Name:   "CONSUMIDOR FINAL",
			Email:  "cliente@example.com",
		},
		Items: []entity.LineItem{
			{Code: "P001", Description: "Filtro de aceite", Quantity: amount("2"), UnitPrice: amount("10.00"), TaxRateCode: pkgsri.IVA12},
			{Code: "P002", Description: "Manual impreso", Quantity: amount("1"), UnitPrice: amount("5.00"), TaxRateCode: pkgsri.IVA0},
		},
		Payments: []entity.Payment{{Method: pkgsri.PaymentCash, Total: amount("27.40")}},
		Totals: entity.Totals{
			SubtotalNoTax: amount("25.00"),
			TotalDiscount: decimal.Zero,
			TotalTax:      amount("2.40"),
			GrandTotal:    amount("27.40"),
		},
	}
}

// pendingInvoice es un documento PENDING de la venta de referencia, sin secuencial.
func pendingInvoice() *entity.Document {
	sale := testSale()
	return &entity.Document{
		ID:            "doc-1",
		CompanyID:     "empresa-1",
		SaleID:        sale.ID,
		DocType:       pkgsri.DocFactura,
		Environment:   pkgsri.EnvironmentTest,
		EmissionType:  pkgsri.EmissionNormal,
		Establishment: "001",
		EmissionPoint: "001",
		IssueDate:     sale.IssueDate,
		Status:        entity.StatusPending,
		Payload: entity.DocumentPayload{
			Buyer:    sale.Buyer,
			Items:    sale.Items,
			Payments: sale.Payments,
			Totals:   sale.Totals,
		},
		CreatedAt: fixedNow,
		UpdatedAt: fixedNow,
	}
}

func testCertificate(t *testing.T) tls.Certificate {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	now := time.Now()
	tmpl := &x509.Certificate{
		SerialNumber: big.NewInt(20260222),
		Subject:      pkix.Name{CommonName: "EMISOR PRUEBAS", Organization: []string{"Comercial Andina"}},
		NotBefore:    now.AddDate(-1, 0, 0),
		NotAfter:     now.AddDate(1, 0, 0),
		KeyUsage:     x509.KeyUsageDigitalSignature | x509.KeyUsageContentCommitment,
	}
	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &key.PublicKey, key)
	require.NoError(t, err)
	leaf, err := x509.ParseCertificate(der)
	require.NoError(t, err)
	return tls.Certificate{Certificate: [][]byte{der}, PrivateKey: key, Leaf: leaf}
}

// ── Fakes ─────────────────────────────────────────────────────────────────────

type countingBuilder struct {
	inner DocumentBuilder
	calls int
	err   error
}

func (b *countingBuilder) BuildDocument(doc *entity.Document, company *entity.Company) ([]byte, error) {
	b.calls++
	if b.err != nil {
		return nil, b.err
	}
	return b.inner.BuildDocument(doc, company)
}

type stubValidator struct {
	inner SchemaValidator
	calls int
	err   error
}

func (v *stubValidator) Validate(xml []byte) error {
	v.calls++
	if v.err != nil {
		return v.err
	}
	return v.inner.Validate(xml)
}

type countingSigner struct {
	inner Signer
	calls int
}

func (s *countingSigner) Sign(xml []byte, cert tls.Certificate) ([]byte, error) {
	s.calls++
	return s.inner.Sign(xml, cert)
}

type stubCertificates struct {
	cert   tls.Certificate
	err    error
	before func() // se ejecuta antes de devolver el certificado
}

func (c *stubCertificates) Certificate(context.Context, *entity.Company) (tls.Certificate, error) {
	if c.before != nil {
		c.before()
	}
	return c.cert, c.err
}

type fakeAuthority struct {
	mu          sync.Mutex
	submitCalls int
	awaitCalls  int
	submitRes   *entity.SubmissionResult
	submitErr   error
	awaitRes    *entity.AuthorizationResult
	awaitErr    error
	awaitCtxErr error // ctx.Err() observado en AwaitAuthorization
	submitDelay time.Duration
}

func newFakeAuthority() *fakeAuthority {
	return &fakeAuthority{
		submitRes: &entity.SubmissionResult{Status: entity.ReceptionReceived},
		awaitRes: &entity.AuthorizationResult{
			Status:       entity.AuthorizationAuthorized,
			AuthorizedAt: fixedNow.Add(time.Minute),
			Environment:  "PRUEBAS",
		},
	}
}

func (a *fakeAuthority) Submit(context.Context, []byte) (*entity.SubmissionResult, error) {
	if a.submitDelay > 0 {
		time.Sleep(a.submitDelay)
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.submitCalls++
	if a.submitErr != nil {
		return nil, a.submitErr
	}
	return a.submitRes, nil
}

func (a *fakeAuthority) QueryAuthorization(ctx context.Context, key string) (*entity.AuthorizationResult, error) {
	return a.AwaitAuthorization(ctx, key)
}

func (a *fakeAuthority) AwaitAuthorization(ctx context.Context, key string) (*entity.AuthorizationResult, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.awaitCalls++
	a.awaitCtxErr = ctx.Err()
	if a.awaitErr != nil {
		return nil, a.awaitErr
	}
	res := *a.awaitRes
	if res.Status == entity.AuthorizationAuthorized && res.Number == "" {
		res.Number = key
	}
	return &res, nil
}

type stubRenderer struct {
	calls int
	err   error
}

func (r *stubRenderer) Render(_ context.Context, doc *entity.Document, _ *entity.Company) ([]byte, error) {
	r.calls++
	if r.err != nil {
		return nil, r.err
	}
	return []byte("%PDF-1.4 RIDE " + doc.AccessKey), nil
}

type recordingNotifier struct {
	mu       sync.Mutex
	payloads []*NotificationPayload
}

func (n *recordingNotifier) Notify(_ context.Context, p *NotificationPayload) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.payloads = append(n.payloads, p)
	return nil
}

// recordingDocuments guarda una copia de cada Update y puede fallar al persistir un estado.
type recordingDocuments struct {
	*memory.DocumentStore
	mu      sync.Mutex
	updates []entity.Document
	failOn  entity.Status
}

func (r *recordingDocuments) Update(ctx context.Context, d *entity.Document) error {
	r.mu.Lock()
	r.updates = append(r.updates, *d)
	r.mu.Unlock()
	if r.failOn != "" && d.Status == r.failOn {
		return errors.New("conexión perdida")
	}
	return r.DocumentStore.Update(ctx, d)
}

func (r *recordingDocuments) withStatus(st entity.Status) []entity.Document {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []entity.Document
	for _, d := range r.updates {
		if d.Status == st {
			out = append(out, d)
		}
	}
	return out
}

// ── Harness ───────────────────────────────────────────────────────────────────

type harness struct {
	docs      *memory.DocumentStore
	seqs      *memory.SequenceStore
	company   *entity.Company
	builder   *countingBuilder
	validator *stubValidator
	signer    *countingSigner
	certs     *stubCertificates
	authority *fakeAuthority
	renderer  *stubRenderer
	notifier  *recordingNotifier
	orch      *Orchestrator
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		docs:      memory.NewDocumentStore(),
		seqs:      memory.NewSequenceStore(),
		company:   testCompany(),
		builder:   &countingBuilder{inner: infrasri.NewXMLBuilderService()},
		validator: &stubValidator{inner: infrasri.NewSchemaValidator()},
		signer:    &countingSigner{inner: signer.NewDigitalSignatureService()},
		certs:     &stubCertificates{cert: testCertificate(t)},
		authority: newFakeAuthority(),
		renderer:  &stubRenderer{},
		notifier:  &recordingNotifier{},
	}
	h.orch = NewOrchestrator(Deps{
		Documents:    h.docs,
		Companies:    memory.NewCompanyStore(h.company),
		Tx:           &memory.TxRunner{Documents: h.docs, Sequences: h.seqs},
		Builder:      h.builder,
		Validator:    h.validator,
		Signer:       h.signer,
		Certificates: h.certs,
		Authority:    h.authority,
		Renderer:     h.renderer,
		Notifier:     h.notifier,
		Metrics:      metrics.NewWith(prometheus.NewRegistry()),
	}, OrchestratorConfig{
		PollMaxDuration: 5 * time.Second,
		RedriveBackoff:  2 * time.Minute,
	}).WithClock(func() time.Time { return fixedNow })
	return h
}

// recordUpdates intercepta los Update del orquestador; el Tx de generación sigue
// escribiendo directo en el store.
func (h *harness) recordUpdates() *recordingDocuments {
	rec := &recordingDocuments{DocumentStore: h.docs}
	h.orch.deps.Documents = rec
	return rec
}

// seed guarda el documento y devuelve su ID.
func (h *harness) seed(t *testing.T, doc *entity.Document) string {
	t.Helper()
	require.NoError(t, h.docs.Create(context.Background(), doc))
	return doc.ID
}

func (h *harness) stored(t *testing.T, id string) *entity.Document {
	t.Helper()
	doc, err := h.docs.GetByID(context.Background(), id)
	require.NoError(t, err)
	return doc
}
