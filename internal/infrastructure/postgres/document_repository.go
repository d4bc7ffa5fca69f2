package postgres

import (
	"context"
	"encoding/json"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/facturacion-sri/internal/domain"
	"github.com/jhoicas/facturacion-sri/internal/domain/entity"
	"github.com/jhoicas/facturacion-sri/internal/domain/repository"
)

var _ repository.DocumentRepository = (*DocumentRepo)(nil)

// DocumentRepo implementación de DocumentRepository (usable con pool o tx).
// Payload, mensajes del SRI y último error se guardan como JSONB.
type DocumentRepo struct {
	q Querier
}

// NewDocumentRepository construye el adaptador. Pasar pool o tx (Querier).
func NewDocumentRepository(q Querier) *DocumentRepo {
	return &DocumentRepo{q: q}
}

const documentColumns = `
	id, company_id, sale_id, doc_type, environment, emission_type, establishment, emission_point,
	sequence, issue_date, access_key, numeric_code, payload, status,
	generated_xml, signed_xml, authorized_xml, authorization_number, authorized_at,
	authority_messages, last_error, attempts, next_retry_at, receipt_pdf, created_at, updated_at`

// Create persiste un comprobante nuevo (normalmente en PENDING).
func (r *DocumentRepo) Create(ctx context.Context, d *entity.Document) error {
	if d.ID == "" {
		d.ID = uuid.New().String()
	}
	payload, messages, lastErr, err := encodeDocumentJSON(d)
	if err != nil {
		return err
	}
	query := `INSERT INTO sri_documents (` + documentColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17,
		        $18, $19, $20, $21, $22, $23, $24, $25, $26)`
	_, err = r.q.Exec(ctx, query,
		d.ID, d.CompanyID, d.SaleID, d.DocType, d.Environment, d.EmissionType, d.Establishment, d.EmissionPoint,
		d.Sequence, d.IssueDate, nullIfEmpty(d.AccessKey), d.NumericCode, payload, string(d.Status),
		nullBytes(d.GeneratedXML), nullBytes(d.SignedXML), nullBytes(d.AuthorizedXML), d.AuthorizationNumber, d.AuthorizedAt,
		messages, lastErr, d.Attempts, d.NextRetryAt, nullBytes(d.ReceiptPDF), d.CreatedAt, d.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return errors.Wrapf(domain.ErrDuplicate, "comprobante %s", d.Number())
		}
		return errors.Wrap(err, "insert document")
	}
	return nil
}

// Update persiste estado, artefactos, mensajes y último error.
func (r *DocumentRepo) Update(ctx context.Context, d *entity.Document) error {
	payload, messages, lastErr, err := encodeDocumentJSON(d)
	if err != nil {
		return err
	}
	const query = `
		UPDATE sri_documents
		SET sequence             = $2,
		    issue_date           = $3,
		    access_key           = $4,
		    numeric_code         = $5,
		    payload              = $6,
		    status               = $7,
		    generated_xml        = $8,
		    signed_xml           = $9,
		    authorized_xml       = $10,
		    authorization_number = $11,
		    authorized_at        = $12,
		    authority_messages   = $13,
		    last_error           = $14,
		    attempts             = $15,
		    next_retry_at        = $16,
		    receipt_pdf          = $17,
		    updated_at           = $18
		WHERE id = $1`
	cmd, err := r.q.Exec(ctx, query,
		d.ID, d.Sequence, d.IssueDate, nullIfEmpty(d.AccessKey), d.NumericCode, payload, string(d.Status),
		nullBytes(d.GeneratedXML), nullBytes(d.SignedXML), nullBytes(d.AuthorizedXML),
		d.AuthorizationNumber, d.AuthorizedAt, messages, lastErr, d.Attempts, d.NextRetryAt,
		nullBytes(d.ReceiptPDF), d.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return errors.Wrapf(domain.ErrDuplicate, "clave de acceso %s", d.AccessKey)
		}
		return errors.Wrap(err, "update document")
	}
	if cmd.RowsAffected() == 0 {
		return errors.Wrapf(domain.ErrNotFound, "comprobante %s", d.ID)
	}
	return nil
}

// GetByID obtiene un comprobante completo por ID.
func (r *DocumentRepo) GetByID(ctx context.Context, id string) (*entity.Document, error) {
	row := r.q.QueryRow(ctx, `SELECT `+documentColumns+` FROM sri_documents WHERE id = $1`, id)
	d, err := scanDocument(row)
	if err != nil {
		if isNoRows(err) {
			return nil, errors.Wrapf(domain.ErrNotFound, "comprobante %s", id)
		}
		return nil, errors.Wrap(err, "get document")
	}
	return d, nil
}

// GetByAccessKey obtiene un comprobante por su clave de acceso.
func (r *DocumentRepo) GetByAccessKey(ctx context.Context, accessKey string) (*entity.Document, error) {
	row := r.q.QueryRow(ctx, `SELECT `+documentColumns+` FROM sri_documents WHERE access_key = $1`, accessKey)
	d, err := scanDocument(row)
	if err != nil {
		if isNoRows(err) {
			return nil, errors.Wrapf(domain.ErrNotFound, "clave de acceso %s", accessKey)
		}
		return nil, errors.Wrap(err, "get document by access key")
	}
	return d, nil
}

// ListDueForRedrive devuelve documentos SIGNED o SUBMITTED cuyo NextRetryAt ya venció,
// los más antiguos primero.
func (r *DocumentRepo) ListDueForRedrive(ctx context.Context, now time.Time, limit int) ([]*entity.Document, error) {
	query := `SELECT ` + documentColumns + ` FROM sri_documents
		WHERE status IN ('SIGNED', 'SUBMITTED') AND next_retry_at IS NOT NULL AND next_retry_at <= $1
		ORDER BY next_retry_at
		LIMIT $2`
	rows, err := r.q.Query(ctx, query, now, limit)
	if err != nil {
		return nil, errors.Wrap(err, "list redrive documents")
	}
	return collectDocuments(rows)
}

// ListByCompany lista comprobantes del emisor; status vacío = todos.
func (r *DocumentRepo) ListByCompany(ctx context.Context, companyID string, status entity.Status, limit, offset int) ([]*entity.Document, error) {
	query := `SELECT ` + documentColumns + ` FROM sri_documents
		WHERE company_id = $1 AND ($2 = '' OR status = $2)
		ORDER BY created_at DESC
		LIMIT $3 OFFSET $4`
	rows, err := r.q.Query(ctx, query, companyID, string(status), limit, offset)
	if err != nil {
		return nil, errors.Wrap(err, "list documents")
	}
	return collectDocuments(rows)
}

// ── helpers ───────────────────────────────────────────────────────────────────

func collectDocuments(rows pgx.Rows) ([]*entity.Document, error) {
	defer rows.Close()
	var list []*entity.Document
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, errors.Wrap(err, "scan document")
		}
		list = append(list, d)
	}
	return list, rows.Err()
}

func scanDocument(row pgx.Row) (*entity.Document, error) {
	var (
		d         entity.Document
		accessKey *string
		status    string
	)
	var payload, messages, lastErr []byte
	err := row.Scan(
		&d.ID, &d.CompanyID, &d.SaleID, &d.DocType, &d.Environment, &d.EmissionType, &d.Establishment, &d.EmissionPoint,
		&d.Sequence, &d.IssueDate, &accessKey, &d.NumericCode, &payload, &status,
		&d.GeneratedXML, &d.SignedXML, &d.AuthorizedXML, &d.AuthorizationNumber, &d.AuthorizedAt,
		&messages, &lastErr, &d.Attempts, &d.NextRetryAt, &d.ReceiptPDF, &d.CreatedAt, &d.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	d.AccessKey = derefStr(accessKey)
	d.Status = entity.Status(status)
	if err := json.Unmarshal(payload, &d.Payload); err != nil {
		return nil, errors.Wrap(err, "decode payload")
	}
	if len(messages) > 0 {
		if err := json.Unmarshal(messages, &d.AuthorityMessages); err != nil {
			return nil, errors.Wrap(err, "decode authority_messages")
		}
	}
	if len(lastErr) > 0 {
		d.LastError = &entity.StageError{}
		if err := json.Unmarshal(lastErr, d.LastError); err != nil {
			return nil, errors.Wrap(err, "decode last_error")
		}
	}
	return &d, nil
}

func encodeDocumentJSON(d *entity.Document) (payload, messages, lastErr []byte, err error) {
	if payload, err = json.Marshal(d.Payload); err != nil {
		return nil, nil, nil, errors.Wrap(err, "encode payload")
	}
	msgs := d.AuthorityMessages
	if msgs == nil {
		msgs = []entity.AuthorityMessage{}
	}
	if messages, err = json.Marshal(msgs); err != nil {
		return nil, nil, nil, errors.Wrap(err, "encode authority_messages")
	}
	if d.LastError != nil {
		if lastErr, err = json.Marshal(d.LastError); err != nil {
			return nil, nil, nil, errors.Wrap(err, "encode last_error")
		}
	}
	return payload, messages, lastErr, nil
}
