package entity_test

import (
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/facturacion-sri/internal/domain"
	"github.com/jhoicas/facturacion-sri/internal/domain/entity"
)

func TestDocumentAttachReceipt_SoloEnAutorizado(t *testing.T) {
	now := time.Date(2026, 2, 22, 12, 0, 0, 0, time.UTC)
	for _, st := range []entity.Status{entity.StatusSubmitted, entity.StatusRejected, entity.StatusError} {
		doc := &entity.Document{ID: "d", Status: st}
		err := doc.AttachReceipt([]byte("%PDF"), now)
		require.Error(t, err, "estado %s", st)
		assert.True(t, errors.Is(err, domain.ErrStateTransition))
		assert.Empty(t, doc.ReceiptPDF)
	}
}

func TestDocumentAttachReceipt_LimpiaFalloDeRender(t *testing.T) {
	now := time.Date(2026, 2, 22, 12, 0, 0, 0, time.UTC)
	doc := &entity.Document{ID: "d", Status: entity.StatusAuthorized, AuthorizationNumber: "123"}
	require.NoError(t, doc.RecordRenderFailure(entity.StageError{
		Stage: entity.StatusAuthorized, Kind: string(domain.KindRender), Message: "fuente no disponible", At: now,
	}))
	require.NotNil(t, doc.LastError)

	require.NoError(t, doc.AttachReceipt([]byte("%PDF"), now.Add(time.Minute)))
	assert.Equal(t, []byte("%PDF"), doc.ReceiptPDF)
	assert.Nil(t, doc.LastError)
	assert.Equal(t, entity.StatusAuthorized, doc.Status)
	assert.Equal(t, "123", doc.AuthorizationNumber)
	assert.Equal(t, now.Add(time.Minute), doc.UpdatedAt)

	assert.Error(t, doc.AttachReceipt(nil, now), "un RIDE vacío no se adjunta")
}

func TestDocumentRecordRenderFailure_SoloDiagnosticoDeRender(t *testing.T) {
	now := time.Date(2026, 2, 22, 12, 0, 0, 0, time.UTC)
	doc := &entity.Document{ID: "d", Status: entity.StatusAuthorized}
	err := doc.RecordRenderFailure(entity.StageError{Kind: string(domain.KindTransportExhausted), At: now})
	require.Error(t, err)
	assert.Nil(t, doc.LastError, "tras AUTHORIZED solo se admite el diagnóstico del RIDE")

	rejected := &entity.Document{ID: "r", Status: entity.StatusRejected}
	assert.Error(t, rejected.RecordRenderFailure(entity.StageError{Kind: string(domain.KindRender), At: now}))
}
