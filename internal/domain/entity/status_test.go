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

var allStatuses = []entity.Status{
	entity.StatusPending, entity.StatusGenerated, entity.StatusValidated, entity.StatusSigned,
	entity.StatusSubmitted, entity.StatusAuthorized, entity.StatusRejected, entity.StatusError,
}

// TestCanTransition_SoloLasEnumeradas recorre el producto cartesiano de estados y
// comprueba que únicamente las transiciones del pipeline están permitidas.
func TestCanTransition_SoloLasEnumeradas(t *testing.T) {
	allowed := map[[2]entity.Status]bool{
		{entity.StatusPending, entity.StatusGenerated}:    true,
		{entity.StatusPending, entity.StatusError}:        true,
		{entity.StatusGenerated, entity.StatusValidated}:  true,
		{entity.StatusGenerated, entity.StatusError}:      true,
		{entity.StatusValidated, entity.StatusSigned}:     true,
		{entity.StatusValidated, entity.StatusError}:      true,
		{entity.StatusSigned, entity.StatusSubmitted}:     true,
		{entity.StatusSubmitted, entity.StatusAuthorized}: true,
		{entity.StatusSubmitted, entity.StatusRejected}:   true,
	}
	for _, from := range allStatuses {
		for _, to := range allStatuses {
			assert.Equal(t, allowed[[2]entity.Status{from, to}], entity.CanTransition(from, to),
				"%s → %s", from, to)
		}
	}
}

func TestStatus_Terminales(t *testing.T) {
	assert.True(t, entity.StatusAuthorized.IsTerminal())
	assert.True(t, entity.StatusRejected.IsTerminal())
	assert.True(t, entity.StatusError.IsTerminal())
	assert.False(t, entity.StatusSigned.IsTerminal())
	assert.False(t, entity.Status("OTRO").Valid())
}

func TestDocumentTransition_FueraDeOrden(t *testing.T) {
	doc := &entity.Document{Status: entity.StatusPending}

	err := doc.Transition(entity.StatusSubmitted, time.Now())
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrStateTransition))
	assert.Equal(t, entity.StatusPending, doc.Status, "un intento inválido no cambia el estado")
}

func TestDocumentTransition_LimpiaErrorReintentable(t *testing.T) {
	now := time.Date(2026, 2, 22, 12, 0, 0, 0, time.UTC)
	retry := now.Add(time.Minute)
	doc := &entity.Document{Status: entity.StatusSigned}
	doc.RecordFailure(entity.StageError{Stage: entity.StatusSigned, Kind: string(domain.KindTransportExhausted), At: now}, &retry)
	require.NotNil(t, doc.LastError)

	require.NoError(t, doc.Transition(entity.StatusSubmitted, now))
	assert.Nil(t, doc.LastError)
	assert.Nil(t, doc.NextRetryAt)
}

func TestStatus_Reached(t *testing.T) {
	assert.True(t, entity.StatusSubmitted.Reached(entity.StatusSigned))
	assert.True(t, entity.StatusSigned.Reached(entity.StatusSigned))
	assert.False(t, entity.StatusGenerated.Reached(entity.StatusSigned))
	assert.False(t, entity.StatusError.Reached(entity.StatusPending))
}

func TestFormatNumber(t *testing.T) {
	assert.Equal(t, "001-002-000000123", entity.FormatNumber("001", "002", 123))
}
