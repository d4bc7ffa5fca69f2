package config_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/facturacion-sri/pkg/config"
)

func TestLoad_ValoresPorDefecto(t *testing.T) {
	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, "1", cfg.SRI.Environment, "por defecto se emite en pruebas")
	assert.Equal(t, 60*time.Second, cfg.SRI.Timeout)
	assert.Equal(t, 3, cfg.SRI.SubmitAttempts)
	assert.Equal(t, 2*time.Second, cfg.SRI.SubmitDelay)
	assert.Equal(t, 3, cfg.SRI.QueryAttempts)
	assert.Equal(t, 2*time.Second, cfg.SRI.QueryDelay)
	assert.Equal(t, "postgres", cfg.Sequence.Backend)
	assert.Contains(t, cfg.SRI.ReceptionURL("1"), "celcer.sri.gob.ec")
	assert.Contains(t, cfg.SRI.ReceptionURL("2"), "://cel.sri.gob.ec")
}

func TestLoad_VariablesDeEntorno(t *testing.T) {
	t.Setenv("SRI_ENVIRONMENT", "2")
	t.Setenv("SRI_SUBMIT_RETRIES", "5")
	t.Setenv("SRI_QUERY_RETRIES", "2")
	t.Setenv("SRI_QUERY_DELAY_MS", "250")
	t.Setenv("SRI_POLL_MAX_SECONDS", "30")
	t.Setenv("SRI_AUTHORIZATION_URL_PROD", "http://localhost:9999/auth")
	t.Setenv("SEQUENCE_BACKEND", "Redis")

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, "2", cfg.SRI.Environment)
	assert.Equal(t, 5, cfg.SRI.SubmitAttempts)
	assert.Equal(t, 2, cfg.SRI.QueryAttempts, "la consulta tiene su propio presupuesto de reintentos")
	assert.Equal(t, 250*time.Millisecond, cfg.SRI.QueryDelay)
	assert.Equal(t, 30*time.Second, cfg.SRI.PollMaxDuration)
	assert.Equal(t, "http://localhost:9999/auth", cfg.SRI.AuthorizationURL("2"))
	assert.Equal(t, "redis", cfg.Sequence.Backend)
}

func TestLoad_ValoresInvalidos(t *testing.T) {
	t.Setenv("SRI_ENVIRONMENT", "3")
	_, err := config.Load()
	assert.Error(t, err)

	t.Setenv("SRI_ENVIRONMENT", "1")
	t.Setenv("SEQUENCE_BACKEND", "etcd")
	_, err = config.Load()
	assert.Error(t, err)
}
