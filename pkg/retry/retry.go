// Package retry implementa el combinador de reintentos acotados usado por el cliente
// de los servicios web del SRI. Solo se reintentan los fallos que el predicado
// clasifica como transitorios; al agotar el presupuesto devuelve TransportExhausted.
package retry

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/cockroachdb/errors"

	"github.com/jhoicas/facturacion-sri/internal/domain"
)

// Policy parametriza un ciclo de reintentos.
type Policy struct {
	Name        string        // operación, aparece en el error de agotamiento
	MaxAttempts int           // intentos totales (1 = sin reintentos)
	Delay       time.Duration // espera antes del primer reintento
	Multiplier  float64       // factor de crecimiento; 1 = espera fija
	MaxDelay    time.Duration // tope de la espera; 0 = sin tope

	// OnRetry se invoca antes de cada espera (logging/métricas).
	OnRetry func(attempt int, err error, wait time.Duration)
}

// Fixed devuelve una política de espera fija.
func Fixed(name string, attempts int, delay time.Duration) Policy {
	return Policy{Name: name, MaxAttempts: attempts, Delay: delay, Multiplier: 1}
}

func (p Policy) backOff(ctx context.Context) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = p.Delay
	b.RandomizationFactor = 0
	b.Multiplier = p.Multiplier
	if b.Multiplier < 1 {
		b.Multiplier = 1
	}
	b.MaxInterval = p.MaxDelay
	if b.MaxInterval <= 0 {
		b.MaxInterval = time.Duration(1<<63 - 1)
	}
	b.MaxElapsedTime = 0
	b.Reset()

	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	return backoff.WithContext(backoff.WithMaxRetries(b, uint64(attempts-1)), ctx)
}

// Do ejecuta fn hasta que tenga éxito, devuelva un error no reintentable o se agoten
// los intentos. fn recibe el número de intento (desde 1).
//
//   - éxito                      → nil
//   - error no reintentable      → ese error, sin reintentar
//   - intentos agotados          → domain.TransportExhausted con el último error
//   - contexto cancelado         → el error del contexto
func Do(ctx context.Context, p Policy, isRetryable func(error) bool, fn func(ctx context.Context, attempt int) error) error {
	attempt := 0
	op := func() error {
		attempt++
		err := fn(ctx, attempt)
		if err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return backoff.Permanent(ctx.Err())
		}
		if !isRetryable(err) {
			return backoff.Permanent(err)
		}
		return err
	}
	notify := func(err error, wait time.Duration) {
		if p.OnRetry != nil {
			p.OnRetry(attempt, err, wait)
		}
	}

	err := backoff.RetryNotify(op, p.backOff(ctx), notify)
	switch {
	case err == nil:
		return nil
	case ctx.Err() != nil:
		return errors.Wrapf(ctx.Err(), "%s: cancelado en el intento %d", p.Name, attempt)
	case !isRetryable(err):
		return err
	}
	return domain.TransportExhausted(p.Name, attempt, err)
}
