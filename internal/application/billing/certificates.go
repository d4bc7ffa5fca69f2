package billing

import (
	"context"
	"crypto/tls"
	"time"

	"github.com/patrickmn/go-cache"
	"golang.org/x/sync/singleflight"

	"github.com/jhoicas/facturacion-sri/internal/domain/entity"
)

// CertificateLoader lee y descifra un certificado; signer.Load en producción.
type CertificateLoader func(path, keyPath, password string) (tls.Certificate, error)

// CertificateProvider cachea el certificado de cada emisor y deduplica cargas
// concurrentes. Las entradas expiran con el TTL configurado o con el NotAfter del
// certificado, lo que ocurra primero.
type CertificateProvider struct {
	load     CertificateLoader
	fallback entity.CertificateRef
	ttl      time.Duration
	cache    *cache.Cache
	group    singleflight.Group
	now      func() time.Time
}

// NewCertificateProvider construye el proveedor. fallback se usa para emisores sin
// certificado propio (SRI_CERT_PATH).
func NewCertificateProvider(load CertificateLoader, fallback entity.CertificateRef, ttl time.Duration) *CertificateProvider {
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &CertificateProvider{
		load:     load,
		fallback: fallback,
		ttl:      ttl,
		cache:    cache.New(ttl, 2*ttl),
		now:      time.Now,
	}
}

// Certificate devuelve el certificado del emisor.
func (p *CertificateProvider) Certificate(_ context.Context, company *entity.Company) (tls.Certificate, error) {
	ref := company.Certificate
	if ref.Path == "" {
		ref = p.fallback
	}
	key := company.ID + "|" + ref.Path
	if v, ok := p.cache.Get(key); ok {
		return v.(tls.Certificate), nil
	}

	v, err, _ := p.group.Do(key, func() (any, error) {
		cert, err := p.load(ref.Path, ref.KeyPath, ref.Password.Reveal())
		if err != nil {
			return tls.Certificate{}, err
		}
		ttl := p.ttl
		if cert.Leaf != nil {
			if remaining := cert.Leaf.NotAfter.Sub(p.now()); remaining < ttl {
				ttl = remaining
			}
		}
		// Un certificado vencido no se cachea: el firmador lo rechaza en cada intento.
		if ttl > 0 {
			p.cache.Set(key, cert, ttl)
		}
		return cert, nil
	})
	if err != nil {
		return tls.Certificate{}, err
	}
	return v.(tls.Certificate), nil
}

// Invalidate descarta el certificado cacheado de un emisor (rotación de certificado).
func (p *CertificateProvider) Invalidate(company *entity.Company) {
	ref := company.Certificate
	if ref.Path == "" {
		ref = p.fallback
	}
	p.cache.Delete(company.ID + "|" + ref.Path)
}
