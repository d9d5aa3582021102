package certificate

import (
	zcryptox509 "github.com/zmap/zcrypto/x509"
	"github.com/zmap/zlint/v3"
	"github.com/zmap/zlint/v3/lint"

	"github.com/relaycorp/ramf-go/metrics"
	"github.com/relaycorp/ramf-go/ramferrors"
	"github.com/relaycorp/ramf-go/rlog"
)

// lintCertificate runs zlint's RFC 5280 structural checks against a freshly
// issued certificate and fails closed on any Error-level (or worse) finding,
// the same lint-before-sign gate boulder runs before it ever returns a
// certificate to a caller. Only the RFC5280 source is included: the rest of
// zlint's baseline registry enforces CA/Browser Forum policy (key usage,
// CRL/OCSP pointers, CP/CPS, and so on) that this module's minimal profile
// never targets, so those lints would fail every certificate regardless of
// correctness.
func lintCertificate(cert *Certificate, m *metrics.Metrics, logger rlog.Logger) error {
	zc, err := zcryptox509.ParseCertificate(cert.raw)
	if err != nil {
		return ramferrors.NewCertificateError(err, "issued certificate failed to parse for linting")
	}

	registry, err := zlint.GlobalRegistry().Filter(lint.FilterOptions{IncludeSources: lint.SourceList{lint.RFC5280}})
	if err != nil {
		return ramferrors.NewCertificateError(err, "failed to build certificate lint registry")
	}
	result := zlint.LintCertificateEx(zc, registry)

	for name, res := range result.Results {
		if res.Status < lint.Error {
			continue
		}
		if m != nil {
			m.LintErrors.Inc()
		}
		if logger != nil {
			logger.AuditErrf("certificate lint %s reported %s", name, res.Status)
		}
		return ramferrors.NewCertificateError(nil, "issued certificate failed lint %s (%s)", name, res.Status)
	}
	return nil
}
