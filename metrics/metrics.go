// Package metrics wires the Prometheus counters shared by the certificate
// and cms packages, modeled on boulder's ca.caMetrics: a handful of
// CounterVecs registered once and handed to every issuance/signing call.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Metrics holds the counters shared between the certificate and cms packages.
type Metrics struct {
	CertificatesIssued *prometheus.CounterVec
	LintErrors         prometheus.Counter
	SignatureCount     *prometheus.CounterVec
	SignatureErrors    *prometheus.CounterVec
	EnvelopesProduced  *prometheus.CounterVec
}

// New registers and returns a fresh Metrics instance against stats.
func New(stats prometheus.Registerer) *Metrics {
	certificatesIssued := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ramf_certificates_issued_total",
			Help: "Number of certificates issued, labelled by whether the subject is a CA",
		},
		[]string{"is_ca"})
	stats.MustRegister(certificatesIssued)

	lintErrors := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "ramf_certificate_lint_errors_total",
			Help: "Number of issuance attempts halted by a certificate lint finding",
		})
	stats.MustRegister(lintErrors)

	signatureCount := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ramf_cms_signatures_total",
			Help: "Number of CMS SignedData signatures produced, labelled by digest algorithm",
		},
		[]string{"digest"})
	stats.MustRegister(signatureCount)

	signatureErrors := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ramf_cms_signature_errors_total",
			Help: "Number of CMS SignedData signature failures, labelled by stage",
		},
		[]string{"stage"})
	stats.MustRegister(signatureErrors)

	envelopesProduced := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ramf_cms_envelopes_total",
			Help: "Number of CMS EnvelopedData values produced, labelled by symmetric cipher",
		},
		[]string{"cipher"})
	stats.MustRegister(envelopesProduced)

	return &Metrics{
		CertificatesIssued: certificatesIssued,
		LintErrors:         lintErrors,
		SignatureCount:     signatureCount,
		SignatureErrors:    signatureErrors,
		EnvelopesProduced:  envelopesProduced,
	}
}

// NewNoop returns a Metrics instance registered against a private registry,
// for callers (and tests) that don't want to participate in a shared
// Prometheus /metrics endpoint.
func NewNoop() *Metrics {
	return New(prometheus.NewRegistry())
}
