package certificate

import (
	"github.com/jmhodges/clock"

	"github.com/relaycorp/ramf-go/ramferrors"
)

// Validate checks the certificate per spec.md §4.4: it must have a Common
// Name, and the given instant must fall within [notBefore, notAfter]. clk
// may be nil to use the real wall clock.
func (c *Certificate) Validate(clk clock.Clock) error {
	if _, err := c.CommonName(); err != nil {
		return ramferrors.NewCertificateError(err, "Subject should have a Common Name")
	}

	if clk == nil {
		clk = clock.New()
	}
	now := clk.Now()
	if now.Before(c.notBefore) {
		return ramferrors.NewCertificateError(nil, "Certificate is not yet valid")
	}
	if now.After(c.notAfter) {
		return ramferrors.NewCertificateError(nil, "Certificate already expired")
	}
	return nil
}

// GetCertificationPath searches for a chain from c up to a certificate in
// trusted, using only certificates from untrusted as intermediates, per
// spec.md §4.4. The returned path starts with c and ends
// with the trusted anchor; each certificate in it is the same object
// identity the caller passed in.
//
// This is a hand-rolled depth-first search rather than crypto/x509.Verify
// because the stdlib verifier enforces key-usage and extended-key-usage
// policy this module's certificates don't carry.
func (c *Certificate) GetCertificationPath(untrusted []*Certificate, trusted []*Certificate) ([]*Certificate, error) {
	if len(trusted) == 0 {
		return nil, ramferrors.NewCertificateError(nil, "Failed to initialize path builder; set of trusted CAs might be empty")
	}

	visited := map[*Certificate]bool{}
	path, ok := findPath(c, untrusted, trusted, visited)
	if !ok {
		return nil, ramferrors.NewCertificateError(nil, "No certification path could be found")
	}
	return path, nil
}

func findPath(current *Certificate, untrusted []*Certificate, trusted []*Certificate, visited map[*Certificate]bool) ([]*Certificate, bool) {
	if visited[current] {
		return nil, false
	}
	visited[current] = true

	for _, anchor := range trusted {
		if certSignedBy(current, anchor) {
			return []*Certificate{current, anchor}, true
		}
	}

	for _, candidate := range untrusted {
		if candidate == current {
			continue
		}
		if !certSignedBy(current, candidate) {
			continue
		}
		rest, ok := findPath(candidate, untrusted, trusted, visited)
		if ok {
			return append([]*Certificate{current}, rest...), true
		}
	}

	return nil, false
}

// certSignedBy reports whether issuer's subject/SKI matches subject's
// issuer/AKI and the PSS signature over subject's TBSCertificate verifies
// under issuer's public key.
func certSignedBy(subject *Certificate, issuer *Certificate) bool {
	if string(subject.issuerDN) != string(issuer.subjectDN) {
		return false
	}

	subjectAKI, hasAKI := subject.AuthorityKeyIdentifier()
	issuerSKI, hasSKI := issuer.SubjectKeyIdentifier()
	if hasAKI && hasSKI && string(subjectAKI) != string(issuerSKI) {
		return false
	}

	return verifyTBSSignature(subject, issuer)
}
