// Package keys generates the RSA key pairs used as certificate subject
// keys and as CMS signing/key-transport keys.
package keys

import (
	"crypto/rand"
	"crypto/rsa"

	"github.com/relaycorp/ramf-go/ramferrors"
)

// DefaultModulusBits is the modulus size used when GenerateRSAKeyPair is
// called without an explicit size.
const DefaultModulusBits = 2048

// MinModulusBits is the smallest RSA modulus size this module will generate.
const MinModulusBits = 2048

// KeyPair is an RSA key pair.
type KeyPair struct {
	Public  *rsa.PublicKey
	Private *rsa.PrivateKey
}

// GenerateRSAKeyPair produces a fresh RSA key pair with the given modulus
// size in bits, using crypto/rand as the CSPRNG. A modulusBits of zero
// selects DefaultModulusBits. Modulus sizes below MinModulusBits are rejected.
func GenerateRSAKeyPair(modulusBits int) (*KeyPair, error) {
	if modulusBits == 0 {
		modulusBits = DefaultModulusBits
	}
	if modulusBits < MinModulusBits {
		return nil, ramferrors.NewCertificateError(nil, "RSA modulus must be at least %d bits (got %d)", MinModulusBits, modulusBits)
	}
	priv, err := rsa.GenerateKey(rand.Reader, modulusBits)
	if err != nil {
		return nil, ramferrors.NewCertificateError(err, "failed to generate RSA key pair")
	}
	return &KeyPair{Public: &priv.PublicKey, Private: priv}, nil
}
