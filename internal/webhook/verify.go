// internal/webhook/verify.go
package webhook

import (
    "crypto"
    "crypto/rsa"
    "crypto/sha256"
    "crypto/x509"
    "encoding/base64"
    "encoding/pem"
    "fmt"

    appErrors "github.com/unclebandit/outreach-backend/internal/errors"
)

// Verifier checks the CRM's asymmetric signature over the raw request
// body. Verification happens before any state mutation; a bad signature
// is rejected with no side effects.
type Verifier struct {
    key *rsa.PublicKey
}

func NewVerifier(publicKeyPEM []byte) (*Verifier, error) {
    block, _ := pem.Decode(publicKeyPEM)
    if block == nil {
        return nil, fmt.Errorf("no PEM block in webhook public key")
    }
    parsed, err := x509.ParsePKIXPublicKey(block.Bytes)
    if err != nil {
        return nil, fmt.Errorf("parse webhook public key: %w", err)
    }
    key, ok := parsed.(*rsa.PublicKey)
    if !ok {
        return nil, fmt.Errorf("webhook public key is not RSA")
    }
    return &Verifier{key: key}, nil
}

// Verify checks a base64 RSA-SHA256 signature against the raw body.
func (v *Verifier) Verify(rawBody []byte, signatureB64 string) error {
    sig, err := base64.StdEncoding.DecodeString(signatureB64)
    if err != nil {
        return appErrors.ErrInvalidSignature
    }
    digest := sha256.Sum256(rawBody)
    if err := rsa.VerifyPKCS1v15(v.key, crypto.SHA256, digest[:], sig); err != nil {
        return appErrors.ErrInvalidSignature
    }
    return nil
}
