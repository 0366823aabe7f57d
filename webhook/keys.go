package webhook

import (
	"context"

	"github.com/vitalvas/tlsigning/tlsig"
)

// KeySource returns the public key to verify a signature with the given
// protected header. *jwks.Fetcher implements KeySource.
type KeySource interface {
	PublicKey(ctx context.Context, header *tlsig.ProtectedHeader) (tlsig.PublicKey, error)
}

// KeySourceFunc adapts a function to a KeySource.
type KeySourceFunc func(ctx context.Context, header *tlsig.ProtectedHeader) (tlsig.PublicKey, error)

// PublicKey calls f.
func (f KeySourceFunc) PublicKey(ctx context.Context, header *tlsig.ProtectedHeader) (tlsig.PublicKey, error) {
	return f(ctx, header)
}

// StaticKey returns a KeySource that always returns key.
func StaticKey(key tlsig.PublicKey) KeySource {
	return KeySourceFunc(func(context.Context, *tlsig.ProtectedHeader) (tlsig.PublicKey, error) {
		return key, nil
	})
}
