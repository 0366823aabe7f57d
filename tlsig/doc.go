// Package tlsig implements "Tl-Signature" request signing: a detached,
// JWS-like ES512 signature binding the HTTP method, path, an ordered set of
// headers and the request body.
//
// A signature is carried in the Tl-Signature header using the compact form
//
//	base64url(protected-header) ".." base64url(R || S)
//
// where the middle payload segment is intentionally omitted and R || S is the
// fixed-width 132 byte ECDSA P-521 signature over SHA-512.
//
// # Signature Versions
//
// Two versions exist:
//
//   - v2 signs method, path, declared headers and body. The protected header
//     carries tl_version "2" and tl_headers listing the signed header names.
//   - v1 (legacy) signs the body only. It does not authenticate method, path
//     or headers and is rejected by verifiers unless explicitly allowed.
//
// # Signing Requests
//
// Use NewSignConfig to parse a P-521 private key and Sign to produce a
// Tl-Signature value:
//
//	cfg, err := tlsig.NewSignConfig(kid, privateKeyPEM)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	headers := tlsig.NewHeaders()
//	headers.Set("Idempotency-Key", []byte(idempotencyKey))
//
//	signature, err := tlsig.Sign(tlsig.Request{
//	    Method:  "POST",
//	    Path:    "/payouts",
//	    Headers: headers,
//	    Body:    body,
//	}, cfg)
//
// Signing can be delegated to an external signer (for example an HSM) with
// SignWith. The SignFunc receives the exact bytes to sign and returns the
// base64url encoded signature.
//
// # Verifying Requests
//
// Use Verify with the public key as PEM or as a JWKS document:
//
//	err := tlsig.Verify(signature, tlsig.Request{
//	    Method:  r.Method,
//	    Path:    r.URL.EscapedPath(),
//	    Headers: tlsig.HeadersFromHTTP(r.Header),
//	    Body:    body,
//	}, tlsig.VerifyConfig{
//	    PublicKey:       tlsig.JWKSKey(jwks),
//	    RequiredHeaders: []string{"Idempotency-Key"},
//	})
//
// Headers presented to the verifier may be in any order and any case. Only
// the headers declared in the signature are used, in declared order. A
// header declared in the signature but not presented fails verification, as
// does a required header the signature does not cover.
//
// A single trailing slash mismatch between the signed and the presented
// path is tolerated: when verification fails, it is retried once with the
// trailing slash toggled.
//
// # Client Transport
//
// NewTransport creates an http.RoundTripper that signs outgoing requests:
//
//	client := &http.Client{
//	    Transport: tlsig.NewTransport(nil, tlsig.TransportConfig{
//	        Sign:    cfg,
//	        Headers: []string{"Idempotency-Key"},
//	    }),
//	}
package tlsig
