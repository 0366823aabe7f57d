// Package jwks fetches JSON Web Key Sets for Tl-Signature verification.
//
// Server-originated signatures, such as webhooks, carry the URL of the
// signing key set in the jku protected header. That URL is attacker
// controlled until checked, so a Fetcher only contacts URLs from an exact
// allow-list and never follows a jku it was not configured with.
//
// Responses are cached in memory according to their Cache-Control headers
// using httpcache, so repeated verifications do not hit the network for
// every request:
//
//	fetcher, err := jwks.New(jwks.Config{
//		AllowedJKUs: jwks.TrueLayerJKUs,
//	})
//	if err != nil {
//		return err
//	}
//
//	header, err := tlsig.ExtractProtectedHeader(value)
//	if err != nil {
//		return err
//	}
//
//	key, err := fetcher.PublicKey(ctx, header)
//	if err != nil {
//		return err
//	}
//
//	err = tlsig.Verify(value, req, tlsig.VerifyConfig{PublicKey: key})
//
// A Fetcher does not retry failed fetches.
package jwks
