// Package webhook verifies Tl-Signature headers on inbound HTTP requests.
//
// Middleware returns a gorilla/mux middleware that rejects any request
// whose signature does not cover its method, path, signed headers and
// body. Keys come from a KeySource: a fixed key with StaticKey, or a
// *jwks.Fetcher that resolves the jku of each signature against an
// allow-list.
//
//	fetcher, err := jwks.New(jwks.Config{AllowedJKUs: jwks.TrueLayerJKUs})
//	if err != nil {
//		return err
//	}
//
//	mw, err := webhook.Middleware(webhook.Config{
//		Keys:            fetcher,
//		RequiredHeaders: []string{"X-Tl-Webhook-Timestamp"},
//	})
//	if err != nil {
//		return err
//	}
//
//	r := mux.NewRouter()
//	r.HandleFunc("/hook", handle).Methods(http.MethodPost)
//	r.Use(mw)
//
// The request body is read for verification and restored for the next
// handler. Failures are answered with 401 Unauthorized and no body unless
// Config.OnError is set.
package webhook
