// Package config loads tlsign settings from a YAML file and the
// environment.
//
// Values are applied in order: built-in defaults, then the YAML file, then
// environment variables prefixed with TLSIGN_, for example
// TLSIGN_LISTEN=:9090 or TLSIGN_ALLOWED_JKUS=https://a/jwks,https://b/jwks.
// Unknown YAML keys are rejected.
package config
