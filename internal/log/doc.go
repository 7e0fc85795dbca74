// Package log provides secure logging functionality with automatic sanitization
// of sensitive information, built on top of the standard slog package.
//
// The SecureHandler masks:
//   - HTTP headers (Authorization, Cookie, Set-Cookie, X-Api-Key)
//   - attributes whose key names a secret (password, api_token, ...)
//   - values that look like secrets (bearer tokens, JWTs, long keys)
//   - signature and token query parameters inside URLs, since the media
//     URLs handed out by CDNs are usually signed
//
// Even in verbose mode, sensitive values are masked to prevent accidental
// exposure of secrets in logs that may be shared or stored.
//
// # Usage
//
//	logger := log.NewSecureLogger(os.Stderr, true) // verbose=true
//	logger.Info("size probe",
//	    "url", "https://cdn.example.com/v.mp4?sign=abc&t=1", // sign=***REDACTED***
//	)
//	slog.SetDefault(logger)
package log
