// Package errors classifies failures so callers can decide between retrying,
// rejecting input, or stopping.
//
// # Classes
//
//   - Transient: timeouts, lost connections, unavailable storage (retry may succeed)
//   - Invalid: malformed keys, bad configuration values (do not retry)
//   - Fatal: unrecoverable startup conditions (stop)
//
// Classified errors carry the component and operation that produced them and
// support errors.Is / errors.As through Unwrap:
//
//	if err := validateKey(key); err != nil {
//	    return errors.WrapInvalid(err, "cache", "Set", "key validation")
//	}
//
// Durable stores report a missing namespace with ErrKeyNotFound; use IsNotFound
// to test for it regardless of the backend.
package errors
