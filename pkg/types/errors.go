package types

import (
	"errors"
	"fmt"
)

// ErrorClass groups sync errors for retry and abort decisions, per
// spec.md §7's taxonomy.
type ErrorClass int

const (
	ErrorClassAuth ErrorClass = iota
	ErrorClassTransport
	ErrorClassRateLimited
	ErrorClassServiceUnavailable
	ErrorClassRemote
	ErrorClassLocal
	ErrorClassCrypto
	ErrorClassIntegrity
	ErrorClassPolicy
	ErrorClassLifecycle
)

// String implements fmt.Stringer.
func (c ErrorClass) String() string {
	switch c {
	case ErrorClassAuth:
		return "auth"
	case ErrorClassTransport:
		return "transport"
	case ErrorClassRateLimited:
		return "rate_limited"
	case ErrorClassServiceUnavailable:
		return "service_unavailable"
	case ErrorClassRemote:
		return "remote"
	case ErrorClassLocal:
		return "local"
	case ErrorClassCrypto:
		return "crypto"
	case ErrorClassIntegrity:
		return "integrity"
	case ErrorClassPolicy:
		return "policy"
	case ErrorClassLifecycle:
		return "lifecycle"
	default:
		return "unknown"
	}
}

// SyncError wraps an underlying cause with the classification the retry
// policy and the engine's abort logic need.
type SyncError struct {
	Class        ErrorClass
	Code         string
	Message      string
	RetryAfterMS *int64
	Cause        error
}

func (e *SyncError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s (%s): %s", e.Code, e.Class, e.Message)
	}
	return fmt.Sprintf("%s (%s)", e.Code, e.Class)
}

func (e *SyncError) Unwrap() error { return e.Cause }

// NewSyncError constructs a classified error.
func NewSyncError(class ErrorClass, code, message string, cause error) *SyncError {
	return &SyncError{Class: class, Code: code, Message: message, Cause: cause}
}

// Well-known error codes from spec.md §7, stored in SyncError.Code; callers
// test an error chain for one of them with IsCode.
const (
	CodeNotSignedIn        = "not_signed_in"
	CodePermissionDenied   = "permission_denied"
	CodeNetworkUnavailable = "network_unavailable"
	CodeTransportError     = "transport_error"
	CodeRateLimited        = "rate_limited"
	CodeServiceUnavailable = "service_unavailable"
	CodeNotFound           = "not_found"
	CodeQuotaExceeded      = "quota_exceeded"
	CodeRemoteOther        = "remote_other"
	CodeIOError            = "io_error"
	CodePathInvalid        = "path_invalid"
	CodeDiskFull           = "disk_full"
	CodeWeakPassphrase     = "weak_passphrase"
	CodeWrongPassphrase    = "wrong_passphrase"
	CodeCorruptedEnvelope  = "corrupted_envelope"
	CodeUnsupportedVersion = "unsupported_version"
	CodeDeviceKeyUnavailable = "device_key_unavailable"
	CodeChecksumMismatch   = "checksum_mismatch"
	CodeFilteredOut        = "filtered_out"
	CodeNetworkPolicyBlocked = "network_policy_blocked"
	CodeCancelled          = "cancelled"
	CodeAlreadyRunning     = "already_running"
)

// IsCode reports whether err is a *SyncError with the given code.
func IsCode(err error, code string) bool {
	var se *SyncError
	if errors.As(err, &se) {
		return se.Code == code
	}
	return false
}
