package baker

import "github.com/pkg/errors"

// ErrHeadChanged is returned by Endorser/Baker actions that discover the
// head moved out from under them between fetching rights and acting.
// Callers treat it as a silent abort, not a failure: the level marker is
// not set.
var ErrHeadChanged = errors.New("baker: head changed since rights were queried")

// ErrStandDown names the stand-down on the first observed head of a fresh
// process. Controller.Tick returns no error, so the stand-down is silent
// and this value is not returned by it.
var ErrStandDown = errors.New("baker: standing down on first observed head")

// InsufficientEndorsementsError carries the required-endorsement count a
// preapply rejection reported.
type InsufficientEndorsementsError struct {
	Required int
}

func (e *InsufficientEndorsementsError) Error() string {
	return "baker: preapply reports insufficient endorsements"
}

// OperationRejectionError carries the operation hashes a node named as the
// cause of an injection failure.
type OperationRejectionError struct {
	OffendingHashes []string
}

func (e *OperationRejectionError) Error() string {
	return "baker: node rejected operations during injection"
}

// CryptoInitError wraps a failure to initialize the configured key
// provider. This is the one fatal-at-startup error kind; it is
// never swallowed.
type CryptoInitError struct {
	cause error
}

func (e *CryptoInitError) Error() string {
	return "baker: key provider initialization failed: " + e.cause.Error()
}

func (e *CryptoInitError) Unwrap() error {
	return e.cause
}

// wrapCryptoInit reports a fatal key-provider failure.
func wrapCryptoInit(err error) error {
	if err == nil {
		return nil
	}

	return &CryptoInitError{cause: err}
}
