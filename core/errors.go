package core

import "errors"

var (
	ErrInitialization       = errors.New("failed to initialize burner accounts")
	ErrDeployment           = errors.New("failed to create burner account")
	ErrNoActiveAccount      = errors.New("please create or select a burner account first")
	ErrSubmission           = errors.New("failed to submit transaction")
	ErrConfirmation         = errors.New("transaction was not confirmed")
	ErrDerivation           = errors.New("failed to read random number")
	ErrGenerationInFlight   = errors.New("random number generation already in progress")
	ErrInvalidSession       = errors.New("invalid session")
	ErrInvalidToken         = errors.New("invalid token")
	ErrTokenExpired         = errors.New("token has expired")
	ErrInvalidAddress       = errors.New("invalid address")
	ErrInvalidFelt          = errors.New("invalid field element")
	ErrStoreOperationFailed = errors.New("store operation failed")
)

// OpError ties a failure from a collaborator to one of the error kinds above.
// Error returns the underlying message verbatim so it can be shown to the user.
type OpError struct {
	Kind error
	Err  error
}

// Wrap returns nil when err is nil, otherwise an *OpError of the given kind
func Wrap(kind, err error) error {
	if err == nil {
		return nil
	}
	return &OpError{Kind: kind, Err: err}
}

func (e *OpError) Error() string {
	if e.Err == nil {
		return e.Kind.Error()
	}
	return e.Err.Error()
}

func (e *OpError) Unwrap() []error {
	return []error{e.Kind, e.Err}
}
