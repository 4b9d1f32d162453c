package core

import (
	"math/big"
	"strings"
	"time"
)

const (
	// DisplayRange is the size of the displayed range [1, DisplayRange]
	DisplayRange = 100

	// hashWindow is the number of leading hex digits of a hash used for display
	hashWindow = 16
)

// FinalityStatus is the finality reported by the node for a transaction
type FinalityStatus string

const (
	FinalityReceived     FinalityStatus = "RECEIVED"
	FinalityRejected     FinalityStatus = "REJECTED"
	FinalityAcceptedOnL2 FinalityStatus = "ACCEPTED_ON_L2"
	FinalityAcceptedOnL1 FinalityStatus = "ACCEPTED_ON_L1"
)

// ExecutionStatus is the execution outcome reported by the node
type ExecutionStatus string

const (
	ExecutionSucceeded ExecutionStatus = "SUCCEEDED"
	ExecutionReverted  ExecutionStatus = "REVERTED"
)

// Event is an event emitted by a transaction
type Event struct {
	FromAddress Felt   `json:"from_address"`
	Keys        []Felt `json:"keys"`
	Data        []Felt `json:"data"`
}

// Receipt is the confirmed outcome of a transaction
type Receipt struct {
	TransactionHash Felt            `json:"transaction_hash"`
	FinalityStatus  FinalityStatus  `json:"finality_status"`
	ExecutionStatus ExecutionStatus `json:"execution_status"`
	RevertReason    string          `json:"revert_reason,omitempty"`
	Events          []Event         `json:"events"`
}

// Accepted reports whether the transaction reached L2 or L1 acceptance
func (r Receipt) Accepted() bool {
	return r.FinalityStatus == FinalityAcceptedOnL2 || r.FinalityStatus == FinalityAcceptedOnL1
}

// TxStatus is the lifecycle of a submitted transaction as seen locally
type TxStatus string

const (
	TxPending   TxStatus = "pending"
	TxConfirmed TxStatus = "confirmed"
	TxFailed    TxStatus = "failed"
)

// TransactionResult is a submitted transaction and its confirmation status
type TransactionResult struct {
	Hash   Felt     `json:"transaction_hash"`
	Status TxStatus `json:"status"`
}

// Phase is the step a random number generation is in
type Phase string

const (
	PhaseIdle       Phase = "idle"
	PhaseValidating Phase = "validating"
	PhaseSubmitting Phase = "submitting"
	PhaseConfirming Phase = "confirming"
	PhaseDeriving   Phase = "deriving"
	PhaseDone       Phase = "done"
	PhaseFailed     Phase = "failed"
)

// InFlight reports whether the generate trigger must stay disabled
func (p Phase) InFlight() bool {
	switch p {
	case PhaseValidating, PhaseSubmitting, PhaseConfirming, PhaseDeriving:
		return true
	}
	return false
}

// DerivationStrategy selects how the displayed value is obtained
type DerivationStrategy string

const (
	// DeriveFromHash reduces a window of the transaction hash
	DeriveFromHash DerivationStrategy = "hash"

	// DeriveFromContract reads the value stored by the consumer contract
	DeriveFromContract DerivationStrategy = "contract"
)

// Valid reports whether the strategy is known
func (s DerivationStrategy) Valid() bool {
	return s == DeriveFromHash || s == DeriveFromContract
}

// RandomResult is what the page displays after a generation
type RandomResult struct {
	Value       int                `json:"value"`
	Transaction TransactionResult  `json:"transaction"`
	Caller      Felt               `json:"caller"`
	Strategy    DerivationStrategy `json:"strategy"`
	GeneratedAt time.Time          `json:"generated_at"`
}

// Generation is the latest generation state of a session
type Generation struct {
	Phase       Phase              `json:"phase"`
	Transaction *TransactionResult `json:"transaction,omitempty"`
	Result      *RandomResult      `json:"result,omitempty"`
	Error       string             `json:"error,omitempty"`
}

// ValueFromHash takes the first 16 hex digits of the hash and maps them into [1, 100].
// The hash is read in its minimal hex form.
func ValueFromHash(hash Felt) int {
	digits := strings.TrimPrefix(hash.String(), "0x")
	if len(digits) > hashWindow {
		digits = digits[:hashWindow]
	}
	n, _ := new(big.Int).SetString(digits, 16)
	return ReduceToDisplay(n)
}

// ReduceToDisplay maps any non-negative integer into [1, 100]
func ReduceToDisplay(n *big.Int) int {
	m := new(big.Int).Mod(n, big.NewInt(DisplayRange))
	return int(m.Int64()) + 1
}
