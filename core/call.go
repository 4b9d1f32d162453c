package core

import (
	"math/big"

	"github.com/ethereum/go-ethereum/crypto"
)

// EntrypointRequestRandom is the VRF provider entrypoint that registers a request
const EntrypointRequestRandom = "request_random"

var mask250 = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 250), big.NewInt(1))

// Call is a single contract invocation inside a multicall
type Call struct {
	To         Felt   `json:"contract_address"`
	Entrypoint string `json:"entrypoint"`
	Calldata   []Felt `json:"calldata"`
}

// Selector returns the entrypoint selector of the call
func (c Call) Selector() Felt {
	return Selector(c.Entrypoint)
}

// Selector computes starknet_keccak(name): keccak256 truncated to 250 bits
func Selector(name string) Felt {
	var f Felt
	f.n.SetBytes(crypto.Keccak256([]byte(name)))
	f.n.And(&f.n, mask250)
	return f
}

// SourceKind is the variant tag of the VRF randomness source
type SourceKind uint64

const (
	// SourceNonce derives the seed from the nonce the provider keeps for an address
	SourceNonce SourceKind = 0

	// SourceSalt derives the seed from a caller supplied salt
	SourceSalt SourceKind = 1
)

// Source is the tagged union passed to request_random
type Source struct {
	Kind  SourceKind
	Value Felt
}

// NonceSource selects Source::Nonce(address)
func NonceSource(address Felt) Source {
	return Source{Kind: SourceNonce, Value: address}
}

// SaltSource selects Source::Salt(salt)
func SaltSource(salt Felt) Source {
	return Source{Kind: SourceSalt, Value: salt}
}

// Words encodes the source as [tag, payload]
func (s Source) Words() []Felt {
	return []Felt{FeltFromUint64(uint64(s.Kind)), s.Value}
}

// RequestRandomCalldata encodes request_random(caller, source) as [caller, tag, payload]
func RequestRandomCalldata(caller Felt, source Source) []Felt {
	return append([]Felt{caller}, source.Words()...)
}

// VRFRequest is the two-call sequence submitted for one random number.
// The request always precedes the consumption.
type VRFRequest struct {
	RequestRandom Call
	ConsumeRandom Call
}

// NewVRFRequest builds the request/consume pair for caller
func NewVRFRequest(provider, consumer Felt, consumeEntrypoint string, caller Felt, source Source) VRFRequest {
	return VRFRequest{
		RequestRandom: Call{
			To:         provider,
			Entrypoint: EntrypointRequestRandom,
			Calldata:   RequestRandomCalldata(caller, source),
		},
		ConsumeRandom: Call{
			To:         consumer,
			Entrypoint: consumeEntrypoint,
			Calldata:   []Felt{},
		},
	}
}

// Calls returns the calls in submission order
func (r VRFRequest) Calls() []Call {
	return []Call{r.RequestRandom, r.ConsumeRandom}
}
