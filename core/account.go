package core

import "time"

// Credential is opaque signing material. It never renders in logs.
type Credential string

// String hides the credential from fmt and loggers
func (c Credential) String() string {
	if c == "" {
		return ""
	}
	return "[redacted]"
}

// BurnerAccount is a disposable signing identity deployed on-chain
type BurnerAccount struct {
	Address    Felt       `json:"address"`
	Credential Credential `json:"credential"`
	DeployTx   Felt       `json:"deploy_tx"`
	CreatedAt  time.Time  `json:"created_at"`
}

// MasterAccount sponsors burner deployment. It is fixed at process start.
type MasterAccount struct {
	Address    Felt
	Credential Credential
}

// AccountSet is the persisted burner state of one session.
// At most one account is selected and it is always a member of Accounts.
type AccountSet struct {
	Accounts []BurnerAccount `json:"accounts"`
	Selected *Felt           `json:"selected,omitempty"`
}

// NewAccountSet creates an empty account set
func NewAccountSet() *AccountSet {
	return &AccountSet{Accounts: []BurnerAccount{}}
}

// List returns a copy of the accounts in creation order
func (s *AccountSet) List() []BurnerAccount {
	out := make([]BurnerAccount, len(s.Accounts))
	copy(out, s.Accounts)
	return out
}

// Find looks an account up by address
func (s *AccountSet) Find(address Felt) (BurnerAccount, bool) {
	for _, acc := range s.Accounts {
		if acc.Address.Equal(address) {
			return acc, true
		}
	}
	return BurnerAccount{}, false
}

// Add appends an account unless one with the same address is already known
func (s *AccountSet) Add(acc BurnerAccount) {
	if _, ok := s.Find(acc.Address); ok {
		return
	}
	s.Accounts = append(s.Accounts, acc)
}

// Select makes address the active account. Unknown addresses are ignored.
func (s *AccountSet) Select(address Felt) bool {
	if _, ok := s.Find(address); !ok {
		return false
	}
	selected := address
	s.Selected = &selected
	return true
}

// Active returns the selected account, if any
func (s *AccountSet) Active() (BurnerAccount, bool) {
	if s.Selected == nil {
		return BurnerAccount{}, false
	}
	return s.Find(*s.Selected)
}

// Clear deselects and forgets every account
func (s *AccountSet) Clear() {
	s.Accounts = []BurnerAccount{}
	s.Selected = nil
}

// Normalize drops a selection that no longer points at a known account
func (s *AccountSet) Normalize() {
	if s.Accounts == nil {
		s.Accounts = []BurnerAccount{}
	}
	if _, ok := s.Active(); !ok {
		s.Selected = nil
	}
}
