package ports

import "github.com/layer-3/burner/core"

// Tokenizer converts between sessions and cookie tokens
type Tokenizer interface {
	SessionToToken(session *core.Session) (string, error)
	TokenToSession(token string) (*core.Session, error)
}
