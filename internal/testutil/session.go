package testutil

// DefaultSession is the token used when a scenario names none.
const DefaultSession = "test-session-default"

// FixedSessionGenerator returns the same session token every time, so every
// op a scenario issues lands under one token and the op log is
// byte-identical across runs.
//
// Unlike engine.FixedGenerator, which hands out a list of tokens in order,
// this generator never runs out.
//
// Thread-safety: FixedSessionGenerator is stateless and safe for concurrent use.
type FixedSessionGenerator struct {
	token string
}

// NewFixedSessionGenerator creates a generator for token. The token usually
// comes from the scenario YAML:
//
//	session: "test-session-00000000-0000-0000-0000-000000000001"
//
// If token is empty, Generate() returns DefaultSession.
func NewFixedSessionGenerator(token string) *FixedSessionGenerator {
	if token == "" {
		token = DefaultSession
	}
	return &FixedSessionGenerator{token: token}
}

// Generate returns the fixed token.
//
// Implements engine.SessionGenerator.
func (g *FixedSessionGenerator) Generate() string {
	return g.token
}
