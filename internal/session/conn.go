package session

import (
	"github.com/google/uuid"

	"interview/internal/auth"
)

// ConnContext is built once when a connection is accepted and passed to every
// event handler. Fields are unexported so handlers cannot rebind the identity.
type ConnContext struct {
	id       string
	identity *auth.CandidateIdentity
	client   *Client
}

func NewConnContext(identity *auth.CandidateIdentity, client *Client) *ConnContext {
	cc := &ConnContext{id: uuid.NewString(), client: client}
	if identity != nil {
		copied := *identity
		cc.identity = &copied
	}
	return cc
}

func (c *ConnContext) ID() string      { return c.id }
func (c *ConnContext) Client() *Client { return c.client }

func (c *ConnContext) Authenticated() bool { return c.identity != nil }

// Identity returns a copy of the caller's identity. ok is false for unauthenticated connections.
func (c *ConnContext) Identity() (identity auth.CandidateIdentity, ok bool) {
	if c.identity == nil {
		return auth.CandidateIdentity{}, false
	}
	return *c.identity, true
}

func (c *ConnContext) CandidateID() string {
	if c.identity == nil {
		return ""
	}
	return c.identity.ID
}
