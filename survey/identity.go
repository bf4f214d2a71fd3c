package survey

import (
	"context"
	"fmt"
)

// AnonymIDKey is the session key holding an anonymous respondent's identity.
const AnonymIDKey = "ANONYM_ID"

// AuthenticatedAnonymID marks answers given by authenticated users. It is never
// issued to an anonymous session.
const AuthenticatedAnonymID = 0

// Session is the per-client key-value storage an identity is kept in.
type Session interface {
	GetInt(key string) (int, bool)
	SetInt(key string, value int)
}

// IDSequence hands out anonymous identities. NextAnonymID must be atomic: two
// concurrent callers never receive the same value.
type IDSequence interface {
	NextAnonymID(ctx context.Context) (int, error)
}

type IdentityAssigner struct {
	seq IDSequence
}

func NewIdentityAssigner(seq IDSequence) *IdentityAssigner {
	return &IdentityAssigner{seq: seq}
}

// Assign returns the identity stored in the session, drawing a new one from the
// sequence on the session's first anonymous submission. created reports whether
// the session was modified and needs saving.
func (a *IdentityAssigner) Assign(ctx context.Context, sess Session) (id int, created bool, err error) {
	if id, ok := sess.GetInt(AnonymIDKey); ok && id > AuthenticatedAnonymID {
		return id, false, nil
	}

	id, err = a.seq.NextAnonymID(ctx)
	if err != nil {
		return 0, false, err
	}
	if id <= AuthenticatedAnonymID {
		return 0, false, fmt.Errorf("anonym id sequence returned reserved value %d", id)
	}

	sess.SetInt(AnonymIDKey, id)
	return id, true, nil
}
