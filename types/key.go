package types

import "golang.org/x/text/cases"

/*
CompositeKey identifies one cache entry: a primary key scoped to a session.

The session is a plain partition label. An empty session is a valid
partition of its own, it does NOT mean "any session".

Both parts compare case-insensitively. Instead of repeating that rule at
every lookup, the key exposes its identity through ID(), and every map,
scan and clear in the cache goes through it.
*/
type CompositeKey struct {
	key     string
	session string
	id      KeyID
}

// KeyID is the comparable, case-folded identity of a CompositeKey.
// Two CompositeKeys are equal iff their KeyIDs are equal.
type KeyID struct {
	Key     string
	Session string
}

// NewCompositeKey builds a key. The original spelling of both parts is kept
// for display; the folded form is computed once here.
func NewCompositeKey(key, session string) CompositeKey {
	return CompositeKey{
		key:     key,
		session: session,
		id:      KeyID{Key: Fold(key), Session: Fold(session)},
	}
}

// Key returns the primary key as it was given.
func (k CompositeKey) Key() string { return k.key }

// Session returns the session label as it was given.
func (k CompositeKey) Session() string { return k.session }

// ID returns the case-folded identity used for hashing and equality.
func (k CompositeKey) ID() KeyID { return k.id }

// Equal reports whether both keys name the same entry.
func (k CompositeKey) Equal(other CompositeKey) bool { return k.id == other.id }

func (k CompositeKey) String() string { return k.key + "|" + k.session }

// Fold returns the caseless form of s. A Caser is stateful, so a fresh one
// is built per call instead of sharing one across goroutines.
func Fold(s string) string {
	if s == "" {
		return s
	}
	return cases.Fold().String(s)
}
