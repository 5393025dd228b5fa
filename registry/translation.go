package registry

import "github.com/pkg/errors"

// ErrConflictingDescription is returned when a remote ID is bound to a
// local ID that contradicts a previously-inserted mapping.
var ErrConflictingDescription = errors.New("vrpn: conflicting description")

// ErrUnknownRemoteId names the translation miss: a remote ID this table has
// never seen a description for. Translate reports a miss as ok == false and
// does not return this error; the endpoint drops such messages and counts
// them in its stats.
var ErrUnknownRemoteId = errors.New("vrpn: unknown remote id")

// TranslationTable maps a peer's local IDs to this side's local IDs, as
// populated by SENDER_DESCRIPTION/TYPE_DESCRIPTION messages arrive. Because
// the protocol guarantees remote IDs are small and sequentially allocated,
// it is backed by a dense slice indexed by remote ID rather than a map.
type TranslationTable[ID ~int32] struct {
	local []ID
	known []bool
}

// NewTranslationTable creates an empty translation table.
func NewTranslationTable[ID ~int32]() *TranslationTable[ID] {
	return &TranslationTable[ID]{}
}

func (t *TranslationTable[ID]) ensure(remote ID) {
	if int(remote) >= len(t.local) {
		grown := make([]ID, remote+1)
		copy(grown, t.local)
		t.local = grown

		grownKnown := make([]bool, remote+1)
		copy(grownKnown, t.known)
		t.known = grownKnown
	}
}

// Insert records remote -> local. Inserting the same mapping again is a
// no-op; inserting a conflicting mapping for an already-bound remote ID
// fails with ErrConflictingDescription.
func (t *TranslationTable[ID]) Insert(remote, local ID) error {
	if remote < 0 {
		return errors.Wrapf(ErrConflictingDescription, "negative remote id %d", remote)
	}
	t.ensure(remote)
	if t.known[remote] {
		if t.local[remote] != local {
			return errors.Wrapf(ErrConflictingDescription,
				"remote %d already bound to local %d, cannot rebind to %d",
				remote, t.local[remote], local)
		}
		return nil
	}
	t.local[remote] = local
	t.known[remote] = true
	return nil
}

// Translate returns the local ID bound to remote, if any.
func (t *TranslationTable[ID]) Translate(remote ID) (ID, bool) {
	if remote < 0 || int(remote) >= len(t.known) || !t.known[remote] {
		return 0, false
	}
	return t.local[remote], true
}
