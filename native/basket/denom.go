package basket

import "strings"

// DenomID is the interned integer identifier standing in for a collateral or
// credit denom string. Persisted maps and hot-path comparisons key on the ID
// rather than the string; the canonical string is kept once in CollateralSpec.
type DenomID uint32

// Interner assigns stable, monotonically increasing DenomIDs to denom
// strings. It is not safe for concurrent use without external locking; the
// engines that read a Basket hold no lock of their own around it.
type Interner struct {
	byString map[string]DenomID
	byID     []string
}

// NewInterner returns an empty denom interning table.
func NewInterner() *Interner {
	return &Interner{byString: make(map[string]DenomID)}
}

// Intern returns the DenomID for denom, assigning a new one if this is the
// first time the denom has been seen. Denom strings are matched case-
// sensitively; callers are expected to canonicalize case before interning.
func (n *Interner) Intern(denom string) DenomID {
	denom = strings.TrimSpace(denom)
	if id, ok := n.byString[denom]; ok {
		return id
	}
	id := DenomID(len(n.byID))
	n.byString[denom] = id
	n.byID = append(n.byID, denom)
	return id
}

// Lookup returns the DenomID already assigned to denom, if any.
func (n *Interner) Lookup(denom string) (DenomID, bool) {
	id, ok := n.byString[strings.TrimSpace(denom)]
	return id, ok
}

// String returns the canonical denom string for id, or "" if unknown.
func (n *Interner) String(id DenomID) string {
	if int(id) < 0 || int(id) >= len(n.byID) {
		return ""
	}
	return n.byID[id]
}

// Len reports how many distinct denoms have been interned.
func (n *Interner) Len() int {
	return len(n.byID)
}
