package session

import (
	"errors"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/mr-tron/base58"
)

var ErrInvalidPubkey = errors.New("invalid public key")

// ParsePubkey validates an operator supplied base58 account identifier.
func ParsePubkey(s string) (solana.PublicKey, error) {
	raw, err := base58.Decode(s)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("%w %q: %v", ErrInvalidPubkey, s, err)
	}
	if len(raw) != solana.PublicKeyLength {
		return solana.PublicKey{}, fmt.Errorf("%w %q: decoded to %d bytes, want %d", ErrInvalidPubkey, s, len(raw), solana.PublicKeyLength)
	}
	return solana.PublicKeyFromBytes(raw), nil
}

// Selection is an insertion ordered set of account keys.
type Selection struct {
	order []solana.PublicKey
	index map[solana.PublicKey]struct{}
}

func NewSelection() *Selection {
	return &Selection{index: make(map[solana.PublicKey]struct{})}
}

// Toggle adds pk if absent and removes it otherwise. It reports whether pk is
// selected afterwards.
func (s *Selection) Toggle(pk solana.PublicKey) bool {
	if _, ok := s.index[pk]; ok {
		s.remove(pk)
		return false
	}
	s.index[pk] = struct{}{}
	s.order = append(s.order, pk)
	return true
}

func (s *Selection) Contains(pk solana.PublicKey) bool {
	_, ok := s.index[pk]
	return ok
}

func (s *Selection) Len() int {
	return len(s.order)
}

// Keys returns the selected keys in the order they were added.
func (s *Selection) Keys() []solana.PublicKey {
	out := make([]solana.PublicKey, len(s.order))
	copy(out, s.order)
	return out
}

func (s *Selection) Clear() {
	s.order = nil
	s.index = make(map[solana.PublicKey]struct{})
}

// Retain drops every key for which keep returns false and reports how many
// were dropped.
func (s *Selection) Retain(keep func(solana.PublicKey) bool) int {
	kept := s.order[:0]
	dropped := 0
	for _, pk := range s.order {
		if keep(pk) {
			kept = append(kept, pk)
			continue
		}
		delete(s.index, pk)
		dropped++
	}
	s.order = kept
	return dropped
}

func (s *Selection) remove(pk solana.PublicKey) {
	delete(s.index, pk)
	for i, k := range s.order {
		if k.Equals(pk) {
			s.order = append(s.order[:i], s.order[i+1:]...)
			return
		}
	}
}
