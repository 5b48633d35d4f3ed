package utils

import (
	"errors"
	"sync"

	"golang.org/x/crypto/bcrypt"
)

// ErrPasswordTooLong is returned for passwords bcrypt would truncate.
var ErrPasswordTooLong = errors.New("password must be at most 72 bytes")

// Passwords hashes and checks account passwords at the configured bcrypt
// cost (BCRYPT_COST).
type Passwords struct {
	cost int

	once  sync.Once
	decoy []byte
}

// NewPasswords returns a hasher for cost.  A cost outside bcrypt's range
// falls back to bcrypt.DefaultCost.
func NewPasswords(cost int) *Passwords {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &Passwords{cost: cost}
}

// Cost reports the bcrypt cost new hashes are generated with.
func (p *Passwords) Cost() int { return p.cost }

// Hash returns the bcrypt hash of plain.
func (p *Passwords) Hash(plain string) (string, error) {
	if len(plain) > 72 {
		return "", ErrPasswordTooLong
	}
	b, err := bcrypt.GenerateFromPassword([]byte(plain), p.cost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Verify reports whether plain matches hash.
func (p *Passwords) Verify(hash, plain string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}

// VerifyUnknown spends the same bcrypt work as Verify for a login whose
// email has no account, so response time does not reveal which emails
// are registered.  It always reports false.
func (p *Passwords) VerifyUnknown(plain string) bool {
	p.once.Do(func() {
		p.decoy, _ = bcrypt.GenerateFromPassword([]byte("booktable-decoy"), p.cost)
	})
	_ = bcrypt.CompareHashAndPassword(p.decoy, []byte(plain))
	return false
}

// Outdated reports whether hash was generated at a different cost than
// the configured one.
func (p *Passwords) Outdated(hash string) bool {
	c, err := bcrypt.Cost([]byte(hash))
	return err != nil || c != p.cost
}
