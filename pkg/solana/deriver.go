package solana

import (
	"crypto/ed25519"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/pkg/errors"
)

// DefaultDeriverCacheSize bounds the deriver memoization cache. Derived
// addresses are pure functions of their inputs, so entries never go stale;
// the bound only caps memory.
const DefaultDeriverCacheSize = 512

// Derived is a program derived address together with the bump seed that
// produced it.
type Derived struct {
	Address ed25519.PublicKey
	Bump    uint8
}

// AddressDeriver derives program owned addresses for a single program and
// memoizes the results. Derivation walks up to 256 bump seeds with a hash
// and a curve check per step, which is worth skipping on the hot path.
//
// The deriver is safe for concurrent use. It is an explicitly constructed
// object rather than a package level cache so that each engine instance
// owns and scopes its own state.
type AddressDeriver struct {
	program ed25519.PublicKey
	cache   *lru.Cache[string, Derived]
}

// NewAddressDeriver returns a deriver for the given program. A cacheSize
// of zero or less uses DefaultDeriverCacheSize.
func NewAddressDeriver(program ed25519.PublicKey, cacheSize int) (*AddressDeriver, error) {
	if len(program) != ed25519.PublicKeySize {
		return nil, errors.Errorf("invalid program id length: %d", len(program))
	}

	if cacheSize <= 0 {
		cacheSize = DefaultDeriverCacheSize
	}

	cache, err := lru.New[string, Derived](cacheSize)
	if err != nil {
		return nil, errors.Wrap(err, "failed to initialize memoization cache")
	}

	return &AddressDeriver{
		program: program,
		cache:   cache,
	}, nil
}

// Program returns the program id addresses are derived for.
func (d *AddressDeriver) Program() ed25519.PublicKey {
	return d.program
}

// Derive computes the program derived address for the provided seeds,
// consulting the memoization cache first.
func (d *AddressDeriver) Derive(seeds ...[]byte) (Derived, error) {
	key := cacheKey(seeds)

	if cached, ok := d.cache.Get(key); ok {
		return cached, nil
	}

	address, bump, err := FindProgramAddressAndBump(d.program, seeds...)
	if err != nil {
		return Derived{}, err
	}

	derived := Derived{
		Address: address,
		Bump:    bump,
	}
	d.cache.Add(key, derived)

	return derived, nil
}

// cacheKey length-prefixes each seed so that distinct seed lists can never
// collide on concatenation.
func cacheKey(seeds [][]byte) string {
	var size int
	for _, s := range seeds {
		size += 1 + len(s)
	}

	key := make([]byte, 0, size)
	for _, s := range seeds {
		key = append(key, byte(len(s)))
		key = append(key, s...)
	}
	return string(key)
}
