package session

import (
	"time"

	"github.com/jellydator/ttlcache/v3"

	"go.pilab.hu/portal/domain"
)

const credentialKey = "access"

// Store is the process-local home of the access credential. The entry's
// TTL is the credential's remaining lifetime, so an expired credential
// reads as absent.
type Store struct {
	cache *ttlcache.Cache[string, domain.AccessToken]
	now   func() time.Time
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		cache: ttlcache.New(
			ttlcache.WithDisableTouchOnHit[string, domain.AccessToken](),
		),
		now: time.Now,
	}
}

// Get returns the current credential if one is held and unexpired.
func (s *Store) Get() (domain.AccessToken, bool) {
	item := s.cache.Get(credentialKey)
	if item == nil {
		return domain.AccessToken{}, false
	}
	tok := item.Value()
	if !tok.Valid(s.now()) {
		return domain.AccessToken{}, false
	}
	return tok, true
}

// Set replaces the credential. An already expired credential clears the
// store instead.
func (s *Store) Set(tok domain.AccessToken) {
	ttl := tok.Remaining(s.now())
	if tok.AccessToken == "" || ttl <= 0 {
		s.Clear()
		return
	}
	s.cache.Set(credentialKey, tok, ttl)
}

// Clear drops the credential.
func (s *Store) Clear() {
	s.cache.DeleteAll()
}

// IsAuthenticated is derived from the presence of a valid credential.
func (s *Store) IsAuthenticated() bool {
	_, ok := s.Get()
	return ok
}

// Token implements client.TokenSource.
func (s *Store) Token() (string, bool) {
	tok, ok := s.Get()
	return tok.AccessToken, ok
}
