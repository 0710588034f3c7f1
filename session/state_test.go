package session

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"go.pilab.hu/portal/domain"
)

func TestReduce(t *testing.T) {
	u := &domain.User{ID: "u1", Roles: []domain.Role{domain.RoleUser}}

	s := Reduce(State{}, SessionEstablished{})
	assert.True(t, s.Authenticated)

	s = Reduce(s, SetProfile{User: u})
	assert.Equal(t, "u1", s.Profile.ID)
	u.ID = "mutated"
	assert.Equal(t, "u1", s.Profile.ID, "profile is copied")

	s = Reduce(s, SetProfile{})
	assert.NotNil(t, s.Profile, "nil profile is ignored")

	s = Reduce(s, SessionCleared{})
	assert.False(t, s.Authenticated)
	assert.NotNil(t, s.Profile)

	s = Reduce(s, ResetProfile{})
	assert.Nil(t, s.Profile)
}

func TestDispatcher_NotifiesOncePerDispatch(t *testing.T) {
	d := NewDispatcher()
	var seen []State
	d.Subscribe(func(s State) { seen = append(seen, s) })

	d.Dispatch(SessionEstablished{}, SetProfile{User: &domain.User{ID: "u1"}})
	d.Dispatch(SessionCleared{}, ResetProfile{})

	assert.Len(t, seen, 2)
	assert.True(t, seen[0].Authenticated)
	assert.Equal(t, State{}, d.Snapshot())
}
