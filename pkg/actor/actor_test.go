package actor

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestActorContextRoundTrip(t *testing.T) {
	a := &Actor{ID: uuid.New(), Role: RoleManager}
	ctx := WithActor(context.Background(), a)

	assert.Equal(t, a, FromContext(ctx))
	assert.Nil(t, FromContext(context.Background()))
}

func TestActor_IsPrivileged(t *testing.T) {
	assert.False(t, (&Actor{Role: RoleEmployee}).IsPrivileged())
	assert.True(t, (&Actor{Role: RoleManager}).IsPrivileged())
	assert.True(t, (&Actor{Role: RoleAdmin}).IsPrivileged())
	assert.False(t, (*Actor)(nil).IsPrivileged())
}

func TestActor_IDOrNil(t *testing.T) {
	assert.Nil(t, SystemActor().IDOrNil())
	assert.Nil(t, (*Actor)(nil).IDOrNil())

	id := uuid.New()
	got := (&Actor{ID: id}).IDOrNil()
	if assert.NotNil(t, got) {
		assert.Equal(t, id, *got)
	}
}

func TestRole_Valid(t *testing.T) {
	assert.True(t, RoleAdmin.Valid())
	assert.False(t, Role("owner").Valid())
}
