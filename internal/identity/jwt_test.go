package identity

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opencivic/civicflow/internal/models"
)

func TestTokenIssuer_RoundTrip(t *testing.T) {
	issuer := NewTokenIssuer("test-secret", time.Hour)

	user := &models.User{
		ID:                   "user-1",
		Role:                 models.RoleDepartmentAdmin,
		AssignedDepartmentID: "dept-roads",
	}

	token, err := issuer.Issue(user)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	actor, err := issuer.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", actor.ID)
	assert.Equal(t, models.RoleDepartmentAdmin, actor.Role)
	assert.Equal(t, "dept-roads", actor.AssignedDepartmentID)
}

func TestTokenIssuer_RejectsBadToken(t *testing.T) {
	issuer := NewTokenIssuer("test-secret", time.Hour)

	_, err := issuer.Verify("not-a-token")
	assert.ErrorIs(t, err, ErrUnauthenticated)
}

func TestTokenIssuer_RejectsWrongSecret(t *testing.T) {
	issuer := NewTokenIssuer("test-secret", time.Hour)
	other := NewTokenIssuer("other-secret", time.Hour)

	token, err := issuer.Issue(&models.User{ID: "user-1", Role: models.RoleCitizen})
	require.NoError(t, err)

	_, err = other.Verify(token)
	assert.ErrorIs(t, err, ErrUnauthenticated)
}

func TestTokenIssuer_RejectsExpiredToken(t *testing.T) {
	issuer := NewTokenIssuer("test-secret", -time.Minute)

	token, err := issuer.Issue(&models.User{ID: "user-1", Role: models.RoleCitizen})
	require.NoError(t, err)

	_, err = issuer.Verify(token)
	assert.ErrorIs(t, err, ErrUnauthenticated)
}

func TestContextIdentity(t *testing.T) {
	id := ContextIdentity{}

	_, err := id.CurrentActor(context.Background())
	assert.ErrorIs(t, err, ErrUnauthenticated)

	ctx := WithActor(context.Background(), Actor{ID: "user-1", Role: models.RoleCitizen})
	actor, err := id.CurrentActor(ctx)
	require.NoError(t, err)
	assert.Equal(t, "user-1", actor.ID)
}
