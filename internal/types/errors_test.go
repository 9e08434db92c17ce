package types

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAppError_IsMatchesKindAndCode(t *testing.T) {
	err := NewConflict("previously rejected").WithCode(CodeTrackPreviouslyRejected)
	wrapped := fmt.Errorf("create suggestion: %w", err)

	assert.True(t, errors.Is(wrapped, &AppError{Kind: KindConflict}))
	assert.True(t, errors.Is(wrapped, &AppError{Kind: KindConflict, Code: CodeTrackPreviouslyRejected}))
	assert.False(t, errors.Is(wrapped, &AppError{Kind: KindConflict, Code: CodeTrackAlreadyInPlaylist}))
	assert.False(t, errors.Is(wrapped, &AppError{Kind: KindValidation}))
}

func TestAppError_UnwrapAndMessage(t *testing.T) {
	cause := errors.New("503 from provider")
	err := NewUpstreamUnavailable(cause)

	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "Provider request failed: 503 from provider", err.Error())
	assert.Equal(t, "not found", NewNotFound("not found").Error())
}

func TestNewUpstreamAuth_MessageDependsOnActor(t *testing.T) {
	owner := NewUpstreamAuth(true, nil)
	member := NewUpstreamAuth(false, nil)

	assert.True(t, owner.OwnerAction)
	assert.False(t, member.OwnerAction)
	assert.NotEqual(t, owner.Message, member.Message)
}

func TestIsKind(t *testing.T) {
	assert.True(t, IsKind(fmt.Errorf("x: %w", NewPermission("nope")), KindPermission))
	assert.False(t, IsKind(errors.New("plain"), KindPermission))
}
