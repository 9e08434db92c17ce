package types

import (
	"errors"
	"fmt"
)

type ErrorKind string

const (
	KindValidation          ErrorKind = "validation"
	KindNotFound            ErrorKind = "not_found"
	KindConflict            ErrorKind = "conflict"
	KindPermission          ErrorKind = "permission"
	KindUpstreamAuth        ErrorKind = "upstream_auth"
	KindUpstreamUnavailable ErrorKind = "upstream_unavailable"
)

// Machine-readable codes returned alongside conflicts and validation failures.
const (
	CodeTrackPreviouslyRejected      = "TRACK_PREVIOUSLY_REJECTED"
	CodePersonalSuggestionsDisabled  = "PERSONAL_PLAYLIST_SUGGESTIONS_DISABLED"
	CodePersonalSettingsDisabled     = "PERSONAL_PLAYLIST_SETTINGS_DISABLED"
	CodeCollaborativeDirectAddDenied = "COLLABORATIVE_PLAYLIST_DIRECT_ADD_DISABLED"
	CodeTrackAlreadyInPlaylist       = "TRACK_ALREADY_IN_PLAYLIST"
)

type AppError struct {
	Kind    ErrorKind
	Code    string
	Message string
	// OwnerAction marks upstream auth failures hit by the playlist owner, who can
	// reconnect, as opposed to a member who has to ask the owner.
	OwnerAction bool
	Err         error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Is matches another *AppError by kind and, when the target sets one, by code.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	if t.Kind != e.Kind {
		return false
	}
	return t.Code == "" || t.Code == e.Code
}

func NewValidation(message string) *AppError {
	return &AppError{Kind: KindValidation, Message: message}
}

func NewNotFound(message string) *AppError {
	return &AppError{Kind: KindNotFound, Message: message}
}

func NewConflict(message string) *AppError {
	return &AppError{Kind: KindConflict, Message: message}
}

func NewPermission(message string) *AppError {
	return &AppError{Kind: KindPermission, Message: message}
}

func NewUpstreamAuth(ownerAction bool, err error) *AppError {
	message := "Playlist owner must reconnect their provider account"
	if ownerAction {
		message = "Provider authorization expired or invalid"
	}
	return &AppError{Kind: KindUpstreamAuth, Message: message, OwnerAction: ownerAction, Err: err}
}

func NewUpstreamUnavailable(err error) *AppError {
	return &AppError{Kind: KindUpstreamUnavailable, Message: "Provider request failed", Err: err}
}

func (e *AppError) WithCode(code string) *AppError {
	e.Code = code
	return e
}

// AsAppError unwraps err into an *AppError if the chain carries one.
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// IsKind reports whether err carries an *AppError of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	appErr, ok := AsAppError(err)
	return ok && appErr.Kind == kind
}
