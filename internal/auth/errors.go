package auth

import (
	"net/http"

	"github.com/franciscosanchezn/gin-entitlement-auth/internal/models"
)

// Error is a protocol error carrying an RFC 6749 / RFC 6750 error code and the HTTP status to answer with.
type Error struct {
	Code        string
	Description string
	Status      int

	parent *Error
}

func (e *Error) Error() string {
	if e.Description == "" {
		return e.Code
	}
	return e.Code + ": " + e.Description
}

// Is matches copies made with WithDescription against their sentinel.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.root() == t.root()
}

// WithDescription returns a copy of the sentinel with a specific description.
func (e *Error) WithDescription(description string) *Error {
	c := *e
	c.Description = description
	c.parent = e.root()
	return &c
}

func (e *Error) root() *Error {
	if e.parent != nil {
		return e.parent
	}
	return e
}

// Response renders the error in the OAuth2 JSON vocabulary.
func (e *Error) Response() models.OAuth2Error {
	return models.NewOAuth2Error(e.Code, e.Description)
}

var (
	ErrInvalidRequest          = &Error{Code: models.ErrInvalidRequest, Status: http.StatusBadRequest}
	ErrInvalidClient           = &Error{Code: models.ErrInvalidClient, Status: http.StatusUnauthorized, Description: "client authentication failed"}
	ErrInvalidRedirectURI      = &Error{Code: models.ErrInvalidRequest, Status: http.StatusBadRequest, Description: "redirect_uri is not registered for this client"}
	ErrUnsupportedResponseType = &Error{Code: models.ErrUnsupportedResponseType, Status: http.StatusBadRequest}
	ErrUnsupportedGrantType    = &Error{Code: models.ErrUnsupportedGrantType, Status: http.StatusBadRequest}
	ErrUnauthorizedClient      = &Error{Code: models.ErrUnauthorizedClient, Status: http.StatusBadRequest}
	ErrInvalidGrant            = &Error{Code: models.ErrInvalidGrant, Status: http.StatusBadRequest}
	ErrInvalidScope            = &Error{Code: models.ErrInvalidScope, Status: http.StatusBadRequest}
	ErrAccessDenied            = &Error{Code: models.ErrAccessDenied, Status: http.StatusForbidden}
	ErrInvalidToken            = &Error{Code: models.ErrInvalidToken, Status: http.StatusUnauthorized}
	ErrInsufficientScope       = &Error{Code: models.ErrInsufficientScope, Status: http.StatusForbidden}
	ErrServerError             = &Error{Code: models.ErrServerError, Status: http.StatusInternalServerError}
)
