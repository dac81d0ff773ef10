package services

import (
	"errors"
	"net/http"

	goa "goa.design/goa/v3/pkg"

	apperrors "orlandiv/pkg/errors"
)

// Error names carried by API error responses
const (
	ErrNameBadRequest   = "bad_request"
	ErrNameInvalid      = "invalid"
	ErrNameUnauthorized = "unauthorized"
	ErrNameNotFound     = "not_found"
	ErrNameUpstream     = "upstream"
	ErrNameInternal     = "internal"
)

// BadRequest creates a properly formatted bad request error
func BadRequest(message string) *goa.ServiceError {
	return goa.NewServiceError(errors.New(message), ErrNameBadRequest, false, false, false)
}

// Unauthorized creates a properly formatted unauthorized error
func Unauthorized(message string) *goa.ServiceError {
	return goa.NewServiceError(errors.New(message), ErrNameUnauthorized, false, false, false)
}

// ToServiceError maps a service or backend error onto a goa service error.
// The message is always the text meant for the visitor.
func ToServiceError(err error) *goa.ServiceError {
	if err == nil {
		return nil
	}

	var se *goa.ServiceError
	if errors.As(err, &se) {
		return se
	}

	var verrs ValidationErrors
	if errors.As(err, &verrs) {
		return goa.NewServiceError(errors.New(verrs.First()), ErrNameInvalid, false, false, false)
	}

	msg := apperrors.MessageOf(err)
	switch apperrors.CodeOf(err) {
	case apperrors.ErrCodeBadRequest, apperrors.ErrCodeValidation:
		return goa.NewServiceError(errors.New(msg), ErrNameBadRequest, false, false, false)
	case apperrors.ErrCodeUnauthorized:
		return goa.NewServiceError(errors.New(msg), ErrNameUnauthorized, false, false, false)
	case apperrors.ErrCodeNotFound:
		return goa.NewServiceError(errors.New(msg), ErrNameNotFound, false, false, false)
	case apperrors.ErrCodeUpstream:
		return goa.NewServiceError(errors.New(msg), ErrNameUpstream, false, false, true)
	}
	return goa.NewServiceError(errors.New(msg), ErrNameInternal, false, false, true)
}

// HTTPStatus returns the response status for a service error
func HTTPStatus(se *goa.ServiceError) int {
	switch se.Name {
	case ErrNameBadRequest:
		return http.StatusBadRequest
	case ErrNameInvalid:
		return http.StatusUnprocessableEntity
	case ErrNameUnauthorized:
		return http.StatusUnauthorized
	case ErrNameNotFound:
		return http.StatusNotFound
	case ErrNameUpstream:
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}
