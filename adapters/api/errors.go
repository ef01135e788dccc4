package api

import (
	"net/http"

	"adpulse/internal/errors"

	"github.com/go-chi/render"
)

// statusFor maps an application error code onto an HTTP status
func statusFor(code string) int {
	switch code {
	case errors.CodeInvalidInput, errors.CodeLengthMismatch, errors.CodeValidationError:
		return http.StatusBadRequest
	case errors.CodeNotFound, errors.CodeUnknownSource:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	code := errors.GetCode(err)
	status := statusFor(code)

	message := err.Error()
	if status == http.StatusInternalServerError {
		s.logger.Error("request failed", "path", r.URL.Path, "error", err)
		if code == "UNKNOWN" {
			code = errors.CodeInternalError
		}
		message = "internal server error"
	}

	render.Status(r, status)
	render.JSON(w, r, errorResponse{Code: code, Message: message})
}
