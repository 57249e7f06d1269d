package httpadapter

import (
	"net/http"

	"github.com/kirillkom/docudesk/internal/core/domain"
)

// Kinds are checked in order; the first match wins.
var statusByKind = []struct {
	kind   error
	status int
}{
	{domain.ErrInvalidInput, http.StatusBadRequest},
	{domain.ErrDocumentNotFound, http.StatusNotFound},
	{domain.ErrPrecondition, http.StatusPreconditionFailed},
	{domain.ErrTemporary, http.StatusServiceUnavailable},
}

func mapErrorToHTTPStatus(err error) int {
	for _, m := range statusByKind {
		if domain.IsKind(err, m.kind) {
			return m.status
		}
	}
	return http.StatusInternalServerError
}
