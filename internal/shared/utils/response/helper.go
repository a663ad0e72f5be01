package response

import (
	"net/http"

	"ticketing/internal/shared/apperr"
	"ticketing/pkg/logger"

	"github.com/gin-gonic/gin"
)

func RespondJSON(c *gin.Context, status string, code int, message string, data interface{}, errors interface{}) {
	c.JSON(code, StandardApiResponse{
		Status:     status,
		StatusCode: code,
		Message:    message,
		Data:       data,
		Errors:     errors,
	})
}

// RespondError maps a service error onto the standard envelope. Conflicts carry
// the offending seat identities; server-side failures hide their cause in
// release mode.
func RespondError(c *gin.Context, err error) {
	code := apperr.HTTPStatus(err)
	message := apperr.MessageOf(err)

	var details interface{}
	switch {
	case code >= http.StatusInternalServerError:
		logger.GetDefault().LogHTTPError(c, err, code)
		if gin.Mode() != gin.ReleaseMode {
			details = ErrorDetail{Kind: string(apperr.KindOf(err)), Detail: err.Error()}
		}
	default:
		details = ErrorDetail{Kind: string(apperr.KindOf(err)), Offenders: apperr.OffendersOf(err)}
	}

	RespondJSON(c, "error", code, message, nil, details)
}
