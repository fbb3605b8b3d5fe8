package response

import (
	"errors"
	"log"
	"net/http"

	"blogauth/internal/pkg/apperr"

	"github.com/gin-gonic/gin"
)

func Success(c *gin.Context, statusCode int, data interface{}) {
	c.JSON(statusCode, gin.H{
		"success": true,
		"data":    data,
	})
}

func Error(c *gin.Context, statusCode int, code string, message string) {
	c.JSON(statusCode, gin.H{
		"success": false,
		"error": gin.H{
			"code":    code,
			"message": message,
		},
	})
}

var kindStatus = map[apperr.Kind]struct {
	status int
	code   string
}{
	apperr.Unauthorized:  {http.StatusUnauthorized, "UNAUTHORIZED"},
	apperr.Forbidden:     {http.StatusForbidden, "FORBIDDEN"},
	apperr.NotFound:      {http.StatusNotFound, "NOT_FOUND"},
	apperr.Conflict:      {http.StatusConflict, "CONFLICT"},
	apperr.Unprocessable: {http.StatusUnprocessableEntity, "UNPROCESSABLE"},
	apperr.Internal:      {http.StatusInternalServerError, "INTERNAL"},
}

// FromError is the single place service errors become HTTP responses.
// Internal failures are logged with their cause and reported generically.
func FromError(c *gin.Context, err error) {
	kind := apperr.KindOf(err)
	m := kindStatus[kind]

	if kind == apperr.Internal {
		log.Printf("internal error: %v", err)
		Error(c, m.status, m.code, "Something went wrong")
		return
	}

	var e *apperr.Error
	if errors.As(err, &e) {
		Error(c, m.status, m.code, e.Message)
		return
	}
	Error(c, m.status, m.code, err.Error())
}
