package response

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"ticketing/internal/shared/apperr"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func respond(t *testing.T, mode string, err error) (int, StandardApiResponse, map[string]interface{}) {
	t.Helper()
	gin.SetMode(mode)
	defer gin.SetMode(gin.TestMode)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/api/v1/seats/reserve", nil)
	RespondError(c, err)

	var body StandardApiResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	details, _ := body.Errors.(map[string]interface{})
	return w.Code, body, details
}

func TestRespondError_ConflictCarriesOffenders(t *testing.T) {
	code, body, details := respond(t, gin.TestMode, apperr.Conflict("some seats are not available", "seat-1"))

	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, "error", body.Status)
	assert.Equal(t, "some seats are not available", body.Message)
	assert.Equal(t, "conflict", details["kind"])
	assert.Equal(t, []interface{}{"seat-1"}, details["offenders"])
}

func TestRespondError_InternalDetailHiddenInRelease(t *testing.T) {
	cause := errors.New("pq: deadlock detected")

	code, body, details := respond(t, gin.DebugMode, cause)
	assert.Equal(t, http.StatusInternalServerError, code)
	assert.Equal(t, "internal server error", body.Message)
	assert.Equal(t, cause.Error(), details["detail"])

	_, body, _ = respond(t, gin.ReleaseMode, cause)
	assert.Nil(t, body.Errors)
}

func TestNewPagination(t *testing.T) {
	assert.Equal(t, Pagination{Page: 2, Limit: 20, Total: 41, TotalPages: 3}, NewPagination(2, 20, 41))
	assert.Equal(t, 0, NewPagination(1, 20, 0).TotalPages)
}
