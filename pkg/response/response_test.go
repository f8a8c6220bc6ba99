package response_test

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/artisanmart/storefront/pkg/apperr"
	"github.com/artisanmart/storefront/pkg/response"
)

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestOKMergesPayloadIntoEnvelope(t *testing.T) {
	rec := httptest.NewRecorder()
	response.OK(rec, "Fetched", response.Payload{"product": map[string]any{"name": "Bowl"}, "success": false})

	body := decode(t, rec)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "Fetched", body["message"])
	assert.Equal(t, "Bowl", body["product"].(map[string]any)["name"])
}

func TestValidationErrorListsFields(t *testing.T) {
	rec := httptest.NewRecorder()
	response.ValidationError(rec, map[string]string{"email": "The email field is required."})

	body := decode(t, rec)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, false, body["success"])
	assert.Contains(t, body["errors"], "email")
}

func TestFailUsesErrorKind(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)

	rec := httptest.NewRecorder()
	response.Fail(rec, req, apperr.Conflict("op", "Insufficient stock for Vase", nil))
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "Insufficient stock for Vase", decode(t, rec)["message"])

	rec = httptest.NewRecorder()
	response.Fail(rec, req, errors.New("disk full"))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "disk full")
}

func TestNewPagination(t *testing.T) {
	p := response.NewPagination(2, 20, 41)
	assert.Equal(t, 3, p.TotalPages)
	assert.Equal(t, 0, response.NewPagination(1, 0, 10).TotalPages)
}
