package response

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMeta(t *testing.T) {
	assert.Equal(t, &Meta{Page: 2, Limit: 20, Total: 41, TotalPages: 3}, NewMeta(2, 20, 41))
	assert.Equal(t, 0, NewMeta(1, 0, 10).TotalPages)
}

func TestFail_IncludesCode(t *testing.T) {
	rec := httptest.NewRecorder()
	Fail(rec, http.StatusBadRequest, "cutoff_passed", "too late")

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	var body Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.False(t, body.Success)
	assert.Equal(t, "cutoff_passed", body.Code)
}
