package utils

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func record(fn func(c *gin.Context)) *httptest.ResponseRecorder {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	fn(c)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func TestSendSuccessEnvelope(t *testing.T) {
	w := record(func(c *gin.Context) {
		SendSuccess(c, gin.H{"id": 7})
	})
	assert.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, true, body["success"])
	assert.NotContains(t, body, "error")
	assert.NotContains(t, body, "meta")
}

func TestSendListIncludesCount(t *testing.T) {
	w := record(func(c *gin.Context) {
		SendList(c, []int{1, 2, 3}, 3)
	})
	assert.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	meta, ok := body["meta"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, float64(3), meta["count"])
}

func TestErrorEnvelopeCarriesCode(t *testing.T) {
	w := record(func(c *gin.Context) {
		SendInsufficient(c, "Not enough credits")
	})
	assert.Equal(t, http.StatusPaymentRequired, w.Code)
	body := decode(t, w)
	assert.Equal(t, false, body["success"])
	errObj, ok := body["error"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, ErrCodeInsufficient, errObj["code"])
	assert.Equal(t, "Not enough credits", errObj["message"])
}
