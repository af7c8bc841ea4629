package controllers

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zaqqye/exit_slip_backend/internal/apperrors"
)

func TestFlexibleString(t *testing.T) {
	var req submissionRequest
	err := json.Unmarshal([]byte(`{"studentId":" 1234/56 ","dorm":12,"block":"5A"}`), &req)
	require.NoError(t, err)
	assert.Equal(t, "1234/56", req.StudentID.String())
	assert.Equal(t, "12", req.Dorm.String())
	assert.Equal(t, "5A", req.Block.String())

	err = json.Unmarshal([]byte(`{"dorm":{"n":1}}`), &req)
	assert.Error(t, err)
}

func TestRespondError(t *testing.T) {
	gin.SetMode(gin.TestMode)
	run := func(err error) (int, map[string]any) {
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		respondError(c, err)
		var body map[string]any
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		return w.Code, body
	}

	code, body := run(apperrors.NewConflictError("cycle still open", "exit record is Authorized"))
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, "cycle still open", body["error"])
	assert.Equal(t, "conflict", body["type"])
	assert.Equal(t, "exit record is Authorized", body["details"])

	code, body = run(apperrors.NewStorageError(errors.New("pq: relation does not exist")))
	assert.Equal(t, http.StatusInternalServerError, code)
	assert.NotContains(t, body["error"], "relation")
	assert.NotContains(t, body, "details")

	code, body = run(errors.New("boom"))
	assert.Equal(t, http.StatusInternalServerError, code)
	assert.Equal(t, "internal server error", body["error"])
}
