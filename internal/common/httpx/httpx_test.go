package httpx

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/combatwarrior/academy/internal/common/apperrors"
)

func serve(h RequestHandler, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	WrapHttpRsp(h).ServeHTTP(rec, req)
	return rec
}

func TestSuccessEnvelope(t *testing.T) {
	rec := serve(func(r *http.Request) (*Response, error) {
		return Created(map[string]any{"student": map[string]string{"_id": "1"}}, "/students/1"), nil
	}, httptest.NewRequest(http.MethodPost, "/students", nil))

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "/students/1", rec.Header().Get("Location"))
	assert.JSONEq(t, `{"status":"success","data":{"student":{"_id":"1"}}}`, rec.Body.String())
}

func TestRawResponse(t *testing.T) {
	rec := serve(func(r *http.Request) (*Response, error) {
		return &Response{StatusCode: http.StatusOK, Data: map[string]string{"status": "ready"}, Raw: true}, nil
	}, httptest.NewRequest(http.MethodGet, "/ready", nil))
	assert.JSONEq(t, `{"status":"ready"}`, rec.Body.String())
}

func TestErrorReplies(t *testing.T) {
	ErrInvalid := apperrors.New("validation failed").SetStatusCode(http.StatusUnprocessableEntity)
	tests := []struct {
		name   string
		err    error
		status int
		body   string
	}{
		{"http error", ErrNotFound("student"), http.StatusNotFound, `{"status":"error","message":"student not found"}`},
		{"app error with details", ErrInvalid.Msg("price must be 0 or greater").WithDetails("price must be 0 or greater"), http.StatusUnprocessableEntity,
			`{"status":"error","message":"price must be 0 or greater","errors":["price must be 0 or greater"]}`},
		{"app error without status", apperrors.New("broken"), http.StatusInternalServerError, `{"status":"error","message":"broken"}`},
		{"plain error", errors.New("plain"), http.StatusInternalServerError, `{"status":"error","message":"plain"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serve(func(r *http.Request) (*Response, error) { return nil, tt.err }, httptest.NewRequest(http.MethodGet, "/", nil))
			assert.Equal(t, tt.status, rec.Code)
			assert.JSONEq(t, tt.body, rec.Body.String())
		})
	}
}

func TestGetRequestData(t *testing.T) {
	var v struct {
		Email string `json:"email"`
	}
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"email":"a@b.co"}`))
	require.NoError(t, GetRequestData(req, &v))
	assert.Equal(t, "a@b.co", v.Email)

	req = httptest.NewRequest(http.MethodGet, "/", strings.NewReader(`{}`))
	assert.Error(t, GetRequestData(req, &v))

	req = httptest.NewRequest(http.MethodPut, "/", strings.NewReader(`{bad`))
	err := GetRequestData(req, &v)
	require.Error(t, err)
	assert.Equal(t, "unable to parse request data", err.Error())
}

func TestResponseWriterRecordsStatusAndSize(t *testing.T) {
	rec := httptest.NewRecorder()
	rw := NewResponseWriter(rec)
	assert.Same(t, rw, NewResponseWriter(rw))
	assert.False(t, rw.Written())
	assert.Equal(t, http.StatusOK, rw.Status())

	rw.WriteHeader(http.StatusCreated)
	rw.WriteHeader(http.StatusTeapot)
	_, err := rw.Write([]byte(`{"status":"success"}`))
	require.NoError(t, err)

	assert.True(t, rw.Written())
	assert.Equal(t, http.StatusCreated, rw.Status())
	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, 20, rw.Size())
}
