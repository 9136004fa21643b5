// Package httpx holds the request and response helpers of the development API.
// Every response uses the academy envelope: {"status":"success","data":...} on
// success and {"status":"error","message":...,"errors":[...]} on failure.
package httpx

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/combatwarrior/academy/internal/common/apperrors"
)

// maxBodyBytes bounds request bodies.
const maxBodyBytes = 1 << 20

// GetRequestData parses the JSON request body into data.
// Only POST and PUT carry a body.
func GetRequestData(r *http.Request, data any) error {
	if r.Method != http.MethodPost && r.Method != http.MethodPut {
		return ErrReqMethodNotSupported()
	}
	if r.Body == nil || r.Body == http.NoBody {
		log.Ctx(r.Context()).Error().Msg("empty request body")
		return ErrUnableToParseReqData()
	}
	if err := json.NewDecoder(http.MaxBytesReader(nil, r.Body, maxBodyBytes)).Decode(data); err != nil {
		return ErrUnableToParseReqData()
	}
	return nil
}

// Response is a successful reply. Data is wrapped in the success envelope
// unless Raw is set.
type Response struct {
	StatusCode int
	Location   string
	Data       any
	Raw        bool
}

// Success is a 200 reply carrying data.
func Success(data any) *Response {
	return &Response{StatusCode: http.StatusOK, Data: data}
}

// Created is a 201 reply carrying data.
func Created(data any, location string) *Response {
	return &Response{StatusCode: http.StatusCreated, Data: data, Location: location}
}

// RequestHandler handles one request.
type RequestHandler func(r *http.Request) (*Response, error)

// WrapHttpRsp turns a RequestHandler into an http.HandlerFunc, writing either the
// success envelope or an error reply.
func WrapHttpRsp(handler RequestHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rsp, err := handler(r)
		if err != nil {
			SendError(w, err)
			return
		}
		if rsp == nil {
			ErrApplicationError().Send(w)
			return
		}
		var location []string
		if rsp.Location != "" {
			location = append(location, rsp.Location)
		}
		body := rsp.Data
		if !rsp.Raw {
			body = envelope{Status: StatusSuccess, Data: rsp.Data}
		}
		SendJsonRsp(r.Context(), w, rsp.StatusCode, body, location...)
	}
}

// SendError writes err as an error reply. A *Error is sent as is; an
// apperrors.Error keeps its status code and details; anything else is a 500.
func SendError(w http.ResponseWriter, err error) {
	if err == nil {
		return
	}
	var httpErr *Error
	if errors.As(err, &httpErr) {
		httpErr.Send(w)
		return
	}
	var appErr apperrors.Error
	if errors.As(err, &appErr) {
		statusCode := appErr.StatusCode()
		if statusCode == 0 {
			statusCode = http.StatusInternalServerError
		}
		(&Error{
			StatusCode:  statusCode,
			Description: appErr.Error(),
			Details:     appErr.Details(),
		}).Send(w)
		return
	}
	ErrApplicationError(err.Error()).Send(w)
}
