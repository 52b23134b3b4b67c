package httpclient

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// UpstreamError is a non-2xx response from a remote API, with whatever
// structured detail its body carried.
type UpstreamError struct {
	Upstream   string
	StatusCode int
	Code       string
	Message    string
	Hint       string
}

func (e *UpstreamError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("%s returned status %d (%s): %s", e.Upstream, e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("%s returned status %d: %s", e.Upstream, e.StatusCode, e.Message)
}

// IsClientError reports whether the response was a 4xx.
func (e *UpstreamError) IsClientError() bool {
	return e.StatusCode >= 400 && e.StatusCode < 500
}

// errorBody accepts both the flat {"code","message","hint"} shape used by
// PostgREST and the {"error":{"code","message"}} / {"error":"...","message":"..."}
// shapes used by storage APIs.
type errorBody struct {
	Code       json.RawMessage `json:"code"`
	StatusCode json.RawMessage `json:"statusCode"`
	Message    string          `json:"message"`
	Hint       string          `json:"hint"`
	Error      json.RawMessage `json:"error"`
}

type nestedError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ParseResponseError consumes and closes resp.Body and returns an *UpstreamError.
func ParseResponseError(resp *http.Response, upstream string) *UpstreamError {
	defer func() { _ = resp.Body.Close() }()

	out := &UpstreamError{Upstream: upstream, StatusCode: resp.StatusCode}
	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		out.Message = "unreadable body: " + err.Error()
		return out
	}

	var body errorBody
	if json.Unmarshal(raw, &body) != nil {
		out.Message = string(raw)
		return out
	}

	out.Code = rawString(body.Code)
	out.Message = body.Message
	out.Hint = body.Hint

	if len(body.Error) > 0 {
		var nested nestedError
		if json.Unmarshal(body.Error, &nested) == nil && (nested.Code != "" || nested.Message != "") {
			if out.Code == "" {
				out.Code = nested.Code
			}
			if out.Message == "" {
				out.Message = nested.Message
			}
		} else if s := rawString(body.Error); s != "" && out.Message == "" {
			out.Message = s
		}
	}
	if out.Message == "" {
		out.Message = string(raw)
	}
	return out
}

// rawString renders a JSON string or number as text.
func rawString(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if json.Unmarshal(raw, &s) == nil {
		return s
	}
	var n json.Number
	if json.Unmarshal(raw, &n) == nil {
		return n.String()
	}
	return ""
}
