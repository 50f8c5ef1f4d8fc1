package logging

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"
)

// Redacted replaces any credential in logged headers and bodies.
const Redacted = "[REDACTED]"

const defaultMaxBodySize = 10000

// HTTPLogger logs the traffic between the console and a REST backend.
// Credentials never reach the log: sensitive headers and JSON keys are
// redacted in both directions.
type HTTPLogger struct {
	logger      *Logger
	maxBodySize int
}

// NewHTTPLogger creates a new HTTP logger
func NewHTTPLogger(logger *Logger) *HTTPLogger {
	return &HTTPLogger{
		logger:      logger,
		maxBodySize: defaultMaxBodySize,
	}
}

// LogRequest logs an HTTP request
func (h *HTTPLogger) LogRequest(req *http.Request, body []byte) {
	fields := Fields{
		"method":  req.Method,
		"url":     req.URL.String(),
		"headers": redactHeaders(req.Header),
	}
	h.addBody(fields, body)
	h.logger.Debug("HTTP Request", fields)
}

// LogResponse logs an HTTP response
func (h *HTTPLogger) LogResponse(resp *http.Response, body []byte, duration time.Duration) {
	fields := Fields{
		"status":      resp.StatusCode,
		"duration_ms": duration.Milliseconds(),
		"headers":     redactHeaders(resp.Header),
	}
	h.addBody(fields, body)
	h.logger.Debug("HTTP Response", fields)
}

// LogStreamStart logs the opening of the server event stream
func (h *HTTPLogger) LogStreamStart(resp *http.Response) {
	h.logger.Debug("Event stream opened", Fields{
		"status": resp.StatusCode,
		"url":    resp.Request.URL.String(),
	})
}

// LogStreamEnd logs the close of the server event stream
func (h *HTTPLogger) LogStreamEnd(duration time.Duration, events int) {
	h.logger.Debug("Event stream closed", Fields{
		"duration_ms": duration.Milliseconds(),
		"events":      events,
	})
}

// LogError logs an HTTP error
func (h *HTTPLogger) LogError(err error, req *http.Request) {
	h.logger.Error("HTTP Error", err, Fields{
		"method": req.Method,
		"url":    req.URL.String(),
	})
}

func (h *HTTPLogger) addBody(fields Fields, body []byte) {
	if len(body) == 0 {
		return
	}
	fields["body_size"] = len(body)

	var parsed interface{}
	if json.Valid(body) && json.Unmarshal(body, &parsed) == nil {
		fields["body"] = redactSensitiveFields(parsed)
		return
	}
	fields["body"] = truncateBody(body, h.maxBodySize)
}

// RoundTripperWrapper wraps an http.RoundTripper with logging
type RoundTripperWrapper struct {
	wrapped http.RoundTripper
	logger  *HTTPLogger
	logBody bool
}

// NewLoggingRoundTripper creates a new logging round tripper
func NewLoggingRoundTripper(wrapped http.RoundTripper, logger *HTTPLogger, logBody bool) *RoundTripperWrapper {
	if wrapped == nil {
		wrapped = http.DefaultTransport
	}
	return &RoundTripperWrapper{
		wrapped: wrapped,
		logger:  logger,
		logBody: logBody,
	}
}

// RoundTrip implements http.RoundTripper
func (rt *RoundTripperWrapper) RoundTrip(req *http.Request) (*http.Response, error) {
	start := time.Now()
	// Bodies are only logged at debug level; don't buffer them otherwise.
	logBody := rt.logBody && rt.logger.logger.Enabled(LevelDebug)

	var reqBody []byte
	if logBody && req.Body != nil {
		reqBody, _ = io.ReadAll(req.Body)
		req.Body = io.NopCloser(bytes.NewReader(reqBody))
	}
	rt.logger.LogRequest(req, reqBody)

	resp, err := rt.wrapped.RoundTrip(req)
	duration := time.Since(start)
	if err != nil {
		rt.logger.LogError(err, req)
		return nil, err
	}

	// The event stream stays open for the whole session; never buffer it.
	var respBody []byte
	if logBody && !isStreamingResponse(resp) {
		respBody, _ = io.ReadAll(resp.Body)
		resp.Body = io.NopCloser(bytes.NewReader(respBody))
	}
	rt.logger.LogResponse(resp, respBody, duration)

	return resp, nil
}

var sensitiveHeaders = map[string]bool{
	"authorization": true,
	"api-key":       true,
	"x-api-key":     true,
	"x-auth-token":  true,
	"cookie":        true,
	"set-cookie":    true,
}

func isSensitiveHeader(name string) bool {
	return sensitiveHeaders[strings.ToLower(name)]
}

func redactHeaders(h http.Header) map[string]string {
	headers := make(map[string]string, len(h))
	for k, v := range h {
		switch {
		case isSensitiveHeader(k):
			headers[k] = Redacted
		case len(v) > 0:
			headers[k] = v[0]
		}
	}
	return headers
}

func truncateBody(body []byte, maxSize int) string {
	if len(body) <= maxSize {
		return string(body)
	}
	return string(body[:maxSize]) + "...[truncated]"
}

func isStreamingResponse(resp *http.Response) bool {
	contentType := resp.Header.Get("Content-Type")
	return strings.Contains(contentType, "text/event-stream") ||
		strings.Contains(contentType, "application/x-ndjson")
}

var sensitiveKeys = []string{
	"api_key", "apikey", "api-key",
	"password", "secret", "token",
	"authorization", "auth",
}

// redactSensitiveFields walks parsed JSON and replaces the value of any key
// containing a sensitive word.
func redactSensitiveFields(data interface{}) interface{} {
	switch v := data.(type) {
	case map[string]interface{}:
		result := make(map[string]interface{}, len(v))
		for k, val := range v {
			if isSensitiveKey(k) {
				result[k] = Redacted
			} else {
				result[k] = redactSensitiveFields(val)
			}
		}
		return result
	case []interface{}:
		result := make([]interface{}, len(v))
		for i, item := range v {
			result[i] = redactSensitiveFields(item)
		}
		return result
	default:
		return data
	}
}

func isSensitiveKey(k string) bool {
	k = strings.ToLower(k)
	for _, s := range sensitiveKeys {
		if strings.Contains(k, s) {
			return true
		}
	}
	return false
}
