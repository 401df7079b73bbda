package providers

import (
	"net/http"
	"strconv"
	"strings"

	llmerrors "github.com/ahrav/go-grader/internal/llm/errors"
)

// statusOverloaded is Anthropic's non-standard "overloaded" status.
const statusOverloaded = 529

// classifyErrorType determines ErrorType from HTTP status and provider error codes.
// Provider codes take precedence because some providers report quota
// exhaustion or overload under generic statuses.
func classifyErrorType(statusCode int, errorCode string) llmerrors.ErrorType {
	lowerCode := strings.ToLower(errorCode)
	switch {
	case strings.Contains(lowerCode, "rate_limit"), strings.Contains(lowerCode, "resource_exhausted"):
		return llmerrors.ErrorTypeRateLimit
	case strings.Contains(lowerCode, "overloaded"), strings.Contains(lowerCode, "unavailable"):
		return llmerrors.ErrorTypeServiceUnavailable
	case strings.Contains(lowerCode, "authentication"), strings.Contains(lowerCode, "unauthenticated"),
		strings.Contains(lowerCode, "permission"):
		return llmerrors.ErrorTypeAuth
	}

	switch statusCode {
	case http.StatusTooManyRequests:
		return llmerrors.ErrorTypeRateLimit
	case http.StatusUnauthorized, http.StatusForbidden:
		return llmerrors.ErrorTypeAuth
	case http.StatusBadRequest, http.StatusNotFound, http.StatusUnprocessableEntity:
		return llmerrors.ErrorTypeValidation
	case http.StatusRequestTimeout, http.StatusInternalServerError, http.StatusBadGateway,
		http.StatusServiceUnavailable, http.StatusGatewayTimeout, statusOverloaded:
		return llmerrors.ErrorTypeServiceUnavailable
	default:
		if statusCode >= http.StatusInternalServerError {
			return llmerrors.ErrorTypeServiceUnavailable
		}
		return llmerrors.ErrorTypeUnknown
	}
}

// parseRetryAfter reads a Retry-After header expressed in seconds.
func parseRetryAfter(h http.Header) int {
	v := h.Get("Retry-After")
	if v == "" {
		return 0
	}
	secs, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil || secs < 0 {
		return 0
	}
	return secs
}

// newProviderError builds the error returned for a non-2xx response.
func newProviderError(provider string, httpResp *http.Response, message, code string, body []byte) *llmerrors.ProviderError {
	if message == "" {
		message = strings.TrimSpace(string(body))
	}
	if message == "" {
		message = http.StatusText(httpResp.StatusCode)
	}
	return &llmerrors.ProviderError{
		Provider:   provider,
		StatusCode: httpResp.StatusCode,
		Message:    message,
		Code:       code,
		Type:       classifyErrorType(httpResp.StatusCode, code),
		RetryAfter: parseRetryAfter(httpResp.Header),
	}
}
