package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/hpn/hpn-llm-gateway/internal/adapter"
	"github.com/hpn/hpn-llm-gateway/internal/domain"
	"github.com/hpn/hpn-llm-gateway/internal/security"
)

const (
	// errorTypeRateLimit is returned by the rate limit middleware.
	errorTypeRateLimit = "rate_limit_error"

	// maxClientBodyChars bounds upstream text echoed back to clients.
	maxClientBodyChars = 512
)

// statusForKind maps an error kind to its HTTP status code.
func statusForKind(kind domain.ErrorKind) int {
	switch kind {
	case domain.KindValidation, domain.KindUnknownProvider:
		return http.StatusBadRequest
	case domain.KindUpstreamUnavailable, domain.KindUpstreamError, domain.KindMalformedResponse:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// errorBody builds the client-visible error for err. Credentials are masked
// and internal details of foreign errors are never exposed.
func errorBody(err error, redactor *security.Redactor) (int, adapter.OpenAIError) {
	gwErr, ok := domain.AsGatewayError(err)
	if !ok {
		return http.StatusInternalServerError, adapter.OpenAIError{
			Error: adapter.OpenAIErrorDetail{
				Type:    string(domain.KindInternal),
				Message: "Internal server error",
			},
		}
	}

	detail := adapter.OpenAIErrorDetail{
		Type:    string(gwErr.Kind),
		Message: clientMessage(gwErr, redactor),
	}
	if gwErr.Kind == domain.KindUpstreamError {
		detail.UpstreamStatus = gwErr.UpstreamStatus
	}

	return statusForKind(gwErr.Kind), adapter.OpenAIError{Error: detail}
}

func clientMessage(e *domain.GatewayError, redactor *security.Redactor) string {
	msg := e.Message
	if e.Provider != "" && e.Kind != domain.KindUnknownProvider {
		msg = e.Provider + ": " + msg
	}
	if e.Kind == domain.KindUpstreamError && e.UpstreamBody != "" {
		msg += ": " + truncateRunes(redactor.Redact(e.UpstreamBody), maxClientBodyChars)
	}
	return redactor.Redact(msg)
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}

// sendOpenAIError sends an error response in OpenAI-compatible format.
func sendOpenAIError(c *gin.Context, status int, errType, message string) {
	c.AbortWithStatusJSON(status, adapter.OpenAIError{
		Error: adapter.OpenAIErrorDetail{Type: errType, Message: message},
	})
}
