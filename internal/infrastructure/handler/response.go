package handler

import (
	"encoding/json"
	"net/http"
	"regexp"
	"strings"

	"github.com/damon-houk/rate-history-sync/internal/infrastructure/logger"
)

var currencyCodePattern = regexp.MustCompile(`^[A-Z]{3}$`)

// normalizeCurrency upper-cases a code and reports whether it looks like an ISO code
func normalizeCurrency(code string) (string, bool) {
	code = strings.ToUpper(strings.TrimSpace(code))
	return code, currencyCodePattern.MatchString(code)
}

func writeJSON(w http.ResponseWriter, log logger.Logger, statusCode int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Error("Failed to encode response", map[string]interface{}{
			"error": err.Error(),
		})
	}
}

// sendErrorResponse sends a standardized error response
func sendErrorResponse(w http.ResponseWriter, log logger.Logger, message, description string, statusCode int, requestID string) {
	log.Debug("Sending error response", map[string]interface{}{
		"request_id":  requestID,
		"status_code": statusCode,
		"message":     message,
	})

	writeJSON(w, log, statusCode, ErrorResponse{
		Error:       message,
		Status:      statusCode,
		Description: description,
		RequestID:   requestID,
	})
}
