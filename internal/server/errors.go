package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/Skufu/SymptomDx/internal/classifier"
	"github.com/Skufu/SymptomDx/internal/clinical"
	"github.com/Skufu/SymptomDx/internal/diagnosis"
	"github.com/Skufu/SymptomDx/internal/store"
	"github.com/Skufu/SymptomDx/internal/symptom"
)

// Error codes returned in the "error" field.
const (
	codeInvalidPayload   = "invalid_payload"
	codePayloadTooLarge  = "payload_too_large"
	codeValidation       = "validation_failed"
	codeUnknownSymptom   = "unknown_symptom"
	codeUnknownTest      = "unknown_test"
	codeNotFound         = "not_found"
	codeModelUnavailable = "model_unavailable"
	codePredictionFailed = "prediction_failed"
	codeStoreUnavailable = "store_unavailable"
	codeInternal         = "internal_error"
)

func respondError(c *gin.Context, status int, code, msg string) {
	c.AbortWithStatusJSON(status, gin.H{"error": code, "message": msg})
}

// bindError reports a request body that could not be decoded.
func bindError(c *gin.Context, err error) {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		respondError(c, http.StatusRequestEntityTooLarge, codePayloadTooLarge, "request body too large")
		return
	}
	respondError(c, http.StatusBadRequest, codeInvalidPayload, "invalid payload")
}

// writeError maps a service error to the response envelope. Deployment
// faults are logged with their cause and reported generically.
func writeError(c *gin.Context, logger zerolog.Logger, err error) {
	var (
		unknown    *symptom.UnknownSymptomError
		validation *clinical.ValidationError
	)
	switch {
	case errors.As(err, &unknown):
		respondError(c, http.StatusUnprocessableEntity, codeUnknownSymptom, "Symptom not found: "+unknown.Key)
	case errors.As(err, &validation):
		respondError(c, http.StatusUnprocessableEntity, codeValidation, validation.Error())
	case errors.Is(err, diagnosis.ErrInvalidRequest), errors.Is(err, diagnosis.ErrNoSymptoms):
		respondError(c, http.StatusUnprocessableEntity, codeValidation, err.Error())
	case errors.Is(err, diagnosis.ErrUnknownTest):
		respondError(c, http.StatusNotFound, codeUnknownTest, err.Error())
	case errors.Is(err, store.ErrNotFound):
		respondError(c, http.StatusNotFound, codeNotFound, err.Error())
	case errors.Is(err, classifier.ErrModelUnavailable):
		respondError(c, http.StatusServiceUnavailable, codeModelUnavailable, err.Error())
	case errors.Is(err, diagnosis.ErrStoreUnavailable):
		logger.Error().Err(err).Str("request_id", c.GetString(requestIDKey)).Msg("store unavailable")
		respondError(c, http.StatusServiceUnavailable, codeStoreUnavailable, "records are unavailable")
	case errors.Is(err, diagnosis.ErrModel):
		logger.Error().Err(err).Str("request_id", c.GetString(requestIDKey)).Msg("prediction failed")
		respondError(c, http.StatusInternalServerError, codePredictionFailed, "the prediction could not be completed")
	default:
		logger.Error().Err(err).Str("request_id", c.GetString(requestIDKey)).Msg("unhandled error")
		respondError(c, http.StatusInternalServerError, codeInternal, "internal server error")
	}
}
