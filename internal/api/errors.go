package api

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v5"

	"github.com/born-ml/torch2ncnn/internal/convert"
	"github.com/born-ml/torch2ncnn/internal/graph"
	"github.com/born-ml/torch2ncnn/internal/weights"
)

// ErrorBody is the JSON error envelope.
type ErrorBody struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail describes a failed request.
type ErrorDetail struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

func writeError(c *echo.Context, status int, errType, msg string) error {
	return c.JSON(status, ErrorBody{Error: ErrorDetail{Type: errType, Message: msg}})
}

func writeBadRequest(c *echo.Context, msg string) error {
	return writeError(c, http.StatusBadRequest, "invalid_request_error", msg)
}

// writeConversionError maps conversion failures to a status and error type.
func writeConversionError(c *echo.Context, err error) error {
	status, errType := classify(err)
	return writeError(c, status, errType, err.Error())
}

func classify(err error) (int, string) {
	switch {
	case errors.Is(err, convert.ErrUnsupportedOperator):
		return http.StatusBadRequest, "unsupported_operator"
	case errors.Is(err, convert.ErrUnsupportedShape):
		return http.StatusUnprocessableEntity, "unsupported_shape"
	case errors.Is(err, convert.ErrUnsupportedConfig):
		return http.StatusUnprocessableEntity, "unsupported_configuration"
	case errors.Is(err, convert.ErrMissingWeightLink):
		return http.StatusUnprocessableEntity, "missing_weight"
	case errors.Is(err, convert.ErrDescriptorMismatch):
		return http.StatusUnprocessableEntity, "descriptor_mismatch"
	case errors.Is(err, graph.ErrInvalidDocument), errors.Is(err, graph.ErrNoDescriptor):
		return http.StatusBadRequest, "invalid_request_error"
	case errors.Is(err, weights.ErrTensorNotFound), errors.Is(err, weights.ErrUnsupportedDType):
		return http.StatusUnprocessableEntity, "weights_error"
	default:
		return http.StatusInternalServerError, "server_error"
	}
}
