package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"sovereign-sentinel/internal/connector"
)

// ErrorResponse 统一错误响应结构。
type ErrorResponse struct {
	Detail string       `json:"detail"`
	Errors []FieldError `json:"errors,omitempty"`
}

// FieldError 描述单个字段的校验错误。
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func abortWithDetail(c *gin.Context, status int, detail string) {
	c.AbortWithStatusJSON(status, ErrorResponse{Detail: detail})
}

// badRequestWithValidation 将校验错误展开为字段详情。
func badRequestWithValidation(c *gin.Context, err error) {
	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) {
		details := make([]FieldError, 0, len(validationErrs))
		for _, fieldErr := range validationErrs {
			details = append(details, FieldError{
				Field:   fieldErr.Namespace(),
				Message: validationMessage(fieldErr),
			})
		}
		c.AbortWithStatusJSON(http.StatusBadRequest, ErrorResponse{
			Detail: "Validation failed",
			Errors: details,
		})
		return
	}

	abortWithDetail(c, http.StatusBadRequest, err.Error())
}

func validationMessage(fieldErr validator.FieldError) string {
	switch fieldErr.Tag() {
	case "required":
		return fieldErr.Field() + " is required"
	case "min":
		return fieldErr.Field() + " must be at least " + fieldErr.Param()
	case "max":
		return fieldErr.Field() + " must be at most " + fieldErr.Param()
	case "oneof":
		return fieldErr.Field() + " must be one of: " + fieldErr.Param()
	default:
		return fieldErr.Field() + " is invalid"
	}
}

// extractionStatus 将连接器错误映射为 HTTP 状态码。
func extractionStatus(err error) int {
	switch {
	case errors.Is(err, connector.ErrUnsupportedSource), errors.Is(err, connector.ErrTenantRequired):
		return http.StatusBadRequest
	case errors.Is(err, connector.ErrNotConfigured):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
