package httpapi

import (
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strconv"
	"strings"
	"sync"

	"github.com/dmitrijs2005/gatekeeper/internal/common"
	"github.com/dmitrijs2005/gatekeeper/internal/cryptox"
	"github.com/dmitrijs2005/gatekeeper/internal/server/services"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

// Messages of the transport layer.
const (
	msgNotAuthenticated = "not authenticated user"
	msgAuthFailed       = "authentication failed"
	msgValidationFailed = "validation failed"
	msgForbidden        = "forbidden"
	msgTooManyAttempts  = "too many attempts, please try again later"
	msgInternal         = "internal server error"
)

type fieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

type apiError struct {
	Code    int    `json:"-"`
	Message string `json:"message"`
}

func (e apiError) Error() string {
	return e.Message
}

func newAPIError(code int, message string) apiError {
	return apiError{Code: code, Message: message}
}

func abort(c *gin.Context, err apiError) {
	c.AbortWithStatusJSON(err.Code, gin.H{"message": err.Message})
}

var validatorsOnce sync.Once

// registerValidators makes validation errors report JSON/query field names
// instead of Go struct field names, and adds the bytemax rule.
func registerValidators() {
	validatorsOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		_ = v.RegisterValidation("bytemax", byteMax)
		v.RegisterTagNameFunc(func(f reflect.StructField) string {
			for _, tag := range []string{"json", "form"} {
				name, _, _ := strings.Cut(f.Tag.Get(tag), ",")
				if name != "" && name != "-" {
					return name
				}
			}
			return f.Name
		})
	})
}

// byteMax limits the length of a string in bytes; max counts runes.
func byteMax(fl validator.FieldLevel) bool {
	limit, err := strconv.Atoi(fl.Param())
	if err != nil {
		return false
	}
	return len(fl.Field().String()) <= limit
}

// bind decodes the request into req and aborts with 400 on failure.
func bind(c *gin.Context, req any, b binding.Binding) bool {
	err := c.ShouldBindWith(req, b)
	if err == nil {
		return true
	}

	var fields []fieldError
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		for _, fe := range verrs {
			fields = append(fields, fieldError{Field: fe.Field(), Message: describe(fe)})
		}
	} else {
		fields = append(fields, fieldError{Field: "body", Message: "malformed request"})
	}

	abortValidation(c, fields...)
	return false
}

func abortValidation(c *gin.Context, fields ...fieldError) {
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
		"message": msgValidationFailed,
		"errors":  fields,
	})
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email"
	case "max":
		return fmt.Sprintf("must be at most %s characters", fe.Param())
	case "bytemax":
		return fmt.Sprintf("must be at most %s bytes", fe.Param())
	case "min":
		return fmt.Sprintf("must be at least %s characters", fe.Param())
	}
	return fmt.Sprintf("failed %q validation", fe.Tag())
}

// statusFor maps a handler error to a status and response body. A nil body
// means an unexpected failure.
func statusFor(err error) (int, gin.H) {
	var rej *services.Rejection
	switch {
	case errors.As(err, &rej):
		return http.StatusOK, gin.H{"valid": false, "message": rej.Message}
	case errors.Is(err, common.ErrorNotFound):
		return http.StatusNotFound, gin.H{"message": services.MsgUserNotFound}
	case errors.Is(err, common.ErrorForbidden):
		return http.StatusForbidden, gin.H{"message": msgForbidden}
	case errors.Is(err, cryptox.ErrPasswordTooLong):
		return http.StatusBadRequest, gin.H{
			"message": msgValidationFailed,
			"errors":  []fieldError{{Field: "password", Message: "must be at most 72 bytes"}},
		}
	}
	return http.StatusInternalServerError, nil
}
