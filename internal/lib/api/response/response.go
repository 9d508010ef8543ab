package response

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"social_auth/internal/lib/autherr"

	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"
)

type Response struct {
	Success bool                 `json:"success"`
	Message string               `json:"message,omitempty"`
	Errors  []autherr.FieldError `json:"errors,omitempty"`
}

func OK() Response {
	return Response{Success: true}
}

func Error(msg string) Response {
	return Response{
		Success: false,
		Message: msg,
	}
}

func ValidationError(errs validator.ValidationErrors) Response {
	fields := make([]autherr.FieldError, 0, len(errs))

	for _, err := range errs {
		fields = append(fields, autherr.FieldError{
			Field:   err.Field(),
			Message: fieldMessage(err),
		})
	}

	return Response{
		Success: false,
		Errors:  fields,
	}
}

// * FromError переводит ошибку сервиса в HTTP статус и тело ответа.
// Для KindLocked дополнительно возвращается значение Retry-After в секундах.
func FromError(err error) (int, Response, string) {
	var e *autherr.Error
	if !errors.As(err, &e) {
		return http.StatusInternalServerError, Error("Internal error"), ""
	}

	switch e.Kind {
	case autherr.KindValidation:
		return http.StatusBadRequest, Response{Success: false, Message: e.Message, Errors: e.Fields}, ""
	case autherr.KindUnknownAccount:
		return http.StatusUnauthorized, Error(e.Message), ""
	case autherr.KindLocked:
		retryAfter := int(e.RetryAfter.Seconds())
		if retryAfter < 1 {
			retryAfter = 1
		}
		return http.StatusLocked, Error(e.Message), strconv.Itoa(retryAfter)
	case autherr.KindBadCredentials, autherr.KindConflict, autherr.KindNoToken, autherr.KindInvalidToken:
		return http.StatusBadRequest, Error(e.Message), ""
	case autherr.KindUpstream:
		return http.StatusBadGateway, Error(e.Message), ""
	default:
		return http.StatusInternalServerError, Error("Internal error"), ""
	}
}

// * RenderError пишет ответ для ошибки сервиса и возвращает выбранный статус
func RenderError(w http.ResponseWriter, r *http.Request, err error) int {
	status, body, retryAfter := FromError(err)
	if retryAfter != "" {
		w.Header().Set("Retry-After", retryAfter)
	}

	render.Status(r, status)
	render.JSON(w, r, body)

	return status
}

func fieldMessage(err validator.FieldError) string {
	switch err.ActualTag() {
	case "required":
		return fmt.Sprintf("%s is required", err.Field())
	case "email":
		return "Please provide a valid email"
	case "eqfield":
		return "Confirm password does not match the password"
	case "password_policy":
		return "Password must be 8 to 72 bytes long and contain a lowercase letter, " +
			"an uppercase letter, a number and a special character"
	case "max":
		return fmt.Sprintf("%s must be at most %s characters long", err.Field(), err.Param())
	case "min":
		return fmt.Sprintf("%s must be at least %s characters long", err.Field(), err.Param())
	default:
		return fmt.Sprintf("%s is not valid (%s)", err.Field(), strings.ToLower(err.ActualTag()))
	}
}
