package http

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/shashank-materialplus/order-api/internal/usecase"
)

// envelope wraps every successful response.
type envelope struct {
	Time       time.Time `json:"time"`
	HTTPStatus string    `json:"httpStatus"`
	IsSuccess  bool      `json:"isSuccess"`
	Response   any       `json:"response,omitempty"`
}

// errorBody is the structured error shape: category header, message and
// optional field-level sub-errors.
type errorBody struct {
	Time       time.Time            `json:"time"`
	HTTPStatus string               `json:"httpStatus"`
	IsSuccess  bool                 `json:"isSuccess"`
	Header     string               `json:"header"`
	Message    string               `json:"message"`
	SubErrors  []usecase.FieldError `json:"subErrors,omitempty"`
}

func respond(c *gin.Context, status int, payload any) {
	c.JSON(status, envelope{
		Time:       time.Now().UTC(),
		HTTPStatus: http.StatusText(status),
		IsSuccess:  true,
		Response:   payload,
	})
}

func statusFor(cat usecase.Category) int {
	switch cat {
	case usecase.CategoryAuthentication:
		return http.StatusUnauthorized
	case usecase.CategoryAuthorization:
		return http.StatusForbidden
	case usecase.CategoryValidation:
		return http.StatusBadRequest
	case usecase.CategoryNotFound:
		return http.StatusNotFound
	case usecase.CategoryConflict:
		return http.StatusConflict
	case usecase.CategoryUpstream:
		return http.StatusBadGateway
	case usecase.CategoryPartial:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

func respondError(c *gin.Context, err error) {
	var se *usecase.Error
	if !errors.As(err, &se) {
		se = &usecase.Error{Message: "internal server error"}
	}
	status := statusFor(se.Category)
	header := string(se.Category)
	if header == "" {
		header = "INTERNAL"
	}
	_ = c.Error(err)
	c.AbortWithStatusJSON(status, errorBody{
		Time:       time.Now().UTC(),
		HTTPStatus: http.StatusText(status),
		IsSuccess:  false,
		Header:     header,
		Message:    se.Message,
		SubErrors:  se.Fields,
	})
}

func respondValidation(c *gin.Context, msg string) {
	respondError(c, usecase.ErrValidation(msg))
}
