package response

import (
	"errors"
	"net/http"

	"corebank/pkg/errs"

	"github.com/gin-gonic/gin"
)

const (
	CodeSuccess       = 0
	CodeParamError    = 400
	CodeNotFound      = 404
	CodeConflict      = 409
	CodeServerError   = 500
	CodeUnavailable   = 503
	CodeBusinessError = 1000
)

const (
	CodeInsufficientFunds = 1003
	CodeAccountInactive   = 1004
)

type Response struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{
		Code:    CodeSuccess,
		Message: "success",
		Data:    data,
	})
}

func Created(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, Response{
		Code:    CodeSuccess,
		Message: "success",
		Data:    data,
	})
}

func Error(c *gin.Context, status, code int, message string) {
	c.JSON(status, Response{
		Code:    code,
		Message: message,
	})
}

func ParamError(c *gin.Context, message string) {
	Error(c, http.StatusBadRequest, CodeParamError, message)
}

// FromError writes err using the HTTP status and business code of its kind.
// Infrastructure failures never leak their cause to the client.
func FromError(c *gin.Context, err error) {
	var e *errs.Error
	if !errors.As(err, &e) || e.Kind == errs.KindUnavailable {
		Error(c, http.StatusServiceUnavailable, CodeUnavailable, "service temporarily unavailable")
		return
	}

	switch e.Kind {
	case errs.KindNotFound:
		Error(c, http.StatusNotFound, CodeNotFound, e.Message)
	case errs.KindConflict:
		Error(c, http.StatusConflict, CodeConflict, e.Message)
	case errs.KindInsufficientFunds:
		Error(c, http.StatusUnprocessableEntity, CodeInsufficientFunds, e.Message)
	default:
		code := CodeParamError
		if errors.Is(err, errs.ErrAccountInactive) {
			code = CodeAccountInactive
		}
		Error(c, http.StatusBadRequest, code, e.Message)
	}
}
