package apiresp

import (
	"net/http"

	"PPLink/logger"
	"PPLink/tools/errs"
	"PPLink/tools/specialerror"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// ApiResponse is the envelope every REST endpoint answers with.
type ApiResponse struct {
	ErrCode int    `json:"code"`
	ErrMsg  string `json:"msg"`
	ErrDlt  string `json:"detail,omitempty"`
	Data    any    `json:"data,omitempty"`
}

func Success(c *gin.Context, data any) {
	c.JSON(http.StatusOK, ApiResponse{Data: data})
}

func Created(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, ApiResponse{Data: data})
}

// Fail writes err as a CodeError with the matching HTTP status. Internal errors hide their detail.
func Fail(c *gin.Context, err error) {
	ce := specialerror.ErrCode(err)
	status := errs.HTTPStatus(ce.Code)
	if status >= http.StatusInternalServerError {
		logger.Error("request failed",
			zap.String("method", c.Request.Method), zap.String("path", c.FullPath()), zap.Error(err))
		ce.Detail = ""
	}
	c.AbortWithStatusJSON(status, ApiResponse{ErrCode: ce.Code, ErrMsg: ce.Msg, ErrDlt: ce.Detail})
}
