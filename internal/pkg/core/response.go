package core

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/kiosk404/warden/pkg/errorx"
	"github.com/kiosk404/warden/pkg/logger"
)

// ErrResponse defines the return messages when an error occurred.
type ErrResponse struct {
	// Code defines the business error code.
	Code int `json:"code"`

	// Message contains the detail of this message.
	Message string `json:"message"`

	// Reference returns the reference document which maybe useful to solve this error.
	Reference string `json:"reference,omitempty"`

	// Details carries structured fields of the error, such as the pending count.
	Details map[string]any `json:"details,omitempty"`
}

type detailer interface {
	Details() map[string]any
}

// WriteResponse writes an error or the response data into http response body.
// It uses errorx.ParseCoder to pick the http status and business code.
func WriteResponse(c *gin.Context, err error, data any) {
	if err != nil {
		coder := errorx.ParseCoder(err)
		if coder.HTTPStatus() >= http.StatusInternalServerError {
			logger.Error("[Server] %s %s: %v", c.Request.Method, c.Request.URL.Path, err)
		}
		resp := ErrResponse{
			Code:      coder.Code(),
			Message:   err.Error(),
			Reference: coder.Reference(),
		}
		var d detailer
		if errors.As(err, &d) {
			resp.Details = d.Details()
		}
		c.JSON(coder.HTTPStatus(), resp)
		return
	}

	c.JSON(http.StatusOK, data)
}
