package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Resp is the envelope of every API answer. Code is 0 on success and the
// HTTP status otherwise.
type Resp struct {
	Code int    `json:"code"`
	Msg  string `json:"msg"`
	Data any    `json:"data"`
}

// New never leaves data null.
func New(code int, msg string, data any) Resp {
	if data == nil {
		data = struct{}{}
	}
	return Resp{Code: code, Msg: msg, Data: data}
}

func OK(data any) Resp { return New(CodeOK, CodeMsgMap[CodeOK], data) }

// Error builds a failure envelope; an empty msg falls back to the code's default.
func Error(code int, msg string) Resp {
	if msg == "" {
		msg = CodeMsgMap[code]
	}
	return New(code, msg, nil)
}

// Send writes a success envelope; status 0 means 200.
func Send(c *gin.Context, status int, data any) {
	if status == 0 {
		status = http.StatusOK
	}
	c.JSON(status, OK(data))
}

// Abort stops the chain and writes an error envelope with the matching status.
func Abort(c *gin.Context, code int, msg string) {
	c.AbortWithStatusJSON(Status(code), Error(code, msg))
}
