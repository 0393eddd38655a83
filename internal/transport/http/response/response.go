package response

import "github.com/gin-gonic/gin"

type Resp struct {
	Success bool   `json:"success"`
	Code    int    `json:"code"`
	Msg     string `json:"msg"`
	Data    any    `json:"data"`
}

// New 构造函数（保证 data 不为 null）
func New(code int, msg string, data any) Resp {
	if data == nil {
		data = struct{}{}
	}
	return Resp{Success: code == CodeOK, Code: code, Msg: msg, Data: data}
}

// OK 成功响应
func OK(data any) Resp {
	return New(CodeOK, CodeMsgMap[CodeOK], data)
}

// Error 失败响应（可以传自定义 msg 覆盖默认）
func Error(code int, customMsg string) Resp {
	msg := CodeMsgMap[code]
	if customMsg != "" {
		msg = customMsg
	}
	return New(code, msg, struct{}{})
}

// Abort 以 code 对应的 HTTP 状态终止请求
func Abort(c *gin.Context, code int, msg string) {
	c.AbortWithStatusJSON(HTTPStatus(code), Error(code, msg))
}
