package metrics

import "strconv"

// 常用标签
const (
	LabelService     = "service"
	LabelOperation   = "operation"
	LabelMethod      = "method"
	LabelRoute       = "route"
	LabelStatusClass = "status_class"
	LabelOutcome     = "outcome"
)

// OperationHTTPServer HTTP 服务端操作名
const OperationHTTPServer = "http.server"

// 常用结果
const (
	OutcomeSuccess = "success"
	OutcomeError   = "error"
)

// UnknownRoute 未命中路由时使用的标签值
const UnknownRoute = "unknown"

// HTTPStatusClass 返回 HTTP 状态类标签值：1xx/2xx/3xx/4xx/5xx/unknown
func HTTPStatusClass(status int) string {
	if status < 100 || status > 599 {
		return "unknown"
	}
	return strconv.Itoa(status/100) + "xx"
}

// HTTPOutcome 将 HTTP 状态码映射为 success/error
func HTTPOutcome(status int) string {
	if status >= 200 && status < 400 {
		return OutcomeSuccess
	}
	return OutcomeError
}
