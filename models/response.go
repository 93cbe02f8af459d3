package models

// 响应码定义
const (
	// 成功
	CodeSuccess = 0

	// 客户端错误 (1000-1999)
	CodeInvalidParams     = 1000 // 无效的参数
	CodeMissingParams     = 1001 // 缺少必要参数
	CodeUserNotFound      = 1002 // 用户不存在
	CodeContentNotFound   = 1003 // 内容不存在
	CodeUnsupportedAction = 1004 // 不支持的行为类型
	CodeInsufficientData  = 1005 // 行为数据不足

	// 服务端错误 (2000-2999)
	CodeServerError     = 2000 // 服务器内部错误
	CodeDatabaseError   = 2001 // 数据库错误
	CodeUpdateConflict  = 2002 // 档案更新冲突
	CodeRecommendError  = 2003 // 推荐生成错误
	CodeUpstreamError   = 2005 // 上游服务错误
)

// 错误码对应的消息
var CodeMessages = map[int]string{
	CodeSuccess:           "success",
	CodeInvalidParams:     "无效的参数",
	CodeMissingParams:     "缺少必要参数",
	CodeUserNotFound:      "用户不存在",
	CodeContentNotFound:   "内容不存在",
	CodeUnsupportedAction: "不支持的行为类型",
	CodeInsufficientData:  "行为数据不足",
	CodeServerError:       "服务器内部错误",
	CodeDatabaseError:     "数据库错误",
	CodeUpdateConflict:    "档案更新冲突",
	CodeRecommendError:    "推荐生成错误",
	CodeUpstreamError:     "上游服务错误",
}

// 注意：APIResponse结构体已在swagger_models.go中定义，此处不再重复定义

// NewSuccessResponse 创建成功响应
func NewSuccessResponse(data interface{}) APIResponse {
	return APIResponse{
		Code:    CodeSuccess,
		Message: CodeMessages[CodeSuccess],
		Data:    data,
	}
}

// NewErrorResponse 创建错误响应
func NewErrorResponse(code int, data interface{}) APIResponse {
	message, exists := CodeMessages[code]
	if !exists {
		message = "未知错误"
	}
	return APIResponse{
		Code:    code,
		Message: message,
		Data:    data,
	}
}

// NewCustomErrorResponse 创建自定义错误消息的响应
func NewCustomErrorResponse(code int, message string, data interface{}) APIResponse {
	return APIResponse{
		Code:    code,
		Message: message,
		Data:    data,
	}
}
