package errors

import "errors"

// ErrNotOwner 记录存在但不属于当前用户
var ErrNotOwner = errors.New("无权操作该记录")

// ErrLLMUnavailable 未配置语言模型或模型调用失败
var ErrLLMUnavailable = errors.New("语言模型不可用")
