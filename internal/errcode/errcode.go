package errcode

// 错误码约定：
// - 0：无错误
// - 4xxx：业务可恢复错误（资源缺失、字段校验失败）
// - 5xxx：系统错误（连接失败、超时）
const (
	OK               = 0
	ResourceMissing  = 4004
	ValidationFailed = 4001
	ConnectivityLost = 5000
	Timeout          = 5004
)
