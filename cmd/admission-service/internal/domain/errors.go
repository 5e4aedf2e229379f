package domain

import (
	"errors"
)

// 业务错误
// 准入拒绝通过 RejectReason 结构化返回，不走 error 通道
var (
	// ErrVendorUnavailable 外部服务熔断中
	ErrVendorUnavailable = errors.New("vendor service unavailable")
)

// 资源错误
var (
	// ErrLeadNotFound 线索不存在
	ErrLeadNotFound = errors.New("lead not found")
	// ErrTenantNotFound 租户不存在
	ErrTenantNotFound = errors.New("tenant not found")
	// ErrInvalidChannel 未知外联渠道
	ErrInvalidChannel = errors.New("invalid lead channel")
)

// 基础设施错误（调用方据此决定 fail-open 还是 fail-closed）
var (
	// ErrStoreUnavailable 共享存储不可用
	ErrStoreUnavailable = errors.New("shared store unavailable")
)
