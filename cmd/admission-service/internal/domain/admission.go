package domain

// Admission 重放检查结果
type Admission string

const (
	// AdmissionAccept 首次出现，放行
	AdmissionAccept Admission = "accept"
	// AdmissionDuplicate 重复投递，拒绝
	AdmissionDuplicate Admission = "duplicate"
)

// QuotaReservation 配额预留结果
type QuotaReservation struct {
	Allowed   bool       `json:"allowed"`
	Burned    int64      `json:"burned"`
	Limit     int64      `json:"limit"`
	Remaining int64      `json:"remaining"`
	Tier      TenantTier `json:"tier"`
	// FailOpen 为真表示计数存储不可用，配额检查被放行但用量未知
	FailOpen bool `json:"-"`
}

// BackpressureMode 背压模式，由队列深度采样纯函数推导
type BackpressureMode int

const (
	// ModeNormal 正常
	ModeNormal BackpressureMode = iota
	// ModeLight 轻度过载
	ModeLight
	// ModeModerate 中度过载
	ModeModerate
	// ModeSevere 重度过载
	ModeSevere
)

// String 返回模式字符串
func (m BackpressureMode) String() string {
	switch m {
	case ModeNormal:
		return "normal"
	case ModeLight:
		return "light"
	case ModeModerate:
		return "moderate"
	case ModeSevere:
		return "severe"
	default:
		return "unknown"
	}
}

// UseTemplatesOnly 是否只允许模板化响应（最廉价的确定性路径）
// 仅在重度过载时为真
func (m BackpressureMode) UseTemplatesOnly() bool {
	return m == ModeSevere
}

// DisablePersuasion 是否禁用高成本的说服式响应策略
// 中度及以上过载为真，仍允许普通生成
func (m BackpressureMode) DisablePersuasion() bool {
	return m >= ModeModerate
}

// DeferAnalytics 是否推迟非关键的统计记账
// 任何非正常模式为真
func (m BackpressureMode) DeferAnalytics() bool {
	return m != ModeNormal
}

// ProcessingHints 背压给业务处理器的降级提示
// 不是准入门槛，只影响处理策略的选择
type ProcessingHints struct {
	Mode             BackpressureMode `json:"mode"`
	TemplatesOnly    bool             `json:"templates_only"`
	PersuasionOff    bool             `json:"persuasion_off"`
	DeferAnalytics   bool             `json:"defer_analytics"`
	QueueDepthSample int64            `json:"queue_depth_sample"`
}

// RejectReason 准入拒绝原因
type RejectReason string

const (
	// RejectDuplicate 重复投递（调用方不应重试）
	RejectDuplicate RejectReason = "duplicate_request"
	// RejectQuotaExceeded 当日配额耗尽（次日重试）
	RejectQuotaExceeded RejectReason = "quota_exceeded"
)
