package models

import "time"

// CalibrationSample 校准观察样本（符号值 + 生物频率的一次配对观察）
type CalibrationSample struct {
	Timestamp          time.Time `json:"timestamp"`             // 观察时间
	SymbolicValue      int       `json:"symbolic_value"`        // 符号基准值
	BiometricFrequency float64   `json:"biometric_frequency"`   // 生物频率值
	SelfReport         *bool     `json:"self_report,omitempty"` // 用户主观反馈（可选，true 表示正向）
	ActivityLevel      string    `json:"activity_level"`        // 活动水平（"rest"/"active" 等）
}

// CalibrationWindow 校准窗口（固定观察期，结束后只读）
//
// 不变量：ElapsedDays = 当前时间与 StartDate 的间隔天数；
// ElapsedDays ≥ 14 时窗口完成，权重计算消费且仅消费一次
type CalibrationWindow struct {
	WindowID    string              `json:"window_id"`    // 窗口 ID（UUID）
	UserID      string              `json:"user_id"`      // 所属用户
	StartDate   time.Time           `json:"start_date"`   // 窗口开始时间
	ElapsedDays int                 `json:"elapsed_days"` // 已经过天数（单调不减）
	Samples     []CalibrationSample `json:"samples"`      // 按时间顺序累积的样本
	Completed   bool                `json:"completed"`    // 是否已完成（完成后只读）
}
