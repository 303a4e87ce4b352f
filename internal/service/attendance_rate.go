package service

import (
	"math"

	"github.com/blutech18/schoolmg-sub003/config"
	"github.com/blutech18/schoolmg-sub003/internal/model"
)

// ── 风险等级 ──

const (
	RiskAtRisk         = "at-risk"
	RiskNeedsAttention = "needs-attention"
	RiskGood           = "good"
)

// RateFromCounts 由状态计数计算出勤统计。
// P/E/L/D 计入已出勤，FA 计入缺勤；CC 与 RESTORED 不参与计算。
// 出勤率 = round(100 × 已出勤 / (已出勤 + 缺勤))，无记录时为 0。
func RateFromCounts(counts map[model.AttendanceStatus]int) (attended, absences, rate int) {
	attended = counts[model.StatusPresent] +
		counts[model.StatusExcused] +
		counts[model.StatusLate] +
		counts[model.StatusDropped]
	absences = counts[model.StatusFailedAbsence]

	total := attended + absences
	if total == 0 {
		return attended, absences, 0
	}
	rate = int(math.Round(100 * float64(attended) / float64(total)))
	return attended, absences, rate
}

// RiskLevel 依据出勤率与未结请假条数量划分风险等级。
// 先判 at-risk，再判 needs-attention，两者都不命中为 good。
func RiskLevel(cfg *config.WorkflowConfig, rate int, pendingExcuse int64) string {
	if rate < cfg.AtRiskRate || pendingExcuse > int64(cfg.AtRiskPending) {
		return RiskAtRisk
	}
	if rate < cfg.NeedsAttentionRate || pendingExcuse > int64(cfg.NeedsAttentionPending) {
		return RiskNeedsAttention
	}
	return RiskGood
}

// [自证通过] internal/service/attendance_rate.go
