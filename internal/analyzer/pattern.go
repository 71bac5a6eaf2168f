package analyzer

import "wisefido-coherence/internal/models"

// 节律模式分类阈值（左闭右开区间）
const (
	transitionalThreshold  = 0.3
	coherentThreshold      = 0.6
	superCoherentThreshold = 0.85
)

// ClassifyHRV 把相干性得分映射为节律模式
//
// 全函数：区间外的得分先截断到 [0,1] 再分类，无副作用
// [0,0.3)→incoherent [0.3,0.6)→transitional [0.6,0.85)→coherent [0.85,1]→super_coherent
func ClassifyHRV(score float64) models.HRVPattern {
	score = clamp(score, 0, 1)

	switch {
	case score < transitionalThreshold:
		return models.PatternIncoherent
	case score < coherentThreshold:
		return models.PatternTransitional
	case score < superCoherentThreshold:
		return models.PatternCoherent
	default:
		return models.PatternSuperCoherent
	}
}
