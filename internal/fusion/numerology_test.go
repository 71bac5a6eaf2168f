package fusion

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestReduceSymbolic_SingleDigitUnchanged(t *testing.T) {
	for v := 1; v <= 9; v++ {
		assert.Equal(t, v, ReduceSymbolic(v))
	}
}

func TestReduceSymbolic_MasterNumbersExempt(t *testing.T) {
	for _, v := range []int{11, 22, 33, 44, 55, 66, 77} {
		assert.Equal(t, v, ReduceSymbolic(v))
	}
}

// 38 → 3+8=11，命中主数后停止归约
func TestReduceSymbolic_ReductionStopsAtMaster(t *testing.T) {
	assert.Equal(t, 11, ReduceSymbolic(38))
	assert.Equal(t, 11, ReduceSymbolic(11))
}

func TestReduceSymbolic_MultiDigit(t *testing.T) {
	assert.Equal(t, 1, ReduceSymbolic(1234)) // 1+2+3+4=10 → 1
	assert.Equal(t, 9, ReduceSymbolic(18))   // 1+8=9
	assert.Equal(t, 3, ReduceSymbolic(48))   // 4+8=12 → 3
}

// 9 同时属于特斯拉集合和质数共鸣集合：40+20=60
func TestPatternBonus_NineStacksTeslaAndPrime(t *testing.T) {
	assert.Equal(t, 60.0, PatternBonus(9))
}

// 主数固定 100，不叠加其他集合
func TestPatternBonus_MasterNumber(t *testing.T) {
	assert.Equal(t, 100.0, PatternBonus(11))
	assert.Equal(t, 100.0, PatternBonus(33))
}

func TestPatternBonus_Stacking(t *testing.T) {
	// 3：fibonacci(30) + tesla(40) + 质数共鸣(20) = 90
	assert.Equal(t, 90.0, PatternBonus(3))
	// 5：fibonacci(30) + 质数共鸣(20) = 50
	assert.Equal(t, 50.0, PatternBonus(5))
	// 6：仅 tesla
	assert.Equal(t, 40.0, PatternBonus(6))
	// 4：不属于任何集合
	assert.Equal(t, 0.0, PatternBonus(4))
}

func TestIsMasterNumber(t *testing.T) {
	assert.True(t, IsMasterNumber(22))
	assert.False(t, IsMasterNumber(12))
	assert.False(t, IsMasterNumber(9))
}
