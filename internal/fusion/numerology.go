package fusion

// 符号值成员集合与对应加成（固定常量表，来自行为校准）
//
// 主数命中时加成固定为 100，不与其他集合叠加；
// 其余集合的加成可叠加（一个值可同时属于多个集合）
const (
	masterBonus        = 100.0
	fibonacciBonus     = 30.0
	teslaBonus         = 40.0
	primeResonantBonus = 20.0
)

// masterNumbers 主数集合（免于数字归约）
var masterNumbers = map[int]bool{
	11: true, 22: true, 33: true, 44: true,
	55: true, 66: true, 77: true,
}

// fibonacciNumbers 斐波那契集合
var fibonacciNumbers = map[int]bool{
	1: true, 2: true, 3: true, 5: true, 8: true,
}

// teslaNumbers 特斯拉集合（3-6-9）
var teslaNumbers = map[int]bool{
	3: true, 6: true, 9: true,
}

// primeResonants 质数共鸣集合
// 9 不是质数，但上游校准表把它视为"完成数"共鸣成员，保留以维持行为一致
var primeResonants = map[int]bool{
	2: true, 3: true, 5: true, 7: true, 9: true,
}

// ReduceSymbolic 数字归约：多位数反复按位求和直到落入 1-9
//
// 主数（11/22/33/44/55/66/77）免于归约，原样返回；
// 归约过程中一旦命中主数也立即停止（38 → 3+8=11 → 保持 11）
func ReduceSymbolic(value int) int {
	if value < 0 {
		value = -value
	}
	for value > 9 && !masterNumbers[value] {
		sum := 0
		for value > 0 {
			sum += value % 10
			value /= 10
		}
		value = sum
	}
	return value
}

// PatternBonus 根据符号值计算模式加成
//
// 主数固定 100；否则按所属集合叠加（fibonacci +30、tesla +40、质数共鸣 +20）
func PatternBonus(symbolicValue int) float64 {
	if masterNumbers[symbolicValue] {
		return masterBonus
	}

	bonus := 0.0
	if fibonacciNumbers[symbolicValue] {
		bonus += fibonacciBonus
	}
	if teslaNumbers[symbolicValue] {
		bonus += teslaBonus
	}
	if primeResonants[symbolicValue] {
		bonus += primeResonantBonus
	}
	return bonus
}

// IsMasterNumber 判断是否属于主数集合
func IsMasterNumber(value int) bool {
	return masterNumbers[value]
}
