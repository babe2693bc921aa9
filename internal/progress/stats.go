package progress

import "sort"

// Mean は算術平均を返す。空の場合は0。
func Mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// Median は昇順に並べたときの中央値を返す。要素数が偶数なら中央2要素の平均。空の場合は0。
// 引数のスライスは変更しない。
func Median(values []float64) float64 {
	n := len(values)
	if n == 0 {
		return 0
	}
	sorted := make([]float64, n)
	copy(sorted, values)
	sort.Float64s(sorted)

	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}

// Mode は出現回数が最大の値を返す。空の場合は0。
// 系列を先頭から1回走査し、出現回数が現在の最大を初めて上回った値を採用する。
// そのため同数の場合は、その回数に先に到達した値になる。
// この順序は互換性のために維持しているもので、値の大小とは無関係。
func Mode(values []float64) float64 {
	counts := make(map[float64]int, len(values))
	maxCount := 0
	var mode float64
	for _, v := range values {
		counts[v]++
		if counts[v] > maxCount {
			maxCount = counts[v]
			mode = v
		}
	}
	return mode
}

// Sum は合計を返す。
func Sum(values []float64) float64 {
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum
}
