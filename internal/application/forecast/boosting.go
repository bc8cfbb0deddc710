package forecast

import (
	"sort"

	"gonum.org/v1/gonum/stat"
)

// 梯度提升默认参数
const (
	DefaultEstimators   = 200
	DefaultLearningRate = 0.1
)

// stump 深度为 1 的回归树
type stump struct {
	feature   int
	threshold float64
	left      float64
	right     float64
}

func (s stump) predict(row []float64) float64 {
	if row[s.feature] <= s.threshold {
		return s.left
	}
	return s.right
}

// BoostedStumps 以平方损失做梯度提升的决策树桩集成
type BoostedStumps struct {
	Estimators   int
	LearningRate float64

	base   float64
	stumps []stump
	cols   int
	fitted bool
}

// NewBoostedStumps 创建提升回归器
func NewBoostedStumps(estimators int, learningRate float64) *BoostedStumps {
	if estimators <= 0 {
		estimators = DefaultEstimators
	}
	if learningRate <= 0 {
		learningRate = DefaultLearningRate
	}
	return &BoostedStumps{Estimators: estimators, LearningRate: learningRate}
}

// Fit 逐轮拟合残差
func (b *BoostedStumps) Fit(X [][]float64, y []float64) error {
	cols, err := validateXY(X, y)
	if err != nil {
		return err
	}

	b.cols = cols
	b.base = stat.Mean(y, nil)
	b.stumps = b.stumps[:0]

	residual := make([]float64, len(y))
	for i := range y {
		residual[i] = y[i] - b.base
	}

	order := make([][]int, cols)
	for j := 0; j < cols; j++ {
		idx := make([]int, len(X))
		for i := range idx {
			idx[i] = i
		}
		sort.SliceStable(idx, func(a, c int) bool { return X[idx[a]][j] < X[idx[c]][j] })
		order[j] = idx
	}

	for round := 0; round < b.Estimators; round++ {
		s, ok := bestStump(X, residual, order)
		if !ok {
			break
		}
		s.left *= b.LearningRate
		s.right *= b.LearningRate
		b.stumps = append(b.stumps, s)
		for i, row := range X {
			residual[i] -= s.predict(row)
		}
	}

	b.fitted = true
	return nil
}

// bestStump 在所有特征的相邻取值中点上寻找平方误差最小的切分
func bestStump(X [][]float64, residual []float64, order [][]int) (stump, bool) {
	n := len(residual)
	var total float64
	for _, r := range residual {
		total += r
	}

	best := stump{}
	bestGain := 1e-12
	found := false
	for j, idx := range order {
		var leftSum float64
		for k := 0; k < n-1; k++ {
			leftSum += residual[idx[k]]
			cur, next := X[idx[k]][j], X[idx[k+1]][j]
			if cur == next {
				continue
			}
			nl, nr := float64(k+1), float64(n-k-1)
			rightSum := total - leftSum
			// 平方误差的下降量
			gain := leftSum*leftSum/nl + rightSum*rightSum/nr - total*total/float64(n)
			if gain > bestGain {
				bestGain = gain
				best = stump{
					feature:   j,
					threshold: (cur + next) / 2,
					left:      leftSum / nl,
					right:     rightSum / nr,
				}
				found = true
			}
		}
	}
	return best, found
}

// Predict 基准值加上各轮树桩输出
func (b *BoostedStumps) Predict(X [][]float64) ([]float64, error) {
	if !b.fitted {
		return nil, errNotTrained("boosted stumps")
	}
	if err := validateRows(X, b.cols); err != nil {
		return nil, err
	}

	out := make([]float64, len(X))
	for i, row := range X {
		v := b.base
		for _, s := range b.stumps {
			v += s.predict(row)
		}
		out[i] = v
	}
	return out, nil
}

// Rounds 实际拟合的轮数
func (b *BoostedStumps) Rounds() int {
	return len(b.stumps)
}
