package registry

import (
	"encoding/json"
	"fmt"
)

// ToMatrix 将 JSON 解码后的输入转换为二维特征矩阵
// 支持二维数组，或一维数值数组（按单特征处理）
func ToMatrix(data any) ([][]float64, error) {
	switch v := data.(type) {
	case [][]float64:
		return v, nil
	case []float64:
		out := make([][]float64, len(v))
		for i, x := range v {
			out[i] = []float64{x}
		}
		return out, nil
	case []any:
		out := make([][]float64, 0, len(v))
		for i, row := range v {
			switch r := row.(type) {
			case []any:
				vals, err := toFloats(r)
				if err != nil {
					return nil, fmt.Errorf("row %d: %w", i, err)
				}
				out = append(out, vals)
			default:
				x, err := toFloat(r)
				if err != nil {
					return nil, fmt.Errorf("row %d: %w", i, err)
				}
				out = append(out, []float64{x})
			}
		}
		return out, nil
	case nil:
		return nil, fmt.Errorf("data is required")
	default:
		return nil, fmt.Errorf("unsupported data type %T", data)
	}
}

// ToVector 将 JSON 解码后的数值数组转换为 []float64
func ToVector(data any) ([]float64, error) {
	switch v := data.(type) {
	case []float64:
		return v, nil
	case []any:
		return toFloats(v)
	case nil:
		return nil, nil
	default:
		return nil, fmt.Errorf("unsupported series type %T", data)
	}
}

func toFloats(values []any) ([]float64, error) {
	out := make([]float64, len(values))
	for i, v := range values {
		x, err := toFloat(v)
		if err != nil {
			return nil, err
		}
		out[i] = x
	}
	return out, nil
}

func toFloat(v any) (float64, error) {
	switch n := v.(type) {
	case float64:
		return n, nil
	case float32:
		return float64(n), nil
	case int:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case json.Number:
		return n.Float64()
	default:
		return 0, fmt.Errorf("value %v is not numeric", v)
	}
}
