// Package confidence reduces per-field confidence trees to one score.
package confidence

import (
	"encoding/json"
	"math"
)

// Aggregate computes the arithmetic mean of every numeric leaf in a nested
// confidence tree, rounded to two decimal places. Internal nodes are named
// groupings of unbounded depth (e.g. location.venue); key order carries no
// meaning. An empty or nil tree yields 0.0.
//
// Leaves are expected to be numeric in [0,100]; the extraction adapter
// validates the tree shape before this runs.
func Aggregate(tree map[string]any) float64 {
	leaves := flatten(tree, nil)
	if len(leaves) == 0 {
		return 0.0
	}
	var sum float64
	for _, v := range leaves {
		sum += v
	}
	return math.Round(sum/float64(len(leaves))*100) / 100
}

func flatten(tree map[string]any, acc []float64) []float64 {
	for _, value := range tree {
		switch v := value.(type) {
		case map[string]any:
			acc = flatten(v, acc)
		case float64:
			acc = append(acc, v)
		case float32:
			acc = append(acc, float64(v))
		case int:
			acc = append(acc, float64(v))
		case int64:
			acc = append(acc, float64(v))
		case json.Number:
			if f, err := v.Float64(); err == nil {
				acc = append(acc, f)
			}
		}
	}
	return acc
}
