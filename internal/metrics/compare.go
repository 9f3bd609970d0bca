package metrics

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Compare scores predicted time series against reference ones. For every
// variable present in both it reports <var>_rmse and <var>_r2; when both
// carry "concentration" it also reports mass_conservation_error, the
// relative difference of the summed series.
func Compare(pred, truth map[string][]float64) (map[string]float64, error) {
	out := make(map[string]float64)
	for _, name := range sortedKeys(pred) {
		p := pred[name]
		t, ok := truth[name]
		if !ok {
			continue
		}
		if len(p) != len(t) {
			return nil, fmt.Errorf("%s: predicted length %d, reference length %d", name, len(p), len(t))
		}
		if len(p) == 0 {
			return nil, fmt.Errorf("%s: empty series", name)
		}
		out[name+"_rmse"] = floats.Distance(p, t, 2) / math.Sqrt(float64(len(p)))
		out[name+"_r2"] = stat.RSquaredFrom(p, t, nil)
	}

	p, okP := pred["concentration"]
	t, okT := truth["concentration"]
	if okP && okT {
		ref := floats.Sum(t)
		if ref == 0 {
			return nil, fmt.Errorf("concentration: reference mass is zero")
		}
		out["mass_conservation_error"] = math.Abs(floats.Sum(p)-ref) / math.Abs(ref)
	}
	return out, nil
}

// FormatReport renders scores one per line in name order.
func FormatReport(scores map[string]float64) string {
	var b strings.Builder
	b.WriteString("Model Performance Report\n")
	b.WriteString(strings.Repeat("=", 30))
	b.WriteString("\n")
	for _, name := range sortedKeys(scores) {
		fmt.Fprintf(&b, "%s: %.4f\n", name, scores[name])
	}
	return b.String()
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
