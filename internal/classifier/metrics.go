package classifier

import (
	"fmt"
	"strings"
)

// ClassNames are the display names of label 0 and label 1.
var ClassNames = [2]string{"Benign", "Malicious"}

// TrainResult describes a finished training run.
type TrainResult struct {
	Variant       Variant              `json:"variant"`
	TrainAccuracy float64              `json:"train_accuracy"`
	TestAccuracy  float64              `json:"test_accuracy"`
	TrainSize     int                  `json:"train_size"`
	TestSize      int                  `json:"test_size"`
	Report        ClassificationReport `json:"report"`
}

// ClassMetrics are the held-out metrics of one class.
type ClassMetrics struct {
	Label     string  `json:"label"`
	Precision float64 `json:"precision"`
	Recall    float64 `json:"recall"`
	F1        float64 `json:"f1"`
	Support   int     `json:"support"`
}

// ClassificationReport holds per-class metrics on the test set.
type ClassificationReport struct {
	Classes  [2]ClassMetrics `json:"classes"`
	Accuracy float64         `json:"accuracy"`
	Support  int             `json:"support"`
}

func accuracy(yTrue, yPred []int) float64 {
	if len(yTrue) == 0 {
		return 0
	}
	correct := 0
	for i := range yTrue {
		if yTrue[i] == yPred[i] {
			correct++
		}
	}
	return float64(correct) / float64(len(yTrue))
}

// newClassificationReport computes precision, recall and F1 for each class.
// A ratio with a zero denominator is reported as 0.
func newClassificationReport(yTrue, yPred []int) ClassificationReport {
	var tp, fp, fn, support [2]int
	for i := range yTrue {
		t, p := yTrue[i], yPred[i]
		support[t]++
		if t == p {
			tp[t]++
		} else {
			fp[p]++
			fn[t]++
		}
	}

	r := ClassificationReport{
		Accuracy: accuracy(yTrue, yPred),
		Support:  len(yTrue),
	}
	for c := range 2 {
		precision := ratio(tp[c], tp[c]+fp[c])
		recall := ratio(tp[c], tp[c]+fn[c])
		f1 := 0.0
		if precision+recall > 0 {
			f1 = 2 * precision * recall / (precision + recall)
		}
		r.Classes[c] = ClassMetrics{
			Label:     ClassNames[c],
			Precision: precision,
			Recall:    recall,
			F1:        f1,
			Support:   support[c],
		}
	}
	return r
}

func ratio(a, b int) float64 {
	if b == 0 {
		return 0
	}
	return float64(a) / float64(b)
}

// String renders the report as an aligned text table.
func (r ClassificationReport) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%12s %10s %10s %10s %10s\n", "", "precision", "recall", "f1-score", "support")
	for _, c := range r.Classes {
		fmt.Fprintf(&sb, "%12s %10.2f %10.2f %10.2f %10d\n", c.Label, c.Precision, c.Recall, c.F1, c.Support)
	}
	fmt.Fprintf(&sb, "\n%12s %10s %10s %10.2f %10d\n", "accuracy", "", "", r.Accuracy, r.Support)
	return sb.String()
}
