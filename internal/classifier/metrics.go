package classifier

import "math"

// ConfusionMatrix counts predictions: rows are actual, columns predicted,
// both ordered [Down, Up].
type ConfusionMatrix [2][2]int

// ClassReport holds precision, recall and F1 for one class or average.
type ClassReport struct {
	Label     string
	Precision float64
	Recall    float64
	F1        float64
	Support   int
}

// Report is a per-class evaluation of held-out predictions.
type Report struct {
	Classes     []ClassReport // Down, Up
	Accuracy    float64       // fraction, 0..1
	MacroAvg    ClassReport
	WeightedAvg ClassReport
}

// Confusion builds the confusion matrix for paired labels.
func Confusion(actual, predicted []Direction) ConfusionMatrix {
	var cm ConfusionMatrix
	for i := range actual {
		cm[actual[i]][predicted[i]]++
	}
	return cm
}

// Total returns the number of evaluated rows.
func (cm ConfusionMatrix) Total() int {
	return cm[0][0] + cm[0][1] + cm[1][0] + cm[1][1]
}

// AccuracyPct returns the share of correct predictions as a percentage
// rounded to two decimals. It is 0 for an empty matrix.
func (cm ConfusionMatrix) AccuracyPct() float64 {
	if cm.Total() == 0 {
		return 0
	}
	return round2(float64(cm[0][0]+cm[1][1]) / float64(cm.Total()) * 100)
}

// Evaluate builds the classification report. Values are rounded to two
// decimals; a zero denominator yields 0.
func Evaluate(cm ConfusionMatrix) Report {
	var rep Report
	total := cm.Total()
	var macro, weighted ClassReport
	for _, c := range []Direction{Down, Up} {
		tp := cm[c][c]
		predicted := cm[Down][c] + cm[Up][c]
		support := cm[c][Down] + cm[c][Up]

		precision := ratio(tp, predicted)
		recall := ratio(tp, support)
		f1 := 0.0
		if precision+recall > 0 {
			f1 = 2 * precision * recall / (precision + recall)
		}
		rep.Classes = append(rep.Classes, ClassReport{
			Label:     c.String(),
			Precision: round2(precision),
			Recall:    round2(recall),
			F1:        round2(f1),
			Support:   support,
		})

		macro.Precision += precision / 2
		macro.Recall += recall / 2
		macro.F1 += f1 / 2
		if total > 0 {
			w := float64(support) / float64(total)
			weighted.Precision += precision * w
			weighted.Recall += recall * w
			weighted.F1 += f1 * w
		}
	}

	rep.Accuracy = round2(ratio(cm[0][0]+cm[1][1], total))
	rep.MacroAvg = ClassReport{
		Label:     "macro avg",
		Precision: round2(macro.Precision),
		Recall:    round2(macro.Recall),
		F1:        round2(macro.F1),
		Support:   total,
	}
	rep.WeightedAvg = ClassReport{
		Label:     "weighted avg",
		Precision: round2(weighted.Precision),
		Recall:    round2(weighted.Recall),
		F1:        round2(weighted.F1),
		Support:   total,
	}
	return rep
}

func ratio(num, den int) float64 {
	if den == 0 {
		return 0
	}
	return float64(num) / float64(den)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
