package classifier

import (
	"math"
	"math/rand/v2"
)

// stratifiedSplit partitions sample indices into train and test sets that
// keep the class proportions of labels. Each class puts
// round(testFraction * size) samples in the test set, at least one and at
// most size-1.
func stratifiedSplit(labels []int, testFraction float64, rng *rand.Rand) ([]int, []int) {
	var groups [2][]int
	for i, l := range labels {
		groups[l] = append(groups[l], i)
	}

	train := make([]int, 0, len(labels))
	test := make([]int, 0, int(math.Ceil(testFraction*float64(len(labels)))))

	for _, group := range groups {
		rng.Shuffle(len(group), func(i, j int) {
			group[i], group[j] = group[j], group[i]
		})

		nTest := int(math.Round(testFraction * float64(len(group))))
		nTest = min(max(nTest, 1), len(group)-1)

		test = append(test, group[:nTest]...)
		train = append(train, group[nTest:]...)
	}
	return train, test
}

func subset(x [][]float64, y []int, idx []int) ([][]float64, []int) {
	xs := make([][]float64, len(idx))
	ys := make([]int, len(idx))
	for k, i := range idx {
		xs[k] = x[i]
		ys[k] = y[i]
	}
	return xs, ys
}
