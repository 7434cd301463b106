// Copyright (C) 2020 Markus L. Noga
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

package stats

import (
	"math"

	"github.com/valyala/fastrand"
)

// Select the k-th smallest element of a, using quickselect with random pivots
// and a three-way partition so runs of equal values do not degrade to quadratic time.
// Partially reorders a: afterwards all elements left of k are <=a[k], all right of it >=a[k].
// The array must not contain NaNs.
func QSelectFloat64(a []float64, k int) float64 {
	left, right := 0, len(a)-1
	for left < right {
		pivot := a[left+int(fastrand.Uint32n(uint32(right-left+1)))]
		lt, gt := partition3(a, left, right, pivot)
		if k < lt {
			right = lt - 1
		} else if k > gt {
			left = gt + 1
		} else {
			return pivot
		}
	}
	return a[k]
}

// Dutch national flag partition of a[left..right] around the pivot value.
// Returns the first and last index of the run equal to pivot.
func partition3(a []float64, left, right int, pivot float64) (lt, gt int) {
	lt, i, gt := left, left, right
	for i <= gt {
		switch {
		case a[i] < pivot:
			a[lt], a[i] = a[i], a[lt]
			lt++
			i++
		case a[i] > pivot:
			a[i], a[gt] = a[gt], a[i]
			gt--
		default:
			i++
		}
	}
	return lt, gt
}

// Median of a, reordering a in the process. Even lengths average the two middle values.
// Returns NaN for empty input. The array must not contain NaNs.
func MedianInPlace(a []float64) float64 {
	n := len(a)
	if n == 0 {
		return math.NaN()
	}
	lo := QSelectFloat64(a, (n-1)/2)
	if n%2 == 1 {
		return lo
	}
	hi := a[n/2]
	for _, v := range a[n/2+1:] {
		if v < hi {
			hi = v
		}
	}
	return 0.5 * (lo + hi)
}

// Median of the non-NaN values in data. Data is not modified.
func Median(data []float64) float64 {
	return MedianInPlace(AppendValid(make([]float64, 0, len(data)), data))
}

// Append all non-NaN values of data to dst and return the extended slice
func AppendValid(dst, data []float64) []float64 {
	for _, v := range data {
		if !math.IsNaN(v) {
			dst = append(dst, v)
		}
	}
	return dst
}
