package utils

import (
	"testing"
)

type intItem int

func (a intItem) Less(b intItem) bool { return a < b }

func Test_PQ(t *testing.T) {
	pq := PQ[intItem]{}
	for _, v := range []intItem{5, 3, 9, 1, 7} {
		pq.Push(v)
	}
	expect(t, pq.Peek(), intItem(1))
	expect(t, pq.Replace(8), intItem(1))
	expect(t, pq.pop(), intItem(3))
	expect(t, pq.pop(), intItem(5))
	expect(t, pq.pop(), intItem(7))
	expect(t, pq.pop(), intItem(8))
	expect(t, pq.pop(), intItem(9))
	expect(t, len(pq), 0)
}
