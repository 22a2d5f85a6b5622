// Copyright 2024 SpotRank Project Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package heap

import (
	"container/heap"

	"golang.org/x/exp/constraints"
)

type Elem[E any, W constraints.Ordered] struct {
	Value  E
	Weight W
}

type innerHeap[T any, W constraints.Ordered] struct {
	elems []Elem[T, W]
}

func (h *innerHeap[T, W]) Len() int {
	return len(h.elems)
}

func (h *innerHeap[T, W]) Less(i, j int) bool {
	return h.elems[i].Weight < h.elems[j].Weight
}

func (h *innerHeap[T, W]) Swap(i, j int) {
	h.elems[i], h.elems[j] = h.elems[j], h.elems[i]
}

func (h *innerHeap[T, W]) Push(x interface{}) {
	h.elems = append(h.elems, x.(Elem[T, W]))
}

func (h *innerHeap[T, W]) Pop() interface{} {
	old := h.elems
	item := old[len(old)-1]
	h.elems = old[:len(old)-1]
	return item
}

// TopKFilter keeps the k elements with maximum weights.
type TopKFilter[T any, W constraints.Ordered] struct {
	innerHeap[T, W]
	k int
}

// NewTopKFilter creates a top k filter.
func NewTopKFilter[T any, W constraints.Ordered](k int) *TopKFilter[T, W] {
	return &TopKFilter[T, W]{k: k}
}

// Push pushes the element onto the filter, evicting the current minimum
// once more than k elements are held.
func (filter *TopKFilter[T, W]) Push(item T, weight W) {
	heap.Push(&filter.innerHeap, Elem[T, W]{item, weight})
	if filter.Len() > filter.k {
		heap.Pop(&filter.innerHeap)
	}
}

// PopAll pops all elements in the filter with decreasing order.
func (filter *TopKFilter[T, W]) PopAll() []Elem[T, W] {
	elems := make([]Elem[T, W], filter.Len())
	for i := len(elems) - 1; i >= 0; i-- {
		elems[i] = heap.Pop(&filter.innerHeap).(Elem[T, W])
	}
	return elems
}
