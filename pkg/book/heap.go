package book

// MaxPriceHeap tracks the best (highest) bid price with O(1) peek. Prices
// are uint64 since they never go negative in this domain.
type MaxPriceHeap []uint64

func (h MaxPriceHeap) Len() int            { return len(h) }
func (h MaxPriceHeap) Less(i, j int) bool  { return h[i] > h[j] }
func (h MaxPriceHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *MaxPriceHeap) Push(x interface{}) { *h = append(*h, x.(uint64)) }

func (h *MaxPriceHeap) Pop() interface{} {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}

// Peek returns the top element without removing it. ok is false on an empty
// heap (0 is itself a valid price-adjacent sentinel so it cannot double as
// "empty").
func (h MaxPriceHeap) Peek() (uint64, bool) {
	if len(h) == 0 {
		return 0, false
	}
	return h[0], true
}

// MinPriceHeap tracks the best (lowest) ask price with O(1) peek.
type MinPriceHeap []uint64

func (h MinPriceHeap) Len() int            { return len(h) }
func (h MinPriceHeap) Less(i, j int) bool  { return h[i] < h[j] }
func (h MinPriceHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *MinPriceHeap) Push(x interface{}) { *h = append(*h, x.(uint64)) }

func (h *MinPriceHeap) Pop() interface{} {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}

func (h MinPriceHeap) Peek() (uint64, bool) {
	if len(h) == 0 {
		return 0, false
	}
	return h[0], true
}
