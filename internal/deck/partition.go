package deck

import "succession/internal/plan"

// Partition splits n successors into consecutive groups of at most capacity.
// Group i holds indices [i*capacity, min((i+1)*capacity, n)).
func Partition(n, capacity int) [][]int {
	if n <= 0 || capacity <= 0 {
		return nil
	}
	groups := make([][]int, 0, (n+capacity-1)/capacity)
	for start := 0; start < n; start += capacity {
		end := start + capacity
		if end > n {
			end = n
		}
		group := make([]int, 0, end-start)
		for i := start; i < end; i++ {
			group = append(group, i)
		}
		groups = append(groups, group)
	}
	return groups
}

func pick(successors []plan.Successor, idx []int) []plan.Successor {
	out := make([]plan.Successor, len(idx))
	for i, j := range idx {
		out[i] = successors[j]
	}
	return out
}
