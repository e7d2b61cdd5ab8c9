package bptree

func insertUint64At(s []uint64, i int, v uint64) []uint64 {
	s = append(s, 0)
	copy(s[i+1:], s[i:])
	s[i] = v
	return s
}

func removeUint64At(s []uint64, i int) []uint64 {
	return append(s[:i], s[i+1:]...)
}

func insertMappingAt(s []Mapping, i int, v Mapping) []Mapping {
	s = append(s, Mapping{})
	copy(s[i+1:], s[i:])
	s[i] = v
	return s
}

func removeMappingAt(s []Mapping, i int) []Mapping {
	return append(s[:i], s[i+1:]...)
}

func insertIntAt(s []int, i int, v int) []int {
	s = append(s, 0)
	copy(s[i+1:], s[i:])
	s[i] = v
	return s
}

func removeIntAt(s []int, i int) []int {
	return append(s[:i], s[i+1:]...)
}

// replaceChildAt replaces the child at position i with two children left,
// right (the result of splitting the node that used to occupy i).
func replaceChildAt(children []int, i, left, right int) []int {
	out := make([]int, 0, len(children)+1)
	out = append(out, children[:i]...)
	out = append(out, left, right)
	out = append(out, children[i+1:]...)
	return out
}
