package slot

// Next returns the lowest positive integer found in neither reserved nor inUse.
// Both sets are finite, so the scan always terminates.
func Next(reserved, inUse map[int]struct{}) int {
	for n := 1; ; n++ {
		if _, ok := reserved[n]; ok {
			continue
		}
		if _, ok := inUse[n]; ok {
			continue
		}
		return n
	}
}

// Set builds a lookup set from a list of numbers.
func Set(nums ...int) map[int]struct{} {
	set := make(map[int]struct{}, len(nums))
	for _, n := range nums {
		set[n] = struct{}{}
	}
	return set
}
