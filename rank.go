package codehub

// Rank maps a solved-problem count to a rank tier. Rank 1 is the top
// tier; the function is non-increasing in solved.
//
//	  0–9   -> 7
//	 10–19  -> 6
//	 20–39  -> 5
//	 40–59  -> 4
//	 60–79  -> 3
//	 80–99  -> 2
//	100+    -> 1
func Rank(solved int) int {
	switch {
	case solved >= 100:
		return 1
	case solved >= 80:
		return 2
	case solved >= 60:
		return 3
	case solved >= 40:
		return 4
	case solved >= 20:
		return 5
	case solved >= 10:
		return 6
	default:
		return 7
	}
}
