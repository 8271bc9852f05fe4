package draft

type Type string

const (
	Straight Type = "straight"
	Snake    Type = "snake"
)

func ValidType(t Type) bool {
	return t == Straight || t == Snake
}

// Order returns which captain is on the clock for each of n picks.
//
// Straight alternates winner, loser, winner, loser.
//
// Snake follows the 1-2-1-1 cadence: the winner opens with a single pick,
// then alternating two-pick blocks starting with the loser, with the final
// block clipped to however many slots remain.
func Order(t Type, winner, loser string, n int) []string {
	if n <= 0 {
		return nil
	}
	order := make([]string, 0, n)
	switch t {
	case Snake:
		order = append(order, winner)
		cur := loser
		for len(order) < n {
			order = append(order, cur)
			if len(order) < n {
				order = append(order, cur)
			}
			if cur == loser {
				cur = winner
			} else {
				cur = loser
			}
		}
	default:
		for i := 0; i < n; i++ {
			if i%2 == 0 {
				order = append(order, winner)
			} else {
				order = append(order, loser)
			}
		}
	}
	return order
}
