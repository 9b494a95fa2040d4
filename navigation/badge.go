package navigation

import "strconv"

// MaxBadgeCount is the largest count a badge spells out
const MaxBadgeCount = 9

// Badge formats a counter badge. The badge is hidden for zero or negative
// counts and capped at "9+"
func Badge(count int) (text string, visible bool) {
	switch {
	case count <= 0:
		return "", false
	case count > MaxBadgeCount:
		return strconv.Itoa(MaxBadgeCount) + "+", true
	default:
		return strconv.Itoa(count), true
	}
}

// CartLine is the part of a cart entry the bar needs
type CartLine struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

// CartCount sums the quantities of lines. A nil cart counts as zero
func CartCount(lines []CartLine) int {
	total := 0
	for _, l := range lines {
		total += l.Quantity
	}
	return total
}
