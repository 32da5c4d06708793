package quota

import (
	"fmt"
	"strings"
)

const bannerWidth = 60

// Banner renders the status as the text block printed before and after a
// collection run, progress bar included.
func (s *Status) Banner() string {
	var b strings.Builder
	rule := strings.Repeat("=", bannerWidth)

	fmt.Fprintf(&b, "%s\n", rule)
	fmt.Fprintf(&b, "  QUOTA STATUS - COPERNICUS DATA SPACE\n")
	fmt.Fprintf(&b, "%s\n", rule)
	fmt.Fprintf(&b, "  Processing Units: %d / %d (%.1f%%)\n", s.PUUsed, s.PULimit, s.PercentUsed)
	fmt.Fprintf(&b, "  Requests:         %d / %d\n", s.RequestsUsed, s.RequestsLimit)
	fmt.Fprintf(&b, "  Remaining:        %d PU\n", s.PURemaining)
	fmt.Fprintf(&b, "  Days left:        %d\n", s.DaysRemaining)
	fmt.Fprintf(&b, "  Daily budget:     ~%d PU recommended\n", s.SafeDailyPU)
	fmt.Fprintf(&b, "  Collections today: %d\n", s.CollectionsToday)

	const barLength = 40
	filled := int(barLength * s.PercentUsed / 100)
	if filled < 0 {
		filled = 0
	}
	if filled > barLength {
		filled = barLength
	}
	bar := strings.Repeat("#", filled) + strings.Repeat("-", barLength-filled)
	fmt.Fprintf(&b, "\n  [%s] %.1f%%\n", bar, s.PercentUsed)
	fmt.Fprintf(&b, "%s", rule)

	return b.String()
}
