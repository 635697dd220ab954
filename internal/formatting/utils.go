package formatting

import (
	"fmt"
	"time"
)

func roundDuration(d time.Duration) time.Duration {
	if d < time.Second {
		return d.Round(time.Millisecond)
	}
	return d.Round(100 * time.Millisecond)
}

func ratio(ok, total int) string {
	return fmt.Sprintf("%d/%d", ok, total)
}

func shortRunID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
