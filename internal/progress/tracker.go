package progress

import (
	"fmt"
	"time"

	"github.com/schollz/progressbar/v3"
)

// Tracker renders a terminal progress bar for multi-tenant exports.
type Tracker struct {
	bar       *progressbar.ProgressBar
	startTime time.Time
}

// New creates a tracker for total tenants.
func New(total int) *Tracker {
	return &Tracker{
		startTime: time.Now(),
		bar: progressbar.NewOptions(
			total,
			progressbar.OptionSetDescription("Exporting tenants"),
			progressbar.OptionShowCount(),
			progressbar.OptionSetWidth(40),
			progressbar.OptionThrottle(100*time.Millisecond),
			progressbar.OptionShowIts(),
			progressbar.OptionSetItsString("tenants"),
			progressbar.OptionSetRenderBlankState(true),
		),
	}
}

// Set moves the bar to done tenants completed.
func (t *Tracker) Set(done int) {
	t.bar.Set(done)
}

// Finish completes the bar and prints a summary line.
func (t *Tracker) Finish() {
	t.bar.Finish()
	fmt.Println()
	fmt.Printf("Exported in %s\n", time.Since(t.startTime).Round(time.Second))
}
