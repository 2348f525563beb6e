package port

import "time"

type Sink interface {
	// Frame: redraw the whole dashboard frame (clears previous frame)
	WriteFrame(frame string) error
	// Snapshot line: append a historical line with timestamp
	WriteSnapshot(ts time.Time, line string) error
	// Normal newline (for logs)
	NewLine() error
}
