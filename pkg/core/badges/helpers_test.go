package badges

import "time"

const (
	timeout = 2 * time.Second
	tick    = 5 * time.Millisecond
)
