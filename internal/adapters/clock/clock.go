package clock

import "time"

// Clock provides wall-clock access for command timestamps.
type Clock struct{}

// NowUnix returns current unix seconds.
func (Clock) NowUnix() int64 {
	return time.Now().Unix()
}
