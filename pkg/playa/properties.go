package playa

// mpv property names used by the polling and control layers.
const (
	PropPause        = "pause"
	PropTimePos      = "time-pos"
	PropPlaybackTime = "playback-time"
	PropPercentPos   = "percent-pos"
	PropDuration     = "duration"
	PropEOFReached   = "eof-reached"
	PropIdleActive   = "idle-active"
	PropCoreIdle     = "core-idle"
	PropPID          = "pid"
	PropPath         = "path"
	PropVolume       = "volume"
	PropMute         = "mute"
	PropSpeed        = "speed"
	PropWindowPos    = "window-pos"
	PropGeometry     = "geometry"
	PropOnTop        = "ontop"
	PropAlpha        = "alpha"
	PropMinimized    = "window-minimized"
)
