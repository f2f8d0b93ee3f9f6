package playa

// PlayBody requests playback of a source.
type PlayBody struct {
	Source  string          `json:"source"`
	Options PlaybackOptions `json:"options"`
}

// PlayResult is returned by playback.play.
type PlayResult struct {
	ID InstanceID `json:"id"`
}

// InstanceBody targets an existing instance.
type InstanceBody struct {
	ID InstanceID `json:"id"`
}

// SeekBody seeks an instance to an absolute position in seconds.
type SeekBody struct {
	ID       InstanceID `json:"id"`
	Position float64    `json:"position"`
}

// SetVolumeBody sets an instance's volume (0-100).
type SetVolumeBody struct {
	ID     InstanceID `json:"id"`
	Volume float64    `json:"volume"`
}

// UpdateWindowBody changes window properties of a running instance.
type UpdateWindowBody struct {
	ID     InstanceID    `json:"id"`
	Window WindowOptions `json:"window"`
}

// ListResult is returned by playback.list.
type ListResult struct {
	Instances []InstanceSummary `json:"instances"`
}

// PresetListResult is returned by presets.list.
type PresetListResult struct {
	Presets []string `json:"presets"`
}

// PresetDetailsBody requests details for a named preset.
type PresetDetailsBody struct {
	Name string `json:"name"`
}

// PresetDetailsResult is returned by presets.details.
type PresetDetailsResult struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Platform    string   `json:"platform"`
	Level       string   `json:"level"`
	Args        []string `json:"args"`
}

// PresetRecommendedResult is returned by presets.recommended.
type PresetRecommendedResult struct {
	Preset string `json:"preset"`
}

// EmptyBody is the body for commands without parameters.
type EmptyBody struct{}
