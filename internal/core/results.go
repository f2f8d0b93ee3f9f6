package core

import "github.com/playadev/playa/pkg/playa"

// NodesResult lists online nodes.
type NodesResult struct {
	Nodes []playa.Presence `json:"nodes"`
}

// PlayResult reports a started instance.
type PlayResult struct {
	Node string           `json:"node"`
	ID   playa.InstanceID `json:"id"`
}

// InstancesResult lists instances on a node.
type InstancesResult struct {
	Node      string                  `json:"node"`
	Instances []playa.InstanceSummary `json:"instances"`
}

// StatusResult is a node's retained state.
type StatusResult struct {
	Node  string          `json:"node"`
	State playa.NodeState `json:"state"`
}

// ProgressResult is a progress snapshot of one instance.
type ProgressResult struct {
	Node     string                 `json:"node"`
	ID       playa.InstanceID       `json:"id"`
	Progress playa.PlaybackProgress `json:"progress"`
}

// InfoResult is the detailed state of one instance.
type InfoResult struct {
	Node string           `json:"node"`
	ID   playa.InstanceID `json:"id"`
	Info playa.VideoInfo  `json:"info"`
}

// PresetsResult lists preset names.
type PresetsResult struct {
	Presets []string `json:"presets"`
}

// PresetResult describes one preset.
type PresetResult struct {
	Preset playa.PresetDetailsResult `json:"preset"`
}

// RecommendedResult names the preset recommended for a node's hardware.
type RecommendedResult struct {
	Preset string `json:"preset"`
}
