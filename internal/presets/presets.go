// Package presets holds curated player tuning profiles per platform and
// GPU vendor, plus the detection used to recommend one.
package presets

import (
	"fmt"
	"sort"
)

// Platform names a supported operating system family.
type Platform string

const (
	PlatformMacOS   Platform = "macos"
	PlatformWindows Platform = "windows"
	PlatformLinux   Platform = "linux"
)

// Level orders presets by how much GPU work they ask for.
type Level string

const (
	LevelFast        Level = "fast"
	LevelBalanced    Level = "balanced"
	LevelHighQuality Level = "high-quality"
)

// Option is one player setting. Presets keep options as an ordered list
// so the produced argument vector is stable.
type Option struct {
	Key   string
	Value string
}

// Preset is a named bundle of player settings.
type Preset struct {
	Name        string
	Description string
	Platform    Platform
	Level       Level
	Options     []Option
}

// Args renders the preset as command line flags.
func (p Preset) Args() []string {
	args := make([]string, 0, len(p.Options))
	for _, opt := range p.Options {
		args = append(args, fmt.Sprintf("--%s=%s", opt.Key, opt.Value))
	}
	return args
}

// List returns all preset names, sorted.
func List() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Details looks up a preset by name.
func Details(name string) (Preset, bool) {
	p, ok := registry[name]
	return p, ok
}

// Apply resolves a preset into player arguments.
func Apply(name string) ([]string, error) {
	p, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("preset %q not found", name)
	}
	return p.Args(), nil
}

// Recommended picks the best preset for the host machine.
func Recommended() string {
	return recommend(DetectSystem())
}

func recommend(sys SystemInfo) string {
	switch sys.Platform {
	case PlatformMacOS:
		if sys.HighEnd {
			return "macos-high-quality"
		}
		return "macos-balanced"
	case PlatformWindows:
		switch sys.GPU {
		case GPUNvidia:
			if sys.HighEnd {
				return "windows-nvidia-high-quality"
			}
			return "windows-nvidia-balanced"
		case GPUAMD:
			if sys.HighEnd {
				return "windows-amd-high-quality"
			}
			return "windows-amd-balanced"
		case GPUIntel:
			if sys.HighEnd {
				return "windows-intel-balanced"
			}
			return "windows-intel-fast"
		default:
			return "windows-nvidia-balanced"
		}
	default:
		if sys.HighEnd {
			return "linux-high-quality"
		}
		return "linux-balanced"
	}
}

var registry = map[string]Preset{
	"macos-balanced": {
		Name:        "macos-balanced",
		Description: "Balanced preset for macOS with Apple Silicon",
		Platform:    PlatformMacOS,
		Level:       LevelBalanced,
		Options: []Option{
			{"vo", "gpu-next"},
			{"profile", "gpu-hq"},
			{"gpu-context", "macvk"},
			{"hwdec", "videotoolbox"},
			{"hwdec-codecs", "all"},
			{"video-sync", "display-resample"},
			{"interpolation", "yes"},
			{"target-colorspace-hint", "yes"},
			{"icc-profile-auto", "yes"},
			{"scale", "spline36"},
			{"dscale", "mitchell"},
			{"cscale", "spline36"},
			{"ao", "coreaudio"},
			{"audio-channels", "auto-safe"},
		},
	},
	"macos-high-quality": {
		Name:        "macos-high-quality",
		Description: "High quality preset for macOS with Apple Silicon",
		Platform:    PlatformMacOS,
		Level:       LevelHighQuality,
		Options: []Option{
			{"vo", "gpu-next"},
			{"profile", "gpu-hq"},
			{"gpu-context", "macvk"},
			{"hwdec", "videotoolbox"},
			{"hwdec-codecs", "all"},
			{"video-sync", "display-resample"},
			{"interpolation", "yes"},
			{"target-colorspace-hint", "yes"},
			{"icc-profile-auto", "yes"},
			{"target-prim", "apple"},
			{"target-trc", "gamma2.2"},
			{"hdr-compute-peak", "auto"},
			{"scale", "ewa_lanczossharp"},
			{"dscale", "ewa_lanczos"},
			{"cscale", "ewa_lanczos"},
			{"gpu-dumb-mode", "no"},
			{"deband", "yes"},
			{"deband-iterations", "2"},
			{"deband-threshold", "35"},
			{"ao", "coreaudio"},
			{"audio-channels", "auto-safe"},
		},
	},
	"macos-fast": {
		Name:        "macos-fast",
		Description: "Fast preset for macOS with lower-end hardware",
		Platform:    PlatformMacOS,
		Level:       LevelFast,
		Options: []Option{
			{"vo", "gpu"},
			{"hwdec", "videotoolbox"},
			{"hwdec-codecs", "all"},
			{"video-sync", "audio"},
			{"interpolation", "no"},
			{"scale", "bilinear"},
			{"dscale", "bilinear"},
			{"cscale", "bilinear"},
			{"deband", "no"},
			{"ao", "coreaudio"},
			{"audio-channels", "stereo"},
		},
	},
	"windows-nvidia-balanced": {
		Name:        "windows-nvidia-balanced",
		Description: "Balanced preset for Windows with NVIDIA GPUs",
		Platform:    PlatformWindows,
		Level:       LevelBalanced,
		Options: []Option{
			{"profile", "gpu-hq"},
			{"gpu-api", "d3d11"},
			{"hwdec", "auto-copy"},
			{"hwdec-codecs", "all"},
			{"d3d11-adapter", "auto"},
			{"d3d11-exclusive-fs", "yes"},
			{"d3d11-flip", "yes"},
			{"video-sync", "display-resample"},
			{"interpolation", "yes"},
			{"scale", "spline36"},
			{"dscale", "mitchell"},
			{"cscale", "spline36"},
			{"audio-channels", "auto-safe"},
		},
	},
	"windows-nvidia-high-quality": {
		Name:        "windows-nvidia-high-quality",
		Description: "High quality preset for Windows with NVIDIA GPUs",
		Platform:    PlatformWindows,
		Level:       LevelHighQuality,
		Options: []Option{
			{"profile", "gpu-hq"},
			{"gpu-api", "d3d11"},
			{"hwdec", "auto-copy"},
			{"hwdec-codecs", "all"},
			{"d3d11-adapter", "auto"},
			{"d3d11-exclusive-fs", "yes"},
			{"d3d11-flip", "yes"},
			{"video-sync", "display-resample"},
			{"interpolation", "yes"},
			{"scale", "ewa_lanczossharp"},
			{"dscale", "ewa_lanczos"},
			{"cscale", "ewa_lanczossoft"},
			{"deband", "yes"},
			{"deband-iterations", "2"},
			{"deband-threshold", "35"},
			{"audio-channels", "auto-safe"},
		},
	},
	"windows-amd-balanced": {
		Name:        "windows-amd-balanced",
		Description: "Balanced preset for Windows with AMD GPUs",
		Platform:    PlatformWindows,
		Level:       LevelBalanced,
		Options: []Option{
			{"profile", "gpu-hq"},
			{"gpu-api", "d3d11"},
			{"hwdec", "auto-copy"},
			{"hwdec-codecs", "all"},
			{"d3d11-adapter", "auto"},
			{"d3d11-exclusive-fs", "yes"},
			{"video-sync", "display-resample"},
			{"interpolation", "yes"},
			{"scale", "spline36"},
			{"dscale", "mitchell"},
			{"cscale", "spline36"},
			{"audio-channels", "auto-safe"},
		},
	},
	"windows-amd-high-quality": {
		Name:        "windows-amd-high-quality",
		Description: "High quality preset for Windows with AMD GPUs",
		Platform:    PlatformWindows,
		Level:       LevelHighQuality,
		Options: []Option{
			{"profile", "gpu-hq"},
			{"gpu-api", "d3d11"},
			{"hwdec", "auto-copy"},
			{"hwdec-codecs", "all"},
			{"d3d11-adapter", "auto"},
			{"d3d11-exclusive-fs", "yes"},
			{"video-sync", "display-resample"},
			{"interpolation", "yes"},
			{"scale", "ewa_lanczossharp"},
			{"dscale", "ewa_lanczos"},
			{"cscale", "ewa_lanczossoft"},
			{"deband", "yes"},
			{"deband-iterations", "2"},
			{"deband-threshold", "35"},
			{"audio-channels", "auto-safe"},
		},
	},
	"windows-intel-balanced": {
		Name:        "windows-intel-balanced",
		Description: "Balanced preset for Windows with Intel GPUs",
		Platform:    PlatformWindows,
		Level:       LevelBalanced,
		Options: []Option{
			{"profile", "gpu-hq"},
			{"gpu-api", "d3d11"},
			{"hwdec", "auto-copy"},
			{"hwdec-codecs", "all"},
			{"d3d11-adapter", "auto"},
			{"video-sync", "display-resample"},
			{"interpolation", "no"},
			{"scale", "spline36"},
			{"dscale", "mitchell"},
			{"cscale", "spline36"},
			{"audio-channels", "auto-safe"},
		},
	},
	"windows-intel-fast": {
		Name:        "windows-intel-fast",
		Description: "Fast preset for Windows with Intel GPUs",
		Platform:    PlatformWindows,
		Level:       LevelFast,
		Options: []Option{
			{"gpu-api", "d3d11"},
			{"hwdec", "auto-copy"},
			{"hwdec-codecs", "all"},
			{"d3d11-adapter", "auto"},
			{"video-sync", "audio"},
			{"interpolation", "no"},
			{"scale", "bilinear"},
			{"dscale", "bilinear"},
			{"cscale", "bilinear"},
			{"deband", "no"},
			{"audio-channels", "stereo"},
		},
	},
	"linux-balanced": {
		Name:        "linux-balanced",
		Description: "Balanced preset for Linux",
		Platform:    PlatformLinux,
		Level:       LevelBalanced,
		Options: []Option{
			{"profile", "gpu-hq"},
			{"vo", "gpu"},
			{"hwdec", "auto-safe"},
			{"hwdec-codecs", "all"},
			{"video-sync", "display-resample"},
			{"interpolation", "yes"},
			{"scale", "spline36"},
			{"dscale", "mitchell"},
			{"cscale", "spline36"},
			{"audio-channels", "auto-safe"},
		},
	},
	"linux-high-quality": {
		Name:        "linux-high-quality",
		Description: "High quality preset for Linux",
		Platform:    PlatformLinux,
		Level:       LevelHighQuality,
		Options: []Option{
			{"profile", "gpu-hq"},
			{"vo", "gpu"},
			{"hwdec", "auto-safe"},
			{"hwdec-codecs", "all"},
			{"video-sync", "display-resample"},
			{"interpolation", "yes"},
			{"scale", "ewa_lanczossharp"},
			{"dscale", "ewa_lanczos"},
			{"cscale", "ewa_lanczossoft"},
			{"deband", "yes"},
			{"deband-iterations", "2"},
			{"deband-threshold", "35"},
			{"audio-channels", "auto-safe"},
		},
	},
	"linux-fast": {
		Name:        "linux-fast",
		Description: "Fast preset for Linux",
		Platform:    PlatformLinux,
		Level:       LevelFast,
		Options: []Option{
			{"vo", "gpu"},
			{"hwdec", "auto-safe"},
			{"hwdec-codecs", "all"},
			{"video-sync", "audio"},
			{"interpolation", "no"},
			{"scale", "bilinear"},
			{"dscale", "bilinear"},
			{"cscale", "bilinear"},
			{"deband", "no"},
			{"audio-channels", "stereo"},
		},
	},
}
