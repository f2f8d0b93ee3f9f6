package presets

import (
	"os/exec"
	"runtime"
	"strings"
)

// GPUVendor names a detected GPU vendor.
type GPUVendor string

const (
	GPUNvidia  GPUVendor = "nvidia"
	GPUAMD     GPUVendor = "amd"
	GPUIntel   GPUVendor = "intel"
	GPUApple   GPUVendor = "apple"
	GPUUnknown GPUVendor = "unknown"
)

// SystemInfo summarizes the host for preset recommendation.
type SystemInfo struct {
	Platform Platform
	GPU      GPUVendor
	HighEnd  bool
}

// DetectSystem probes the host platform and GPU. Probes shell out to
// platform tools and fall back to unknown on any failure.
func DetectSystem() SystemInfo {
	platform := detectPlatform()
	probe := probeGPU(platform)
	return SystemInfo{
		Platform: platform,
		GPU:      classifyVendor(platform, probe),
		HighEnd:  classifyHighEnd(platform, probe),
	}
}

func detectPlatform() Platform {
	switch runtime.GOOS {
	case "darwin":
		return PlatformMacOS
	case "windows":
		return PlatformWindows
	default:
		return PlatformLinux
	}
}

// probeGPU returns the raw, lowercased output of the platform's GPU or
// CPU inventory tool.
func probeGPU(platform Platform) string {
	var cmd *exec.Cmd
	switch platform {
	case PlatformMacOS:
		cmd = exec.Command("sysctl", "-n", "machdep.cpu.brand_string")
	case PlatformWindows:
		cmd = exec.Command("wmic", "path", "win32_VideoController", "get", "name")
	default:
		cmd = exec.Command("lspci", "-v")
	}
	out, err := cmd.Output()
	if err != nil {
		return ""
	}
	return strings.ToLower(string(out))
}

func classifyVendor(platform Platform, probe string) GPUVendor {
	switch platform {
	case PlatformMacOS:
		if strings.Contains(probe, "apple") {
			return GPUApple
		}
		return GPUIntel
	default:
		switch {
		case strings.Contains(probe, "nvidia"):
			return GPUNvidia
		case strings.Contains(probe, "amd"),
			strings.Contains(probe, "radeon"),
			strings.Contains(probe, "ati"):
			return GPUAMD
		case strings.Contains(probe, "intel"):
			return GPUIntel
		}
		return GPUUnknown
	}
}

func classifyHighEnd(platform Platform, probe string) bool {
	if platform == PlatformMacOS {
		for _, marker := range []string{"m1 pro", "m1 max", "m1 ultra", "m2", "m3"} {
			if strings.Contains(probe, marker) {
				return true
			}
		}
		return false
	}
	for _, marker := range []string{"rtx", "gtx 1080", "gtx 1070", "rx 6", "rx 5", "vega"} {
		if strings.Contains(probe, marker) {
			return true
		}
	}
	return false
}
