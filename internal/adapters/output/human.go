package output

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/playadev/playa/internal/core"
	"github.com/playadev/playa/pkg/playa"
)

// HumanPrinter prints human-readable output.
type HumanPrinter struct{}

// Print renders human output.
func (HumanPrinter) Print(v any) error {
	switch data := v.(type) {
	case core.NodesResult:
		return printNodes(data)
	case core.PlayResult:
		return printPlay(data)
	case core.InstancesResult:
		return printInstances(data)
	case core.StatusResult:
		return printStatus(data)
	case core.ProgressResult:
		return printProgress(data)
	case core.InfoResult:
		return printInfo(data)
	case core.PresetsResult:
		return printPresets(data)
	case core.PresetResult:
		return printPreset(data)
	case core.RecommendedResult:
		_, err := fmt.Fprintln(os.Stdout, data.Preset)
		return err
	default:
		_, err := fmt.Fprintln(os.Stdout, "ok")
		return err
	}
}

func printNodes(result core.NodesResult) error {
	tw := tabwriter.NewWriter(os.Stdout, 0, 8, 2, ' ', 0)
	if _, err := fmt.Fprintln(tw, "NAME\tKIND\tNODE_ID"); err != nil {
		return err
	}
	for _, node := range result.Nodes {
		_, err := fmt.Fprintf(tw, "%s\t%s\t%s\n", node.Name, node.Kind, node.NodeID)
		if err != nil {
			return err
		}
	}
	return tw.Flush()
}

func printPlay(result core.PlayResult) error {
	_, err := fmt.Fprintf(os.Stdout, "%s\n", result.ID)
	return err
}

func printInstances(result core.InstancesResult) error {
	tw := tabwriter.NewWriter(os.Stdout, 0, 8, 2, ' ', 0)
	if _, err := fmt.Fprintln(tw, "ID\tSOURCE\tMONITORED"); err != nil {
		return err
	}
	for _, inst := range result.Instances {
		_, err := fmt.Fprintf(tw, "%s\t%s\t%t\n", inst.ID, inst.Source, inst.Monitored)
		if err != nil {
			return err
		}
	}
	return tw.Flush()
}

func printStatus(result core.StatusResult) error {
	if len(result.State.Instances) == 0 {
		_, err := fmt.Fprintf(os.Stdout, "%s: idle\n", result.Node)
		return err
	}
	return printInstances(core.InstancesResult{Node: result.Node, Instances: result.State.Instances})
}

func printProgress(result core.ProgressResult) error {
	p := result.Progress
	status := "playing"
	if p.Paused {
		status = "paused"
	}
	_, err := fmt.Fprintf(os.Stdout, "[%s]  %s / %s (%d%%)\n",
		status, formatSeconds(p.Position), formatSeconds(p.Duration), int(p.Percent+0.5))
	return err
}

func printInfo(result core.InfoResult) error {
	info := result.Info
	status := "playing"
	if info.Paused {
		status = "paused"
	}
	volume := fmt.Sprintf("vol %d%%", int(info.Volume+0.5))
	if info.Muted {
		volume = "muted"
	}
	_, err := fmt.Fprintf(os.Stdout, "%s  [%s]  %s / %s (%d%%)  %s  %.2fx\n",
		info.Path, status, formatSeconds(info.Position), formatSeconds(info.Duration),
		int(info.Percent+0.5), volume, info.Speed)
	return err
}

func printPresets(result core.PresetsResult) error {
	for _, name := range result.Presets {
		if _, err := fmt.Fprintln(os.Stdout, name); err != nil {
			return err
		}
	}
	return nil
}

func printPreset(result core.PresetResult) error {
	p := result.Preset
	if _, err := fmt.Fprintf(os.Stdout, "%s (%s/%s)\n%s\n", p.Name, p.Platform, p.Level, p.Description); err != nil {
		return err
	}
	for _, arg := range p.Args {
		if _, err := fmt.Fprintf(os.Stdout, "  %s\n", arg); err != nil {
			return err
		}
	}
	return nil
}

// FormatEvent renders one playback event for watch output.
func FormatEvent(ev playa.Event) string {
	switch ev.Kind {
	case playa.EventProgress:
		return fmt.Sprintf("%s progress %s / %s (%d%%)",
			ev.ID, formatSeconds(ev.Position), formatSeconds(ev.Duration), int(ev.Percent+0.5))
	case playa.EventError:
		return fmt.Sprintf("%s error %s", ev.ID, ev.Message)
	default:
		return fmt.Sprintf("%s %s", ev.ID, ev.Kind)
	}
}

func formatSeconds(seconds float64) string {
	if seconds <= 0 {
		return "0:00"
	}
	total := int(seconds)
	if total >= 3600 {
		return fmt.Sprintf("%d:%02d:%02d", total/3600, (total%3600)/60, total%60)
	}
	return fmt.Sprintf("%d:%02d", total/60, total%60)
}
