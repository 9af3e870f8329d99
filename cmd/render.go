package cmd

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/urfave/cli"

	"github.com/df07/lightpath/pkg/config"
	"github.com/df07/lightpath/pkg/renderer"
)

// RenderScene renders a built-in scene and saves the film. Arguments are an
// optional YAML configuration file followed by key=value property overrides.
func RenderScene(ctx *cli.Context) error {
	if err := setupLogging(ctx); err != nil {
		return err
	}

	props, err := renderProperties(ctx)
	if err != nil {
		return err
	}
	cfg, err := config.NewRenderConfig(props)
	if err != nil {
		return err
	}
	if cfg.Halt.Time == 0 && cfg.Halt.SPP == 0 && cfg.Halt.Threshold == 0 {
		logger.Warning("no halt condition set, rendering until interrupted")
	}

	engine, err := renderer.NewEngine(cfg)
	if err != nil {
		return err
	}

	runCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	stats, err := engine.Render(runCtx)
	if err != nil {
		return err
	}

	out := ctx.String("out")
	if err := engine.Film().Save(out); err != nil {
		return err
	}
	logger.Noticef("saved %s", out)
	displayRenderStats(stats)
	return nil
}

// renderProperties merges, by increasing priority, the configuration file,
// the command flags and the key=value arguments
func renderProperties(ctx *cli.Context) (*config.Properties, error) {
	args := []string(ctx.Args())
	props := config.NewProperties()
	if len(args) > 0 && !strings.Contains(args[0], "=") {
		var err error
		if props, err = config.LoadFile(args[0]); err != nil {
			return nil, err
		}
		args = args[1:]
	}

	if ctx.IsSet("scene") {
		props.Set("scene.name", ctx.String("scene"))
	}
	if ctx.IsSet("engine") {
		props.Set("renderengine.type", ctx.String("engine"))
	}
	if ctx.IsSet("spp") {
		props.Set("batch.haltspp", ctx.Float64("spp"))
	}
	if ctx.IsSet("time") {
		props.Set("batch.halttime", ctx.Duration("time").Seconds())
	}

	overrides, err := config.ParseOverrides(args)
	if err != nil {
		return nil, err
	}
	return props.Merge(overrides), nil
}

func displayRenderStats(stats renderer.RenderStats) {
	var buf bytes.Buffer
	writeRenderStats(&buf, stats)
	logger.Noticef("render statistics\n%s", buf.String())
}

func writeRenderStats(buf *bytes.Buffer, stats renderer.RenderStats) {
	table := tablewriter.NewWriter(buf)
	table.SetAutoFormatHeaders(false)
	table.SetAutoWrapText(false)
	table.SetHeader([]string{"Statistic", "Value"})
	convergence := "-"
	if stats.Convergence >= 0 {
		convergence = fmt.Sprintf("%02.1f %%", 100*stats.Convergence)
	}
	table.AppendBulk([][]string{
		{"Engine", stats.Engine.String()},
		{"Threads", fmt.Sprintf("%d", stats.Threads)},
		{"Samples", fmt.Sprintf("%d", stats.TotalSamples)},
		{"Samples/pixel", fmt.Sprintf("%.1f", stats.SamplesPerPixel)},
		{"Samples/sec", fmt.Sprintf("%.0f", stats.SamplesPerSecond)},
		{"Rays", fmt.Sprintf("%d", stats.Rays)},
		{"Rays/sec", fmt.Sprintf("%.0f", stats.RaysPerSecond)},
		{"Dropped paths", fmt.Sprintf("%d", stats.DroppedPaths)},
		{"Failed threads", fmt.Sprintf("%d", stats.FailedThreads)},
		{"Convergence", convergence},
	})
	table.SetFooter([]string{"Render time", stats.Elapsed.Round(time.Millisecond).String()})
	table.Render()
}
