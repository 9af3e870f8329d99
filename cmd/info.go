package cmd

import (
	"bytes"

	"github.com/olekukonko/tablewriter"
	"github.com/urfave/cli"

	"github.com/df07/lightpath/pkg/config"
	"github.com/df07/lightpath/pkg/scene"
)

// ListScenes prints the built-in scenes and the render engines
func ListScenes(ctx *cli.Context) error {
	if err := setupLogging(ctx); err != nil {
		return err
	}

	var buf bytes.Buffer
	table := tablewriter.NewWriter(&buf)
	table.SetAutoFormatHeaders(false)
	table.SetAutoWrapText(false)
	table.SetHeader([]string{"Scene", "Name", "Description"})
	for _, info := range scene.ListBuiltins() {
		table.Append([]string{info.ID, info.DisplayName, info.Description})
	}
	table.Render()

	engines := tablewriter.NewWriter(&buf)
	engines.SetAutoFormatHeaders(false)
	engines.SetHeader([]string{"Engine"})
	for _, e := range []config.EngineType{config.PathCPU, config.LightCPU, config.BiDirCPU, config.BiDirVMCPU} {
		engines.Append([]string{e.String()})
	}
	engines.Render()

	_, err := ctx.App.Writer.Write(buf.Bytes())
	return err
}
