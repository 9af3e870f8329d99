package main

import (
	"fmt"
	"os"

	"github.com/df07/lightpath/cmd"
	"github.com/urfave/cli"
)

func newApp() *cli.App {
	cli.VersionFlag = cli.BoolFlag{
		Name:  "version",
		Usage: "print only the version",
	}

	app := cli.NewApp()
	app.Name = "lightpath"
	app.Usage = "render scenes with path tracing, light tracing and bidirectional light transport"
	app.Version = "0.1.0"
	app.Flags = []cli.Flag{
		cli.BoolFlag{
			Name:  "v",
			Usage: "enable verbose logging",
		},
		cli.BoolFlag{
			Name:  "vv",
			Usage: "enable even more verbose logging",
		},
		cli.StringSliceFlag{
			Name:  "log-module",
			Usage: "set the level of one logger, e.g. integrator=debug (repeatable)",
		},
	}
	app.Commands = []cli.Command{
		{
			Name:  "render",
			Usage: "render a built-in scene",
			Description: `
Render a built-in scene until a halt condition is met or the process is
interrupted, then save the film.

The optional first argument is a YAML configuration file. Every following
argument is a key=value property override, for example:

   lightpath render -o cornell.png renderengine.type=BIDIRVMCPU batch.haltspp=64`,
			ArgsUsage: "[config.yaml] [key=value ...]",
			Flags: []cli.Flag{
				cli.StringFlag{
					Name:  "out, o",
					Value: "render.png",
					Usage: "image filename, .png or .tif",
				},
				cli.StringFlag{
					Name:  "scene, s",
					Usage: "built-in scene name (scene.name)",
				},
				cli.StringFlag{
					Name:  "engine, e",
					Usage: "PATHCPU, LIGHTCPU, BIDIRCPU or BIDIRVMCPU (renderengine.type)",
				},
				cli.Float64Flag{
					Name:  "spp",
					Usage: "halt after this many samples per pixel (batch.haltspp)",
				},
				cli.DurationFlag{
					Name:  "time",
					Usage: "halt after this render time (batch.halttime)",
				},
			},
			Action: cmd.RenderScene,
		},
		{
			Name:   "info",
			Usage:  "list the built-in scenes and render engines",
			Action: cmd.ListScenes,
		},
	}
	return app
}

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
