package cmd

import (
	"fmt"
	"strings"

	"github.com/df07/lightpath/pkg/log"
	"github.com/urfave/cli"
)

var logger = log.New("lightpath")

// setupLogging applies -v, -vv and the module=level pairs of --log-module
func setupLogging(ctx *cli.Context) error {
	if ctx.GlobalBool("v") {
		log.SetLevel(log.Info)
	}

	if ctx.GlobalBool("vv") {
		log.SetLevel(log.Debug)
	}

	for _, pair := range ctx.GlobalStringSlice("log-module") {
		module, name, ok := strings.Cut(pair, "=")
		if !ok || module == "" {
			return fmt.Errorf("log-module %q: expected module=level", pair)
		}
		level, err := log.ParseLevel(name)
		if err != nil {
			return fmt.Errorf("log-module %q: %w", pair, err)
		}
		log.SetModuleLevel(module, level)
	}
	return nil
}
