package cmd

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/df07/lightpath/pkg/config"
	"github.com/df07/lightpath/pkg/renderer"
)

func TestWriteRenderStats(t *testing.T) {
	var buf bytes.Buffer
	writeRenderStats(&buf, renderer.RenderStats{
		Engine:          config.BiDirVMCPU,
		Threads:         4,
		TotalSamples:    1024,
		SamplesPerPixel: 4,
		Elapsed:         1500 * time.Millisecond,
		Convergence:     0.25,
	})
	out := buf.String()
	for _, want := range []string{"BIDIRVMCPU", "1024", "4.0", "25.0 %", "1.5s"} {
		if !strings.Contains(out, want) {
			t.Errorf("statistics table misses %q:\n%s", want, out)
		}
	}
}

func TestWriteRenderStatsWithoutConvergence(t *testing.T) {
	var buf bytes.Buffer
	writeRenderStats(&buf, renderer.RenderStats{Convergence: -1})
	if strings.Contains(buf.String(), "%") {
		t.Errorf("convergence shown without a test:\n%s", buf.String())
	}
}
