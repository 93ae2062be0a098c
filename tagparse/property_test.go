package tagparse

import (
	"fmt"
	"strconv"
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/perfgo/perfsweep/model"
)

func TestParser_Properties(t *testing.T) {
	p := mustBuiltins(t, "sort", "thread-time")

	properties := gopter.NewProperties(gopter.DefaultTestParameters())

	properties.Property("tagged timing lines round trip", prop.ForAll(
		func(size int64, threads int, ms float64) bool {
			line := fmt.Sprintf("DATAPOINT: %d %d 1 1 %s", size, threads, strconv.FormatFloat(ms, 'g', -1, 64))
			result := p.Parse(model.RunOutcome{Stdout: line})
			if len(result.Points) != 1 || len(result.Skipped) != 0 {
				return false
			}
			tp := result.Points[0].(model.TimingPoint)
			return tp.Size == size && tp.Parallelism == threads && tp.MeasuredTimeMs == ms
		},
		gen.Int64Range(0, 1<<40),
		gen.IntRange(1, 1024),
		gen.Float64Range(0, 1e9),
	))

	properties.Property("untagged lines never yield points or skips", prop.ForAll(
		func(lines []string) bool {
			var kept []string
			for _, l := range lines {
				if strings.HasPrefix(l, "DATAPOINT:") || strings.HasPrefix(l, "THREAD_TIME_MS:") {
					continue
				}
				kept = append(kept, l)
			}
			result := p.Parse(model.RunOutcome{Stdout: strings.Join(kept, "\n")})
			return len(result.Points) == 0 && len(result.Skipped) == 0
		},
		gen.SliceOf(gen.AnyString()),
	))

	properties.Property("mixed output yields exactly the tagged points", prop.ForAll(
		func(noise []string, times []float64) bool {
			var b strings.Builder
			for i, ms := range times {
				if i < len(noise) && !strings.Contains(noise[i], "\n") && !strings.HasPrefix(noise[i], "DATAPOINT:") && !strings.HasPrefix(noise[i], "THREAD_TIME_MS:") {
					b.WriteString(noise[i])
					b.WriteString("\n")
				}
				fmt.Fprintf(&b, "THREAD_TIME_MS: %d %s\n", i, strconv.FormatFloat(ms, 'g', -1, 64))
			}
			result := p.Parse(model.RunOutcome{Stdout: b.String()})
			if len(result.Points) != len(times) {
				return false
			}
			for i, pt := range result.Points {
				wp := pt.(model.PerWorkerPoint)
				if wp.WorkerID != i || wp.MetricValue != times[i] {
					return false
				}
			}
			return true
		},
		gen.SliceOf(gen.AlphaString()),
		gen.SliceOf(gen.Float64Range(0, 1e6)),
	))

	properties.TestingRun(t)
}
