package headless

import (
	"fmt"
	"io"
	"maps"
	"slices"
	"time"

	"github.com/e7canasta/videobridge"
)

// PrintStats writes a stats report box.
func PrintStats(w io.Writer, st videobridge.Stats) {
	fmt.Fprintf(w, "\n")
	fmt.Fprintf(w, "╭─────────────────────────────────────────────────────────╮\n")
	fmt.Fprintf(w, "│ %s %s (Uptime: %s)\n", st.Kind, st.SourceID, st.Uptime.Round(time.Second))
	fmt.Fprintf(w, "├─────────────────────────────────────────────────────────┤\n")
	fmt.Fprintf(w, "│ State:              %6s\n", st.State)
	fmt.Fprintf(w, "│ Consumer:           %6s\n", st.Consumer)
	fmt.Fprintf(w, "│ Resolution:         %s\n", st.Resolution)
	fmt.Fprintf(w, "│ Frames Produced:    %6d frames\n", st.FramesProduced)
	fmt.Fprintf(w, "│ Frames Read:        %6d frames\n", st.FramesRead)
	if st.FramesDropped > 0 || st.FramesOverwritten > 0 {
		fmt.Fprintf(w, "│ Dropped:            %6d frames (%.1f%%)\n", st.FramesDropped, st.DropRate)
		fmt.Fprintf(w, "│ Overwritten:        %6d frames\n", st.FramesOverwritten)
	}
	fmt.Fprintf(w, "│ Source FPS:         %6.2f fps\n", st.FPSSource)
	fmt.Fprintf(w, "│ Target FPS:         %6.2f fps\n", st.FPSTarget)
	fmt.Fprintf(w, "│ Read FPS:           %6.2f fps (stable: %v)\n", st.FPSRead, st.ReadStable)
	fmt.Fprintf(w, "│ Rate:               %6.2f (applied %.2f)\n", st.Rate, st.AppliedRate)
	if st.FramesMalformed > 0 {
		fmt.Fprintf(w, "│ Malformed:          %6d frames\n", st.FramesMalformed)
	}
	if st.SeekFailures > 0 {
		fmt.Fprintf(w, "│ Seek Failures:      %6d\n", st.SeekFailures)
	}
	if len(st.PipelineErrors) > 0 {
		fmt.Fprintf(w, "├─────────────────────────────────────────────────────────┤\n")
		fmt.Fprintf(w, "│ Pipeline Errors\n")
		fmt.Fprintf(w, "├─────────────────────────────────────────────────────────┤\n")
		for _, cat := range slices.Sorted(maps.Keys(st.PipelineErrors)) {
			fmt.Fprintf(w, "│ %-19s %6d\n", cat+":", st.PipelineErrors[cat])
		}
	}
	fmt.Fprintf(w, "╰─────────────────────────────────────────────────────────╯\n")
}
