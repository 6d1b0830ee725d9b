package pipeline

import (
	"strconv"
	"strings"
)

// srtCue is one subtitle entry's time window and text, used to distribute a
// whole-video transcript across the clips whose [start, end] overlap it.
type srtCue struct {
	Start float64
	End   float64
	Text  string
}

// parseSRT parses a minimal SRT document into cues. It is lenient: blocks it
// can't parse a timecode line for are skipped rather than aborting the
// whole transcript.
func parseSRT(srt string) []srtCue {
	var cues []srtCue
	blocks := strings.Split(strings.ReplaceAll(srt, "\r\n", "\n"), "\n\n")
	for _, block := range blocks {
		lines := strings.Split(strings.TrimSpace(block), "\n")
		if len(lines) < 2 {
			continue
		}
		// Skip the optional leading sequence-number line.
		timecodeLine := lines[0]
		textLines := lines[1:]
		if !strings.Contains(timecodeLine, "-->") {
			if len(lines) < 3 {
				continue
			}
			timecodeLine = lines[1]
			textLines = lines[2:]
		}
		start, end, ok := parseSRTTimecode(timecodeLine)
		if !ok {
			continue
		}
		cues = append(cues, srtCue{Start: start, End: end, Text: strings.Join(textLines, " ")})
	}
	return cues
}

func parseSRTTimecode(line string) (float64, float64, bool) {
	parts := strings.SplitN(line, "-->", 2)
	if len(parts) != 2 {
		return 0, 0, false
	}
	start, ok1 := parseSRTTimestamp(strings.TrimSpace(parts[0]))
	end, ok2 := parseSRTTimestamp(strings.TrimSpace(parts[1]))
	return start, end, ok1 && ok2
}

// parseSRTTimestamp parses "HH:MM:SS,mmm" into seconds.
func parseSRTTimestamp(ts string) (float64, bool) {
	ts = strings.SplitN(ts, " ", 2)[0]
	commaParts := strings.SplitN(ts, ",", 2)
	hms := commaParts[0]
	millis := 0
	if len(commaParts) == 2 {
		millis, _ = strconv.Atoi(commaParts[1])
	}
	segs := strings.Split(hms, ":")
	if len(segs) != 3 {
		return 0, false
	}
	h, err1 := strconv.Atoi(segs[0])
	m, err2 := strconv.Atoi(segs[1])
	s, err3 := strconv.Atoi(segs[2])
	if err1 != nil || err2 != nil || err3 != nil {
		return 0, false
	}
	return float64(h*3600+m*60+s) + float64(millis)/1000.0, true
}

// cuesOverlapping concatenates the text of every cue overlapping [start, end].
func cuesOverlapping(cues []srtCue, start, end float64) string {
	var b strings.Builder
	for _, c := range cues {
		if c.End < start || c.Start > end {
			continue
		}
		if b.Len() > 0 {
			b.WriteString(" ")
		}
		b.WriteString(c.Text)
	}
	return b.String()
}
