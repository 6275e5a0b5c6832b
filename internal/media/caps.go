package media

import (
	"fmt"
	"strconv"
	"strings"
)

// RawCaps renders a raw-video caps string. Zero width, height or framerate
// numerator leave the field out.
func RawCaps(format string, width, height, fpsNum, fpsDen int) string {
	var b strings.Builder
	b.WriteString("video/x-raw, format=")
	b.WriteString(format)
	if width > 0 && height > 0 {
		fmt.Fprintf(&b, ", width=%d, height=%d", width, height)
	}
	if fpsNum > 0 && fpsDen > 0 {
		fmt.Fprintf(&b, ", framerate=%d/%d", fpsNum, fpsDen)
	}
	return b.String()
}

// ParseCaps reads width, height, framerate and format from the first
// structure of a serialized caps string such as
//
//	video/x-raw, format=(string)BGRx, width=(int)640, height=(int)480, framerate=(fraction)30/1
//
// Fields that are missing or not fixed (ranges, lists) are left zero.
func ParseCaps(s string) Caps {
	var c Caps
	if i := strings.IndexByte(s, ';'); i >= 0 {
		s = s[:i]
	}
	fields := strings.Split(s, ",")
	for _, f := range fields[min(1, len(fields)):] {
		key, val, ok := strings.Cut(strings.TrimSpace(f), "=")
		if !ok {
			continue
		}
		val = stripTypeTag(strings.TrimSpace(val))
		switch strings.TrimSpace(key) {
		case "width":
			c.Width, _ = strconv.Atoi(val)
		case "height":
			c.Height, _ = strconv.Atoi(val)
		case "format":
			c.Format = strings.Trim(val, `"`)
		case "framerate":
			num, den, ok := strings.Cut(val, "/")
			if !ok {
				continue
			}
			n, err1 := strconv.Atoi(num)
			d, err2 := strconv.Atoi(den)
			if err1 == nil && err2 == nil && d > 0 {
				c.FramerateNum, c.FramerateDen = n, d
			}
		}
	}
	return c
}

// stripTypeTag removes a leading "(type)" annotation.
func stripTypeTag(v string) string {
	if strings.HasPrefix(v, "(") {
		if i := strings.IndexByte(v, ')'); i >= 0 {
			return strings.TrimSpace(v[i+1:])
		}
	}
	return v
}
