package monitor

import (
	"image/color"
	"strings"
	"unicode/utf8"

	"sparkrt/hal"

	"tinygo.org/x/tinyfont"
	"tinygo.org/x/tinyfont/proggy"
)

// DrawText clears fb to bg and writes lines top to bottom in fg, wrapping
// long lines at the screen width. Text past the bottom edge is dropped. The
// frame is presented.
func DrawText(fb hal.Framebuffer, lines []string, fg, bg color.RGBA) error {
	if fb == nil {
		return nil
	}
	d := &fbDisplay{fb: fb}
	if _, ok := d.usable(); !ok {
		return fb.Present()
	}

	w, h := d.Size()
	d.FillRectangle(0, 0, w, h, bg)

	font := &proggy.TinySZ8pt7b
	_, outbox := tinyfont.LineWidth(font, "0")
	cols := 1
	if outbox > 0 && int(w-2) > int(outbox) {
		cols = int(w-2) / int(outbox)
	}

	y := int16(0)
	for _, line := range lines {
		for {
			if y+lineHeight > h {
				return d.Display()
			}
			chunk, rest := takeRunes(line, cols)
			tinyfont.WriteLine(d, font, 2, y+baseline, chunk, fg)
			y += lineHeight
			line = strings.TrimLeft(rest, " ")
			if line == "" {
				break
			}
		}
	}
	return d.Display()
}

func takeRunes(s string, n int) (prefix, rest string) {
	if n <= 0 || s == "" {
		return "", s
	}
	if len(s) <= n {
		return s, ""
	}
	i, count := 0, 0
	for i < len(s) && count < n {
		_, size := utf8.DecodeRuneInString(s[i:])
		i += size
		count++
	}
	return s[:i], s[i:]
}
