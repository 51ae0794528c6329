package export

import (
	"fmt"
	"html"
	"io"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"
)

var (
	sgrPattern = regexp.MustCompile(`\x1b\[([0-9;]*)m`)
	sgrPrefix  = regexp.MustCompile(`^\x1b\[([0-9;]*)m`)
)

// basicColors are the 16 standard terminal colors
var basicColors = [16]string{
	"#000000", "#800000", "#008000", "#808000", "#000080", "#800080", "#008080", "#c0c0c0",
	"#808080", "#ff0000", "#00ff00", "#ffff00", "#0000ff", "#ff00ff", "#00ffff", "#ffffff",
}

// ansi256 returns the hex color of an xterm 256-color index
func ansi256(n int) (string, bool) {
	switch {
	case n < 0 || n > 255:
		return "", false
	case n < 16:
		return basicColors[n], true
	case n < 232:
		n -= 16
		levels := [6]int{0, 0x5f, 0x87, 0xaf, 0xd7, 0xff}
		return fmt.Sprintf("#%02x%02x%02x", levels[n/36], levels[(n/6)%6], levels[n%6]), true
	default:
		g := 8 + (n-232)*10
		return fmt.Sprintf("#%02x%02x%02x", g, g, g), true
	}
}

// GenerateFilename generates a filename with timestamp
func GenerateFilename(prefix, extension, directory string) string {
	timestamp := time.Now().Format("20060102_150405")
	filename := fmt.Sprintf("%s_%s.%s", prefix, timestamp, extension)
	if directory != "" {
		return filepath.Join(directory, filename)
	}
	return filename
}

// StripANSI removes SGR escape sequences
func StripANSI(content string) string {
	return sgrPattern.ReplaceAllString(content, "")
}

// SaveAsText saves content as plain text, stripping ANSI codes
func SaveAsText(content string, filename string) error {
	if filename == "" {
		filename = GenerateFilename("theway_screen", "txt", "")
	}
	return writeFile(filename, func(w io.Writer) error {
		_, err := io.WriteString(w, StripANSI(content))
		return err
	})
}

// SaveAsHTML saves content as styled HTML with ANSI colors converted
func SaveAsHTML(content string, filename string) error {
	if filename == "" {
		filename = GenerateFilename("theway_screen", "html", "")
	}
	return writeFile(filename, func(w io.Writer) error {
		_, err := io.WriteString(w, ConvertANSIToHTML(content, time.Now()))
		return err
	})
}

// CaptureScreen saves the current view as HTML in directory
func CaptureScreen(content string, directory string) (string, error) {
	filename := GenerateFilename("theway_screen", "html", directory)
	if err := SaveAsHTML(content, filename); err != nil {
		return "", err
	}
	return filename, nil
}

// ConvertANSIToHTML converts ANSI terminal output to a standalone HTML page
func ConvertANSIToHTML(content string, captured time.Time) string {
	var sb strings.Builder

	sb.WriteString(`<!DOCTYPE html>
<html lang="ru">
<head>
    <meta charset="UTF-8">
    <title>theway map</title>
    <style>
        body {
            background-color: #0a0a0a;
            color: #c0c0c0;
            font-family: 'Cascadia Code', 'Fira Code', 'Consolas', 'Monaco', 'Liberation Mono', monospace;
            font-size: 14px;
            line-height: 1.2;
            padding: 20px;
            margin: 0;
        }
        pre { margin: 0; white-space: pre; overflow-x: auto; }
        .bold { font-weight: bold; }
        .dim { opacity: 0.7; }
        .italic { font-style: italic; }
        .underline { text-decoration: underline; }
        .reverse { filter: invert(1); }
        .timestamp { color: #666; font-size: 12px; margin-bottom: 10px; }
    </style>
</head>
<body>
    <div class="timestamp">Captured: `)
	sb.WriteString(captured.Format("2006-01-02 15:04:05"))
	sb.WriteString(`</div>
    <pre>`)
	sb.WriteString(parseANSI(content))
	sb.WriteString(`</pre>
</body>
</html>`)

	return sb.String()
}

// sgrState is the text style in effect
type sgrState struct {
	fg, bg                                string
	bold, dim, italic, underline, reverse bool
}

func (s sgrState) plain() bool {
	return s == sgrState{}
}

// parseANSI converts SGR sequences to HTML spans, one span per styled run
func parseANSI(content string) string {
	var out, run strings.Builder
	var cur sgrState

	flush := func() {
		if run.Len() == 0 {
			return
		}
		if cur.plain() {
			out.WriteString(run.String())
		} else {
			out.WriteString(buildSpan(run.String(), cur))
		}
		run.Reset()
	}

	for i := 0; i < len(content); {
		if content[i] == '\x1b' {
			if loc := sgrPrefix.FindStringSubmatchIndex(content[i:]); loc != nil {
				next := cur
				next.apply(strings.Split(content[i+loc[2]:i+loc[3]], ";"))
				if next != cur {
					flush()
					cur = next
				}
				i += loc[1]
				continue
			}
		}
		r, size := utf8.DecodeRuneInString(content[i:])
		run.WriteString(html.EscapeString(string(r)))
		i += size
	}
	flush()

	return out.String()
}

// apply updates the state from SGR parameters
func (s *sgrState) apply(codes []string) {
	for i := 0; i < len(codes); i++ {
		code, _ := strconv.Atoi(codes[i])
		if codes[i] == "" {
			code = 0
		}
		switch {
		case code == 0:
			*s = sgrState{}
		case code == 1:
			s.bold = true
		case code == 2:
			s.dim = true
		case code == 3:
			s.italic = true
		case code == 4:
			s.underline = true
		case code == 7:
			s.reverse = true
		case code == 22:
			s.bold, s.dim = false, false
		case code == 23:
			s.italic = false
		case code == 24:
			s.underline = false
		case code == 27:
			s.reverse = false
		case code >= 30 && code <= 37:
			s.fg = basicColors[code-30]
		case code >= 90 && code <= 97:
			s.fg = basicColors[code-90+8]
		case code == 39:
			s.fg = ""
		case code >= 40 && code <= 47:
			s.bg = basicColors[code-40]
		case code >= 100 && code <= 107:
			s.bg = basicColors[code-100+8]
		case code == 49:
			s.bg = ""
		case code == 38 || code == 48:
			color, skip := extendedColor(codes[i+1:])
			i += skip
			if color == "" {
				continue
			}
			if code == 38 {
				s.fg = color
			} else {
				s.bg = color
			}
		}
	}
}

// extendedColor parses the "5;n" or "2;r;g;b" tail of a 38/48 code
func extendedColor(rest []string) (string, int) {
	if len(rest) >= 2 && rest[0] == "5" {
		n, err := strconv.Atoi(rest[1])
		if err != nil {
			return "", 2
		}
		c, _ := ansi256(n)
		return c, 2
	}
	if len(rest) >= 4 && rest[0] == "2" {
		var rgb [3]int
		for j := range rgb {
			v, err := strconv.Atoi(rest[1+j])
			if err != nil || v < 0 || v > 255 {
				return "", 4
			}
			rgb[j] = v
		}
		return fmt.Sprintf("#%02x%02x%02x", rgb[0], rgb[1], rgb[2]), 4
	}
	return "", 0
}

// buildSpan wraps text in a span with the state's styles
func buildSpan(text string, s sgrState) string {
	var styles, classes []string

	if s.fg != "" {
		styles = append(styles, "color:"+s.fg)
	}
	if s.bg != "" {
		styles = append(styles, "background-color:"+s.bg)
	}
	for _, c := range []struct {
		on   bool
		name string
	}{
		{s.bold, "bold"},
		{s.dim, "dim"},
		{s.italic, "italic"},
		{s.underline, "underline"},
		{s.reverse, "reverse"},
	} {
		if c.on {
			classes = append(classes, c.name)
		}
	}

	var sb strings.Builder
	sb.WriteString("<span")
	if len(classes) > 0 {
		sb.WriteString(` class="`)
		sb.WriteString(strings.Join(classes, " "))
		sb.WriteString(`"`)
	}
	if len(styles) > 0 {
		sb.WriteString(` style="`)
		sb.WriteString(strings.Join(styles, ";"))
		sb.WriteString(`"`)
	}
	sb.WriteString(">")
	sb.WriteString(text)
	sb.WriteString("</span>")
	return sb.String()
}
