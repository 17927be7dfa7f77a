package spreadsheet

import (
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"
)

// render lays every table out as right-aligned columns under its header, with
// a zero-based row index in the first column. Workbooks with more than one
// sheet get a "## name" heading per sheet.
func render(tables []table, maxChars int) (text string, rows int, truncated bool) {
	var b strings.Builder
	for i, t := range tables {
		if len(tables) > 1 {
			if i > 0 {
				b.WriteString("\n")
			}
			fmt.Fprintf(&b, "## %s\n", t.Name)
		}
		rows += renderTable(&b, t.Rows)
	}

	text = strings.TrimRight(b.String(), "\n")
	if utf8.RuneCountInString(text) > maxChars {
		text = truncate(text, maxChars)
		truncated = true
	}
	return text, rows, truncated
}

func renderTable(b *strings.Builder, raw [][]string) int {
	if len(raw) == 0 {
		b.WriteString("Empty DataFrame\n")
		return 0
	}

	header := append([]string(nil), raw[0]...)
	data := raw[1:]

	width := len(header)
	for _, r := range data {
		width = max(width, len(r))
	}
	for c := len(header); c < width; c++ {
		header = append(header, "")
	}
	for c, h := range header {
		if strings.TrimSpace(h) == "" {
			header[c] = "Unnamed: " + strconv.Itoa(c)
		}
	}

	indexWidth := len(strconv.Itoa(max(len(data)-1, 0)))
	colWidths := make([]int, width)
	for c, h := range header {
		colWidths[c] = utf8.RuneCountInString(h)
	}
	for _, r := range data {
		for c, v := range r {
			colWidths[c] = max(colWidths[c], utf8.RuneCountInString(v))
		}
	}

	b.WriteString(strings.Repeat(" ", indexWidth))
	for c, h := range header {
		fmt.Fprintf(b, "  %*s", colWidths[c], h)
	}
	b.WriteString("\n")

	for i, r := range data {
		fmt.Fprintf(b, "%*d", indexWidth, i)
		for c := 0; c < width; c++ {
			v := ""
			if c < len(r) {
				v = r[c]
			}
			fmt.Fprintf(b, "  %*s", colWidths[c], v)
		}
		b.WriteString("\n")
	}
	return len(data)
}

// truncate cuts text to at most maxChars runes, backing up to the last full
// line and appending truncationMarker.
func truncate(text string, maxChars int) string {
	budget := maxChars - utf8.RuneCountInString(truncationMarker) - 1
	if budget <= 0 {
		return truncationMarker
	}
	cut := 0
	for i := range text {
		if budget == 0 {
			cut = i
			break
		}
		budget--
		cut = len(text)
	}
	head := text[:cut]
	if nl := strings.LastIndexByte(head, '\n'); nl > 0 {
		head = head[:nl]
	}
	return head + "\n" + truncationMarker
}
