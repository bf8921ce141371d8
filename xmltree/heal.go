package xmltree

import "strings"

// Heal closes a truncated document. A dangling partial tag or entity at the
// end is cut, then every element still open is closed in reverse order.
// It returns the healed text and the number of closing tags appended.
func Heal(text string) (string, int) {
	text = strings.TrimRight(text, " \t\r\n")
	text = cutPartialTail(text)

	var stack []string
	i := 0
	for i < len(text) {
		lt := strings.IndexByte(text[i:], '<')
		if lt < 0 {
			break
		}
		i += lt
		rest := text[i:]

		var skipTo string
		switch {
		case strings.HasPrefix(rest, "<?"):
			skipTo = "?>"
		case strings.HasPrefix(rest, "<!--"):
			skipTo = "-->"
		case strings.HasPrefix(rest, "<![CDATA["):
			skipTo = "]]>"
		case strings.HasPrefix(rest, "<!"):
			skipTo = ">"
		}
		if skipTo != "" {
			end := strings.Index(rest, skipTo)
			if end < 0 {
				// Truncated inside a comment, CDATA or declaration.
				text = strings.TrimRight(text[:i], " \t\r\n")
				break
			}
			i += end + len(skipTo)
			continue
		}

		gt := strings.IndexByte(rest, '>')
		if gt < 0 {
			text = text[:i]
			break
		}
		body := rest[1:gt]
		i += gt + 1

		switch {
		case strings.HasSuffix(body, "/"):
		case strings.HasPrefix(body, "/"):
			name := tagName(body[1:])
			for j := len(stack) - 1; j >= 0; j-- {
				if strings.EqualFold(stack[j], name) {
					stack = stack[:j]
					break
				}
			}
		default:
			if name := tagName(body); name != "" {
				stack = append(stack, name)
			}
		}
	}

	if len(stack) == 0 {
		return text, 0
	}
	var b strings.Builder
	b.WriteString(text)
	for j := len(stack) - 1; j >= 0; j-- {
		b.WriteString("</")
		b.WriteString(stack[j])
		b.WriteString(">")
	}
	return b.String(), len(stack)
}

func cutPartialTail(text string) string {
	lastLT := strings.LastIndexByte(text, '<')
	if lastLT >= 0 && strings.IndexByte(text[lastLT:], '>') < 0 {
		text = text[:lastLT]
	}
	lastAmp := strings.LastIndexByte(text, '&')
	if lastAmp >= 0 && lastAmp > strings.LastIndexByte(text, '>') && strings.IndexByte(text[lastAmp:], ';') < 0 {
		text = text[:lastAmp]
	}
	return strings.TrimRight(text, " \t\r\n")
}

func tagName(body string) string {
	body = strings.TrimSpace(body)
	if k := strings.IndexAny(body, " \t\r\n"); k >= 0 {
		body = body[:k]
	}
	return body
}
