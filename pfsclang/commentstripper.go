package pfsclang

// StripComments removes `#`-to-end-of-line comments from text, except where
// `#` occurs inside a single- or triple-quoted string literal (single or
// double quote style). It preserves every newline so that line numbers in
// the stripped text still correspond 1:1 to line numbers in the input; a
// stripped comment's own newline is kept, only the comment's characters
// are dropped.
//
// This is a small state machine rather than a regexp because string-aware
// comment stripping cannot be expressed as a single regular expression once
// triple-quoted strings and escaped quotes are both in play.
func StripComments(text string) string {
	const (
		stateNormal = iota
		stateLineComment
		stateSingleQuote1
		stateDoubleQuote1
		stateSingleQuote3
		stateDoubleQuote3
	)

	out := make([]byte, 0, len(text))
	state := stateNormal
	i := 0
	n := len(text)

	for i < n {
		c := text[i]
		switch state {
		case stateNormal:
			switch {
			case c == '#':
				state = stateLineComment
				i++
			case c == '\'' && startsTriple(text, i, '\''):
				out = append(out, text[i:i+3]...)
				state = stateSingleQuote3
				i += 3
			case c == '"' && startsTriple(text, i, '"'):
				out = append(out, text[i:i+3]...)
				state = stateDoubleQuote3
				i += 3
			case c == '\'':
				out = append(out, c)
				state = stateSingleQuote1
				i++
			case c == '"':
				out = append(out, c)
				state = stateDoubleQuote1
				i++
			default:
				out = append(out, c)
				i++
			}

		case stateLineComment:
			if c == '\n' {
				out = append(out, c)
				state = stateNormal
			}
			i++

		case stateSingleQuote1:
			out = append(out, c)
			if c == '\\' && i+1 < n {
				out = append(out, text[i+1])
				i += 2
				continue
			}
			if c == '\'' {
				state = stateNormal
			}
			i++

		case stateDoubleQuote1:
			out = append(out, c)
			if c == '\\' && i+1 < n {
				out = append(out, text[i+1])
				i += 2
				continue
			}
			if c == '"' {
				state = stateNormal
			}
			i++

		case stateSingleQuote3:
			if startsTriple(text, i, '\'') {
				out = append(out, text[i:i+3]...)
				state = stateNormal
				i += 3
				continue
			}
			out = append(out, c)
			i++

		case stateDoubleQuote3:
			if startsTriple(text, i, '"') {
				out = append(out, text[i:i+3]...)
				state = stateNormal
				i += 3
				continue
			}
			out = append(out, c)
			i++
		}
	}

	return string(out)
}

func startsTriple(text string, i int, q byte) bool {
	return i+3 <= len(text) && text[i] == q && text[i+1] == q && text[i+2] == q
}
