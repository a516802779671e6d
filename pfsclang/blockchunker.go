// Package pfsclang implements the two-pass lexical front end described in
// the build pipeline's component design: a block chunker that isolates
// annotation bodies before the structural grammar ever sees them, and a
// comment stripper that removes comments while preserving line counts.
package pfsclang

import (
	"fmt"
	"regexp"
)

// openRegexp finds the opening `anno NAME ... @@@TAG` of one annotation
// block. The body and its matching close delimiter are located by hand
// below, since Go's RE2 engine (unlike the original's backtracking engine)
// cannot backreference the tag captured here.
var openRegexp = regexp.MustCompile(`anno\s+([a-zA-Z_]\w*)[^@]*?@@@(\w{0,8})[ \t]*\n`)

// lineMapEntry records that, at modifiedLine in the chunked text, linesCut
// lines of original text were removed at that point.
type lineMapEntry struct {
	modifiedLine int
	linesCut     int
}

// BlockChunker isolates annotation block bodies from a module's source
// text so the structural grammar only ever sees a stub declaration for
// each annotation. It also records the full original body of each
// annotation, keyed by name, and a line-number map so that any line number
// reported against the chunked text can be translated back to the
// original source (needed for faithful parse-error messages).
type BlockChunker struct {
	modifiedText string
	annoLookup   map[string]string
	lineMap      []lineMapEntry
}

// NewBlockChunker runs the chunking pass over text and returns the result.
func NewBlockChunker(text string) (*BlockChunker, error) {
	bc := &BlockChunker{annoLookup: make(map[string]string)}
	if err := bc.chunk(text); err != nil {
		return nil, err
	}
	return bc, nil
}

// ModifiedText returns the structural text with annotation bodies stubbed
// out; this is what the grammar parser consumes.
func (bc *BlockChunker) ModifiedText() string { return bc.modifiedText }

// AnnotationBody returns the original (un-stubbed) body text recorded for
// the annotation named name, and whether one was recorded.
func (bc *BlockChunker) AnnotationBody(name string) (string, bool) {
	body, ok := bc.annoLookup[name]
	return body, ok
}

func countNewlines(s string) int {
	n := 0
	for i := 0; i < len(s); i++ {
		if s[i] == '\n' {
			n++
		}
	}
	return n
}

// chunk walks every block open-delimiter left to right, locates its
// matching close delimiter by hand, appends the preamble (up to, but not
// including, the opening `@@@TAG` delimiter) followed by a newline, drops
// the delimiters and the body, and records the line-number delta this
// introduces.
func (bc *BlockChunker) chunk(text string) error {
	var out []byte
	cursor := 0
	curModifiedLine := 1

	for {
		loc := openRegexp.FindStringSubmatchIndex(text[cursor:])
		if loc == nil {
			break
		}
		// Translate submatch indices, relative to text[cursor:], into
		// absolute offsets into text.
		for i := range loc {
			if loc[i] >= 0 {
				loc[i] += cursor
			}
		}
		openEnd := loc[1]
		nameStart, nameEnd := loc[2], loc[3]
		tagStart, tagEnd := loc[4], loc[5]
		name := text[nameStart:nameEnd]
		tag := text[tagStart:tagEnd]
		delimStart := tagStart - 3 // the "@@@" immediately preceding the tag

		closeDelim := "@@@" + tag
		closeIdx := indexOfCloseDelim(text[openEnd:], closeDelim)
		if closeIdx < 0 {
			return fmt.Errorf("pfsclang: unterminated annotation block %q (missing closing @@@%s)", name, tag)
		}
		bodyEnd := openEnd + closeIdx
		fullEnd := bodyEnd + len(closeDelim)

		// Keep only the preamble up to (not including) the opening "@@@tag"
		// delimiter; the grammar never needs to see either delimiter or the
		// body, just "anno NAME [on targets]". A newline is appended in its
		// place so the following structural text still starts its own line.
		out = append(out, text[cursor:delimStart]...)
		out = append(out, '\n')
		curModifiedLine += countNewlines(text[cursor:delimStart]) + 1

		body := text[openEnd:bodyEnd]
		bc.annoLookup[name] = body

		linesCutHere := countNewlines(text[delimStart:fullEnd]) - 1
		if linesCutHere > 0 {
			bc.lineMap = append(bc.lineMap, lineMapEntry{
				modifiedLine: curModifiedLine,
				linesCut:     linesCutHere,
			})
		}

		cursor = fullEnd
	}
	out = append(out, text[cursor:]...)
	bc.modifiedText = string(out)
	return nil
}

func indexOfCloseDelim(s, delim string) int {
	for i := 0; i+len(delim) <= len(s); i++ {
		if s[i:i+len(delim)] == delim {
			return i
		}
	}
	return -1
}

// MapLineToOriginal translates a 1-based line number in ModifiedText back
// to the corresponding 1-based line number in the original source, by
// adding back every lines-cut delta recorded at-or-before that line.
func (bc *BlockChunker) MapLineToOriginal(line int) int {
	orig := line
	for _, e := range bc.lineMap {
		if e.modifiedLine <= line {
			orig += e.linesCut
		}
	}
	return orig
}
