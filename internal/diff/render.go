package diff

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/sergi/go-diff/diffmatchpatch"

	"bkpt-go/internal/model"
)

// contextLines is how many unchanged lines are shown around each change.
const contextLines = 3

var (
	addColor = color.New(color.FgGreen)
	delColor = color.New(color.FgRed)
	hdrColor = color.New(color.FgCyan, color.Bold)
)

// RenderText writes a line-oriented diff of one modified text file.
// before is the checkpointed content, after the working content.
func RenderText(w io.Writer, path string, before, after []byte) {
	hdrColor.Fprintf(w, "--- %s (checkpoint)\n", path)
	hdrColor.Fprintf(w, "+++ %s (working)\n", path)

	dmp := diffmatchpatch.New()
	chars1, chars2, lineArray := dmp.DiffLinesToChars(string(before), string(after))
	diffs := dmp.DiffCharsToLines(dmp.DiffMain(chars1, chars2, false), lineArray)

	for _, block := range trimContext(diffs) {
		switch block.kind {
		case blockSkip:
			fmt.Fprintf(w, "  ... %d unchanged line(s) ...\n", block.count)
		case blockEqual:
			for _, line := range block.lines {
				fmt.Fprintf(w, "  %s\n", line)
			}
		case blockDelete:
			for _, line := range block.lines {
				delColor.Fprintf(w, "- %s\n", line)
			}
		case blockInsert:
			for _, line := range block.lines {
				addColor.Fprintf(w, "+ %s\n", line)
			}
		}
	}
}

// RenderBinary writes the binary presentation of a modified file: the
// fact that the sides differ plus both sizes, never any content.
func RenderBinary(w io.Writer, f model.ModifiedFile) {
	hdrColor.Fprintf(w, "binary %s differs", f.Path)
	fmt.Fprintf(w, " (checkpoint %d bytes, working %d bytes)\n", f.CheckpointSize, f.WorkingSize)
}

type blockKind int

const (
	blockEqual blockKind = iota
	blockDelete
	blockInsert
	blockSkip
)

type block struct {
	kind  blockKind
	lines []string
	count int // for blockSkip
}

// trimContext converts raw diffs into render blocks, collapsing equal
// runs beyond the context window into skip markers.
func trimContext(diffs []diffmatchpatch.Diff) []block {
	var blocks []block

	for i, d := range diffs {
		lines := splitLines(d.Text)
		switch d.Type {
		case diffmatchpatch.DiffDelete:
			blocks = append(blocks, block{kind: blockDelete, lines: lines})
		case diffmatchpatch.DiffInsert:
			blocks = append(blocks, block{kind: blockInsert, lines: lines})
		case diffmatchpatch.DiffEqual:
			keep := contextLines * 2
			if i == 0 || i == len(diffs)-1 {
				keep = contextLines
			}
			if len(lines) <= keep+1 {
				blocks = append(blocks, block{kind: blockEqual, lines: lines})
				continue
			}
			if i > 0 {
				blocks = append(blocks, block{kind: blockEqual, lines: lines[:contextLines]})
			}
			skipped := len(lines) - keep
			if i == 0 || i == len(diffs)-1 {
				skipped = len(lines) - contextLines
			}
			blocks = append(blocks, block{kind: blockSkip, count: skipped})
			if i < len(diffs)-1 {
				blocks = append(blocks, block{kind: blockEqual, lines: lines[len(lines)-contextLines:]})
			}
		}
	}

	return blocks
}

func splitLines(text string) []string {
	text = strings.TrimSuffix(text, "\n")
	if text == "" {
		return nil
	}
	return strings.Split(text, "\n")
}
