package ckpt

import (
	"bytes"
	"unicode/utf8"

	"bkpt-go/internal/model"
)

// sniffLimit bounds how many leading bytes SniffKind inspects.
const sniffLimit = 8192

// SniffKind decides the presentation kind of a file from its content.
// The decision is made once, at checkpoint time, and recorded in the
// file set so diff results stay deterministic. A NUL byte or invalid
// UTF-8 in the leading bytes marks the file binary; everything else,
// including empty files, is text.
func SniffKind(data []byte) model.FileKind {
	if len(data) == 0 {
		return model.KindText
	}
	head := data
	if len(head) > sniffLimit {
		head = head[:sniffLimit]
	}
	if bytes.IndexByte(head, 0) >= 0 {
		return model.KindBinary
	}
	// A multi-byte rune may be cut off at the sniff boundary; trim the
	// tail before validating.
	if len(head) == sniffLimit {
		for i := 0; i < utf8.UTFMax && len(head) > 0; i++ {
			if r, _ := utf8.DecodeLastRune(head); r != utf8.RuneError {
				break
			}
			head = head[:len(head)-1]
		}
	}
	if !utf8.Valid(head) {
		return model.KindBinary
	}
	return model.KindText
}
