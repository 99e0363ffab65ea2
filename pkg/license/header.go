package license

import "strings"

// Comment tokens stripped from header lines. Covers the comment syntaxes
// seen in vendored payloads: Lua line and block comments plus the C-style
// comments that survive transpilation.
var commentPadding = []string{"--[[", "]]", "--", "/*", "*/", "//", "\\", "*", "#"}

// trimCommentPadding removes comment delimiters and surrounding whitespace
// from a single line.
func trimCommentPadding(line string) string {
	for _, tok := range commentPadding {
		line = strings.ReplaceAll(line, tok, "")
	}
	return strings.TrimSpace(line)
}

// isCodeLine reports whether a raw source line looks like code rather than
// part of a leading comment. A line is comment-like when it is empty or
// starts with a comment token; everything else ends the header block.
func isCodeLine(line string) bool {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" {
		return false
	}
	for _, tok := range []string{"--", "/*", "*", "//", "#"} {
		if strings.HasPrefix(trimmed, tok) {
			return false
		}
	}
	return true
}

// isBlockStart reports whether the line opens a block comment.
func isBlockStart(line string) bool {
	return strings.Contains(line, "--[[") || strings.Contains(line, "/*")
}

// isBlockEnd reports whether the line closes a block comment.
func isBlockEnd(line string) bool {
	return strings.Contains(line, "]]") || strings.Contains(line, "*/")
}

// ExtractHeader returns a file's leading comment block with comment
// delimiters stripped, or "" when the file starts with code.
//
// Vendored files frequently open with a provenance marker (an "upstream"
// comment pointing at the original repository) before the license text;
// those lines are skipped when looking for the start of the header.
func ExtractHeader(source string) string {
	var parts []string
	foundStart := false
	inBlock := false

	for _, raw := range strings.Split(source, "\n") {
		if !inBlock && isCodeLine(raw) {
			// Code before any comment means the file has no header;
			// code after the header ends it.
			break
		}

		if foundStart && isBlockEnd(raw) {
			break
		}

		// Lines inside an open block comment count as comment text even
		// without a leading comment token.
		if isBlockStart(raw) && !isBlockEnd(raw) {
			inBlock = true
		} else if inBlock && isBlockEnd(raw) {
			inBlock = false
		}

		line := trimCommentPadding(raw)

		if !foundStart {
			if line == "" || strings.Contains(strings.ToLower(line), "upstream") {
				continue
			}
			foundStart = true
		}
		parts = append(parts, line)
	}

	return strings.TrimSpace(strings.Join(parts, "\n"))
}
