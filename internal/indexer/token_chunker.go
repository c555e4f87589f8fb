package indexer

import (
	"strings"

	"github.com/deepindex/codechunk/internal/tokenizer"
)

// splitLines is the line-level splitter used for non-code files, files with
// no grammar, and as the fallback when a parse fails. It accumulates whole
// lines and emits a chunk once the running token count would exceed
// maxTokens-5, mirroring the original chunker's accumulation threshold; it
// performs no overlap or boundary seeking. A line whose own token count
// already meets maxTokens is never folded into the running accumulation (it
// would push that chunk over budget on its own); it is flushed as its own
// truncated chunk instead, so every emitted chunk still respects maxTokens.
func splitLines(content []byte, language, path string, maxTokens int, counter *tokenizer.Counter) []rawChunk {
	threshold := maxTokens - 5
	if threshold < 1 {
		threshold = 1
	}

	lines := strings.Split(string(content), "\n")

	var chunks []rawChunk
	var current []string
	startLine := 1
	tokens := 0

	flush := func(endLine int) {
		if len(current) == 0 {
			return
		}
		text := strings.Join(current, "\n")
		if strings.TrimSpace(text) != "" {
			chunks = append(chunks, rawChunk{
				content:   text,
				startLine: startLine,
				endLine:   endLine,
				language:  language,
				filepath:  path,
			})
		}
		current = nil
		tokens = 0
	}

	for i, line := range lines {
		lineNum := i + 1
		lineTokens := counter.Count(line)

		if lineTokens >= maxTokens {
			flush(lineNum - 1)
			if strings.TrimSpace(line) != "" {
				r := []rune(line)
				for len(r) > 0 && counter.Count(string(r)+"\n...") > maxTokens {
					r = r[:len(r)/2]
				}
				text := "..."
				if len(r) > 0 {
					text = string(r) + "\n..."
				}
				chunks = append(chunks, rawChunk{
					content:   text,
					startLine: lineNum,
					endLine:   lineNum,
					language:  language,
					filepath:  path,
				})
			}
			startLine = lineNum + 1
			continue
		}

		if tokens+lineTokens > threshold && len(current) > 0 {
			flush(lineNum - 1)
			startLine = lineNum
		}

		current = append(current, line)
		tokens += lineTokens
	}
	flush(len(lines))

	return chunks
}
