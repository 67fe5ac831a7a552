package client

import (
	"strings"
	"unicode/utf8"
)

// DefaultChunkTokens is the chunk size ChunkText uses when maxTokens <= 0.
const DefaultChunkTokens = 4000

// charsPerToken is the rough English-text estimate ChunkText sizes by.
const charsPerToken = 4

// ChunkText splits text on whitespace into chunks of about maxTokens tokens
// each, so a long document can be sent as several prompts. Words are never
// split; a single word longer than the limit becomes its own chunk.
func ChunkText(text string, maxTokens int) []string {
	if maxTokens <= 0 {
		maxTokens = DefaultChunkTokens
	}
	maxChars := maxTokens * charsPerToken

	var (
		chunks  []string
		current []string
		length  int
	)
	for _, word := range strings.Fields(text) {
		n := utf8.RuneCountInString(word) + 1
		if length+n > maxChars && len(current) > 0 {
			chunks = append(chunks, strings.Join(current, " "))
			current, length = nil, 0
		}
		current = append(current, word)
		length += n
	}
	if len(current) > 0 {
		chunks = append(chunks, strings.Join(current, " "))
	}
	return chunks
}
