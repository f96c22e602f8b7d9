// Package history provides the conversation history truncation policy.
package history

import (
	"unicode/utf8"

	"github.com/solace-labs/companion-go/pkg/storage"
)

// Clamp limits a chronologically ordered message list to a total character
// budget, keeping the most recent messages.
//
// The function walks the list from the newest message backward, accumulating
// content lengths (in runes). A message is kept only if adding it stays
// within the budget; accumulation stops at the first message that would
// exceed it. Older, smaller messages are never skipped over, so the result
// is always a contiguous trailing subsequence of the input, returned in
// chronological order.
//
// Edge cases:
//   - empty input returns an empty slice
//   - a budget of 0 returns an empty slice
//   - a single message longer than the budget is excluded, which may make
//     the result empty even when the input is not
func Clamp(messages []*storage.Message, maxChars int) []*storage.Message {
	total := 0
	kept := 0
	for i := len(messages) - 1; i >= 0; i-- {
		n := utf8.RuneCountInString(messages[i].Content)
		if total+n > maxChars {
			break
		}
		total += n
		kept++
	}

	result := make([]*storage.Message, kept)
	copy(result, messages[len(messages)-kept:])
	return result
}
