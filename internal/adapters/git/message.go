package git

import "strings"

// messageHasPrefix reports whether any line of message starts with prefix.
// This mirrors `git log --grep=^prefix`, which matches per line.
func messageHasPrefix(message, prefix string, caseInsensitive bool) bool {
	for _, line := range strings.Split(message, "\n") {
		if len(line) < len(prefix) {
			continue
		}
		head := line[:len(prefix)]
		if head == prefix || (caseInsensitive && strings.EqualFold(head, prefix)) {
			return true
		}
	}
	return false
}
