package telegram

import "strings"

// Телеграм не принимает сообщения длиннее 4096 символов.
const messageLimit = 4096

// SplitMessage режет текст на куски, не превышающие лимит Телеграма.
// Разрез по возможности делается по границе строки, чтобы не рвать
// список результатов посередине.
func SplitMessage(text string) []string {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return nil
	}

	runes := []rune(trimmed)
	if len(runes) <= messageLimit {
		return []string{trimmed}
	}

	var parts []string
	rest := runes
	for len(rest) > 0 {
		if len(rest) <= messageLimit {
			appendChunk(&parts, rest)
			break
		}

		cut := lastNewlineBefore(rest, messageLimit)
		if cut <= 0 {
			cut = messageLimit
		}

		appendChunk(&parts, rest[:cut])
		rest = rest[cut:]
		for len(rest) > 0 && rest[0] == '\n' {
			rest = rest[1:]
		}
	}

	if len(parts) == 0 {
		return []string{trimmed}
	}

	return parts
}

func appendChunk(parts *[]string, runes []rune) {
	chunk := strings.Trim(string(runes), "\n")
	if chunk != "" {
		*parts = append(*parts, chunk)
	}
}

// lastNewlineBefore возвращает позицию сразу после последнего перевода
// строки в пределах limit, либо -1 если его нет.
func lastNewlineBefore(runes []rune, limit int) int {
	for i := limit; i > 0; i-- {
		if runes[i-1] == '\n' {
			return i
		}
	}
	return -1
}
