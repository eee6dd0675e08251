package telegram

import (
	"strings"
	"testing"
)

func TestSplitMessagePrefersLineBoundary(t *testing.T) {
	text := strings.Repeat("a", 3500) + "\n" + strings.Repeat("b", 2500)

	parts := SplitMessage(text)
	if len(parts) != 2 {
		t.Fatalf("ожидали 2 части, получили %d", len(parts))
	}
	if parts[0] != strings.Repeat("a", 3500) {
		t.Fatalf("первая часть должна заканчиваться на границе строки")
	}
	if parts[1] != strings.Repeat("b", 2500) {
		t.Fatalf("вторая часть собрана неверно")
	}
	for i, part := range parts {
		if n := len([]rune(part)); n > messageLimit {
			t.Fatalf("часть %d превышает лимит: %d", i, n)
		}
	}
}

func TestSplitMessageHardCutWithoutNewlines(t *testing.T) {
	text := strings.Repeat("x", messageLimit+10)

	parts := SplitMessage(text)
	if len(parts) != 2 {
		t.Fatalf("ожидали 2 части, получили %d", len(parts))
	}
	if len([]rune(parts[0])) != messageLimit {
		t.Fatalf("без переводов строки режем ровно по лимиту, получили %d", len([]rune(parts[0])))
	}
	if parts[1] != strings.Repeat("x", 10) {
		t.Fatalf("хвост после жёсткого разреза собран неверно")
	}
}

func TestSplitMessageShortText(t *testing.T) {
	parts := SplitMessage("  PN1: найдено  ")
	if len(parts) != 1 {
		t.Fatalf("ожидали одну часть, получили %d", len(parts))
	}
	if parts[0] != "PN1: найдено" {
		t.Fatalf("короткий текст должен вернуться обрезанным по пробелам: %q", parts[0])
	}
}

func TestSplitMessageEmpty(t *testing.T) {
	if parts := SplitMessage(" \n\t "); len(parts) != 0 {
		t.Fatalf("для пустого текста частей быть не должно, получили %d", len(parts))
	}
}
