// Package category classifies clipboard text. Rules are evaluated in a fixed
// order and the first match wins.
package category

import (
	"regexp"
	"strings"

	"go.klb.dev/copas/internal/model"
)

var (
	wholeURL   = regexp.MustCompile(`(?i)^(https?://|www\.)\S+$`)
	wholeEmail = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	phoneChars = regexp.MustCompile(`^[0-9 ()+\-]+$`)
	codeStart  = regexp.MustCompile(`^(const|let|var|function|func|class|import|def|fn|pub)\s`)
	embedded   = regexp.MustCompile(`(?i)(https?://|\bwww\.)\S+`)
)

const structural = "{}[]();"

// Classify returns the category of text. It is total and deterministic.
func Classify(text string) model.Category {
	t := strings.TrimSpace(text)
	switch {
	case t == "":
		return model.CategoryText
	case wholeURL.MatchString(t):
		return model.CategoryLink
	case wholeEmail.MatchString(t):
		return model.CategoryEmail
	case isPhone(t):
		return model.CategoryPhone
	case isCode(text):
		return model.CategoryCode
	case embedded.MatchString(text):
		return model.CategoryLink
	}
	return model.CategoryText
}

// isPhone bounds the digit count, not the raw length, so separators such
// as "+1 (555) 123-4567" do not push a number out of range.
func isPhone(t string) bool {
	if !phoneChars.MatchString(t) {
		return false
	}
	digits := 0
	for _, r := range t {
		if r >= '0' && r <= '9' {
			digits++
		}
	}
	return digits >= 7 && digits <= 15
}

func isCode(text string) bool {
	if countStructural(text) >= 2 {
		return true
	}
	first, _, _ := strings.Cut(strings.TrimLeft(text, " \t\r\n"), "\n")
	return codeStart.MatchString(first)
}

func countStructural(text string) int {
	n := 0
	for _, r := range text {
		if strings.ContainsRune(structural, r) {
			n++
			if n >= 2 {
				return n
			}
		}
	}
	return n
}
