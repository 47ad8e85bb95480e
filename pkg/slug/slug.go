// Copyright (c) 2026 Quill. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package slug derives the public profile slug of an account from its
// username (e.g., "Trần_Ada" becomes "tran-ada").
package slug

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	nonAlphanumeric = regexp.MustCompile(`[^a-z0-9-]+`)
	multiHyphen     = regexp.MustCompile(`-{2,}`)
)

// From lowercases s, strips accents and joins the remaining ASCII
// alphanumerics with single hyphens. Usernames made only of symbols yield "".
func From(s string) string {
	// đ has no decomposition, so NFD alone leaves it behind.
	s = strings.NewReplacer("đ", "d", "Đ", "D").Replace(s)

	stripped, _, _ := transform.String(transform.Chain(norm.NFD, transform.RemoveFunc(isMark)), s)

	result := strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return unicode.ToLower(r)
		}
		return '-'
	}, stripped)

	result = nonAlphanumeric.ReplaceAllString(result, "-")
	result = multiHyphen.ReplaceAllString(result, "-")
	return strings.Trim(result, "-")
}

func isMark(r rune) bool {
	return unicode.Is(unicode.Mn, r)
}
