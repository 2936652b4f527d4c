/**
 * Copyright 2025-present Coinbase Global, Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *  http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package matcher does case-insensitive substring matching of merchant and
// account names against pattern lists.
package matcher

import "strings"

// Matches reports whether any pattern is an ASCII case-insensitive substring
// of text. An empty pattern list never matches.
func Matches(text string, patterns []string) bool {
	if len(patterns) == 0 {
		return false
	}
	folded := foldASCII(text)
	for _, p := range patterns {
		if strings.Contains(folded, foldASCII(p)) {
			return true
		}
	}
	return false
}

// FirstMatch returns the index of the first pattern list that matches text,
// or -1.
func FirstMatch(text string, lists [][]string) int {
	for i, patterns := range lists {
		if Matches(text, patterns) {
			return i
		}
	}
	return -1
}

// foldASCII lowercases A-Z only; other bytes pass through untouched.
func foldASCII(s string) string {
	var b []byte
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c >= 'A' && c <= 'Z' {
			if b == nil {
				b = []byte(s)
			}
			b[i] = c + ('a' - 'A')
		}
	}
	if b == nil {
		return s
	}
	return string(b)
}
