// Copyright 2025 Kadir Pekel
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package step

import "regexp"

// fencedBlock matches a ```go ... ``` (or bare ```) block whose opening
// fence is immediately followed by a newline.
var fencedBlock = regexp.MustCompile("(?s)```(?:go)?\\s*\\n(.*?)\\n```")

// looseFencedBlock is the tolerant fallback: no newline required right
// after the opening fence, for assistant turns that fence code on one
// line, e.g. "```sum := 1+1```".
var looseFencedBlock = regexp.MustCompile("(?s)```(?:go)?(.*?)```")

// extractCodeBlocks pulls every fenced code block out of an assistant
// turn, in document order, dropping a block identical to an earlier one.
// It first tries the strict pattern; if that finds nothing it falls back
// to the loose one, matching a model that fences code without sentinels
// exactly rather than rejecting the turn.
func extractCodeBlocks(text string) []string {
	matches := fencedBlock.FindAllStringSubmatch(text, -1)
	if len(matches) == 0 {
		matches = looseFencedBlock.FindAllStringSubmatch(text, -1)
	}

	blocks := make([]string, 0, len(matches))
	seen := make(map[string]bool, len(matches))
	for _, m := range matches {
		if seen[m[1]] {
			continue
		}
		seen[m[1]] = true
		blocks = append(blocks, m[1])
	}
	return blocks
}
