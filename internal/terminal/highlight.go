package terminal

import "regexp"

var separators = regexp.MustCompile(`\W+`)

// Highlight splits text into word and separator chunks, coloring words found
// in kw. A nil keyword set leaves the text uncolored.
func Highlight(text string, kw *Keywords) []Chunk {
	if text == "" {
		return nil
	}
	if kw.Len() == 0 {
		return []Chunk{Plain(text)}
	}

	var chunks []Chunk
	word := func(w string) {
		if w == "" {
			return
		}
		if kw.Has(w) {
			chunks = append(chunks, Colored(w, Green))
		} else {
			chunks = append(chunks, Plain(w))
		}
	}

	last := 0
	for _, loc := range separators.FindAllStringIndex(text, -1) {
		word(text[last:loc[0]])
		chunks = append(chunks, Plain(text[loc[0]:loc[1]]))
		last = loc[1]
	}
	word(text[last:])
	return chunks
}
