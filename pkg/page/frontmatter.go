package page

import (
	"bytes"
	"fmt"

	"gopkg.in/yaml.v3"
)

const fence = "---"

// ParseFrontMatter splits raw into YAML front matter and body. Content without
// a leading fence has no front matter. The returned map is never nil.
func ParseFrontMatter(raw []byte) (map[string]any, string, error) {
	matter := make(map[string]any)

	content := bytes.TrimPrefix(raw, []byte("\xef\xbb\xbf"))
	first, rest, ok := cutLine(content)
	if !ok || string(bytes.TrimRight(first, " \t")) != fence {
		return matter, string(raw), nil
	}

	var header []byte
	for len(rest) > 0 {
		var line []byte
		line, rest, _ = cutLine(rest)
		if string(bytes.TrimRight(line, " \t")) == fence {
			if len(bytes.TrimSpace(header)) > 0 {
				if err := yaml.Unmarshal(header, &matter); err != nil {
					return nil, "", fmt.Errorf("page: parse front matter: %w", err)
				}
				if matter == nil {
					matter = make(map[string]any)
				}
			}
			return matter, string(rest), nil
		}
		header = append(header, line...)
		header = append(header, '\n')
	}

	return nil, "", fmt.Errorf("page: front matter is not closed")
}

// cutLine returns the first line of b without its line ending and the rest.
// ok is false when b holds no line break.
func cutLine(b []byte) (line, rest []byte, ok bool) {
	idx := bytes.IndexByte(b, '\n')
	if idx < 0 {
		return b, nil, false
	}
	line = bytes.TrimSuffix(b[:idx], []byte("\r"))
	return line, b[idx+1:], true
}
