package textnorm

import (
	"bufio"
	"embed"
	"strings"
)

//go:embed stopwords/*.txt
var stopwordFS embed.FS

type wordSet map[string]struct{}

func (s wordSet) has(w string) bool {
	_, ok := s[w]
	return ok
}

// loadStopwords reads stopwords/<lang>.txt. Each word is passed through fold
// so that list entries match text prepared the same way.
func loadStopwords(lang string, fold func(string) string) wordSet {
	data, err := stopwordFS.ReadFile("stopwords/" + lang + ".txt")
	if err != nil {
		panic("textnorm: missing stop-word list " + lang)
	}
	set := make(wordSet)
	sc := bufio.NewScanner(strings.NewReader(string(data)))
	for sc.Scan() {
		w := strings.TrimSpace(sc.Text())
		if w == "" {
			continue
		}
		set[w] = struct{}{}
		if fold != nil {
			set[fold(w)] = struct{}{}
		}
	}
	return set
}
