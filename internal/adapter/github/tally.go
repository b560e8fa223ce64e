package github

import (
	"sort"

	"github-stat-card/internal/domain"
)

// languageTally 按首次出现顺序累加语言字节数
type languageTally struct {
	sizes map[string]int64
	order []string
}

func newLanguageTally() *languageTally {
	return &languageTally{sizes: make(map[string]int64)}
}

func (t *languageTally) merge(langs []domain.LanguageSize) {
	for _, l := range langs {
		if l.Bytes <= 0 {
			continue
		}
		if _, seen := t.sizes[l.Name]; !seen {
			t.order = append(t.order, l.Name)
		}
		t.sizes[l.Name] += l.Bytes
	}
}

// sorted 按字节数降序，相同字节数保持首次出现顺序
func (t *languageTally) sorted() []domain.LanguageSize {
	out := make([]domain.LanguageSize, 0, len(t.order))
	for _, name := range t.order {
		out = append(out, domain.LanguageSize{Name: name, Bytes: t.sizes[name]})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Bytes > out[j].Bytes
	})
	return out
}
