package narrative

import (
	"fmt"
	"sort"
	"text/template"

	"github.com/Masterminds/sprig"
	"github.com/pkg/errors"
)

// Library holds the parsed templates for every pool. It is immutable once built and can be
// shared by any number of Narrators.
type Library struct {
	pools      map[string][]*template.Template
	courses    []Course
	announcers []string
	strategies map[string]string
}

func NewLibrary(texts Texts) (*Library, error) {
	l := &Library{
		pools:      make(map[string][]*template.Template, len(texts.Events)),
		courses:    texts.Courses,
		announcers: texts.Announcers,
		strategies: texts.Strategies,
	}

	kinds := make([]string, 0, len(texts.Events))

	for kind := range texts.Events {
		kinds = append(kinds, kind)
	}

	sort.Strings(kinds)

	for _, kind := range kinds {
		for i, text := range texts.Events[kind] {
			tmpl, err := template.New(fmt.Sprintf("%s_%d", kind, i)).Funcs(sprig.TxtFuncMap()).Parse(text)

			if err != nil {
				return nil, errors.Wrapf(err, "could not parse %s text %d", kind, i)
			}

			l.pools[kind] = append(l.pools[kind], tmpl)
		}
	}

	return l, nil
}

// Default returns a Library of the built in texts.
func Default() *Library {
	l, err := NewLibrary(DefaultTexts())

	if err != nil {
		panic(err)
	}

	return l
}

// Size returns the number of templates in a pool.
func (l *Library) Size(pool string) int {
	return len(l.pools[pool])
}
