package loader

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/nathoo/talespin/engine/state"
	"github.com/nathoo/talespin/types"
)

// localeFile mirrors the on-disk YAML catalog layout.
type localeFile struct {
	Language     string              `yaml:"language"`
	Names        map[string][]string `yaml:"names"`
	Descriptions map[string]string   `yaml:"descriptions"`
	Messages     map[string]string   `yaml:"messages"`
	Verbs        map[string][]string `yaml:"verbs"`
	Articles     []string            `yaml:"articles"`
	Linkers      []string            `yaml:"linkers"`
	Endings      map[string]string   `yaml:"endings"`
	Actions      map[string]string   `yaml:"actions"`
	Intro        string              `yaml:"intro"`
}

// Languages lists the locale catalogs available under dir/locales.
func Languages(dir string) ([]string, error) {
	entries, err := os.ReadDir(filepath.Join(dir, "locales"))
	if err != nil {
		return nil, fmt.Errorf("reading locales directory: %w", err)
	}
	var langs []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".yaml") {
			continue
		}
		langs = append(langs, strings.TrimSuffix(e.Name(), ".yaml"))
	}
	sort.Strings(langs)
	return langs, nil
}

// LoadLocale reads dir/locales/<lang>.yaml. Structural errors are fatal;
// ids in the world but missing from the catalog come back as warnings and
// the engine falls back to raw ids for them.
func LoadLocale(dir, lang string, defs *state.Defs) (*types.Locale, []string, error) {
	path := filepath.Join(dir, "locales", lang+".yaml")
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("reading locale catalog: %w", err)
	}

	var lf localeFile
	dec := yaml.NewDecoder(strings.NewReader(string(data)))
	dec.KnownFields(true)
	if err := dec.Decode(&lf); err != nil {
		return nil, nil, fmt.Errorf("parsing locale catalog %s: %w", path, err)
	}

	loc := &types.Locale{
		Language:     lf.Language,
		Names:        lf.Names,
		Descriptions: lf.Descriptions,
		Messages:     lf.Messages,
		Verbs:        lf.Verbs,
		Articles:     lf.Articles,
		Linkers:      lf.Linkers,
		Endings:      lf.Endings,
		Actions:      lf.Actions,
		Intro:        lf.Intro,
	}
	if loc.Language == "" {
		loc.Language = lang
	}
	for _, m := range []*map[string]string{&loc.Descriptions, &loc.Messages, &loc.Endings, &loc.Actions} {
		if *m == nil {
			*m = map[string]string{}
		}
	}
	if loc.Names == nil {
		loc.Names = map[string][]string{}
	}
	if loc.Verbs == nil {
		loc.Verbs = map[string][]string{}
	}

	return loc, localeWarnings(loc, defs), nil
}

// localeWarnings flags world ids the catalog does not cover.
func localeWarnings(loc *types.Locale, defs *state.Defs) []string {
	if defs == nil {
		return nil
	}
	var warnings []string
	missing := func(kind, id string) {
		warnings = append(warnings, fmt.Sprintf(
			"locale %s: no entry for %s %q", loc.Language, kind, id))
	}
	for id := range defs.Rooms {
		if _, ok := loc.Descriptions[id]; !ok {
			missing("room", id)
		}
	}
	for id := range defs.Items {
		if len(loc.Names[id]) == 0 {
			missing("item", id)
		}
	}
	for id := range defs.NPCs {
		if len(loc.Names[id]) == 0 {
			missing("npc", id)
		}
	}
	for _, ending := range defs.Endings {
		if _, ok := loc.Endings[ending.ID]; !ok {
			missing("ending", ending.ID)
		}
	}
	sort.Strings(warnings)
	return warnings
}
