// Package mudra はムドラ参照カタログの検索と初期データ投入を提供する。
package mudra

import (
	_ "embed"
	"fmt"
	"strings"

	"github.com/nrityalens/nrityalens/internal/model"
	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var catalogYAML []byte

type catalogFile struct {
	Mudras []catalogEntry `yaml:"mudras"`
}

type catalogEntry struct {
	Name         string   `yaml:"name"`
	SanskritName string   `yaml:"sanskritName"`
	Category     string   `yaml:"category"`
	Meaning      string   `yaml:"meaning"`
	Usage        []string `yaml:"usage"`
	Bhava        []string `yaml:"bhava"`
	Animals      []string `yaml:"animals"`
	VideoRefs    []string `yaml:"videoRefs"`
	Variations   []string `yaml:"variations"`
	Difficulty   string   `yaml:"difficulty"`
}

// LoadCatalog は埋め込みカタログを読み込む。
func LoadCatalog() ([]*model.Mudra, error) {
	return ParseCatalog(catalogYAML)
}

// ParseCatalog はYAMLのカタログを検証してモデルに変換する。
// 名前の重複、未定義のcategory、difficultyはエラーにする。IDは付与しない。
func ParseCatalog(data []byte) ([]*model.Mudra, error) {
	var file catalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse mudra catalog: %w", err)
	}

	seen := make(map[string]struct{}, len(file.Mudras))
	mudras := make([]*model.Mudra, 0, len(file.Mudras))
	for i, e := range file.Mudras {
		name := strings.TrimSpace(e.Name)
		if name == "" {
			return nil, fmt.Errorf("mudra catalog entry %d: name is required", i)
		}
		if _, dup := seen[name]; dup {
			return nil, fmt.Errorf("mudra catalog entry %d: duplicate name %q", i, name)
		}
		seen[name] = struct{}{}

		category := model.MudraCategory(strings.ToLower(strings.TrimSpace(e.Category)))
		if !category.Valid() {
			return nil, fmt.Errorf("mudra %q: unknown category %q", name, e.Category)
		}

		difficulty := model.Difficulty(strings.ToLower(strings.TrimSpace(e.Difficulty)))
		if difficulty == "" {
			difficulty = model.DifficultyBeginner
		}
		if !difficulty.Valid() {
			return nil, fmt.Errorf("mudra %q: unknown difficulty %q", name, e.Difficulty)
		}

		mudras = append(mudras, &model.Mudra{
			Name:         name,
			SanskritName: e.SanskritName,
			Category:     category,
			Meaning:      e.Meaning,
			Usage:        e.Usage,
			Bhava:        e.Bhava,
			Animals:      e.Animals,
			VideoRefs:    e.VideoRefs,
			Variations:   e.Variations,
			Difficulty:   difficulty,
		})
	}
	return mudras, nil
}
