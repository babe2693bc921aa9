// Package model はドメインモデルを定義する。
package model

// MudraCategory はムドラの分類を表す。
type MudraCategory string

const (
	// MudraCategoryAsamyuta は片手のムドラ。
	MudraCategoryAsamyuta MudraCategory = "asamyuta"
	// MudraCategorySamyuta は両手のムドラ。
	MudraCategorySamyuta MudraCategory = "samyuta"
)

// Valid は定義済みのカテゴリかどうかを返す。
func (c MudraCategory) Valid() bool {
	return c == MudraCategoryAsamyuta || c == MudraCategorySamyuta
}

// Difficulty はムドラの習得難易度を表す。
type Difficulty string

const (
	// DifficultyBeginner は初級。未指定時のデフォルト。
	DifficultyBeginner Difficulty = "beginner"
	// DifficultyIntermediate は中級。
	DifficultyIntermediate Difficulty = "intermediate"
	// DifficultyAdvanced は上級。
	DifficultyAdvanced Difficulty = "advanced"
)

// Valid は定義済みの難易度かどうかを返す。
func (d Difficulty) Valid() bool {
	switch d {
	case DifficultyBeginner, DifficultyIntermediate, DifficultyAdvanced:
		return true
	}
	return false
}

// Mudra はムドラ参照カタログのエントリを表す。
type Mudra struct {
	ID           string
	Name         string
	SanskritName string
	Category     MudraCategory
	Meaning      string
	Usage        []string
	Bhava        []string
	Animals      []string
	VideoRefs    []string
	Variations   []string
	Difficulty   Difficulty
}

// MudraFilter はカタログ一覧の絞り込み条件を表す。空文字列の条件は無視される。
type MudraFilter struct {
	Category   MudraCategory
	Animal     string
	Difficulty Difficulty
	Search     string
}
