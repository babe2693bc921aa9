package mudra

import (
	"strings"
	"testing"

	"github.com/nrityalens/nrityalens/internal/model"
)

// TestLoadCatalog_Embedded は埋め込みカタログが検証を通過することを検証する。
func TestLoadCatalog_Embedded(t *testing.T) {
	mudras, err := LoadCatalog()
	if err != nil {
		t.Fatalf("LoadCatalog error: %v", err)
	}

	counts := map[model.MudraCategory]int{}
	for _, m := range mudras {
		counts[m.Category]++
		if m.ID != "" {
			t.Errorf("%s: catalog entries must not carry an ID", m.Name)
		}
		if !m.Difficulty.Valid() {
			t.Errorf("%s: difficulty %q is invalid", m.Name, m.Difficulty)
		}
	}
	if counts[model.MudraCategoryAsamyuta] != 28 {
		t.Errorf("asamyuta count = %d, want 28", counts[model.MudraCategoryAsamyuta])
	}
	if counts[model.MudraCategorySamyuta] != 24 {
		t.Errorf("samyuta count = %d, want 24", counts[model.MudraCategorySamyuta])
	}
}

func TestParseCatalog_DefaultDifficulty(t *testing.T) {
	data := []byte(`
mudras:
  - name: Pataka
    sanskritName: Patāka
    category: Asamyuta
    meaning: Flag
    usage: [clouds, forest]
`)
	mudras, err := ParseCatalog(data)
	if err != nil {
		t.Fatalf("ParseCatalog error: %v", err)
	}
	if len(mudras) != 1 {
		t.Fatalf("len = %d, want 1", len(mudras))
	}
	m := mudras[0]
	if m.Difficulty != model.DifficultyBeginner {
		t.Errorf("difficulty = %q, want beginner", m.Difficulty)
	}
	if m.Category != model.MudraCategoryAsamyuta {
		t.Errorf("category = %q, want asamyuta", m.Category)
	}
	if len(m.Usage) != 2 || m.Usage[1] != "forest" {
		t.Errorf("usage = %v", m.Usage)
	}
}

func TestParseCatalog_Errors(t *testing.T) {
	tests := []struct {
		name    string
		data    string
		wantErr string
	}{
		{
			name:    "名前なし",
			data:    "mudras:\n  - category: asamyuta\n",
			wantErr: "name is required",
		},
		{
			name:    "名前の重複",
			data:    "mudras:\n  - {name: Pataka, category: asamyuta}\n  - {name: Pataka, category: samyuta}\n",
			wantErr: "duplicate name",
		},
		{
			name:    "未定義のcategory",
			data:    "mudras:\n  - {name: Pataka, category: triple}\n",
			wantErr: "unknown category",
		},
		{
			name:    "未定義のdifficulty",
			data:    "mudras:\n  - {name: Pataka, category: asamyuta, difficulty: expert}\n",
			wantErr: "unknown difficulty",
		},
		{
			name:    "YAMLとして不正",
			data:    "mudras: [",
			wantErr: "failed to parse",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseCatalog([]byte(tt.data))
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error = %q, want containing %q", err.Error(), tt.wantErr)
			}
		})
	}
}
