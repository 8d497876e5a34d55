// Package items resolves game lookup tables: main-hand item ids to
// weapon categories and zone keys to friendly map names. Both tables
// are optional; without them the meter simply shows less detail.
package items

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

type itemRecord struct {
	ID         int32  `json:"id"`
	UniqueName string `json:"unique_name"`
	Category   string `json:"category,omitempty"`
}

// Index maps item ids to weapon categories.
type Index struct {
	names      map[int32]string
	categories map[string]string
}

// LoadIndex reads an item table from a JSON array of
// {id, unique_name, category} records.
func LoadIndex(path string) (*Index, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("item table: %w", err)
	}
	var records []itemRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("item table %s: %w", path, err)
	}
	idx := &Index{
		names:      make(map[int32]string, len(records)),
		categories: make(map[string]string),
	}
	for _, r := range records {
		idx.names[r.ID] = r.UniqueName
		if r.Category != "" {
			idx.categories[r.UniqueName] = r.Category
		}
	}
	return idx, nil
}

// weaponMarkers maps unique-name substrings to categories for items
// the table carries no explicit category for.
var weaponMarkers = []struct {
	marker   string
	category string
}{
	{"HOLYSTAFF", "holystaff"},
	{"DIVINESTAFF", "holystaff"},
	{"FIRESTAFF", "firestaff"},
	{"INFERNOSTAFF", "firestaff"},
	{"FROSTSTAFF", "froststaff"},
	{"ARCANESTAFF", "arcanestaff"},
	{"CURSEDSTAFF", "cursedstaff"},
	{"NATURESTAFF", "naturestaff"},
	{"CROSSBOW", "crossbow"},
	{"BOW", "bow"},
	{"QUARTERSTAFF", "quarterstaff"},
	{"SWORD", "sword"},
	{"CLAYMORE", "sword"},
	{"AXE", "axe"},
	{"HALBERD", "axe"},
	{"MACE", "mace"},
	{"HAMMER", "hammer"},
	{"SPEAR", "spear"},
	{"PIKE", "spear"},
	{"DAGGER", "dagger"},
	{"KNUCKLES", "knuckles"},
}

// Resolve maps an item id to a weapon category. Items without an
// explicit category fall back to substring inference on the unique
// name.
func (i *Index) Resolve(item int32) (string, bool) {
	if i == nil {
		return "", false
	}
	name, ok := i.names[item]
	if !ok {
		return "", false
	}
	if cat, ok := i.categories[name]; ok {
		return cat, true
	}
	upper := strings.ToUpper(name)
	for _, m := range weaponMarkers {
		if strings.Contains(upper, m.marker) {
			return m.category, true
		}
	}
	return "", false
}
