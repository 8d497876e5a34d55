package items

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// ZoneIndex maps zone keys to friendly map names.
type ZoneIndex struct {
	names map[string]string
}

// LoadZones reads a zone table from a JSON object of key → name.
func LoadZones(path string) (*ZoneIndex, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("zone table: %w", err)
	}
	var names map[string]string
	if err := json.Unmarshal(data, &names); err != nil {
		return nil, fmt.Errorf("zone table %s: %w", path, err)
	}
	return &ZoneIndex{names: names}, nil
}

// specialZones covers instanced map types that never appear in the
// static table.
var specialZones = []struct {
	marker string
	label  string
}{
	{"ISLAND", "Island"},
	{"MISTS", "Mists"},
	{"DUNGEON", "Dungeon"},
	{"EXPEDITION", "Expedition"},
	{"HELLGATE", "Hellgate"},
}

// Label maps a zone key to a display name, falling back to the
// special-type markers and finally to the key itself.
func (z *ZoneIndex) Label(key string) string {
	if z != nil {
		if name, ok := z.names[key]; ok {
			return name
		}
	}
	upper := strings.ToUpper(key)
	for _, s := range specialZones {
		if strings.Contains(upper, s.marker) {
			return s.label
		}
	}
	return key
}
