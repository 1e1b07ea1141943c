package data

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/ospreygo/netsync/internal/geom"
)

// SpawnEntry seeds one server-owned replicated entity at boot.
type SpawnEntry struct {
	Kind  string  `yaml:"kind"`
	Count int     `yaml:"count"`
	X     float32 `yaml:"x"`
	Y     float32 `yaml:"y"`
	Z     float32 `yaml:"z"`
	// Entities beyond the first are offset along X so they don't stack.
	SpacingX float32 `yaml:"spacing_x"`
}

func (s SpawnEntry) Position(i int) geom.Vec3 {
	return geom.Vec3{X: s.X + float32(i)*s.SpacingX, Y: s.Y, Z: s.Z}
}

// LoadSpawnList reads the boot spawn list. A missing file means an empty
// world, not an error; clients still join and spawn players.
func LoadSpawnList(path string) ([]SpawnEntry, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read spawn list %s: %w", path, err)
	}
	var doc struct {
		Spawns []SpawnEntry `yaml:"spawns"`
	}
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("parse spawn list %s: %w", path, err)
	}
	for i := range doc.Spawns {
		if doc.Spawns[i].Count <= 0 {
			doc.Spawns[i].Count = 1
		}
	}
	return doc.Spawns, nil
}
