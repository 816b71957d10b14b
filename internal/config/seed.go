package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/iliyamo/lodge-booking/internal/model"
)

// roomsFile is the layout of the room inventory seed file.
type roomsFile struct {
	Rooms []model.Room `yaml:"rooms"`
}

// LoadPrices reads the YAML price table at path.  ${VAR} references are
// expanded from the environment before parsing.
func LoadPrices(path string) (model.PriceConfig, error) {
	var cfg model.PriceConfig
	if err := readYAML(path, &cfg); err != nil {
		return cfg, err
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// LoadRooms reads the YAML room inventory at path.
func LoadRooms(path string) ([]model.Room, error) {
	var f roomsFile
	if err := readYAML(path, &f); err != nil {
		return nil, err
	}
	if len(f.Rooms) == 0 {
		return nil, fmt.Errorf("%s: no rooms", path)
	}
	seen := map[string]bool{}
	for _, r := range f.Rooms {
		switch {
		case r.ID == "":
			return nil, fmt.Errorf("%s: room without id", path)
		case seen[r.ID]:
			return nil, fmt.Errorf("%s: duplicate room %s", path, r.ID)
		case !r.Tier.Valid():
			return nil, fmt.Errorf("%s: room %s: unknown tier %q", path, r.ID, r.Tier)
		case r.BedCount == 0:
			return nil, fmt.Errorf("%s: room %s has no beds", path, r.ID)
		}
		seen[r.ID] = true
	}
	return f.Rooms, nil
}

func readYAML(path string, out any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	expanded := []byte(os.ExpandEnv(string(data)))
	if err := yaml.Unmarshal(expanded, out); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	return nil
}
