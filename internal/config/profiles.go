package config

import (
	"os"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// Profile bundles the per-source ingest settings for one watched bucket.
// Profiles let a single deployment ingest several log feeds with different
// prefixes or target tables.
type Profile struct {
	Name         string `yaml:"name"`
	Bucket       string `yaml:"bucket"`
	Prefix       string `yaml:"prefix"`
	Suffix       string `yaml:"suffix"`
	BaseTable    string `yaml:"base_table"`
	ArchiveTable string `yaml:"archive_table"`
}

type profileFile struct {
	Profiles []Profile `yaml:"profiles"`
}

// LoadProfiles reads ingest profiles from a YAML file. Missing optional
// fields inherit from the given defaults.
func LoadProfiles(path string, defaults IngestConfig) ([]Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "config: read profiles %s", path)
	}

	var pf profileFile
	if err := yaml.Unmarshal(data, &pf); err != nil {
		return nil, eris.Wrapf(err, "config: parse profiles %s", path)
	}
	if len(pf.Profiles) == 0 {
		return nil, eris.Errorf("config: no profiles defined in %s", path)
	}

	seen := make(map[string]bool, len(pf.Profiles))
	for i := range pf.Profiles {
		p := &pf.Profiles[i]
		if p.Name == "" {
			return nil, eris.Errorf("config: profile %d has no name", i)
		}
		if seen[p.Name] {
			return nil, eris.Errorf("config: duplicate profile %q", p.Name)
		}
		seen[p.Name] = true

		if p.Bucket == "" {
			p.Bucket = defaults.Bucket
		}
		if p.Prefix == "" {
			p.Prefix = defaults.Prefix
		}
		if p.Suffix == "" {
			p.Suffix = defaults.Suffix
		}
		if p.BaseTable == "" {
			p.BaseTable = defaults.BaseTable
		}
		if p.ArchiveTable == "" {
			p.ArchiveTable = defaults.ArchiveTable
		}
	}

	return pf.Profiles, nil
}
