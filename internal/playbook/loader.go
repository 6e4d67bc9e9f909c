package playbook

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/liyecom/adpilot/internal/logging"
)

// LoadFile loads and validates a single playbook document using Koanf.
//
// Error cases:
//   - File not found or cannot be read
//   - Invalid YAML syntax
//   - Schema validation failure (unsupported version, unknown evidence
//     fields, missing profiles, duplicate ids)
func LoadFile(path string) (*Playbook, error) {
	k := koanf.New(".")

	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		return nil, fmt.Errorf("failed to load playbook from %q: %w", path, err)
	}

	var pb Playbook
	if err := k.UnmarshalWithConf("", &pb, koanf.UnmarshalConf{Tag: "yaml"}); err != nil {
		return nil, fmt.Errorf("failed to parse playbook from %q: %w", path, err)
	}

	if err := pb.Validate(); err != nil {
		return nil, fmt.Errorf("playbook validation failed for %q: %w", path, err)
	}

	return &pb, nil
}

// LoadDir loads every *.yaml/*.yml playbook in a directory into a Store.
// Files are loaded in lexical order; a duplicate observation id is an
// error unless the later file carries a strictly newer rule_version, in
// which case it supersedes the earlier one.
func LoadDir(dir string) (*Store, error) {
	logger := logging.GetLogger("playbook.loader")

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read playbook directory %q: %w", dir, err)
	}

	var paths []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if strings.HasSuffix(name, ".yaml") || strings.HasSuffix(name, ".yml") {
			paths = append(paths, filepath.Join(dir, name))
		}
	}
	sort.Strings(paths)

	if len(paths) == 0 {
		return nil, fmt.Errorf("no playbook documents found in %q", dir)
	}

	byObservation := make(map[string]*Playbook, len(paths))
	for _, path := range paths {
		pb, err := LoadFile(path)
		if err != nil {
			return nil, err
		}

		if existing, ok := byObservation[pb.ObservationID]; ok {
			if !NewerRuleVersion(existing.RuleVersion, pb.RuleVersion) {
				return nil, fmt.Errorf(
					"duplicate playbook for observation %q: %s does not supersede %s",
					pb.ObservationID, pb.RuleVersion, existing.RuleVersion)
			}
			logger.InfoWithFields("playbook superseded",
				logging.Field("observation_id", pb.ObservationID),
				logging.Field("old_version", existing.RuleVersion),
				logging.Field("new_version", pb.RuleVersion),
			)
		}
		byObservation[pb.ObservationID] = pb

		logger.DebugWithFields("playbook loaded",
			logging.Field("path", path),
			logging.Field("observation_id", pb.ObservationID),
			logging.Field("rule_version", pb.RuleVersion),
		)
	}

	logger.Info("loaded %d playbooks from %s", len(byObservation), dir)
	return NewStore(byObservation), nil
}
