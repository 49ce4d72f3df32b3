package manifest

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/syssam/indexerd"
)

// ModuleSource names the handler module artifact to load (§6 manifest
// `module` field: `wasm: <path>` | `native: <path>` | `~`). Exactly one of
// Wasm/Native is set, or neither when the manifest declares `module: ~`,
// meaning the indexer registers its schema but starts with no module until
// one is uploaded separately.
type ModuleSource struct {
	Wasm   string `yaml:"wasm,omitempty"`
	Native string `yaml:"native,omitempty"`
}

// Kind reports which backend this ModuleSource selects, or "" if empty.
func (m ModuleSource) Kind() string {
	switch {
	case m.Wasm != "":
		return "wasm"
	case m.Native != "":
		return "native"
	default:
		return ""
	}
}

// ContractIDs accepts either a bare string or a YAML sequence for the
// manifest's `contract_id` field, which §6 documents as "optional string or
// list".
type ContractIDs []string

func (c *ContractIDs) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.ScalarNode:
		if value.Tag == "!!null" {
			*c = nil
			return nil
		}
		var s string
		if err := value.Decode(&s); err != nil {
			return err
		}
		*c = ContractIDs{s}
		return nil
	case yaml.SequenceNode:
		var list []string
		if err := value.Decode(&list); err != nil {
			return err
		}
		*c = ContractIDs(list)
		return nil
	default:
		return fmt.Errorf("manifest: \"contract_id\" must be a string or a list of strings")
	}
}

// Manifest is one indexer's YAML configuration bundle (§6 Manifest file).
type Manifest struct {
	Namespace     string       `yaml:"namespace"`
	Identifier    string       `yaml:"identifier"`
	GraphQLSchema string       `yaml:"graphql_schema"`
	ABI           string       `yaml:"abi,omitempty"`
	FuelClient    string       `yaml:"fuel_client,omitempty"`
	ContractID    ContractIDs  `yaml:"contract_id,omitempty"`
	StartBlock    *uint64      `yaml:"start_block,omitempty"`
	EndBlock      *uint64      `yaml:"end_block,omitempty"`
	Resumable     *bool        `yaml:"resumable,omitempty"`
	Module        ModuleSource `yaml:"module,omitempty"`
	Metrics       *bool        `yaml:"metrics,omitempty"`
}

// Load reads, env-expands, and parses a manifest file from path (§6
// Environment variables: "manifest values may reference env vars via ${VAR}
// syntax, which are expanded at config load").
func Load(path string) (*Manifest, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, indexerd.NewError(indexerd.KindConfiguration, "manifest.read", fmt.Sprintf("reading manifest %q", path), err)
	}

	expanded := os.Expand(string(raw), os.Getenv)

	var m Manifest
	if err := yaml.Unmarshal([]byte(expanded), &m); err != nil {
		return nil, indexerd.NewError(indexerd.KindConfiguration, "manifest.parse", fmt.Sprintf("parsing manifest %q", path), err)
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

// Validate checks the fields §6 marks mandatory and rejects an ambiguous
// module selector.
func (m *Manifest) Validate() error {
	switch {
	case m.Namespace == "":
		return indexerd.NewError(indexerd.KindConfiguration, "manifest.validate", "manifest is missing required field \"namespace\"", nil)
	case m.Identifier == "":
		return indexerd.NewError(indexerd.KindConfiguration, "manifest.validate", "manifest is missing required field \"identifier\"", nil)
	case m.GraphQLSchema == "":
		return indexerd.NewError(indexerd.KindConfiguration, "manifest.validate", "manifest is missing required field \"graphql_schema\"", nil)
	case m.Module.Wasm != "" && m.Module.Native != "":
		return indexerd.NewError(indexerd.KindConfiguration, "manifest.validate", "manifest \"module\" may declare at most one of wasm/native", nil)
	case m.StartBlock != nil && m.EndBlock != nil && *m.StartBlock > *m.EndBlock:
		return indexerd.NewError(indexerd.KindConfiguration, "manifest.validate", "manifest \"start_block\" is after \"end_block\"", nil)
	}
	return nil
}
