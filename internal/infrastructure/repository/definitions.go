package repository

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/dheemanth-hn/stix-filter-gateway/internal/application/dto"
	"github.com/dheemanth-hn/stix-filter-gateway/internal/domain/entity"
	"github.com/dheemanth-hn/stix-filter-gateway/internal/domain/valueobject"
)

// FilterGroupDecoder turns a generic value into a FilterGroup.
type FilterGroupDecoder interface {
	DecodeFilterGroupValue(v interface{}) (valueobject.FilterGroup, error)
}

// Definitions is the content of a stream definitions file.
type Definitions struct {
	Users   []*entity.User
	Streams []*dto.RegisterStreamRequest
}

type definitionsFile struct {
	Users   []userDefinition   `yaml:"users"`
	Streams []streamDefinition `yaml:"streams"`
}

type userDefinition struct {
	ID              string   `yaml:"id"`
	Name            string   `yaml:"name"`
	Capabilities    []string `yaml:"capabilities"`
	AllowedMarkings []string `yaml:"allowed_markings"`
	Organizations   []string `yaml:"organizations"`
}

// streamDefinition carries filters either as a YAML mapping or as a JSON string.
type streamDefinition struct {
	ID      string      `yaml:"id"`
	Name    string      `yaml:"name"`
	Kind    string      `yaml:"kind"`
	Subject string      `yaml:"subject"`
	OwnerID string      `yaml:"owner_id"`
	Filters interface{} `yaml:"filters"`
}

// LoadDefinitions reads a YAML stream definitions file.
func LoadDefinitions(path string, decoder FilterGroupDecoder) (*Definitions, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read stream definitions: %w", err)
	}
	return ParseDefinitions(data, decoder)
}

// ParseDefinitions decodes stream definitions. Filters go through decoder so
// that they get the same structural checks as API input.
func ParseDefinitions(data []byte, decoder FilterGroupDecoder) (*Definitions, error) {
	var file definitionsFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to decode stream definitions: %w", err)
	}

	defs := &Definitions{
		Users:   make([]*entity.User, 0, len(file.Users)),
		Streams: make([]*dto.RegisterStreamRequest, 0, len(file.Streams)),
	}

	for i, u := range file.Users {
		if u.ID == "" {
			return nil, fmt.Errorf("user #%d has no id", i+1)
		}
		defs.Users = append(defs.Users, &entity.User{
			ID:              u.ID,
			Name:            u.Name,
			Capabilities:    u.Capabilities,
			AllowedMarkings: u.AllowedMarkings,
			Organizations:   u.Organizations,
		})
	}

	for i, s := range file.Streams {
		filters := valueobject.FilterGroup{
			Mode:         valueobject.FilterModeAnd,
			Filters:      []valueobject.Filter{},
			FilterGroups: []valueobject.FilterGroup{},
		}
		if s.Filters != nil {
			decoded, err := decoder.DecodeFilterGroupValue(s.Filters)
			if err != nil {
				return nil, fmt.Errorf("stream #%d (%s): %w", i+1, s.Name, err)
			}
			filters = decoded
		}
		subject := s.Subject
		if subject == "" {
			subject = string(valueobject.SubjectStix)
		}

		defs.Streams = append(defs.Streams, &dto.RegisterStreamRequest{
			ID:      s.ID,
			Name:    s.Name,
			Kind:    s.Kind,
			Subject: subject,
			OwnerID: s.OwnerID,
			Filters: filters,
		})
	}

	return defs, nil
}
