package store

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/everforgeworks/roadnav/internal/route"
)

type routeFile struct {
	ID       string                  `yaml:"id,omitempty"`
	Name     string                  `yaml:"name"`
	World    string                  `yaml:"world"`
	Sport    string                  `yaml:"sport"`
	Loop     bool                    `yaml:"loop,omitempty"`
	Sequence []route.SegmentSequence `yaml:"sequence"`
}

// RouteStore loads and saves planned routes as YAML files.
type RouteStore struct{}

func NewRouteStore() *RouteStore {
	return &RouteStore{}
}

// LoadFrom reads a route. The returned route is unstarted.
func (RouteStore) LoadFrom(path string) (*route.PlannedRoute, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading route file: %w", err)
	}
	var f routeFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing route YAML: %w", err)
	}

	r, err := route.New(f.Name, f.Sequence)
	if err != nil {
		return nil, err
	}
	if f.ID != "" {
		r.ID = f.ID
	}
	r.World = f.World
	r.Sport = f.Sport
	r.Loop = f.Loop
	return r, nil
}

// Store writes the route definition; progression state is not persisted.
func (RouteStore) Store(r *route.PlannedRoute, path string) error {
	data, err := yaml.Marshal(routeFile{
		ID:       r.ID,
		Name:     r.Name,
		World:    r.World,
		Sport:    r.Sport,
		Loop:     r.Loop,
		Sequence: r.Sequence,
	})
	if err != nil {
		return fmt.Errorf("encoding route: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
