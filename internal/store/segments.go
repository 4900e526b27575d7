/*
Package store
File: segments.go
Description:
    YAML-backed segment store. Segments of a world live in
    <dir>/segments-<world>.yaml and markers (climbs, sprints) in
    <dir>/markers-<world>.yaml. The engine only ever reads them.
*/

package store

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/everforgeworks/roadnav/internal/geo"
	"github.com/everforgeworks/roadnav/internal/segment"
)

type segmentFile struct {
	Segments []segmentRecord `yaml:"segments"`
}

type segmentRecord struct {
	ID      string         `yaml:"id"`
	Name    string         `yaml:"name,omitempty"`
	Sport   string         `yaml:"sport,omitempty"`
	Points  [][3]float64   `yaml:"points,flow"`
	NextAtA []segment.Turn `yaml:"next_at_a,omitempty"`
	NextAtB []segment.Turn `yaml:"next_at_b,omitempty"`
}

// SegmentStore reads segment files from a directory.
type SegmentStore struct {
	dir string
}

func NewSegmentStore(dir string) *SegmentStore {
	return &SegmentStore{dir: dir}
}

// LoadSegments returns the segments of a world usable for sport.
// Segments without a sport are shared by all sports.
func (s *SegmentStore) LoadSegments(world geo.WorldID, sport string) ([]*segment.Segment, error) {
	records, err := s.read(fmt.Sprintf("segments-%s.yaml", world))
	if err != nil {
		return nil, err
	}
	var out []*segment.Segment
	for _, r := range records {
		if r.Sport != "" && sport != "" && r.Sport != sport {
			continue
		}
		seg, err := r.toSegment()
		if err != nil {
			return nil, err
		}
		out = append(out, seg)
	}
	return out, nil
}

// LoadMarkers returns the markers of a world. A world without a marker file has no markers.
func (s *SegmentStore) LoadMarkers(world geo.WorldID) ([]*segment.Segment, error) {
	records, err := s.read(fmt.Sprintf("markers-%s.yaml", world))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	out := make([]*segment.Segment, 0, len(records))
	for _, r := range records {
		seg, err := r.toSegment()
		if err != nil {
			return nil, err
		}
		out = append(out, seg)
	}
	return out, nil
}

// SaveSegments writes segments for a world, replacing the existing file.
func (s *SegmentStore) SaveSegments(world geo.WorldID, segments []*segment.Segment) error {
	var f segmentFile
	for _, seg := range segments {
		r := segmentRecord{ID: seg.ID, Name: seg.Name, Sport: seg.Sport, NextAtA: seg.NextAtA, NextAtB: seg.NextAtB}
		for _, p := range seg.Points {
			r.Points = append(r.Points, [3]float64{p.Latitude, p.Longitude, p.Altitude})
		}
		f.Segments = append(f.Segments, r)
	}

	data, err := yaml.Marshal(f)
	if err != nil {
		return fmt.Errorf("encoding segments: %w", err)
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(s.dir, fmt.Sprintf("segments-%s.yaml", world)), data, 0o644)
}

func (s *SegmentStore) read(name string) ([]segmentRecord, error) {
	data, err := os.ReadFile(filepath.Join(s.dir, name))
	if err != nil {
		return nil, err
	}
	var f segmentFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", name, err)
	}
	return f.Segments, nil
}

func (r segmentRecord) toSegment() (*segment.Segment, error) {
	points := make([]geo.GeoPoint, len(r.Points))
	for i, p := range r.Points {
		points[i] = geo.NewGeoPoint(p[0], p[1], p[2])
	}
	seg, err := segment.NewSegment(r.ID, points, r.NextAtA, r.NextAtB)
	if err != nil {
		return nil, err
	}
	seg.Name = r.Name
	seg.Sport = r.Sport
	return seg, nil
}
