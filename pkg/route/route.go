// Package route loads waypoint lists from YAML files for cmd/truckctl's
// route subcommand, grounded on the teacher's scenario parser: read the
// file, unmarshal, validate required fields before handing the result
// back to the caller.
package route

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/jihwankim/haultruck/pkg/tasks"
)

// File is the on-disk shape of a waypoint list document.
type File struct {
	Name      string         `yaml:"name"`
	Waypoints []WaypointSpec `yaml:"waypoints"`
}

// WaypointSpec is one waypoint entry as written in YAML.
type WaypointSpec struct {
	X float64 `yaml:"x"`
	Y float64 `yaml:"y"`
}

// Load reads and validates a waypoint list from path.
func Load(path string) ([]tasks.Waypoint, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read route file: %w", err)
	}
	return Parse(data)
}

// Parse unmarshals a waypoint list document and validates it has at
// least one waypoint.
func Parse(data []byte) ([]tasks.Waypoint, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse route file: %w", err)
	}
	if len(f.Waypoints) == 0 {
		return nil, fmt.Errorf("route %q has no waypoints", f.Name)
	}

	out := make([]tasks.Waypoint, len(f.Waypoints))
	for i, w := range f.Waypoints {
		out[i] = tasks.Waypoint{X: w.X, Y: w.Y}
	}
	return out, nil
}
