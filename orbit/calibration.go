package orbit

/*------------------------------------------------------------------
 *
 * Purpose:	Sensor calibration: converts raw ADC counts from the
 *		microcontroller into acceleration in m/s^2.
 *
 * Description:	Built as a Registry populated from a built-in table plus
 *		optional YAML-loaded entries, rather than scattered literals.
 *
 *------------------------------------------------------------------*/

import (
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

// Profile is an immutable per-model calibration: the affine map from raw
// ADC counts to m/s^2, plus the derived AccelMax (the image of
// AccelUnitMax under that map, exposed for display-range configuration).
type Profile struct {
	Name         string
	AccelUnitMax float64
	VoltMax      float64
	VoltBase     float64
	VoltPerG     float64
	GUnits       float64
	AccelMax     float64
}

// Convert applies the affine conversion to one raw count.
//
//	v = u / (accel_unit_max / volt_max)
//	a = ((v - volt_base) / volt_per_g) * g_units
func (p Profile) Convert(u float64) float64 {
	v := u / (p.AccelUnitMax / p.VoltMax)
	return ((v - p.VoltBase) / p.VoltPerG) * p.GUnits
}

// ConvertAll applies Convert element-wise, allocating a fresh slice.
func (p Profile) ConvertAll(us []int32) []float64 {
	out := make([]float64, len(us))
	for i, u := range us {
		out[i] = p.Convert(float64(u))
	}
	return out
}

func newProfile(name string, accelUnitMax, voltMax, voltBase, voltPerG, gUnits float64) Profile {
	p := Profile{
		Name:         name,
		AccelUnitMax: accelUnitMax,
		VoltMax:      voltMax,
		VoltBase:     voltBase,
		VoltPerG:     voltPerG,
		GUnits:       gUnits,
	}
	p.AccelMax = p.Convert(accelUnitMax)
	return p
}

// Registry holds named sensor profiles, looked up by CLI tag.
type Registry struct {
	profiles map[string]Profile
}

// NewRegistry returns a Registry seeded with the two profiles that ship
// out of the box: am3x-1.5g and am3x-6g, both sourced from
// www.freetronics.com.au/pages/am3x-quickstart-guide.
func NewRegistry() *Registry {
	r := &Registry{profiles: make(map[string]Profile, 2)}
	r.Register(newProfile("am3x-1.5g", 1023, 5, 1.65, 0.8, 9.80665))
	r.Register(newProfile("am3x-6g", 1023, 5, 1.65, 0.206, 9.80665))
	return r
}

// Register adds or replaces a named profile.
func (r *Registry) Register(p Profile) {
	r.profiles[p.Name] = p
}

// Lookup returns the named profile and whether it was found.
func (r *Registry) Lookup(name string) (Profile, bool) {
	p, ok := r.profiles[name]
	return p, ok
}

// Names returns the registered profile names, for CLI usage/validation.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.profiles))
	for n := range r.profiles {
		names = append(names, n)
	}
	return names
}

// yamlProfile mirrors the shape of one entry in a --sensor-profiles file.
type yamlProfile struct {
	AccelUnitMax float64 `yaml:"accel_unit_max"`
	VoltMax      float64 `yaml:"volt_max"`
	VoltBase     float64 `yaml:"volt_base"`
	VoltPerG     float64 `yaml:"volt_per_g"`
	GUnits       float64 `yaml:"g_units"`
}

// LoadYAML merges additional named profiles from a YAML document of the form
//
//	am3x-custom:
//	  accel_unit_max: 1023
//	  volt_max: 5
//	  volt_base: 1.65
//	  volt_per_g: 0.4
//	  g_units: 9.80665
//
// into the registry, overriding any built-in entry with the same name.
// This is a pure enrichment: the registry works identically with zero
// extra profiles loaded.
func (r *Registry) LoadYAML(in io.Reader) error {
	var doc map[string]yamlProfile
	dec := yaml.NewDecoder(in)
	if err := dec.Decode(&doc); err != nil {
		if err == io.EOF {
			return nil
		}
		return fmt.Errorf("orbit: decoding sensor profile YAML: %w", err)
	}
	for name, yp := range doc {
		r.Register(newProfile(name, yp.AccelUnitMax, yp.VoltMax, yp.VoltBase, yp.VoltPerG, yp.GUnits))
	}
	return nil
}
