package sequential

import "os"

import "github.com/goccy/go-yaml"
import "github.com/pkg/errors"

import "github.com/songww/juice/layer"

// InputConfig declares a named input blob and its shape.
type InputConfig struct {
	Name  string `yaml:"name"`
	Shape []int  `yaml:"shape"`
}

// Config describes a network: its inputs and its layers in order.
type Config struct {
	// Name is the name of the network.
	Name string `yaml:"name"`

	// ForceBackward requests gradients for every bottom that allows it,
	// whether or not anything below needs them.
	ForceBackward bool `yaml:"force_backward,omitempty"`

	// Inputs declares the blobs fed from outside.
	Inputs []InputConfig `yaml:"inputs"`

	// Layers are applied in order.
	Layers []layer.Config `yaml:"layers"`
}

// LoadConfig reads a network config from a YAML file.
func LoadConfig(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "reading network config %s", path)
	}
	var cfg Config
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return nil, errors.Wrapf(err, "parsing network config %s", path)
	}
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrapf(err, "network config %s", path)
	}
	return &cfg, nil
}

// Save writes the config as YAML.
func (c *Config) Save(path string) error {
	raw, err := yaml.Marshal(c)
	if err != nil {
		return errors.Wrap(err, "encoding network config")
	}
	return errors.Wrapf(os.WriteFile(path, raw, 0o644), "writing network config %s", path)
}

// Validate checks the config for structural mistakes that New would only
// report later.
func (c *Config) Validate() error {
	if len(c.Inputs) == 0 {
		return errors.New("network has no inputs")
	}
	for _, in := range c.Inputs {
		if in.Name == "" {
			return errors.New("network input without a name")
		}
		if len(in.Shape) == 0 {
			return errors.Errorf("network input %q without a shape", in.Name)
		}
		for _, s := range in.Shape {
			if s <= 0 {
				return errors.Errorf("network input %q has non-positive shape %v", in.Name, in.Shape)
			}
		}
	}
	if len(c.Layers) == 0 {
		return errors.New("network has no layers")
	}
	seen := make(map[string]struct{}, len(c.Layers))
	for i := range c.Layers {
		lc := &c.Layers[i]
		if lc.Name == "" {
			return errors.Errorf("layer %d without a name", i)
		}
		if _, dup := seen[lc.Name]; dup {
			return errors.Errorf("duplicate layer name %q", lc.Name)
		}
		seen[lc.Name] = struct{}{}
		if !lc.CheckPropagateDownLen() {
			return errors.Errorf("layer %q: propagate_down has %d entries for %d bottoms",
				lc.Name, len(lc.PropagateDown), len(lc.Bottoms))
		}
	}
	return nil
}
