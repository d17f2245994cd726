package layer

// Type names a layer implementation.
type Type string

// The layer types.
const (
	Sigmoid Type = "sigmoid"
	ReLU    Type = "relu"
	Linear  Type = "linear"
)

// Config configures one layer of a network.
type Config struct {
	// Name is the name of the layer.
	Name string `yaml:"name"`

	// Type selects the layer implementation.
	Type Type `yaml:"type"`

	// Tops names the blobs the layer produces.
	Tops []string `yaml:"tops,omitempty"`

	// Bottoms names the blobs the layer consumes.
	Bottoms []string `yaml:"bottoms,omitempty"`

	// Params specifies training parameters, one per param blob.
	Params []ParamConfig `yaml:"params,omitempty"`

	// Outputs is the output count of layers with weights (linear).
	Outputs int `yaml:"outputs,omitempty"`

	// PropagateDown specifies on which bottoms backpropagation should be
	// skipped. The length must be either 0 or equal to the number of
	// bottoms.
	PropagateDown []bool `yaml:"propagate_down,omitempty"`
}

// NewConfig creates a layer config of the given name and type.
func NewConfig(name string, typ Type) *Config {
	return &Config{Name: name, Type: typ}
}

// Top returns the name of the requested top blob.
func (c *Config) Top(topID int) (string, bool) {
	if topID < 0 || topID >= len(c.Tops) {
		return "", false
	}
	return c.Tops[topID], true
}

// TopsLen returns the number of top blobs.
func (c *Config) TopsLen() int {
	return len(c.Tops)
}

// Bottom returns the name of the requested bottom blob.
func (c *Config) Bottom(bottomID int) (string, bool) {
	if bottomID < 0 || bottomID >= len(c.Bottoms) {
		return "", false
	}
	return c.Bottoms[bottomID], true
}

// BottomsLen returns the number of bottom blobs.
func (c *Config) BottomsLen() int {
	return len(c.Bottoms)
}

// Param returns the requested param config.
func (c *Config) Param(paramID int) (*ParamConfig, bool) {
	if paramID < 0 || paramID >= len(c.Params) {
		return nil, false
	}
	return &c.Params[paramID], true
}

// ParamsLen returns the number of param configs.
func (c *Config) ParamsLen() int {
	return len(c.Params)
}

// AddTop appends a top blob name.
func (c *Config) AddTop(name string) *Config {
	c.Tops = append(c.Tops, name)
	return c
}

// AddBottom appends a bottom blob name.
func (c *Config) AddBottom(name string) *Config {
	c.Bottoms = append(c.Bottoms, name)
	return c
}

// AddParam appends a param config.
func (c *Config) AddParam(p ParamConfig) *Config {
	c.Params = append(c.Params, p)
	return c
}

// CheckPropagateDownLen reports whether the propagate down length works out.
func (c *Config) CheckPropagateDownLen() bool {
	return len(c.PropagateDown) == 0 || len(c.PropagateDown) == len(c.Bottoms)
}
