package layer

import "github.com/pkg/errors"

import "github.com/songww/juice/blob"

// DimCheckMode specifies the shared weights behaviour.
type DimCheckMode byte

const (
	// Strict requires that shapes match.
	Strict DimCheckMode = iota
	// Permissive requires only the count of weights to match.
	Permissive
)

// MarshalText renders the mode for config files.
func (m DimCheckMode) MarshalText() ([]byte, error) {
	switch m {
	case Strict:
		return []byte("strict"), nil
	case Permissive:
		return []byte("permissive"), nil
	}
	return nil, errors.Errorf("layer: unknown dim check mode %d", m)
}

// UnmarshalText parses the mode from config files.
func (m *DimCheckMode) UnmarshalText(text []byte) error {
	switch string(text) {
	case "", "strict":
		*m = Strict
	case "permissive":
		*m = Permissive
	default:
		return errors.Errorf("layer: unknown dim check mode %q", text)
	}
	return nil
}

// ParamConfig specifies training parameters: multipliers on the global
// learning constants, and the name and mode used for weight sharing.
type ParamConfig struct {
	// Name names the param blob. Useful for sharing parameters among
	// layers, but never required otherwise. To share a parameter between
	// two layers, give it a non-empty name.
	Name string `yaml:"name,omitempty"`

	// ShareMode decides whether shared weights must have the same shape,
	// or just the same count.
	ShareMode DimCheckMode `yaml:"share_mode,omitempty"`

	// LrMult is the multiplier on the global learning rate for this
	// parameter. Unset means 1.0.
	LrMult *float32 `yaml:"lr_mult,omitempty"`

	// DecayMult is the multiplier on the global weight decay for this
	// parameter. Unset means 1.0.
	DecayMult *float32 `yaml:"decay_mult,omitempty"`
}

// GetLrMult returns the learning rate multiplier, 1.0 when unset.
func (p *ParamConfig) GetLrMult() float32 {
	if p == nil || p.LrMult == nil {
		return 1.0
	}
	return *p.LrMult
}

// GetDecayMult returns the weight decay multiplier, 1.0 when unset.
func (p *ParamConfig) GetDecayMult() float32 {
	if p == nil || p.DecayMult == nil {
		return 1.0
	}
	return *p.DecayMult
}

// CheckDimensions checks the dimensions of two blobs according to the share
// mode. Returns an error on a count or shape mismatch.
func (p *ParamConfig) CheckDimensions(blobOne, blobTwo *blob.Blob, paramName, ownerName, layerName string) error {
	switch p.ShareMode {
	case Permissive:
		if blobOne.Capacity() != blobTwo.Capacity() {
			return errors.Errorf(
				"cannot share param %q owned by layer %q with layer %q: count mismatch, owner layer param shape is %s, sharing layer param shape is %s",
				paramName, ownerName, layerName, blobTwo.ShapeString(), blobOne.ShapeString())
		}
	case Strict:
		if !blobOne.ShapeEquals(blobTwo) {
			return errors.Errorf(
				"cannot share param %q owned by layer %q with layer %q: shape mismatch, owner layer param shape is %s, sharing layer expects param shape %s",
				paramName, ownerName, layerName, blobTwo.ShapeString(), blobOne.ShapeString())
		}
	}
	return nil
}
