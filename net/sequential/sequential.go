// Package sequential assembles layers into a network that runs them in
// order, forward and backward.
package sequential

import "fmt"

import "github.com/pkg/errors"

import "github.com/songww/juice/backend"
import "github.com/songww/juice/blob"
import "github.com/songww/juice/layer"

// Network runs a stack of layers over a registry of named blobs.
type Network struct {
	be  backend.Backend
	cfg *Config

	blobs     map[string]*blob.Locked
	blobNames []string

	layers    []*layer.Layer
	bottoms   [][]*blob.Locked
	tops      [][]*blob.Locked
	propDown  [][]bool
	inputs    []*blob.Locked
	output    *blob.Locked

	params      []*blob.Locked
	paramLr     []float32
	paramDecay  []float32
	paramOwners []string
}

type paramOwner struct {
	layerName string
	cfg       *layer.ParamConfig
	locked    *blob.Locked
}

// New builds a network from a config against a backend. Bottoms must name
// blobs produced earlier; anonymous tops are created for workers that allow
// them; params with equal non-empty names are shared after a dimension
// check. The final layer's first top carries loss weight 1.
func New(cfg *Config, be backend.Backend) (*Network, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	n := &Network{
		be:    be,
		cfg:   cfg,
		blobs: make(map[string]*blob.Locked),
	}

	shapes := make(map[string][]int)
	needBackward := make(map[string]bool)
	for _, in := range cfg.Inputs {
		if _, dup := n.blobs[in.Name]; dup {
			return nil, errors.Errorf("duplicate input blob %q", in.Name)
		}
		locked := blob.NewLocked(blob.New(in.Shape...))
		n.blobs[in.Name] = locked
		n.blobNames = append(n.blobNames, in.Name)
		n.inputs = append(n.inputs, locked)
		shapes[in.Name] = in.Shape
	}

	owners := make(map[string]*paramOwner)

	for i := range cfg.Layers {
		lc := &cfg.Layers[i]
		l, err := layer.FromConfig(lc)
		if err != nil {
			return nil, err
		}

		bottoms, bottomNames, err := n.resolveBottoms(lc)
		if err != nil {
			return nil, err
		}
		counts, _ := l.Worker.(layer.TopBlobCounts)
		if counts != nil {
			if want := counts.ExactNumBottomBlobs(); want > 0 && want != len(bottoms) {
				return nil, errors.Errorf("layer %q needs exactly %d bottoms, config names %d",
					lc.Name, want, len(bottoms))
			}
		}

		var bottomShape []int
		if len(bottomNames) > 0 {
			bottomShape = shapes[bottomNames[0]]
		}
		if init, ok := l.Worker.(layer.ParamInitializer); ok {
			paramBlobs, err := init.InitParams(lc, bottomShape)
			if err != nil {
				return nil, err
			}
			if err := n.shareParams(l, lc, paramBlobs, owners); err != nil {
				return nil, err
			}
		}

		topNames, err := n.topNames(lc, counts)
		if err != nil {
			return nil, err
		}
		topShape := bottomShape
		if shaper, ok := l.Worker.(layer.TopShaper); ok {
			topShape = shaper.TopShape(lc, bottomShape)
		}
		tops := make([]*blob.Locked, len(topNames))
		for ti, name := range topNames {
			if _, dup := n.blobs[name]; dup {
				return nil, errors.Errorf("layer %q produces blob %q which already exists (in-place layers are not supported)",
					lc.Name, name)
			}
			locked := blob.NewLocked(blob.New(topShape...))
			n.blobs[name] = locked
			n.blobNames = append(n.blobNames, name)
			shapes[name] = topShape
			tops[ti] = locked
		}

		propDown := n.propagateDown(l, lc, bottomNames, needBackward)
		layerNeeds := len(l.Blobs) > 0
		for _, dn := range propDown {
			layerNeeds = layerNeeds || dn
		}
		for _, name := range topNames {
			needBackward[name] = layerNeeds
		}

		n.layers = append(n.layers, l)
		n.bottoms = append(n.bottoms, bottoms)
		n.tops = append(n.tops, tops)
		n.propDown = append(n.propDown, propDown)
		if len(tops) > 0 {
			n.output = tops[0]
		}
	}

	if last := n.layers[len(n.layers)-1]; len(n.tops[len(n.tops)-1]) > 0 {
		last.SetLoss(0, 1)
	}
	return n, nil
}

func (n *Network) resolveBottoms(lc *layer.Config) ([]*blob.Locked, []string, error) {
	bottoms := make([]*blob.Locked, 0, lc.BottomsLen())
	names := make([]string, 0, lc.BottomsLen())
	for i := 0; i < lc.BottomsLen(); i++ {
		name, _ := lc.Bottom(i)
		locked, ok := n.blobs[name]
		if !ok {
			return nil, nil, errors.Errorf("layer %q consumes unknown blob %q", lc.Name, name)
		}
		bottoms = append(bottoms, locked)
		names = append(names, name)
	}
	return bottoms, names, nil
}

func (n *Network) topNames(lc *layer.Config, counts layer.TopBlobCounts) ([]string, error) {
	names := make([]string, 0, lc.TopsLen())
	for i := 0; i < lc.TopsLen(); i++ {
		name, _ := lc.Top(i)
		names = append(names, name)
	}
	if counts == nil {
		return names, nil
	}
	want := counts.ExactNumTopBlobs()
	if want == 0 {
		want = counts.MinTopBlobs()
	}
	if len(names) < want {
		if !counts.AutoTopBlobs() {
			return nil, errors.Errorf("layer %q needs %d tops, config names %d",
				lc.Name, want, len(names))
		}
		for i := len(names); i < want; i++ {
			names = append(names, fmt.Sprintf("(automatic top %d of layer %s)", i, lc.Name))
		}
	}
	if want := counts.ExactNumTopBlobs(); want > 0 && len(names) != want {
		return nil, errors.Errorf("layer %q needs exactly %d tops, config names %d",
			lc.Name, want, len(names))
	}
	return names, nil
}

func (n *Network) propagateDown(l *layer.Layer, lc *layer.Config, bottomNames []string, needBackward map[string]bool) []bool {
	propDown := make([]bool, len(bottomNames))
	forcer, _ := l.Worker.(layer.ForceBackwarder)
	for i, name := range bottomNames {
		switch {
		case len(lc.PropagateDown) == len(bottomNames):
			propDown[i] = lc.PropagateDown[i]
		case needBackward[name]:
			propDown[i] = true
		case n.cfg.ForceBackward:
			propDown[i] = forcer == nil || forcer.AllowForceBackward(i)
		}
	}
	return propDown
}

func (n *Network) shareParams(l *layer.Layer, lc *layer.Config, paramBlobs []*blob.Blob, owners map[string]*paramOwner) error {
	for i, pb := range paramBlobs {
		pc, _ := lc.Param(i)
		if pc == nil || pc.Name == "" {
			locked := blob.NewLocked(pb)
			l.Blobs = append(l.Blobs, locked)
			n.addOwnedParam(lc.Name, locked, pc)
			continue
		}
		owner, shared := owners[pc.Name]
		if !shared {
			locked := blob.NewLocked(pb)
			l.Blobs = append(l.Blobs, locked)
			owners[pc.Name] = &paramOwner{layerName: lc.Name, cfg: pc, locked: locked}
			n.addOwnedParam(lc.Name, locked, pc)
			continue
		}
		ownerBlob := owner.locked.RLock()
		err := pc.CheckDimensions(pb, ownerBlob, pc.Name, owner.layerName, lc.Name)
		owner.locked.RUnlock()
		if err != nil {
			return err
		}
		l.Blobs = append(l.Blobs, owner.locked)
	}
	return nil
}

func (n *Network) addOwnedParam(layerName string, locked *blob.Locked, pc *layer.ParamConfig) {
	n.params = append(n.params, locked)
	n.paramLr = append(n.paramLr, pc.GetLrMult())
	n.paramDecay = append(n.paramDecay, pc.GetDecayMult())
	n.paramOwners = append(n.paramOwners, layerName)
}

// NewSharing builds another network from the same config that shares this
// network's param blobs. Intermediate blobs stay private, so shared-weight
// networks can run forward concurrently.
func (n *Network) NewSharing() (*Network, error) {
	nn, err := New(n.cfg, n.be)
	if err != nil {
		return nil, err
	}
	if len(nn.params) != len(n.params) {
		return nil, errors.Errorf("sharing rebuild produced %d params, want %d", len(nn.params), len(n.params))
	}
	for i := range nn.params {
		old := nn.params[i]
		for _, l := range nn.layers {
			for bi, b := range l.Blobs {
				if b == old {
					l.Blobs[bi] = n.params[i]
				}
			}
		}
		nn.params[i] = n.params[i]
	}
	return nn, nil
}

// SetInput copies values into input blob i.
func (n *Network) SetInput(i int, values []float32) error {
	if i < 0 || i >= len(n.inputs) {
		return errors.Errorf("network %q has no input %d", n.cfg.Name, i)
	}
	var err error
	n.inputs[i].With(func(b *blob.Blob) {
		if len(values) != b.Count() {
			err = errors.Errorf("input %d expects %d values, got %d", i, b.Count(), len(values))
			return
		}
		copy(b.Data(), values)
	})
	return err
}

// Forward runs the layers in order and returns the summed loss
// contributions of the weighted tops.
func (n *Network) Forward() (loss float32) {
	for i, l := range n.layers {
		loss += l.Forward(n.be, n.bottoms[i], n.tops[i])
	}
	return
}

// Backward runs the layers in reverse order, honoring propagate down.
func (n *Network) Backward() {
	for i := len(n.layers) - 1; i >= 0; i-- {
		n.layers[i].Backward(n.be, n.tops[i], n.propDown[i], n.bottoms[i])
	}
}

// Output returns a copy of the data of the final layer's first top.
func (n *Network) Output() []float32 {
	var out []float32
	n.output.WithRead(func(b *blob.Blob) {
		out = append(out, b.Data()...)
	})
	return out
}

// OutputBlob returns the final layer's first top. The solver writes the
// objective gradient into its diff half.
func (n *Network) OutputBlob() *blob.Locked {
	return n.output
}

// Blob returns the named blob.
func (n *Network) Blob(name string) (*blob.Locked, bool) {
	b, ok := n.blobs[name]
	return b, ok
}

// Layers returns the layers in execution order.
func (n *Network) Layers() []*layer.Layer {
	return n.layers
}

// Params returns the trainable blobs, shared params once.
func (n *Network) Params() []*blob.Locked {
	return n.params
}

// ParamMults returns the learning rate and weight decay multipliers
// aligned with Params.
func (n *Network) ParamMults() (lr, decay []float32) {
	return n.paramLr, n.paramDecay
}

// ZeroParamDiffs clears the gradients of all params.
func (n *Network) ZeroParamDiffs() {
	for _, p := range n.params {
		p.With(func(b *blob.Blob) { b.ZeroDiff() })
	}
}

// Backend returns the backend the network runs on.
func (n *Network) Backend() backend.Backend {
	return n.be
}

// Name returns the configured network name.
func (n *Network) Name() string {
	return n.cfg.Name
}
