package sequential

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/songww/juice/backend"
	"github.com/songww/juice/blob"
	"github.com/songww/juice/layer"
)

func mlpConfig() *Config {
	return &Config{
		Name: "test-mlp",
		Inputs: []InputConfig{
			{Name: "data", Shape: []int{3}},
		},
		Layers: []layer.Config{
			{Name: "fc1", Type: layer.Linear, Outputs: 4, Bottoms: []string{"data"}, Tops: []string{"fc1"}},
			{Name: "act1", Type: layer.Sigmoid, Bottoms: []string{"fc1"}, Tops: []string{"act1"}},
			{Name: "fc2", Type: layer.Linear, Outputs: 2, Bottoms: []string{"act1"}, Tops: []string{"fc2"}},
			{Name: "out", Type: layer.Sigmoid, Bottoms: []string{"fc2"}, Tops: []string{"out"}},
		},
	}
}

func TestNewBuildsBlobs(t *testing.T) {
	net, err := New(mlpConfig(), backend.Default())
	require.NoError(t, err)

	for _, name := range []string{"data", "fc1", "act1", "fc2", "out"} {
		_, ok := net.Blob(name)
		assert.True(t, ok, "blob %q missing", name)
	}
	assert.Len(t, net.Layers(), 4)
	assert.Len(t, net.Params(), 4, "two linear layers, weight and bias each")

	out, ok := net.Blob("out")
	require.True(t, ok)
	out.WithRead(func(b *blob.Blob) {
		assert.Equal(t, 2, b.Count())
	})
}

func TestNewAnonymousTops(t *testing.T) {
	cfg := mlpConfig()
	// drop the last layer's top name; sigmoid auto-creates it
	cfg.Layers[3].Tops = nil
	net, err := New(cfg, backend.Default())
	require.NoError(t, err)
	require.Len(t, net.Layers(), 4)
	assert.Equal(t, 2, len(net.Output()))
}

func TestNewUnknownBottom(t *testing.T) {
	cfg := mlpConfig()
	cfg.Layers[2].Bottoms = []string{"no-such-blob"}
	_, err := New(cfg, backend.Default())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no-such-blob")
}

func TestNewRejectsInPlace(t *testing.T) {
	cfg := mlpConfig()
	cfg.Layers[1].Tops = []string{"fc1"}
	_, err := New(cfg, backend.Default())
	require.Error(t, err)

	cfg = mlpConfig()
	cfg.Layers[2].Bottoms = []string{"act1"}
	cfg.Layers[2].Tops = []string{"data"}
	_, err = New(cfg, backend.Default())
	require.Error(t, err, "redefining an input blob must fail")
}

func TestSetInputLengthCheck(t *testing.T) {
	net, err := New(mlpConfig(), backend.Default())
	require.NoError(t, err)
	assert.Error(t, net.SetInput(0, []float32{1, 2}))
	assert.Error(t, net.SetInput(1, []float32{1, 2, 3}))
	assert.NoError(t, net.SetInput(0, []float32{1, 2, 3}))
}

func TestForwardBackwardGradient(t *testing.T) {
	net, err := New(mlpConfig(), backend.Default())
	require.NoError(t, err)

	input := []float32{0.2, -0.4, 0.8}
	require.NoError(t, net.SetInput(0, input))
	net.Forward()

	// objective: first output value; its gradient seeds the backward pass
	net.OutputBlob().With(func(b *blob.Blob) {
		b.ZeroDiff()
		b.Diff()[0] = 1
	})
	net.ZeroParamDiffs()
	net.Backward()

	// finite difference check on one weight of fc1
	param := net.Params()[0]
	const eps = 1e-2
	var analytic float64
	param.With(func(b *blob.Blob) {
		analytic = float64(b.Diff()[1])
		b.Data()[1] += eps
	})
	require.NoError(t, net.SetInput(0, input))
	net.Forward()
	plus := float64(net.Output()[0])
	param.With(func(b *blob.Blob) {
		b.Data()[1] -= 2 * eps
	})
	require.NoError(t, net.SetInput(0, input))
	net.Forward()
	minus := float64(net.Output()[0])

	numeric := (plus - minus) / (2 * eps)
	assert.InDelta(t, numeric, analytic, 1e-2,
		"analytic gradient %v vs finite difference %v", analytic, numeric)
}

func TestWeightSharing(t *testing.T) {
	cfg := &Config{
		Name:   "shared",
		Inputs: []InputConfig{{Name: "data", Shape: []int{3}}},
		Layers: []layer.Config{
			{Name: "a", Type: layer.Linear, Outputs: 3, Bottoms: []string{"data"}, Tops: []string{"a"},
				Params: []layer.ParamConfig{{Name: "w"}, {Name: "b"}}},
			{Name: "b", Type: layer.Linear, Outputs: 3, Bottoms: []string{"a"}, Tops: []string{"b"},
				Params: []layer.ParamConfig{{Name: "w"}, {Name: "b"}}},
		},
	}
	net, err := New(cfg, backend.Default())
	require.NoError(t, err)
	assert.Len(t, net.Params(), 2, "shared params counted once")
	assert.Same(t, net.Layers()[0].Blobs[0], net.Layers()[1].Blobs[0])
}

func TestWeightSharingDimMismatch(t *testing.T) {
	cfg := &Config{
		Name:   "shared",
		Inputs: []InputConfig{{Name: "data", Shape: []int{3}}},
		Layers: []layer.Config{
			{Name: "a", Type: layer.Linear, Outputs: 3, Bottoms: []string{"data"}, Tops: []string{"a"},
				Params: []layer.ParamConfig{{Name: "w"}}},
			{Name: "b", Type: layer.Linear, Outputs: 2, Bottoms: []string{"a"}, Tops: []string{"b"},
				Params: []layer.ParamConfig{{Name: "w"}}},
		},
	}
	_, err := New(cfg, backend.Default())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "mismatch")
}

func TestNewSharingRunsIndependently(t *testing.T) {
	net, err := New(mlpConfig(), backend.Default())
	require.NoError(t, err)
	twin, err := net.NewSharing()
	require.NoError(t, err)

	input := []float32{0.5, -0.5, 0.25}
	require.NoError(t, net.SetInput(0, input))
	net.Forward()
	require.NoError(t, twin.SetInput(0, input))
	twin.Forward()

	a, b := net.Output(), twin.Output()
	require.Len(t, b, len(a))
	for i := range a {
		assert.Equal(t, a[i], b[i], "shared-weight twin diverged at %d", i)
	}
}

func TestValidate(t *testing.T) {
	assert.Error(t, (&Config{}).Validate())
	assert.Error(t, (&Config{Inputs: []InputConfig{{Name: "d", Shape: []int{1}}}}).Validate())

	dup := mlpConfig()
	dup.Layers[1].Name = "fc1"
	assert.Error(t, dup.Validate())

	bad := mlpConfig()
	bad.Inputs[0].Shape = []int{0}
	assert.Error(t, bad.Validate())

	assert.NoError(t, mlpConfig().Validate())
}

func TestLoadConfigYAML(t *testing.T) {
	path := t.TempDir() + "/net.yaml"
	require.NoError(t, mlpConfig().Save(path))
	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "test-mlp", cfg.Name)
	require.Len(t, cfg.Layers, 4)
	assert.Equal(t, layer.Linear, cfg.Layers[0].Type)
	assert.Equal(t, 4, cfg.Layers[0].Outputs)

	_, err = LoadConfig(t.TempDir() + "/missing.yaml")
	assert.Error(t, err)
}

func TestWeightsRoundtrip(t *testing.T) {
	net, err := New(mlpConfig(), backend.Default())
	require.NoError(t, err)
	input := []float32{0.1, 0.2, 0.3}
	require.NoError(t, net.SetInput(0, input))
	net.Forward()
	before := net.Output()

	path := t.TempDir() + "/weights.json.lzw"
	require.NoError(t, net.WriteCompressedWeightsToFile(path))

	// a fresh network starts from different random weights
	restored, err := New(mlpConfig(), backend.Default())
	require.NoError(t, err)
	require.NoError(t, restored.ReadCompressedWeightsFromFile(path))
	require.NoError(t, restored.SetInput(0, input))
	restored.Forward()
	after := restored.Output()

	require.Len(t, after, len(before))
	for i := range before {
		if math.Abs(float64(before[i]-after[i])) > 1e-7 {
			t.Errorf("output %d diverged after reload: %v vs %v", i, before[i], after[i])
		}
	}
}

func TestWeightsShapeMismatch(t *testing.T) {
	net, err := New(mlpConfig(), backend.Default())
	require.NoError(t, err)
	path := t.TempDir() + "/weights.json.lzw"
	require.NoError(t, net.WriteCompressedWeightsToFile(path))

	other := mlpConfig()
	other.Layers[0].Outputs = 5
	wrong, err := New(other, backend.Default())
	require.NoError(t, err)
	assert.Error(t, wrong.ReadCompressedWeightsFromFile(path))
}
