package layer

import (
	"math"
	"testing"

	"github.com/songww/juice/backend"
	"github.com/songww/juice/blob"
)

func TestFromConfigUnknownType(t *testing.T) {
	if _, err := FromConfig(NewConfig("x", Type("perceptron"))); err == nil {
		t.Fatal("unknown layer type accepted")
	}
}

func TestFromConfigPropagateDownMismatch(t *testing.T) {
	cfg := NewConfig("x", Sigmoid).AddBottom("a")
	cfg.PropagateDown = []bool{true, false}
	if _, err := FromConfig(cfg); err == nil {
		t.Fatal("bad propagate_down length accepted")
	}
}

func TestSetParamPropagateDown(t *testing.T) {
	l, err := FromConfig(NewConfig("x", Sigmoid))
	if err != nil {
		t.Fatal(err)
	}
	if !l.ParamPropagateDown(3) {
		t.Error("default is not true")
	}
	l.SetParamPropagateDown(2, false)
	if l.ParamPropagateDown(2) {
		t.Error("SetParamPropagateDown(2, false) not recorded")
	}
	if !l.ParamPropagateDown(0) || !l.ParamPropagateDown(1) {
		t.Error("resize did not default earlier entries to true")
	}
}

func TestLossWeights(t *testing.T) {
	l, err := FromConfig(NewConfig("x", Sigmoid))
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := l.Loss(0); ok {
		t.Error("unset loss weight reported present")
	}
	l.SetLoss(1, 0.5)
	if w, ok := l.Loss(1); !ok || w != 0.5 {
		t.Errorf("Loss(1) = %v, %v", w, ok)
	}
	if w, ok := l.Loss(0); !ok || w != 0 {
		t.Errorf("Loss(0) = %v, %v after SetLoss(1)", w, ok)
	}
}

func TestSigmoidForwardLoss(t *testing.T) {
	be := backend.Default()
	l, err := FromConfig(NewConfig("act", Sigmoid).AddBottom("in").AddTop("out"))
	if err != nil {
		t.Fatal(err)
	}
	bottom := blob.NewLocked(blob.FromData([]float32{0, 1000, -1000}, 3))
	top := blob.NewLocked(blob.New(3))

	loss := l.Forward(be, []*blob.Locked{bottom}, []*blob.Locked{top})
	if loss != 0 {
		t.Errorf("unweighted forward loss = %v, want 0", loss)
	}
	top.WithRead(func(b *blob.Blob) {
		data := b.Data()
		if data[0] != 0.5 || data[1] < 0.999 || data[2] > 0.001 {
			t.Errorf("sigmoid output = %v", data)
		}
	})

	// weight the top and plant a diff: loss becomes dot(data, diff)
	l.SetLoss(0, 1)
	top.With(func(b *blob.Blob) {
		copy(b.Diff(), []float32{2, 0, 0})
	})
	loss = l.Forward(be, []*blob.Locked{bottom}, []*blob.Locked{top})
	if loss != 1 {
		t.Errorf("weighted forward loss = %v, want 1", loss)
	}
}

func TestSigmoidBackwardMatchesFiniteDifference(t *testing.T) {
	be := backend.Default()
	l, err := FromConfig(NewConfig("act", Sigmoid).AddBottom("in").AddTop("out"))
	if err != nil {
		t.Fatal(err)
	}
	in := []float32{0.3, -0.7, 1.2}
	bottom := blob.NewLocked(blob.FromData(in, 3))
	top := blob.NewLocked(blob.New(3))

	l.Forward(be, []*blob.Locked{bottom}, []*blob.Locked{top})
	top.With(func(b *blob.Blob) {
		for i := range b.Diff() {
			b.Diff()[i] = 1
		}
	})
	l.Backward(be, []*blob.Locked{top}, []bool{true}, []*blob.Locked{bottom})

	const eps = 1e-3
	bottom.WithRead(func(b *blob.Blob) {
		for i, x := range in {
			plus := 1 / (1 + math.Exp(-float64(x)-eps))
			minus := 1 / (1 + math.Exp(-float64(x)+eps))
			want := (plus - minus) / (2 * eps)
			got := float64(b.Diff()[i])
			if math.Abs(got-want) > 1e-4 {
				t.Errorf("d sigmoid/dx at %v: got %v, want %v", x, got, want)
			}
		}
	})
}

func TestSigmoidBackwardHonorsPropagateDown(t *testing.T) {
	be := backend.Default()
	l, err := FromConfig(NewConfig("act", Sigmoid).AddBottom("in").AddTop("out"))
	if err != nil {
		t.Fatal(err)
	}
	bottom := blob.NewLocked(blob.FromData([]float32{1, 2}, 2))
	top := blob.NewLocked(blob.New(2))
	l.Forward(be, []*blob.Locked{bottom}, []*blob.Locked{top})
	top.With(func(b *blob.Blob) {
		b.Diff()[0] = 5
		b.Diff()[1] = 5
	})
	l.Backward(be, []*blob.Locked{top}, []bool{false}, []*blob.Locked{bottom})
	bottom.WithRead(func(b *blob.Blob) {
		if b.Diff()[0] != 0 || b.Diff()[1] != 0 {
			t.Errorf("gradient written despite propagate_down false: %v", b.Diff())
		}
	})
}

func TestLinearForwardBackward(t *testing.T) {
	be := backend.Default()
	cfg := NewConfig("fc", Linear).AddBottom("in").AddTop("out")
	cfg.Outputs = 2
	l, err := FromConfig(cfg)
	if err != nil {
		t.Fatal(err)
	}
	worker := l.Worker.(*LinearWorker)
	params, err := worker.InitParams(cfg, []int{3})
	if err != nil {
		t.Fatal(err)
	}
	// fixed weights: rows [1 2 3], [0 -1 1]; bias [0.5, -0.5]
	copy(params[0].Data(), []float32{1, 2, 3, 0, -1, 1})
	copy(params[1].Data(), []float32{0.5, -0.5})
	l.Blobs = []*blob.Locked{blob.NewLocked(params[0]), blob.NewLocked(params[1])}

	bottom := blob.NewLocked(blob.FromData([]float32{1, 1, 2}, 3))
	top := blob.NewLocked(blob.New(2))
	l.Forward(be, []*blob.Locked{bottom}, []*blob.Locked{top})
	top.WithRead(func(b *blob.Blob) {
		want := []float32{1 + 2 + 6 + 0.5, 0 - 1 + 2 - 0.5}
		for i := range want {
			if b.Data()[i] != want[i] {
				t.Errorf("linear output = %v, want %v", b.Data(), want)
			}
		}
	})

	top.With(func(b *blob.Blob) {
		copy(b.Diff(), []float32{1, -1})
	})
	l.Backward(be, []*blob.Locked{top}, []bool{true}, []*blob.Locked{bottom})

	// bottom diff = W^T * topDiff
	bottom.WithRead(func(b *blob.Blob) {
		want := []float32{1 - 0, 2 + 1, 3 - 1}
		for i := range want {
			if b.Diff()[i] != want[i] {
				t.Errorf("bottom diff = %v, want %v", b.Diff(), want)
			}
		}
	})
	// weight diff row j = topDiff[j] * input; bias diff = topDiff
	if wd := params[0].Diff(); wd[0] != 1 || wd[2] != 2 || wd[3] != -1 || wd[5] != -2 {
		t.Errorf("weight diff = %v", wd)
	}
	if bd := params[1].Diff(); bd[0] != 1 || bd[1] != -1 {
		t.Errorf("bias diff = %v", bd)
	}
}

func TestLinearInitParams(t *testing.T) {
	cfg := NewConfig("fc", Linear)
	cfg.Outputs = 4
	w := &LinearWorker{}
	params, err := w.InitParams(cfg, []int{5})
	if err != nil {
		t.Fatal(err)
	}
	if len(params) != 2 {
		t.Fatalf("got %d params, want 2", len(params))
	}
	if params[0].Count() != 20 || params[1].Count() != 4 {
		t.Errorf("param shapes %s and %s", params[0].ShapeString(), params[1].ShapeString())
	}
	scale := float32(1 / math.Sqrt(5))
	for _, v := range params[0].Data() {
		if v < -scale || v > scale {
			t.Errorf("weight %v outside [-%v, %v]", v, scale, scale)
		}
	}
	for _, v := range params[1].Data() {
		if v != 0 {
			t.Errorf("bias not zero: %v", params[1].Data())
		}
	}

	cfg.Outputs = 0
	if _, err := w.InitParams(cfg, []int{5}); err == nil {
		t.Error("outputs 0 accepted")
	}
}
