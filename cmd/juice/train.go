package main

import "runtime"

import "github.com/spf13/cobra"

import "github.com/songww/juice/datasets/mnist"
import "github.com/songww/juice/layer"
import "github.com/songww/juice/net/sequential"
import "github.com/songww/juice/solver"

type trainFlags struct {
	config       string
	model        string
	learningRate float32
	momentum     float32
	weightDecay  float32
	epochs       int
	batchSize    int
	threads      int
	seed         int64
	small        bool
}

func trainCmd(flags *rootFlags) *cobra.Command {
	tf := &trainFlags{}
	cmd := &cobra.Command{
		Use:   "train",
		Short: "Train a network on MNIST and save its weights",
		RunE: func(cmd *cobra.Command, args []string) error {
			be, err := openBackend(flags.backend)
			if err != nil {
				return err
			}

			var cfg *sequential.Config
			if tf.config != "" {
				cfg, err = sequential.LoadConfig(tf.config)
				if err != nil {
					return err
				}
			} else {
				cfg = defaultNetworkConfig(tf.small)
			}

			net, err := sequential.New(cfg, be)
			if err != nil {
				return err
			}

			data, err := mnist.Load(flags.dataDir)
			if err != nil {
				return err
			}
			trainSet := data.TrainSet(tf.small)
			testSet := data.TestSet(tf.small)

			h := &solver.HyperParameters{
				LearningRate: tf.learningRate,
				Momentum:     tf.momentum,
				WeightDecay:  tf.weightDecay,
				Epochs:       tf.epochs,
				BatchSize:    tf.batchSize,
				Threads:      tf.threads,
				Shuffle:      true,
				Seed:         tf.seed,
			}
			h.SetLogger(logger)

			sgd := solver.NewSGD(net, h)
			if err := sgd.Train(cmd.Context(), trainSet); err != nil {
				return err
			}

			accuracy, err := solver.Evaluate(net, testSet, tf.threads)
			if err != nil {
				return err
			}
			logger.Info().Float64("accuracy", accuracy).Msg("test set")

			if err := net.WriteCompressedWeightsToFile(tf.model); err != nil {
				return err
			}
			logger.Info().Str("model", tf.model).Msg("weights saved")
			return nil
		},
	}
	cmd.Flags().StringVar(&tf.config, "config", "", "network config YAML; empty uses the built-in MLP")
	cmd.Flags().StringVar(&tf.model, "model", "model.json.lzw", "weights file to write")
	cmd.Flags().Float32Var(&tf.learningRate, "learning-rate", 0.1, "global learning rate")
	cmd.Flags().Float32Var(&tf.momentum, "momentum", 0.9, "momentum")
	cmd.Flags().Float32Var(&tf.weightDecay, "weight-decay", 0, "global weight decay")
	cmd.Flags().IntVar(&tf.epochs, "epochs", 10, "passes over the training set")
	cmd.Flags().IntVar(&tf.batchSize, "batch-size", 10, "samples per update")
	cmd.Flags().IntVar(&tf.threads, "threads", runtime.NumCPU(), "evaluation concurrency")
	cmd.Flags().Int64Var(&tf.seed, "seed", 0, "shuffle seed, 0 derives one from the clock")
	cmd.Flags().BoolVar(&tf.small, "small", true, "use the 13x13 downscaled images")
	return cmd
}

// defaultNetworkConfig is the built-in MLP: linear, sigmoid, linear,
// sigmoid, ten outputs.
func defaultNetworkConfig(small bool) *sequential.Config {
	pixels := mnist.ImgSize * mnist.ImgSize
	if small {
		pixels = mnist.SmallImgSize * mnist.SmallImgSize
	}
	return &sequential.Config{
		Name: "mnist-mlp",
		Inputs: []sequential.InputConfig{
			{Name: "data", Shape: []int{pixels}},
		},
		Layers: []layer.Config{
			{Name: "hidden", Type: layer.Linear, Outputs: 64, Bottoms: []string{"data"}, Tops: []string{"hidden"}},
			{Name: "hidden-act", Type: layer.Sigmoid, Bottoms: []string{"hidden"}, Tops: []string{"hidden-act"}},
			{Name: "score", Type: layer.Linear, Outputs: 10, Bottoms: []string{"hidden-act"}, Tops: []string{"score"}},
			{Name: "prob", Type: layer.Sigmoid, Bottoms: []string{"score"}, Tops: []string{"prob"}},
		},
	}
}
