package main

import "runtime"

import "github.com/spf13/cobra"

import "github.com/songww/juice/datasets/mnist"
import "github.com/songww/juice/net/sequential"
import "github.com/songww/juice/solver"

func inferCmd(flags *rootFlags) *cobra.Command {
	var configPath, model string
	var threads int
	var small bool
	cmd := &cobra.Command{
		Use:   "infer",
		Short: "Load saved weights and report test set accuracy",
		RunE: func(cmd *cobra.Command, args []string) error {
			be, err := openBackend(flags.backend)
			if err != nil {
				return err
			}

			var cfg *sequential.Config
			if configPath != "" {
				cfg, err = sequential.LoadConfig(configPath)
				if err != nil {
					return err
				}
			} else {
				cfg = defaultNetworkConfig(small)
			}
			net, err := sequential.New(cfg, be)
			if err != nil {
				return err
			}
			if err := net.ReadCompressedWeightsFromFile(model); err != nil {
				return err
			}

			data, err := mnist.Load(flags.dataDir)
			if err != nil {
				return err
			}
			accuracy, err := solver.Evaluate(net, data.TestSet(small), threads)
			if err != nil {
				return err
			}
			logger.Info().Float64("accuracy", accuracy).Str("model", model).Msg("test set")
			return nil
		},
	}
	cmd.Flags().StringVar(&configPath, "config", "", "network config YAML; empty uses the built-in MLP")
	cmd.Flags().StringVar(&model, "model", "model.json.lzw", "weights file to read")
	cmd.Flags().IntVar(&threads, "threads", runtime.NumCPU(), "evaluation concurrency")
	cmd.Flags().BoolVar(&small, "small", true, "use the 13x13 downscaled images")
	return cmd
}
