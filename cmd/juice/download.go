package main

import "github.com/spf13/cobra"

import "github.com/songww/juice/datasets/mnist"

func downloadCmd(flags *rootFlags) *cobra.Command {
	var baseURL string
	cmd := &cobra.Command{
		Use:   "download",
		Short: "Fetch the MNIST files into the data directory",
		RunE: func(cmd *cobra.Command, args []string) error {
			dl := mnist.Downloader{BaseURL: baseURL, Logger: logger}
			if err := dl.Download(cmd.Context(), flags.dataDir); err != nil {
				return err
			}
			logger.Info().Str("dir", flags.dataDir).Msg("dataset ready")
			return nil
		},
	}
	cmd.Flags().StringVar(&baseURL, "base-url", mnist.DefaultBaseURL, "mirror to download from")
	return cmd
}
