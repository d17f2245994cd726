// Command juice downloads the MNIST dataset and trains and evaluates
// networks on it.
package main

import "os"

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
