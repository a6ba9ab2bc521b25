package main

import (
	"errors"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		if errors.Is(err, errCancelled) {
			os.Exit(130)
		}
		os.Exit(1)
	}
}
