package main

import (
	"context"
	"os"

	"github.com/yeremiapane/steamybites/utils"
)

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		utils.ErrorLogger.Error(err)
		os.Exit(1)
	}
}
