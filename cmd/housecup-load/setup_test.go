package main

import (
	"io"

	"github.com/okian/housecup/pkg/logger"
)

func init() {
	_ = logger.Init(logger.WithOutput(io.Discard))
}
