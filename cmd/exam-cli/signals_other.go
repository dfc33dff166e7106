//go:build !unix

package main

import (
	"context"

	"github.com/stemsi/mcq-exam/internal/examclient"
)

// watchSignals is a no-op where job control and SIGWINCH do not exist.
func watchSignals(context.Context, *examclient.Runner, *terminalFullscreen) {}
