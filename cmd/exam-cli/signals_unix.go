//go:build unix

package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/stemsi/mcq-exam/internal/examclient"
)

// watchSignals maps job control onto visibility and terminal resizes onto
// fullscreen changes.
func watchSignals(ctx context.Context, runner *examclient.Runner, fs *terminalFullscreen) {
	sigs := make(chan os.Signal, 4)
	signal.Notify(sigs, syscall.SIGTSTP, syscall.SIGCONT, syscall.SIGWINCH)

	go func() {
		defer signal.Stop(sigs)
		for {
			select {
			case <-ctx.Done():
				return
			case <-runner.Done():
				return
			case sig := <-sigs:
				switch sig {
				case syscall.SIGTSTP:
					runner.Send(examclient.VisibilityEvent{Hidden: true})
					// Suspend for real; SIGCONT resumes us.
					_ = syscall.Kill(os.Getpid(), syscall.SIGSTOP)
				case syscall.SIGCONT:
					runner.Send(examclient.VisibilityEvent{Hidden: false})
				case syscall.SIGWINCH:
					if active, changed := fs.resized(); changed {
						runner.Send(examclient.FullscreenEvent{Active: active})
					}
				}
			}
		}
	}()
}
