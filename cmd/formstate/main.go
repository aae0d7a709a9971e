// Command formstate runs, renders and checks form definitions.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	app := &App{Stdout: os.Stdout, Stderr: os.Stderr}
	if err := newRootCmd(app).ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "formstate:", err)
		os.Exit(1)
	}
}
