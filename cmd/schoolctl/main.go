// schoolctl — консольный клиент административного API школы.
//
//	schoolctl [-config PATH] [-v] login -username U [-password P]
//	schoolctl logout
//	schoolctl request METHOD PATH [JSON|-]
//	schoolctl list RESOURCE [key=value ...]
//	schoolctl resources
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr)
	cancel()

	os.Exit(code)
}
