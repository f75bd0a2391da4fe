// Command readercap captures a paginated web reader page by page.
//
// Usage:
//
//	readercap capture --url https://read.example.com/?asin=B00X   # sign in, press Enter, capture
//	readercap capture --config readercap.yaml --no-wait          # resume with a signed-in profile
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/hazyhaar/readercap/cmd/readercap/commands"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := commands.ExecuteContext(ctx)
	stop()
	os.Exit(code)
}
