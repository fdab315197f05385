// Command pitchdeck はピッチデッキAPIサーバーとバックグラウンドワーカーのエントリーポイント。
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/hitoshi/pitchdeck/internal/app"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := app.Run(ctx, os.Stdout, os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "pitchdeck: %v\n", err)
		stop()
		os.Exit(1)
	}
}
