// Command tssd runs the demo TSS coordinator daemon.
package main

import (
	"context"
	"log"

	"trailstate/server/internal/app"
)

func main() {
	cfg := app.DefaultConfig()
	if err := app.Run(context.Background(), cfg); err != nil {
		log.Fatalf("%v", err)
	}
}
