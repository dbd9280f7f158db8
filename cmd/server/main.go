// Package main is the entry point for the tune2midi API server
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/james-see/tune2midi/pkg/api"
)

func main() {
	port := flag.Int("port", 8080, "Server port")
	soundFont := flag.String("soundfont", "", "SoundFont (.sf2) to select instruments from")
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	fmt.Printf("Starting tune2midi API server on port %d...\n", *port)
	fmt.Printf("Swagger docs available at http://localhost:%d/swagger/index.html\n", *port)

	if err := api.StartServer(api.Config{Port: *port, SoundFont: *soundFont, Logger: logger}); err != nil {
		fmt.Fprintf(os.Stderr, "Server error: %v\n", err)
		os.Exit(1)
	}
}
