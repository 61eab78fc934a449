// Package main is the entry point for the chartwright API server
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/james-see/chartwright/pkg/api"
	"github.com/james-see/chartwright/pkg/config"
)

func main() {
	path := flag.String("config", "", "Config file")
	port := flag.Int("port", 0, "Server port (overrides the config file)")
	flag.Parse()

	cfg, err := config.Load(*path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Config error: %v\n", err)
		os.Exit(1)
	}
	if *port > 0 {
		cfg.Server.Port = *port
	}

	fmt.Printf("Starting chartwright API server on %s...\n", cfg.Addr())
	fmt.Printf("Swagger docs available at http://localhost:%d/swagger/index.html\n", cfg.Server.Port)

	if err := api.StartServer(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Server error: %v\n", err)
		os.Exit(1)
	}
}
