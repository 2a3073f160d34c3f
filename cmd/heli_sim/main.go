// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package main

import (
	"errors"
	"flag"
	"io/fs"
	"log"

	"github.com/relabs-tech/heli_controller/internal/app"
	"github.com/relabs-tech/heli_controller/internal/config"
)

func main() {
	configPath := flag.String("config", config.DefaultPath, "path to configuration file")
	flag.Parse()

	log.Println("starting heli simulator")

	// The simulator needs no hardware, so it also runs without a config file.
	if err := config.InitGlobal(*configPath); err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			log.Fatalf("failed to load config: %v", err)
		}
		log.Printf("no config at %s, using defaults", *configPath)
		config.InitDefault()
	}

	if err := app.RunSim(); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}
