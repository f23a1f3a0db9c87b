// The simulator emulates a fleet of autonomous vehicles against a running
// ground-control service. Each simulated vehicle registers itself, answers
// commands and streams telemetry, points of interest and mission completions.
package main

import (
	"context"
	"flag"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"
)

func main() {
	cfg := parseFlags()
	if err := (&cfg).Validate(); err != nil {
		log.Fatalf("invalid config: %v", err)
	}
	if !cfg.Verbose {
		log.SetOutput(io.Discard)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	strat := RandomAck{Delay: cfg.AckLatency, DropRate: cfg.DropRate}
	vehicles := GenerateFleet(cfg, strat)
	runVehicles(ctx, vehicles)
}

func parseFlags() Config {
	var cfg Config
	flag.StringVar(&cfg.Broker, "broker", "tcp://localhost:1883", "MQTT broker URL")
	flag.IntVar(&cfg.Count, "count", 1, "number of vehicles")
	flag.StringVar(&cfg.VehicleType, "type", "", "declared vehicle type")
	flag.IntVar(&cfg.Jobs, "jobs", 2, "jobs each vehicle can take")
	flag.DurationVar(&cfg.AckLatency, "ack-latency", 0, "ack latency")
	flag.Float64Var(&cfg.DropRate, "drop-rate", 0, "ack drop probability [0,1]")
	flag.DurationVar(&cfg.UpdateInterval, "update-interval", 5*time.Second, "telemetry period")
	flag.IntVar(&cfg.POICount, "poi-count", 3, "points of interest reported per mission")
	flag.DurationVar(&cfg.POIInterval, "poi-interval", 2*time.Second, "delay between POI reports")
	flag.BoolVar(&cfg.Verbose, "verbose", false, "enable logging")
	flag.Parse()
	return cfg
}
