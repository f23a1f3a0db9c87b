package main

import (
	"context"
	"fmt"
	"log"
	"sync"
)

// GenerateFleet creates cfg.Count vehicles with IDs veh0001..vehNNNN.
func GenerateFleet(cfg Config, strat AckStrategy) []*SimulatedVehicle {
	if cfg.Count <= 0 {
		return nil
	}
	vs := make([]*SimulatedVehicle, cfg.Count)
	for i := range vs {
		vs[i] = NewSimulatedVehicle(fmt.Sprintf("veh%04d", i+1), cfg, strat)
	}
	return vs
}

// runVehicles runs every vehicle until ctx is done.
func runVehicles(ctx context.Context, vehicles []*SimulatedVehicle) {
	var wg sync.WaitGroup
	for _, v := range vehicles {
		wg.Add(1)
		go func(v *SimulatedVehicle) {
			defer wg.Done()
			if err := v.Run(ctx); err != nil {
				log.Printf("%s: %v", v.ID, err)
			}
		}(v)
	}
	wg.Wait()
}
