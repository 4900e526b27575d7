package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/everforgeworks/roadnav/internal/segment"
	"github.com/everforgeworks/roadnav/internal/store"
)

func checkRouteCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "check-route [route-file]",
		Short: "Validate a planned route against the configured world's segments",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			return runCheckRoute(*configPath, args[0])
		},
	}
}

func runCheckRoute(configPath, routePath string) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}

	segments := store.NewSegmentStore(cfg.SegmentsDir)
	loaded, err := segments.LoadSegments(cfg.WorldID(), cfg.Sport)
	if err != nil {
		return fmt.Errorf("loading segments: %w", err)
	}
	graph, err := segment.NewGraph(loaded)
	if err != nil {
		return err
	}
	markers, err := segments.LoadMarkers(cfg.WorldID())
	if err != nil {
		return fmt.Errorf("loading markers: %w", err)
	}

	plan, err := store.NewRouteStore().LoadFrom(routePath)
	if err != nil {
		return err
	}
	if plan.World != "" && plan.World != cfg.World {
		fmt.Printf("warning: route is for %s, config is for %s\n", plan.World, cfg.World)
	}

	fmt.Printf("World:    %s (%d segments, %d markers)\n", cfg.World, graph.Len(), len(markers))
	fmt.Printf("Route:    %s (%d steps, loop=%v)\n", plan.Name, len(plan.Sequence), plan.IsLoop())

	if err := plan.Validate(graph); err != nil {
		fmt.Printf("Result:   INVALID\n")
		return err
	}

	var distance, ascent float64
	for i, step := range plan.Sequence {
		seg, _ := graph.Segment(step.SegmentID)
		distance += seg.Distance()
		if step.Direction == segment.BtoA {
			ascent += seg.Descent()
		} else {
			ascent += seg.Ascent()
		}
		fmt.Printf("  %2d. %-24s %-5s %-10s -> %s\n", i+1, step.SegmentID, step.Direction, step.TurnToNext, step.NextSegmentID)
	}
	fmt.Printf("Distance: %.2f km, ascent %.0f m\n", distance/1000, ascent)
	fmt.Printf("Result:   OK\n")
	return nil
}
