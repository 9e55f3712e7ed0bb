package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"cedx/internal/config"
	"cedx/internal/document"
	"cedx/internal/errors"
	"cedx/internal/export"
)

var (
	coincidentTolerance float64
)

var coincidentCmd = &cobra.Command{
	Use:   "coincident <document> <location-id>",
	Short: "List the locations coincident with a location",
	Long: `Lists every live location of a document lying within the tolerance of the
given location on both axes, the location itself included, together with the
points standing on each. This is the set an export treats as one position.`,
	Args: cobra.ExactArgs(2),
	RunE: runCoincident,
}

func init() {
	coincidentCmd.Flags().Float64Var(&coincidentTolerance, "tolerance", 0, "Coincidence tolerance in metres (default from config)")
	rootCmd.AddCommand(coincidentCmd)
}

// CoincidentResponseCLI lists the neighbourhood of a location
type CoincidentResponseCLI struct {
	Document  string               `json:"document"`
	Location  document.EntityID    `json:"location"`
	X         float64              `json:"x"`
	Y         float64              `json:"y"`
	Tolerance float64              `json:"tolerance"`
	Matches   []CoincidentMatchCLI `json:"matches"`
}

// CoincidentMatchCLI is one coincident location
type CoincidentMatchCLI struct {
	Location document.EntityID `json:"location"`
	DX       float64           `json:"dx"`
	DY       float64           `json:"dy"`
	Points   []string          `json:"points,omitempty"`
}

func runCoincident(cmd *cobra.Command, args []string) error {
	id, err := strconv.ParseUint(args[1], 10, 64)
	if err != nil || id == 0 {
		return fmt.Errorf("invalid location id %q", args[1])
	}

	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	tol := a.cfg.Export.Tolerance
	if cmd.Flags().Changed("tolerance") {
		tol = coincidentTolerance
	}
	if !config.ValidTolerance(tol) {
		return errors.Newf(errors.ConfigInvalid, "tolerance must be a finite, non-negative distance, got %g", tol)
	}

	if err := a.openStore(); err != nil {
		return err
	}
	snap, err := a.docs.Load(cmd.Context(), args[0])
	if err != nil {
		return err
	}

	target, ok := snap.Location(document.EntityID(id))
	if !ok {
		return errors.Newf(errors.DocumentNotFound, "document %q has no location %d", args[0], id)
	}

	live := make([]document.Location, 0, len(snap.Locations()))
	for _, l := range snap.Locations() {
		if l.Status == document.StatusLive {
			live = append(live, l)
		}
	}

	pointsAt := make(map[document.EntityID][]string)
	for _, p := range snap.Points() {
		if p.Status == document.StatusLive {
			pointsAt[p.Location] = append(pointsAt[p.Location], fmt.Sprintf("%s (point:%d)", p.Key, p.ID))
		}
	}

	resp := &CoincidentResponseCLI{
		Document:  snap.Name(),
		Location:  target.ID,
		X:         target.X,
		Y:         target.Y,
		Tolerance: tol,
		Matches:   []CoincidentMatchCLI{},
	}
	for _, m := range export.GetAllCoincidentLocations(live, target, tol, a.logger) {
		resp.Matches = append(resp.Matches, CoincidentMatchCLI{
			Location: m.ID,
			DX:       m.X - target.X,
			DY:       m.Y - target.Y,
			Points:   pointsAt[m.ID],
		})
	}

	return writeResponse(cmd.OutOrStdout(), resp)
}
