package main

import (
	"github.com/spf13/cobra"

	"github.com/watanabekazunori/tonarino/internal/competitor"
	"github.com/watanabekazunori/tonarino/internal/config"
)

var discoverFlags struct {
	placeID string
	name    string
	lat     float64
	lng     float64
	types   string
}

var discoverCmd = &cobra.Command{
	Use:   "discover",
	Short: "Find and rank nearby competitors of a store",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if err := cfg.Validate(config.ModeDiscover); err != nil {
			return err
		}

		self := competitor.Self{
			PlaceID: discoverFlags.placeID,
			Name:    discoverFlags.name,
			Lat:     discoverFlags.lat,
			Lng:     discoverFlags.lng,
			Types:   splitList(discoverFlags.types),
		}
		if err := self.Validate(); err != nil {
			return err
		}

		env, err := initEnv(ctx, envOptions{})
		if err != nil {
			return err
		}
		defer env.Close()

		res, err := env.Discoverer.Discover(ctx, self)
		if err != nil {
			return err
		}
		return printOutput(cmd.OutOrStdout(), outputFormat, res)
	},
}

func init() {
	f := discoverCmd.Flags()
	f.StringVar(&discoverFlags.placeID, "place-id", "", "place ID of the store")
	f.StringVar(&discoverFlags.name, "name", "", "store name")
	f.Float64Var(&discoverFlags.lat, "lat", 0, "store latitude")
	f.Float64Var(&discoverFlags.lng, "lng", 0, "store longitude")
	f.StringVar(&discoverFlags.types, "types", "", "comma-separated place types of the store")
	for _, name := range []string{"place-id", "lat", "lng"} {
		_ = discoverCmd.MarkFlagRequired(name)
	}
	rootCmd.AddCommand(discoverCmd)
}
