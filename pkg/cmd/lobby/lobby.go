package lobby

import (
	"github.com/spf13/cobra"

	"github.com/mpapenbr/podracer/pkg/cmd/util"
)

func NewTracksCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tracks",
		Short: "lists the available tracks",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := util.Setup(cmd.Context())
			if err != nil {
				return err
			}
			defer env.Close()
			return env.NewSession().ShowTracks(cmd.Context())
		},
	}
	return cmd
}

func NewRacersCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "racers",
		Short: "lists the available racers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := util.Setup(cmd.Context())
			if err != nil {
				return err
			}
			defer env.Close()
			return env.NewSession().ShowRacers(cmd.Context())
		},
	}
	return cmd
}
