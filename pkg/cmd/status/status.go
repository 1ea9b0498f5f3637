package status

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/mpapenbr/podracer/pkg/cmd/util"
)

var racerID int

func NewStatusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status RACE_ID",
		Short: "shows the leaderboard or the results of a race",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raceID, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid race id %q", args[0])
			}
			env, err := util.Setup(cmd.Context())
			if err != nil {
				return err
			}
			defer env.Close()
			_, err = env.NewSession().Status(cmd.Context(), raceID, racerID)
			return err
		},
	}
	cmd.Flags().IntVar(&racerID, "racer", 0, "id of your racer")
	_ = cmd.MarkFlagRequired("racer")
	return cmd
}
