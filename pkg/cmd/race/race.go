package race

import (
	"bufio"
	"context"
	"errors"
	"io"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/mpapenbr/podracer/log"
	"github.com/mpapenbr/podracer/pkg/cmd/util"
	"github.com/mpapenbr/podracer/pkg/session"
)

var (
	trackArg string
	racerArg string
)

func NewRaceCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "race",
		Short: "creates a race and runs it",
		Long: `Creates a race for the selected track and racer and runs it.
Every <Enter> hit while the race is running accelerates your racer.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRace(cmd.Context(), os.Stdin)
		},
	}
	cmd.Flags().StringVar(&trackArg, "track", "", "id of the track")
	cmd.Flags().StringVar(&racerArg, "racer", "", "id of your racer")
	_ = cmd.MarkFlagRequired("track")
	_ = cmd.MarkFlagRequired("racer")
	return cmd
}

func runRace(ctx context.Context, in io.Reader) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()
	ctx = log.AddToContext(ctx, log.Default().Named("race"))

	env, err := util.Setup(ctx)
	if err != nil {
		return err
	}
	defer env.Close()

	s := env.NewSession()
	defer s.Close()
	if err := s.LoadLobby(ctx); err != nil {
		return err
	}
	if err := s.SelectTrack(ctx, trackArg); err != nil {
		return err
	}
	if err := s.SelectRacer(ctx, racerArg); err != nil {
		return err
	}
	if _, err := s.CreateRace(ctx); err != nil {
		return err
	}
	// released before the session is closed
	pedalCtx, release := context.WithCancel(ctx)
	defer release()
	go gasPedal(pedalCtx, s, in)
	_, err = s.RunRace(ctx)
	return err
}

// gasPedal accelerates for every line read from in
func gasPedal(ctx context.Context, s *session.Session, in io.Reader) {
	l := log.GetFromContext(ctx)
	defer l.Debug("gas pedal released")
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return
		}
		if err := s.Accelerate(ctx); err != nil {
			if errors.Is(err, session.ErrNoRace) || errors.Is(err, session.ErrClosed) {
				return
			}
			l.Warn("could not accelerate", log.ErrorField(err))
		}
	}
}
