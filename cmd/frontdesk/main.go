package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/hackgods/frontdesk-scheduling/internal/board"
	"github.com/hackgods/frontdesk-scheduling/internal/config"
	"github.com/hackgods/frontdesk-scheduling/internal/logger"
	"github.com/hackgods/frontdesk-scheduling/internal/remote"
)

func main() {
	cfg, err := config.LoadClient()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	var offline bool

	cmd := &cobra.Command{
		Use:   "frontdesk",
		Short: "Interactive front-desk appointment board",
		Long: "frontdesk keeps today's and yesterday's queues for every doctor. It syncs\n" +
			"with the appointments API when reachable and keeps working locally when not.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			log := logger.New(cfg.LogLevel, false)
			log.SetOutput(cmd.ErrOrStderr())

			var store board.Remote = remote.Disconnected{}
			if !offline {
				store = remote.New(remote.Options{
					BaseURL:        cfg.APIBaseURL,
					ProbeTimeout:   cfg.ProbeTimeout,
					RequestTimeout: cfg.RequestTimeout,
					Logger:         logger.WithComponent(log, "remote"),
				})
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			b := board.New(store, logger.WithComponent(log, "board"))
			online := b.Load(ctx)
			log.WithFields(logrus.Fields{
				"api":    cfg.APIBaseURL,
				"online": online,
			}).Info("board loaded")

			out := cmd.OutOrStdout()
			if !online {
				fmt.Fprintln(out, "server unavailable, changes are kept on this desk only")
			}
			fmt.Fprintln(out, "type help for commands")
			return newSession(b, out).run(ctx, cmd.InOrStdin())
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&cfg.APIBaseURL, "api", cfg.APIBaseURL, "appointments API base URL")
	flags.BoolVar(&offline, "offline", false, "never contact the API")
	flags.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "log level")

	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
