package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/sarchlab/mmusim/monitoring"
)

var serveCmd = &cobra.Command{
	Use:   "serve [trace...]",
	Short: "Replay traces and serve the resulting cache state over HTTP.",
	Long: "`serve` replays the given traces, then keeps the hierarchy alive " +
		"behind an HTTP API until interrupted.",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, env, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		s, err := newSession(cmd, c)
		if err != nil {
			return err
		}

		port, _ := cmd.Flags().GetInt("port")
		if !cmd.Flags().Changed("port") && env.MonitorPort > 0 {
			port = env.MonitorPort
		}

		monitor := monitoring.NewMonitor().WithPortNumber(port)
		monitor.RegisterSession(s)

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		var replayErr error
		if len(args) > 0 {
			monitor.Do(func() {
				replayErr = replayAll(ctx, s, args, nil, cmd.ErrOrStderr())
			})
		}

		if replayErr != nil {
			return replayErr
		}

		url, err := monitor.StartServer()
		if err != nil {
			return err
		}
		defer func() { _ = monitor.StopServer() }()

		fmt.Fprintln(cmd.OutOrStdout(), url)

		open, _ := cmd.Flags().GetBool("open")
		if open {
			if err := monitor.Open(url); err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "failed to open browser: %v\n", err)
			}
		}

		<-ctx.Done()

		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String("elf", "", "Preload memory with the segments of an ELF file")
	serveCmd.Flags().String("raw", "", "Preload memory with a flat binary")
	serveCmd.Flags().String("base", "0", "Load address of --raw")
	serveCmd.Flags().IntP("port", "p", 0,
		"Port to listen on (default: $MMUSIM_MONITOR_PORT or any free port)")
	serveCmd.Flags().Bool("open", false, "Open the API in a browser")
}
