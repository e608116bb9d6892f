package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/sarchlab/mmusim/config"
	"github.com/sarchlab/mmusim/hierarchy"
	"github.com/sarchlab/mmusim/loader"
	"github.com/sarchlab/mmusim/trace"
)

var runCmd = &cobra.Command{
	Use:   "run [trace...]",
	Short: "Replay access traces through the hierarchy.",
	Long: "`run` replays each trace file in order, or standard input when " +
		"no file is given, and prints the value of every read.",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, env, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		s, err := newSession(cmd, c)
		if err != nil {
			return err
		}

		rec, err := attachRecorder(cmd, s, env)
		if err != nil {
			return err
		}

		if rec != nil {
			defer func() { _ = rec.Close() }()
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		quiet, _ := cmd.Flags().GetBool("quiet")

		var out io.Writer = cmd.OutOrStdout()
		if quiet {
			out = nil
		}

		if err := replayAll(ctx, s, args, out, cmd.ErrOrStderr()); err != nil {
			return err
		}

		return report(cmd, s)
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
	addSessionFlags(runCmd)

	runCmd.Flags().BoolP("quiet", "q", false, "Do not print read values")
	runCmd.Flags().Bool("record", false,
		"Record every cache event in a SQLite database")
	runCmd.Flags().String("db", "",
		"Database name for --record (default: $"+config.EnvTraceDB+" or a unique name)")
}

func addSessionFlags(cmd *cobra.Command) {
	cmd.Flags().String("elf", "", "Preload memory with the segments of an ELF file")
	cmd.Flags().String("raw", "", "Preload memory with a flat binary")
	cmd.Flags().String("base", "0", "Load address of --raw")
	cmd.Flags().Bool("flush", false, "Write all dirty lines back to memory at the end")
	cmd.Flags().Bool("stats", true, "Print per-unit statistics at the end")
	cmd.Flags().Bool("dump", false, "Print every valid line at the end")
}

// newSession builds the hierarchy and preloads memory.
func newSession(cmd *cobra.Command, c *config.HierarchyConfig) (*hierarchy.Session, error) {
	s, err := hierarchy.New(c)
	if err != nil {
		return nil, err
	}

	img, err := loadImage(cmd)
	if err != nil || img == nil {
		return s, err
	}

	if err := img.Preload(s.Memory()); err != nil {
		return nil, err
	}

	fmt.Fprintf(cmd.ErrOrStderr(), "Preloaded %d bytes in %d segments\n",
		img.Size(), len(img.Segments))

	return s, nil
}

func loadImage(cmd *cobra.Command) (*loader.Image, error) {
	elfPath, _ := cmd.Flags().GetString("elf")
	rawPath, _ := cmd.Flags().GetString("raw")

	switch {
	case elfPath != "" && rawPath != "":
		return nil, fmt.Errorf("--elf and --raw are mutually exclusive")
	case elfPath != "":
		return loader.Load(elfPath)
	case rawPath != "":
		baseText, _ := cmd.Flags().GetString("base")

		base, err := strconv.ParseUint(baseText, 0, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid --base %q", baseText)
		}

		return loader.LoadRaw(rawPath, base)
	default:
		return nil, nil
	}
}

func attachRecorder(
	cmd *cobra.Command,
	s *hierarchy.Session,
	env config.Env,
) (*trace.Recorder, error) {
	record, _ := cmd.Flags().GetBool("record")
	if !record {
		return nil, nil
	}

	path, _ := cmd.Flags().GetString("db")
	if path == "" {
		path = env.TraceDB
	}

	rec, err := trace.NewRecorder(path)
	if err != nil {
		return nil, err
	}

	s.AcceptHook(rec)

	return rec, nil
}

// replayAll replays the traces in order, or standard input without any.
func replayAll(
	ctx context.Context,
	s *hierarchy.Session,
	paths []string,
	out, log io.Writer,
) error {
	if len(paths) == 0 {
		paths = []string{"-"}
	}

	for _, p := range paths {
		recs, err := readTrace(p)
		if err != nil {
			return err
		}

		res, err := trace.Replay(ctx, s, recs, out)
		if err != nil {
			return fmt.Errorf("%s: %w", p, err)
		}

		fmt.Fprintf(log, "%s: %d reads (%d unbacked), %d writes, %d partial writes, "+
			"%d evictions, %d context switches\n",
			p, res.Reads, res.Unbacked, res.Writes, res.Partials, res.Evictions, res.Switches)
	}

	return nil
}

func readTrace(path string) ([]trace.Record, error) {
	if path == "-" {
		return trace.Parse(os.Stdin)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open trace: %w", err)
	}
	defer func() { _ = f.Close() }()

	return trace.Parse(f)
}

func report(cmd *cobra.Command, s *hierarchy.Session) error {
	flush, _ := cmd.Flags().GetBool("flush")
	stats, _ := cmd.Flags().GetBool("stats")
	dump, _ := cmd.Flags().GetBool("dump")

	if dump {
		s.PrintDump(cmd.OutOrStdout())
	}

	if stats {
		s.PrintStats(cmd.OutOrStdout())
	}

	if flush {
		s.Flush()
		fmt.Fprintf(cmd.ErrOrStderr(), "Flushed, %d memory words initialized\n",
			s.Memory().Footprint())
	}

	return nil
}
