package main

import (
	"moooio/asyncfile"

	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/cespare/xxhash"
	"github.com/lmittmann/tint"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var (
	flagWorkers		int
	flagAlign		int
	flagChunk		int
	flagBuffered	bool
	flagDebug		bool
)

func main() {
	root := &cobra.Command{
		Use:			"moooio",
		Short:			"Whole-file reads and writes through a completion queue",
		SilenceUsage:	true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level := slog.LevelInfo
			if flagDebug { level = slog.LevelDebug }
			slog.SetDefault(slog.New(tint.NewHandler(os.Stderr, &tint.Options{
				Level:      level,
				TimeFormat: time.TimeOnly,
			})))
		},
	}

	pf := root.PersistentFlags()
	pf.IntVar(&flagWorkers, "workers", 0, "completion workers (0: 2 per cpu)")
	pf.IntVar(&flagAlign, "align", 0, "storage alignment unit in bytes (0: ask the volume)")
	pf.IntVar(&flagChunk, "chunk", 0x10000, "approximate read chunk in bytes")
	pf.BoolVar(&flagBuffered, "buffered", false, "don't try O_DIRECT")
	pf.BoolVar(&flagDebug, "debug", false, "debug logging")

	root.AddCommand(catCmd(), cpCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func newEngine() *asyncfile.Engine {
	cfg := asyncfile.DefaultConfig()
	cfg.Workers = flagWorkers
	cfg.Align = flagAlign
	cfg.Direct = !flagBuffered
	return asyncfile.NewEngine(cfg)
}

func catCmd() *cobra.Command {
	return &cobra.Command{
		Use:	"cat <path>...",
		Short:	"Read files and write them to stdout in order",
		Args:	cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			eng := newEngine()
			defer eng.Close()

			// all reads go out at once, output stays in argument order
			out := make([][]byte, len(args))
			var g errgroup.Group
			for i, path := range args {
				g.Go(func() error {
					data, err := readFile(eng, path)
					out[i] = data
					return err
				})
			}
			if err := g.Wait(); err != nil { return err }

			for _, data := range out {
				if _, err := os.Stdout.Write(data); err != nil { return err }
			}
			return nil
		},
	}
}

func cpCmd() *cobra.Command {
	return &cobra.Command{
		Use:	"cp <src> <dst>",
		Short:	"Copy src into a new file dst",
		Args:	cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			eng := newEngine()
			defer eng.Close()

			data, err := readFile(eng, args[0])
			if err != nil { return err }
			return writeFile(eng, args[1], data)
		},
	}
}

func readFile(eng *asyncfile.Engine, path string) ([]byte, error) {
	f, err := asyncfile.Open(eng, path)
	if err != nil { return nil, err }
	defer f.Close()

	type result struct {
		data	[]byte
		err		error
	}
	ch := make(chan result, 1)
	f.ReadAllSize(flagChunk, func(data []byte, err error) { ch <- result{data, err} })
	res := <-ch
	if res.err != nil { return nil, fmt.Errorf("%s: %w", path, res.err) }

	slog.Debug("Read", "path", path, "bytes", len(res.data), "chunk", f.ChunkSize(flagChunk),
		"direct", f.Direct(), "xxh64", fmt.Sprintf("%016x", xxhash.Sum64(res.data)))
	return res.data, nil
}

func writeFile(eng *asyncfile.Engine, path string, data []byte) error {
	f, err := asyncfile.Create(eng, path)
	if err != nil { return err }
	defer f.Close()

	ch := make(chan error, 1)
	f.WriteAll(data, func(err error) { ch <- err })
	if err := <-ch; err != nil { return fmt.Errorf("%s: %w", path, err) }

	slog.Debug("Wrote", "path", path, "bytes", len(data), "align", f.AlignUnit(),
		"direct", f.Direct(), "xxh64", fmt.Sprintf("%016x", xxhash.Sum64(data)))
	return nil
}
