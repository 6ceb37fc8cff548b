// Command tower-fri-bench exercises the commitment scheme end to end:
// it samples random polynomials, commits, proves evaluations at random
// points and verifies the proofs, reporting timings and proof sizes.
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/meridian-zk/tower-fri/internal/tower-fri/core"
	"github.com/meridian-zk/tower-fri/internal/tower-fri/protocols"
)

type benchOptions struct {
	minVars    int
	maxVars    int
	iterations int
	logRate    int
	queries    int
	baseLevel  uint8
	hashName   string
	verbose    bool
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &benchOptions{}
	cmd := &cobra.Command{
		Use:   "tower-fri-bench",
		Short: "Benchmark the tower-field polynomial commitment scheme",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBench(opts)
		},
	}
	cmd.Flags().IntVar(&opts.minVars, "min-vars", 8, "smallest number of variables")
	cmd.Flags().IntVar(&opts.maxVars, "max-vars", 16, "largest number of variables")
	cmd.Flags().IntVar(&opts.iterations, "iterations", 3, "iterations per size")
	cmd.Flags().IntVar(&opts.logRate, "log-rate", 2, "log2 of the Reed-Solomon blowup")
	cmd.Flags().IntVar(&opts.queries, "queries", 144, "number of spot-check queries")
	cmd.Flags().Uint8Var(&opts.baseLevel, "base-level", 6, "tower level of sampled polynomials")
	cmd.Flags().StringVar(&opts.hashName, "hash", core.DefaultHashFunction, "hash function (keccak256, sha3-256, sha256)")
	cmd.Flags().BoolVarP(&opts.verbose, "verbose", "v", false, "enable debug logging")
	return cmd
}

func runBench(opts *benchOptions) error {
	level := zerolog.InfoLevel
	if opts.verbose {
		level = zerolog.DebugLevel
	}
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
		Level(level).
		With().Timestamp().Logger()

	if opts.minVars < 0 || opts.maxVars < opts.minVars {
		return fmt.Errorf("invalid variable range [%d, %d]", opts.minVars, opts.maxVars)
	}
	cfg := protocols.DefaultConfig().
		WithLogRate(opts.logRate).
		WithNumQueries(opts.queries).
		WithBaseLevel(core.Level(opts.baseLevel)).
		WithHashFunction(opts.hashName)
	if err := cfg.Validate(); err != nil {
		return err
	}

	total := (opts.maxVars - opts.minVars + 1) * opts.iterations
	bar := progressbar.Default(int64(total), "proving")

	for vars := opts.minVars; vars <= opts.maxVars; vars++ {
		var commitTotal, proveTotal, verifyTotal time.Duration
		var proofBytes int
		for it := 0; it < opts.iterations; it++ {
			poly, err := samplePoly(vars, cfg.BaseLevel)
			if err != nil {
				return err
			}
			point := make([]core.Element, vars)
			for i := range point {
				if point[i], err = core.Random(core.MaxLevel); err != nil {
					return err
				}
			}

			start := time.Now()
			state, err := protocols.Commit(cfg, poly, logger)
			if err != nil {
				return err
			}
			commitTotal += time.Since(start)

			start = time.Now()
			proof, err := state.Prove(point)
			if err != nil {
				return err
			}
			proveTotal += time.Since(start)

			embedded, err := poly.Embed(core.MaxLevel)
			if err != nil {
				return err
			}
			value, err := embedded.Evaluate(point)
			if err != nil {
				return err
			}

			start = time.Now()
			if err := protocols.Verify(cfg, state.Commitment(), point, value, proof); err != nil {
				return fmt.Errorf("verification failed at %d vars: %w", vars, err)
			}
			verifyTotal += time.Since(start)

			encoded, err := proof.MarshalBinary()
			if err != nil {
				return err
			}
			proofBytes = len(encoded)
			_ = bar.Add(1)
		}
		iters := time.Duration(opts.iterations)
		logger.Info().
			Int("vars", vars).
			Dur("commit", commitTotal/iters).
			Dur("prove", proveTotal/iters).
			Dur("verify", verifyTotal/iters).
			Int("proof_bytes", proofBytes).
			Msg("size complete")
	}
	return nil
}

// samplePoly draws a random evaluation table, a whole packed lane at a
// time when the table is large enough to hold one.
func samplePoly(vars int, level core.Level) (*core.MLE, error) {
	size := 1 << uint(vars)
	if level < core.MaxLevel && size >= core.LaneCount(level) {
		lanes := make([]core.Packed, size/core.LaneCount(level))
		for i := range lanes {
			lane, err := core.RandomPacked(level)
			if err != nil {
				return nil, err
			}
			lanes[i] = lane
		}
		return core.NewMLEFromPacked(lanes)
	}
	evals := make([]core.Element, size)
	for i := range evals {
		e, err := core.Random(level)
		if err != nil {
			return nil, err
		}
		evals[i] = e
	}
	return core.NewMLE(evals)
}
