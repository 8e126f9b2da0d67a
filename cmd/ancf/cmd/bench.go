package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"github.com/kmorran/ancf/pkg/blockfile"
)

// benchCmd represents the bench command
var benchCmd = &cobra.Command{
	Use:   "bench",
	Short: "Benchmark pack and random-access read throughput",
	Long: `Write a synthetic container with the chosen codec, then measure
random block read latency against it. The workload is a deterministic
pseudo-random byte stream, so runs are comparable across codecs.

Example:
  ancf bench --codec=lz4 --blocks=512 --workers=4`,
	RunE: func(cmd *cobra.Command, args []string) error {
		codecName, _ := cmd.Flags().GetString("codec")
		blockSize, _ := cmd.Flags().GetUint32("block-size")
		blocks, _ := cmd.Flags().GetInt("blocks")
		workers, _ := cmd.Flags().GetInt("workers")
		reads, _ := cmd.Flags().GetInt("reads")
		seed, _ := cmd.Flags().GetUint64("seed")

		codecID, err := resolveCodec(codecName)
		if err != nil {
			return err
		}
		if blocks < 1 || reads < 1 {
			return fmt.Errorf("--blocks and --reads must be positive")
		}

		dir, err := os.MkdirTemp("", "ancf-bench")
		if err != nil {
			return err
		}
		defer os.RemoveAll(dir)
		path := filepath.Join(dir, "bench.ancf")

		// Write phase.
		w, err := blockfile.CreateFile(path, blockfile.Options{
			CodecID:     codecID,
			BlockSize:   blockSize,
			Concurrency: workers,
		})
		if err != nil {
			return err
		}
		rng := lcg(seed)
		writeStart := time.Now()
		for i := 0; i < blocks; i++ {
			block := make([]byte, blockSize)
			for j := range block {
				// Runs of repeated bytes keep the stream compressible.
				if j%16 == 0 {
					rng = lcgNext(rng)
				}
				block[j] = byte(rng >> 32)
			}
			if _, err := w.WriteBlock(block); err != nil {
				_ = w.Abort()
				return err
			}
		}
		if err := w.Finalize(); err != nil {
			return err
		}
		writeDur := time.Since(writeStart)

		r, err := blockfile.OpenFile(path)
		if err != nil {
			return err
		}
		defer r.Close()

		// Read phase: uniformly random block picks.
		lat := make([]time.Duration, 0, reads)
		var served uint64
		readStart := time.Now()
		for i := 0; i < reads; i++ {
			rng = lcgNext(rng)
			idx := int(rng % uint64(blocks))
			t0 := time.Now()
			raw, err := r.ReadBlock(idx)
			if err != nil {
				return err
			}
			lat = append(lat, time.Since(t0))
			served += uint64(len(raw))
		}
		readDur := time.Since(readStart)
		sort.Slice(lat, func(i, j int) bool { return lat[i] < lat[j] })

		fmt.Printf("codec=%s blocks=%d block_size=%s workers=%d\n",
			codecName, blocks, humanBytes(uint64(blockSize)), workers)
		fmt.Printf("pack:  %s in %v (%.1f MiB/s), ratio %.3f\n",
			humanBytes(r.RawSize()), writeDur.Round(time.Millisecond),
			mibPerSec(r.RawSize(), writeDur), r.Ratio())
		fmt.Printf("read:  %d random blocks, %s in %v (%.1f MiB/s)\n",
			reads, humanBytes(served), readDur.Round(time.Millisecond),
			mibPerSec(served, readDur))
		fmt.Printf("lat:   min=%v p50=%v p95=%v p99=%v max=%v\n",
			lat[0], percentile(lat, 50), percentile(lat, 95), percentile(lat, 99), lat[len(lat)-1])
		return nil
	},
}

// lcg seeds a 64-bit linear congruential generator.
func lcg(seed uint64) uint64 {
	if seed == 0 {
		seed = 0x9e3779b97f4a7c15
	}
	return seed
}

func lcgNext(s uint64) uint64 {
	return s*6364136223846793005 + 1442695040888963407
}

// percentile reads the p-th percentile from a sorted latency slice.
func percentile(sorted []time.Duration, p int) time.Duration {
	if len(sorted) == 0 {
		return 0
	}
	i := len(sorted) * p / 100
	if i >= len(sorted) {
		i = len(sorted) - 1
	}
	return sorted[i]
}

func mibPerSec(n uint64, d time.Duration) float64 {
	if d <= 0 {
		return 0
	}
	return float64(n) / (1 << 20) / d.Seconds()
}

func init() {
	rootCmd.AddCommand(benchCmd)
	benchCmd.Flags().StringP("codec", "c", "zstd", "Codec to benchmark")
	benchCmd.Flags().Uint32P("block-size", "b", 65536, "Raw bytes per block")
	benchCmd.Flags().Int("blocks", 256, "Number of blocks to write")
	benchCmd.Flags().IntP("workers", "w", 1, "Parallel compression workers")
	benchCmd.Flags().Int("reads", 1000, "Random block reads to measure")
	benchCmd.Flags().Uint64("seed", 0, "Workload seed (0 picks a fixed default)")
}
