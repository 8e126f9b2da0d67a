package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/kmorran/ancf/pkg/blockfile"
	"github.com/kmorran/ancf/pkg/config"
)

// packCmd represents the pack command
var packCmd = &cobra.Command{
	Use:   "pack <input> <output>",
	Short: "Pack a file into a block-indexed container",
	Long: `Pack a file into a block-indexed compressed container. The input is
split into fixed-size blocks, each compressed independently so the
output stays randomly accessible. Pass - as the input to read stdin.

Examples:
  ancf pack metrics.bin metrics.ancf --codec=zstd
  cat series.raw | ancf pack - series.ancf --codec=delta --block-size=65536`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		codecName, _ := cmd.Flags().GetString("codec")
		blockSize, _ := cmd.Flags().GetUint32("block-size")
		workers, _ := cmd.Flags().GetInt("workers")
		noChecksum, _ := cmd.Flags().GetBool("no-checksum")
		configPath, _ := cmd.Flags().GetString("config")

		// The config file's write section supplies defaults; explicit flags
		// win over it.
		if configPath == "" {
			configPath = config.GetDefaultConfigPath()
		}
		if config.ConfigExists(configPath) {
			cfg, err := config.LoadConfig(configPath)
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("codec") && cfg.Write.Codec != "" {
				codecName = cfg.Write.Codec
			}
			if !cmd.Flags().Changed("block-size") && cfg.Write.BlockSize > 0 {
				blockSize = cfg.Write.BlockSize
			}
			if !cmd.Flags().Changed("workers") && cfg.Write.Concurrency > 0 {
				workers = cfg.Write.Concurrency
			}
		}

		codecID, err := resolveCodec(codecName)
		if err != nil {
			return err
		}

		var in io.Reader
		if args[0] == "-" {
			in = os.Stdin
		} else {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()
			in = f
		}

		opts := blockfile.Options{
			CodecID:     codecID,
			BlockSize:   blockSize,
			Concurrency: workers,
		}
		if noChecksum {
			opts = opts.WithFlags(0)
		}

		w, err := blockfile.CreateFile(args[1], opts)
		if err != nil {
			return err
		}

		n, err := io.Copy(w, in)
		if err != nil {
			_ = w.Abort()
			return fmt.Errorf("packing %s: %w", args[0], err)
		}
		if err := w.Finalize(); err != nil {
			return err
		}

		r, err := blockfile.OpenFile(args[1])
		if err != nil {
			return err
		}
		defer r.Close()
		fmt.Printf("Packed %s (%d blocks) into %s: %s -> %s (ratio %.3f)\n",
			humanBytes(uint64(n)), r.NumBlocks(), args[1],
			humanBytes(r.RawSize()), humanBytes(r.CompressedSize()), r.Ratio())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(packCmd)
	packCmd.Flags().StringP("codec", "c", "zstd", "Codec to compress blocks with")
	packCmd.Flags().Uint32P("block-size", "b", 65536, "Raw bytes per block")
	packCmd.Flags().IntP("workers", "w", 1, "Parallel compression workers")
	packCmd.Flags().Bool("no-checksum", false, "Skip per-block checksums")
	packCmd.Flags().String("config", "", "Config file supplying write defaults")
}
