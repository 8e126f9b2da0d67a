package cmd

import (
	"encoding/hex"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/kmorran/ancf/pkg/blockfile"
)

const previewLimit = 256

// readBlockCmd represents the read-block command
var readBlockCmd = &cobra.Command{
	Use:   "read-block <container> <index>",
	Short: "Read one block from a container",
	Long: `Decompress a single block and print a hex preview of it. With --raw
the block's bytes are written to stdout instead.

Example:
  ancf read-block metrics.ancf 2`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		raw, _ := cmd.Flags().GetBool("raw")

		index, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("block index must be an integer: %q", args[1])
		}

		r, err := blockfile.OpenFile(args[0])
		if err != nil {
			return err
		}
		defer r.Close()

		data, err := r.ReadBlock(index)
		if err != nil {
			return err
		}

		if raw {
			_, err := os.Stdout.Write(data)
			return err
		}
		fmt.Printf("Block %d: %d bytes\n", index, len(data))
		preview(data)
		return nil
	},
}

// readRangeCmd represents the read-range command
var readRangeCmd = &cobra.Command{
	Use:   "read-range <container> <start> <length>",
	Short: "Read a logical byte range from a container",
	Long: `Read length bytes starting at the uncompressed offset start, touching
only the blocks the range intersects. With --raw the bytes are written
to stdout instead of a hex preview.

Example:
  ancf read-range metrics.ancf 131072 1234`,
	Args: cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		raw, _ := cmd.Flags().GetBool("raw")

		start, err := strconv.ParseUint(args[1], 10, 64)
		if err != nil {
			return fmt.Errorf("start must be a non-negative integer: %q", args[1])
		}
		length, err := strconv.ParseUint(args[2], 10, 64)
		if err != nil {
			return fmt.Errorf("length must be a non-negative integer: %q", args[2])
		}

		r, err := blockfile.OpenFile(args[0])
		if err != nil {
			return err
		}
		defer r.Close()

		data, err := r.ReadRange(cmd.Context(), start, length)
		if err != nil {
			return err
		}

		if raw {
			_, err := os.Stdout.Write(data)
			return err
		}
		fmt.Printf("Range [%d, %d): %d bytes\n", start, start+length, len(data))
		preview(data)
		return nil
	},
}

func preview(data []byte) {
	if len(data) > previewLimit {
		fmt.Print(hex.Dump(data[:previewLimit]))
		fmt.Printf("... %d more bytes\n", len(data)-previewLimit)
		return
	}
	fmt.Print(hex.Dump(data))
}

func init() {
	rootCmd.AddCommand(readBlockCmd)
	rootCmd.AddCommand(readRangeCmd)
	readBlockCmd.Flags().Bool("raw", false, "Write the block bytes to stdout")
	readRangeCmd.Flags().Bool("raw", false, "Write the range bytes to stdout")
}
