package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/kmorran/ancf/pkg/blockfile"
)

// unpackCmd represents the unpack command
var unpackCmd = &cobra.Command{
	Use:   "unpack <container> <output>",
	Short: "Decompress a container back into a flat file",
	Long: `Decompress every block of a container, in order, into a flat output
file. Pass - as the output to write to stdout.

Example:
  ancf unpack metrics.ancf metrics.bin`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		r, err := blockfile.OpenFile(args[0])
		if err != nil {
			return err
		}
		defer r.Close()

		var out io.Writer
		if args[1] == "-" {
			out = os.Stdout
		} else {
			f, err := os.Create(args[1])
			if err != nil {
				return err
			}
			defer f.Close()
			out = f
		}

		for i := 0; i < r.NumBlocks(); i++ {
			raw, err := r.ReadBlock(i)
			if err != nil {
				return fmt.Errorf("unpacking block %d: %w", i, err)
			}
			if _, err := out.Write(raw); err != nil {
				return err
			}
		}

		if args[1] != "-" {
			fmt.Printf("Unpacked %d blocks (%s) into %s\n",
				r.NumBlocks(), humanBytes(r.RawSize()), args[1])
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(unpackCmd)
}
