package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kmorran/ancf/pkg/blockfile"
	"github.com/kmorran/ancf/pkg/format"
)

// inspectCmd represents the inspect command
var inspectCmd = &cobra.Command{
	Use:   "inspect <container>",
	Short: "Print a container's header and size statistics",
	Long: `Print a container's header fields and derived size statistics.
With --blocks the full block index is dumped as a table.

Example:
  ancf inspect metrics.ancf --blocks`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		showBlocks, _ := cmd.Flags().GetBool("blocks")

		r, err := blockfile.OpenFile(args[0])
		if err != nil {
			return err
		}
		defer r.Close()

		h := r.HeaderInfo()
		fmt.Printf("File:        %s\n", args[0])
		fmt.Printf("Version:     %d\n", h.Version)
		fmt.Printf("Codec:       %s (id %d)\n", h.CodecName, h.CodecID)
		fmt.Printf("Block size:  %s\n", humanBytes(uint64(h.BlockSize)))
		fmt.Printf("Blocks:      %d\n", h.BlockCount)
		fmt.Printf("Flags:       0x%x%s\n", h.Flags, flagNames(h.Flags))
		fmt.Printf("Raw size:    %s\n", humanBytes(r.RawSize()))
		fmt.Printf("Stored size: %s\n", humanBytes(r.CompressedSize()))
		fmt.Printf("Ratio:       %.3f\n", r.Ratio())

		if showBlocks {
			fmt.Printf("\n%6s %12s %10s %10s %10s %8s\n",
				"block", "offset", "stored", "raw", "checksum", "sidecar")
			for i, e := range r.Entries() {
				fmt.Printf("%6d %12d %10d %10d   %08x %8d\n",
					i, e.Offset, e.CompLen, e.RawLen, e.Checksum, e.MetaLen)
			}
		}
		return nil
	},
}

func flagNames(flags uint64) string {
	var names string
	if flags&format.FlagHasChecksum != 0 {
		names += " checksum"
	}
	if flags&format.FlagPerBlockMeta != 0 {
		names += " per-block-meta"
	}
	if flags&format.FlagIsColumnar != 0 {
		names += " columnar"
	}
	if names == "" {
		return ""
	}
	return " (" + names[1:] + ")"
}

func init() {
	rootCmd.AddCommand(inspectCmd)
	inspectCmd.Flags().Bool("blocks", false, "Dump the block index")
}
