/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/kmorran/ancf/pkg/codec"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "ancf",
	Short: "ancf - block-indexed compressed containers",
	Long: `ancf packs data into block-indexed compressed container files and
queries them in place: any block or byte range can be read without
decompressing the rest of the file.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

// resolveCodec maps a --codec flag value to a registered codec ID.
func resolveCodec(name string) (uint16, error) {
	c, err := codec.ByName(name)
	if err != nil {
		return 0, fmt.Errorf("unknown codec %q (available: %v)", name, codec.Names())
	}
	return c.ID(), nil
}

// humanBytes renders a byte count in the largest sensible binary unit.
func humanBytes(n uint64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := uint64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
