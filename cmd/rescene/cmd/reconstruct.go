package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/rescene-go/rescene/internal/pathutil"
	"github.com/rescene-go/rescene/pkg/reconstruct"
)

var (
	reconstructOriginalNames []string
	reconstructHashes        []string
	reconstructSHA1          bool
)

func init() {
	c := &cobra.Command{
		Use:   "reconstruct <input.srr> <inputDir> <outputDir>",
		Short: "Rebuild RAR volumes from an SRR and a directory of source files",
		Args:  cobra.ExactArgs(3),
		RunE:  runReconstruct,
	}
	c.Flags().StringArrayVar(&reconstructOriginalNames, "volume-name", nil, "override the Nth output volume's filename (repeatable, in volume order)")
	c.Flags().StringArrayVar(&reconstructHashes, "hash", nil, "expected digest for a finished volume, hex (repeatable)")
	c.Flags().BoolVar(&reconstructSHA1, "sha1", false, "treat --hash values as SHA-1 instead of CRC32")

	rootCmd.AddCommand(c)
}

func runReconstruct(cmd *cobra.Command, args []string) error {
	_, logger, err := loadLogger()
	if err != nil {
		return err
	}

	srrPath := args[0]
	inputDir := args[1]
	outputDir := args[2]

	if err := pathutil.CheckDirectoryWritable(outputDir); err != nil {
		return err
	}

	kind := reconstruct.HashCRC32
	if reconstructSHA1 {
		kind = reconstruct.HashSHA1
	}

	opts := reconstruct.Options{
		OriginalRarNames: reconstructOriginalNames,
		Hashes:           reconstructHashes,
		HashKind:         kind,
	}

	res := reconstruct.Reconstruct(context.Background(), cliFs(), srrPath, inputDir, outputDir, opts, stderrReporter(), logger)
	fmt.Fprintln(os.Stderr)
	printWarnings(res.Warnings)
	if !res.Success {
		return fmt.Errorf("reconstruct failed: %w", res.Error)
	}
	if !res.AllMatched {
		fmt.Fprintln(os.Stderr, "warning: one or more volumes did not match the supplied hash set")
	}

	fmt.Printf("%s: %d volumes written\n", outputDir, res.VolumesWritten)
	return nil
}
