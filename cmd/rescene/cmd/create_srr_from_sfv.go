package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/rescene-go/rescene/internal/pathutil"
	"github.com/rescene-go/rescene/pkg/srr"
)

var (
	createSfvAppName     string
	createSfvAllowComp   bool
	createSfvStorePaths  bool
	createSfvComputeOso  bool
	createSfvExtraFiles  []string
)

func init() {
	c := &cobra.Command{
		Use:   "create-srr-from-sfv <output.srr> <release.sfv>",
		Short: "Build an SRR from an SFV's volume listing",
		Args:  cobra.ExactArgs(2),
		RunE:  runCreateSrrFromSfv,
	}
	c.Flags().StringVar(&createSfvAppName, "app-name", "", "AppName recorded in the SrrHeader block")
	c.Flags().BoolVar(&createSfvAllowComp, "allow-compressed", false, "don't warn on compressed RAR methods")
	c.Flags().BoolVar(&createSfvStorePaths, "store-paths", false, "store full relative paths for auxiliary files instead of basenames")
	c.Flags().BoolVar(&createSfvComputeOso, "compute-oso-hashes", false, "emit an SrrOsoHash block for each stored file")
	c.Flags().StringArrayVar(&createSfvExtraFiles, "stored-file", nil, "extra auxiliary file to embed alongside the SFV, as name=path or path (repeatable)")

	rootCmd.AddCommand(c)
}

func runCreateSrrFromSfv(cmd *cobra.Command, args []string) error {
	_, logger, err := loadLogger()
	if err != nil {
		return err
	}

	outputPath := args[0]
	sfvPath := args[1]

	if err := pathutil.CheckFileDirectoryWritable(outputPath, "SRR output"); err != nil {
		return err
	}

	extraFiles, err := parseStoredFiles(createSfvExtraFiles)
	if err != nil {
		return err
	}

	opts := srr.Options{
		AppName:          createSfvAppName,
		AllowCompressed:  createSfvAllowComp,
		StorePaths:       createSfvStorePaths,
		ComputeOsoHashes: createSfvComputeOso,
	}

	res := srr.CreateFromSFV(context.Background(), cliFs(), outputPath, sfvPath, extraFiles, opts, stderrReporter(), logger)
	fmt.Fprintln(os.Stderr)
	printWarnings(res.Warnings)
	if !res.Success {
		return fmt.Errorf("create-srr-from-sfv failed: %w", res.Error)
	}

	fmt.Printf("%s: %d volumes, %d stored files, %d bytes\n", res.OutputPath, res.VolumeCount, res.StoredFileCount, res.SrrFileSize)
	return nil
}
