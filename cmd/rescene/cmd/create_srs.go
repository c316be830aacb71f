package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/rescene-go/rescene/internal/pathutil"
	"github.com/rescene-go/rescene/pkg/srs"
)

var createSrsAppName string

func init() {
	c := &cobra.Command{
		Use:   "create-srs <output.srs> <sample-file>",
		Short: "Build an SRS from a media sample",
		Args:  cobra.ExactArgs(2),
		RunE:  runCreateSrs,
	}
	c.Flags().StringVar(&createSrsAppName, "app-name", "", "AppName recorded in the SrsFileData record")

	rootCmd.AddCommand(c)
}

func runCreateSrs(cmd *cobra.Command, args []string) error {
	_, logger, err := loadLogger()
	if err != nil {
		return err
	}

	outputPath := args[0]
	samplePath := args[1]

	if err := pathutil.CheckFileDirectoryWritable(outputPath, "SRS output"); err != nil {
		return err
	}

	res := srs.Create(context.Background(), cliFs(), outputPath, samplePath, srs.Options{AppName: createSrsAppName}, stderrReporter(), logger)
	fmt.Fprintln(os.Stderr)
	printWarnings(res.Warnings)
	if !res.Success {
		return fmt.Errorf("create-srs failed: %w", res.Error)
	}

	fmt.Printf("%s: container=%s tracks=%d %d bytes\n", res.OutputPath, res.ContainerType, res.TrackCount, res.SrsFileSize)
	return nil
}
