package cmd

import (
	"fmt"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/rescene-go/rescene/pkg/srs"
)

func init() {
	c := &cobra.Command{
		Use:   "detect-srs <sample-file>",
		Short: "Print the container type an SRS would be built with for sample-file",
		Args:  cobra.ExactArgs(1),
		RunE:  runDetectSrs,
	}

	rootCmd.AddCommand(c)
}

func runDetectSrs(cmd *cobra.Command, args []string) error {
	samplePath := args[0]
	fs := cliFs()

	data, err := afero.ReadFile(fs, samplePath)
	if err != nil {
		return fmt.Errorf("reading %s: %w", samplePath, err)
	}

	containerType, err := srs.DetectContainer(samplePath, data)
	if err != nil {
		return fmt.Errorf("detect-srs: %w", err)
	}

	fmt.Println(containerType)
	return nil
}
