package main

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/watanabekazunori/tonarino/internal/genre"
)

var classifyTypes string

var classifyCmd = &cobra.Command{
	Use:   "classify <name>",
	Short: "Classify a store name into a genre",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		info := genre.Classify(args[0], splitList(classifyTypes)...)
		return printOutput(cmd.OutOrStdout(), outputFormat, info)
	},
}

func init() {
	classifyCmd.Flags().StringVar(&classifyTypes, "types", "", "comma-separated place types")
	rootCmd.AddCommand(classifyCmd)
}

// splitList splits a comma-separated flag value, dropping blanks.
func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
