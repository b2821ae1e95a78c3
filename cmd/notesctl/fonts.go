package main

import (
	"fmt"

	"github.com/ghichu/ghichu/internal/theme"
	"github.com/spf13/cobra"
)

var setFont string

var fontsCmd = &cobra.Command{
	Use:   "fonts",
	Short: "List the fonts of the settings panel",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := open(cmd, false)
		if err != nil {
			return err
		}
		defer s.Close()
		settings := s.Settings()
		if setFont != "" {
			f, err := theme.ParseFont(setFont)
			if err != nil {
				return err
			}
			if err := settings.SetFont(f); err != nil {
				return err
			}
		}
		out := cmd.OutOrStdout()
		for _, o := range settings.FontOptions() {
			mark := " "
			if o.Font == settings.Font() {
				mark = "*"
			}
			fmt.Fprintf(out, "%s %-10s %s\n", mark, o.Font, o.Label)
		}
		fmt.Fprintf(out, "family: %s\n", settings.FontFamily())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(fontsCmd)
	fontsCmd.Flags().StringVar(&setFont, "set", "", "Preview a font (System, Roboto, Monospace)")
}
