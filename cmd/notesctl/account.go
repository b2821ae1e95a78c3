package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var confirmPassword string

var signupCmd = &cobra.Command{
	Use:   "signup",
	Short: "Create an account with a welcome note",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := open(cmd, false)
		if err != nil {
			return err
		}
		defer s.Close()
		confirm := confirmPassword
		if !cmd.Flags().Changed("confirm") {
			confirm = password
		}
		id, err := s.Register(cmd.Context(), email, password, confirm)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "signed up as %s (%s)\n", id.Email, id.UID)
		return nil
	},
}

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Check the configured credentials",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := open(cmd, true)
		if err != nil {
			return err
		}
		defer s.Close()
		fmt.Fprintf(cmd.OutOrStdout(), "signed in as %s (%s)\n", s.id.Email, s.id.UID)
		return nil
	},
}

var resetCmd = &cobra.Command{
	Use:   "reset-password [email]",
	Short: "Send a password reset email",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := open(cmd, false)
		if err != nil {
			return err
		}
		defer s.Close()
		addr := email
		if len(args) == 1 {
			addr = args[0]
		}
		return s.ForgotPassword(cmd.Context(), addr)
	},
}

func init() {
	rootCmd.AddCommand(signupCmd, loginCmd, resetCmd)
	signupCmd.Flags().StringVar(&confirmPassword, "confirm", "", "Password confirmation (defaults to --password)")
}
