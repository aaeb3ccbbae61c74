package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/localpki/localca/internal/profile"
)

var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Issuance profile utilities",
}

var profileListCmd = &cobra.Command{
	Use:   "list",
	Short: "List builtin issuance profiles",
	RunE:  runProfileList,
}

func init() {
	profileCmd.AddCommand(profileListCmd)
}

func runProfileList(cmd *cobra.Command, args []string) error {
	for _, name := range profile.BuiltinNames() {
		prof, err := profile.Load(name)
		if err != nil {
			return err
		}
		fmt.Printf("%-14s RSA %d-bit, %4d days  %s\n", prof.Name, prof.KeyBits, prof.ValidityDays, prof.Description)
	}
	return nil
}
