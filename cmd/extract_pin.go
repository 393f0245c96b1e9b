package cmd

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Ananth-NQI/farmline-ivr/internal/services"
)

func newExtractPINCmd() *cobra.Command {
	var digits string

	cmd := &cobra.Command{
		Use:   "extract-pin [transcript...]",
		Short: "Extract a six digit PIN from DTMF digits or a speech transcript",
		Example: `  farmline extract-pin --digits 110001
  farmline extract-pin "मेरा पिन एक एक शून्य शून्य शून्य एक है"`,
		RunE: func(cmd *cobra.Command, args []string) error {
			pin, ok := services.ExtractPIN(digits, strings.Join(args, " "))
			if !ok {
				return errors.New("no PIN found")
			}
			_, err := fmt.Fprintln(cmd.OutOrStdout(), pin)
			return err
		},
	}
	cmd.Flags().StringVar(&digits, "digits", "", "DTMF digits pressed by the caller")
	return cmd
}
