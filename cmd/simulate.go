package cmd

import (
	"bufio"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Ananth-NQI/farmline-ivr/internal/services"
)

// printedSMS writes follow-up messages to the terminal instead of sending them
type printedSMS struct {
	out io.Writer
}

func (p printedSMS) SendSMS(_ context.Context, to, body string) error {
	_, err := fmt.Fprintf(p.out, "[sms to %s] %s\n", to, body)
	return err
}

type simulatedResponse struct {
	Says   []string `xml:"Say"`
	Gather *struct {
		Says []string `xml:"Say"`
	} `xml:"Gather"`
	Hangup *struct{} `xml:"Hangup"`
}

func newSimulateCmd() *cobra.Command {
	var from string

	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Walk through the call flow in the terminal",
		Long: "simulate runs one call against the real dispatcher with an in-memory session store. " +
			"Each input line is a turn: digits are sent as keypresses, anything else as speech, " +
			"an empty line as silence. SMS follow-ups are printed instead of sent.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			a, err := wireApp(cfg, wireOptions{
				memoryStore: true,
				noEvents:    true,
				sms:         printedSMS{out: out},
				logger:      zap.NewNop(),
			})
			if err != nil {
				return err
			}
			defer a.Close()

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			return simulateCall(ctx, a.dispatcher, from, cmd.InOrStdin(), out)
		},
	}
	cmd.Flags().StringVar(&from, "from", "+910000000000", "caller number")
	return cmd
}

func simulateCall(ctx context.Context, flow *services.Dispatcher, from string, in io.Reader, out io.Writer) error {
	callSID := "CA" + strings.ReplaceAll(uuid.NewString(), "-", "")
	fmt.Fprintf(out, "call %s from %s\n", callSID, from)

	scanner := bufio.NewScanner(in)
	turn := services.Turn{CallSID: callSID, From: from}
	for {
		resp, err := flow.Handle(ctx, turn)
		if err != nil {
			return err
		}

		var parsed simulatedResponse
		if err := xml.Unmarshal([]byte(resp), &parsed); err != nil {
			return fmt.Errorf("parse twiml: %w", err)
		}
		says := parsed.Says
		if parsed.Gather != nil {
			says = append(says, parsed.Gather.Says...)
		}
		for _, s := range says {
			fmt.Fprintf(out, "< %s\n", s)
		}
		if parsed.Hangup != nil {
			fmt.Fprintln(out, "[hangup]")
			return nil
		}

		fmt.Fprint(out, "> ")
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}

		line := strings.TrimSpace(scanner.Text())
		turn = services.Turn{CallSID: callSID, From: from}
		if isDigits(line) {
			turn.Digits = line
		} else {
			turn.Speech = line
		}
	}
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
