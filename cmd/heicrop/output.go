package main

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"heicrop/internal/ipc"
)

// writeJSON encodes v as indented JSON to the command's stdout.
func writeJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// printAction reports the workflow after a session action. A stage failure
// is printed and returned so the process exits non-zero. JSON mode encodes
// payload when set, resp otherwise.
func printAction(cmd *cobra.Command, ctx *commandContext, resp *ipc.ActionResponse, payload any) error {
	if resp == nil {
		return errors.New("empty response from session")
	}
	if payload == nil {
		payload = resp
	}
	if ctx.jsonFlag {
		if err := writeJSON(cmd, payload); err != nil {
			return err
		}
	} else {
		p := newPrinter(cmd.OutOrStdout())
		p.line("State", statusInfo, string(resp.State))
		if resp.Message.Text != "" {
			p.line("Message", statusKindFromMessage(resp.Message.Kind), resp.Message.Text)
		}
		if resp.Error != nil && resp.Error.Hint != "" {
			p.line("Hint", statusWarn, resp.Error.Hint)
		}
	}
	if resp.Error != nil {
		return fmt.Errorf("%s: %s", resp.Error.Kind, resp.Error.Message)
	}
	return nil
}
