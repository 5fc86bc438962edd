package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"retrosignal/internal/core/detector"
)

const captureLongDesc string = `Detect learning signals in text and persist them.

Text is read from --file, or from stdin when no file is given. Captured
signals are flushed before the command exits.

Examples:
  retrosignal capture --directive d1 --session s1 < notes.txt
  retrosignal capture --file transcript.md --directive d1`

type captureCommander struct {
	root      *rootOptions
	file      string
	session   string
	directive string
}

func newCaptureCmd(ro *rootOptions) *cobra.Command {
	cmder := &captureCommander{root: ro}

	cmd := &cobra.Command{
		Use:   "capture",
		Short: "Capture learning signals from text",
		Long:  captureLongDesc,
		Args:  cobra.NoArgs,
		RunE:  cmder.run,
	}

	cmd.Flags().StringVarP(&cmder.file, "file", "f", "", "Read text from file instead of stdin")
	cmd.Flags().StringVar(&cmder.session, "session", "", "Session id to tag signals with")
	cmd.Flags().StringVar(&cmder.directive, "directive", "", "Directive id to tag signals with")
	return cmd
}

func (c *captureCommander) run(cmd *cobra.Command, _ []string) error {
	text, err := readText(cmd, c.file)
	if err != nil {
		return err
	}

	a := c.root.open(cmd)
	res := a.Facade().CaptureSignals(cmd.Context(), text, detector.Meta{SessionID: c.session, DirectiveID: c.directive})

	rep, closeErr := a.Close(cmd.Context())
	if err := printJSON(cmd.OutOrStdout(), res); err != nil {
		return err
	}
	if !rep.OK() {
		return fmt.Errorf("flush failed: %d signals not persisted", rep.Requeued)
	}
	return closeErr
}

// readText loads --file or stdin
func readText(cmd *cobra.Command, file string) (string, error) {
	var (
		b   []byte
		err error
	)
	if strings.TrimSpace(file) != "" {
		b, err = os.ReadFile(file)
	} else {
		b, err = io.ReadAll(cmd.InOrStdin())
	}
	if err != nil {
		return "", fmt.Errorf("reading text: %w", err)
	}
	return string(b), nil
}
