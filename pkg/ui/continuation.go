package ui

import (
	"fmt"
	"io"
	"strings"

	"github.com/pkg/errors"
	input "github.com/tcnksm/go-input"
)

// AskToContinue asks whether to open the interactive chat after a one-shot
// exchange. An empty answer means yes.
func AskToContinue(r io.Reader, w io.Writer) (bool, error) {
	prompt := &input.UI{
		Writer: w,
		Reader: r,
	}

	_, _ = fmt.Fprint(w, "\n")
	answer, err := prompt.Ask("Do you want to continue in chat mode? [Y/n]", &input.Options{
		Default:     "y",
		Required:    true,
		Loop:        true,
		HideDefault: true,
		ValidateFunc: func(answer string) error {
			switch strings.ToLower(answer) {
			case "y", "n", "yes", "no", "":
				return nil
			default:
				return errors.Errorf("please enter 'y' or 'n'")
			}
		},
	})
	if err != nil {
		return false, errors.Wrap(err, "failed to get user input")
	}

	switch strings.ToLower(answer) {
	case "n", "no":
		return false, nil
	default:
		return true, nil
	}
}
