package ui

import (
	"context"
	"fmt"
	"os"

	"github.com/manifoldco/promptui"
)

// TerminalPrompter is the stdin/stdout implementation of the job callback
// surface: scrollback lines go to stdout, decisions run through promptui.
type TerminalPrompter struct{}

func NewTerminalPrompter() *TerminalPrompter {
	return &TerminalPrompter{}
}

func (t *TerminalPrompter) Log(line string) {
	fmt.Println(line)
}

func (t *TerminalPrompter) Error(message string) {
	fmt.Fprintf(os.Stderr, "[%s] %s\n", KindError, message)
}

func (t *TerminalPrompter) Finished() {}

// NeedLogin blocks until the user confirms they finished logging in inside
// the browser window. Cancellation wins over the pending prompt.
func (t *TerminalPrompter) NeedLogin(ctx context.Context) error {
	done := make(chan error, 1)
	go func() {
		prompt := promptui.Prompt{
			Label:     "Finish logging in inside the browser window, then continue",
			IsConfirm: true,
			Default:   "y",
		}
		_, err := prompt.Run()
		done <- err
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-done:
		if err != nil && err != promptui.ErrAbort {
			return err
		}
		// ErrAbort means an explicit "n": the user gets to retry via the
		// marker poll, so treat it the same as a confirm.
		return nil
	}
}

func (t *TerminalPrompter) ConfirmUseRental(rental, own, balance int, chapterLabel string) bool {
	label := fmt.Sprintf("Chapter %s needs a ticket (rental=%d own=%d balance=%d). Use a rental ticket",
		chapterLabel, rental, own, balance)
	return t.confirm(label)
}

func (t *TerminalPrompter) ConfirmPurchase(price, balance int) bool {
	label := fmt.Sprintf("Purchase required: %d cash (balance %d). Buy", price, balance)
	return t.confirm(label)
}

// confirm runs a y/N prompt. promptui reports anything but an explicit
// yes as ErrAbort, so a nil error is the confirmation.
func (t *TerminalPrompter) confirm(label string) bool {
	prompt := promptui.Prompt{
		Label:     label,
		IsConfirm: true,
	}
	_, err := prompt.Run()
	return err == nil
}
