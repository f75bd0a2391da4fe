package capture

import (
	"bufio"
	"context"
	"fmt"
	"io"
)

const operatorPrompt = "Sign in and open the document in the browser window.\n" +
	"When the first page is visible, press Enter to start capture..."

// WaitForEnter prints the sign-in prompt to w and blocks until a line is
// read from r or ctx is done. EOF on r counts as Enter.
func WaitForEnter(ctx context.Context, r io.Reader, w io.Writer) error {
	if w != nil {
		fmt.Fprintln(w, operatorPrompt)
	}

	done := make(chan error, 1)
	go func() {
		_, err := bufio.NewReader(r).ReadString('\n')
		if err == io.EOF {
			err = nil
		}
		done <- err
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-done:
		if err != nil {
			return fmt.Errorf("capture: read operator input: %w", err)
		}
		return nil
	}
}
