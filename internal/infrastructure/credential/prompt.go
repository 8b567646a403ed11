package credential

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/glowlab/studioport/internal/domain/model"
	"github.com/glowlab/studioport/internal/domain/port"
)

// PromptSource resolves credentials by asking on the controlling
// terminal. Sensitive values are read without echo. The source reports
// unavailable when stdin is not a terminal, so headless runs fail fast
// instead of hanging on a read.
type PromptSource struct {
	in  *os.File
	out *os.File
}

// NewPromptSource creates a PromptSource on stdin/stderr
func NewPromptSource() *PromptSource {
	return &PromptSource{
		in:  os.Stdin,
		out: os.Stderr,
	}
}

// Kind reports the resolution source
func (s *PromptSource) Kind() model.SecretSource {
	return model.SourceInteractive
}

// Available reports whether stdin is a terminal
func (s *PromptSource) Available() bool {
	return term.IsTerminal(int(s.in.Fd()))
}

// Resolve prompts for the credential. Non-sensitive specs may fall back
// to their default when the operator just presses enter; sensitive
// specs never default.
func (s *PromptSource) Resolve(ctx context.Context, spec model.CredentialSpec) (string, bool, error) {
	label := spec.Prompt
	if label == "" {
		label = spec.Name
	}
	if !spec.Sensitive && spec.Default != "" {
		fmt.Fprintf(s.out, "%s [%s]: ", label, spec.Default)
	} else {
		fmt.Fprintf(s.out, "%s: ", label)
	}

	value, err := s.read(ctx, spec.Sensitive)
	if err != nil {
		return "", false, fmt.Errorf("reading %s: %v", spec.Name, err)
	}

	value = strings.TrimSpace(value)
	if value == "" {
		if !spec.Sensitive && spec.Default != "" {
			return spec.Default, true, nil
		}
		return "", false, nil
	}
	return value, true, nil
}

// read performs the blocking input read, honoring ctx cancellation.
// The reader goroutine can outlive a cancelled ctx; it dies with the
// process.
func (s *PromptSource) read(ctx context.Context, sensitive bool) (string, error) {
	type result struct {
		value string
		err   error
	}
	ch := make(chan result, 1)

	go func() {
		if sensitive {
			raw, err := term.ReadPassword(int(s.in.Fd()))
			fmt.Fprintln(s.out)
			ch <- result{value: string(raw), err: err}
			return
		}
		line, err := bufio.NewReader(s.in).ReadString('\n')
		if err != nil && line == "" {
			ch <- result{err: err}
			return
		}
		ch <- result{value: line}
	}()

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case r := <-ch:
		return r.value, r.err
	}
}

// Ensure PromptSource implements port.CredentialSource
var _ port.CredentialSource = (*PromptSource)(nil)
