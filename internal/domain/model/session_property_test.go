package model

import (
	"errors"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// genLifecycleOps generates a random sequence of lifecycle operations.
func genLifecycleOps() gopter.Gen {
	return gen.IntRange(1, 40).FlatMap(func(v interface{}) gopter.Gen {
		length := v.(int)
		return gen.SliceOfN(length, gen.OneConstOf(
			"authenticating", "binding", "activate", "closing", "closed", "fail",
		))
	}, nil)
}

func doneClosed(s *TunnelSession) bool {
	select {
	case <-s.Done():
		return true
	default:
		return false
	}
}

// TestSessionLifecycleProperties drives a session through arbitrary
// operation sequences and checks it against the pure transition rules:
// only legal edges move the status, a failed move changes nothing, and
// a settled session stays settled.
func TestSessionLifecycleProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100

	properties := gopter.NewProperties(parameters)

	properties.Property("status always follows the legal edges", prop.ForAll(
		func(ops []string) bool {
			session := NewTunnelSession("prop", TunnelConfig{
				Domain:    "wahoo-unified-oyster.example",
				Protocol:  ProtocolHTTP,
				LocalHost: "127.0.0.1",
				LocalPort: 8501,
			})

			expected := StatusInit
			everSettled := false
			failCause := errors.New("injected failure")
			sawFail := false

			for _, op := range ops {
				switch op {
				case "activate":
					err := session.Activate("https://wahoo-unified-oyster.example", 0)
					legal := expected.CanTransition(StatusActive)
					if legal != (err == nil) {
						return false
					}
					if legal {
						expected = StatusActive
					}
				case "fail":
					session.Fail(failCause)
					if expected != StatusClosing && expected != StatusClosed && expected != StatusError {
						expected = StatusError
						sawFail = true
					}
				default:
					to := SessionStatus(op)
					err := session.Transition(to)
					legal := expected.CanTransition(to)
					if legal != (err == nil) {
						return false
					}
					if legal {
						expected = to
					}
				}

				if session.Status() != expected {
					return false
				}

				if expected == StatusClosed || expected == StatusError {
					everSettled = true
				}
				if doneClosed(session) != everSettled {
					return false
				}
			}

			// The recorded cause exists exactly when a failure landed.
			if sawFail != (session.LastErr() != nil) {
				return false
			}
			return true
		},
		genLifecycleOps(),
	))

	properties.TestingRun(t)
}

// TestRepoPathValidationProperties checks that every accepted path is
// clean, relative, and free of traversal, whatever the input shape.
func TestRepoPathValidationProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100

	properties := gopter.NewProperties(parameters)

	genSegment := gen.OneConstOf("content", "posts", "a.md", "..", ".", "img_01.png", "", "notes")

	properties.Property("accepted paths never traverse or escape", prop.ForAll(
		func(segments []string, absolute bool) bool {
			p := ""
			for i, seg := range segments {
				if i > 0 {
					p += "/"
				}
				p += seg
			}
			if absolute {
				p = "/" + p
			}

			err := ValidateRepoPath(p)
			if err != nil {
				return true
			}
			// Accepted: must be relative, clean, and traversal-free.
			if absolute || p == "" {
				return false
			}
			for _, seg := range segments {
				if seg == ".." || seg == "." || seg == "" {
					return false
				}
			}
			return true
		},
		gen.SliceOfN(3, genSegment),
		gen.Bool(),
	))

	properties.TestingRun(t)
}
