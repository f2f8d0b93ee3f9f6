package core

import "testing"

func TestErrorForReplyCode(t *testing.T) {
	tests := []struct {
		code     string
		expected int
	}{
		{"NOT_FOUND", ExitNotFound},
		{"INVALID", ExitUsage},
		{"RUNTIME", ExitRuntime},
		{"UNKNOWN", ExitRuntime},
	}

	for _, test := range tests {
		err := ErrorForReplyCode(test.code, "message")
		if err.Code != test.expected {
			t.Fatalf("code %s expected %d got %d", test.code, test.expected, err.Code)
		}
	}
}

func TestExitCode(t *testing.T) {
	if ExitCode(nil) != ExitOK {
		t.Fatalf("nil error should be ok")
	}
	if ExitCode(&CLIError{Code: ExitNotFound}) != ExitNotFound {
		t.Fatalf("cli error code not propagated")
	}
	if ExitCode(errAny{}) != ExitRuntime {
		t.Fatalf("plain error should be runtime")
	}
}

type errAny struct{}

func (errAny) Error() string { return "any" }
