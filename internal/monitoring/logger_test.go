package monitoring

import "testing"

func TestSetLogger(t *testing.T) {
	original := Logf
	defer func() { Logf = original }()

	var got string
	SetLogger(func(format string, v ...interface{}) { got = format })
	Logf("inversion converged")
	if got != "inversion converged" {
		t.Errorf("custom logger not invoked, got %q", got)
	}

	// nil installs a no-op logger
	got = ""
	SetLogger(nil)
	Logf("should be dropped")
	if got != "" {
		t.Error("no-op logger should not forward messages")
	}
}

func TestLogfDefault(t *testing.T) {
	if Logf == nil {
		t.Fatal("Logf must not be nil by default")
	}
}
