package cpu

import (
	"runtime"
	"testing"
)

func TestBind_NoOpBinding(t *testing.T) {
	locked, err := Bind(Binding{})
	if locked {
		t.Error("empty binding should not lock the thread")
	}
	if err != nil {
		t.Errorf("expected no error, got %v", err)
	}
}

func TestBind_Pin(t *testing.T) {
	done := make(chan struct{})
	go func() {
		defer close(done)
		locked, err := Bind(Binding{Pin: true, Core: runtime.NumCPU() + 1})
		if !locked {
			t.Error("pinning should lock the thread")
		}
		if runtime.GOOS == "linux" && err != nil {
			t.Logf("affinity not applied: %v", err)
		}
		runtime.UnlockOSThread()
	}()
	<-done
}

func TestClampNice(t *testing.T) {
	tests := []struct {
		in, want int
	}{
		{-40, MinNice},
		{-20, -20},
		{0, 0},
		{12, 12},
		{50, MaxNice},
	}

	for _, tt := range tests {
		if got := clampNice(tt.in); got != tt.want {
			t.Errorf("clampNice(%d) = %d, want %d", tt.in, got, tt.want)
		}
	}
}
