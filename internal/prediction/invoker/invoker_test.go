package invoker

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/yungbote/studentrisk-backend/internal/platform/logger"
	"github.com/yungbote/studentrisk-backend/internal/prediction"
	"github.com/yungbote/studentrisk-backend/internal/prediction/features"
)

// TestHelperProcess is not a real test. It is the child process the tests
// below spawn in place of the model script.
func TestHelperProcess(t *testing.T) {
	if os.Getenv("SR_WANT_HELPER_PROCESS") != "1" {
		return
	}
	payload := os.Args[len(os.Args)-1]
	switch os.Getenv("SR_HELPER_MODE") {
	case "label":
		fmt.Fprintln(os.Stderr, "loading model")
		fmt.Println("Graduate")
	case "echo-age":
		var v map[string]any
		if err := json.Unmarshal([]byte(payload), &v); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(3)
		}
		fmt.Printf(`{"prediction":"Dropout","message":"age %v"}`+"\n", v["age_at_enrollment"])
	case "chunked":
		fmt.Print(`{"prediction":`)
		time.Sleep(20 * time.Millisecond)
		fmt.Print(`"Enrolled"}`)
	case "fail":
		fmt.Fprintln(os.Stderr, "Traceback: model file missing")
		os.Exit(2)
	case "fail-with-output":
		fmt.Println("Dropout")
		os.Exit(1)
	case "noisy-stderr":
		fmt.Fprintln(os.Stderr, strings.Repeat("x", 2<<20))
		fmt.Fprintln(os.Stderr, "still running")
		fmt.Println("Graduate")
	case "empty":
	case "sleep":
		time.Sleep(10 * time.Second)
		fmt.Println("Graduate")
	}
	os.Exit(0)
}

func helperInvoker(t *testing.T, mode string, timeout time.Duration) *Process {
	t.Helper()
	log, err := logger.New("test")
	if err != nil {
		t.Fatalf("logger.New: %v", err)
	}
	p, err := NewProcess(log, Options{
		Command: os.Args[0],
		Args:    []string{"-test.run=TestHelperProcess", "--"},
		Env:     append(os.Environ(), "SR_WANT_HELPER_PROCESS=1", "SR_HELPER_MODE="+mode),
		Timeout: timeout,
	})
	if err != nil {
		t.Fatalf("NewProcess: %v", err)
	}
	return p
}

func TestInvokeReturnsTrimmedStdout(t *testing.T) {
	out, err := helperInvoker(t, "label", 0).Invoke(context.Background(), features.FeatureVector{})
	if err != nil {
		t.Fatalf("Invoke: %v", err)
	}
	if out != "Graduate" {
		t.Fatalf("got %q", out)
	}
}

func TestInvokePassesVectorAsSingleArgument(t *testing.T) {
	out, err := helperInvoker(t, "echo-age", 0).Invoke(context.Background(), features.FeatureVector{AgeAtEnrollment: 23})
	if err != nil {
		t.Fatalf("Invoke: %v", err)
	}
	if out != `{"prediction":"Dropout","message":"age 23"}` {
		t.Fatalf("got %q", out)
	}
}

func TestInvokeConcatenatesChunks(t *testing.T) {
	out, err := helperInvoker(t, "chunked", 0).Invoke(context.Background(), features.FeatureVector{})
	if err != nil {
		t.Fatalf("Invoke: %v", err)
	}
	if out != `{"prediction":"Enrolled"}` {
		t.Fatalf("got %q", out)
	}
}

func TestInvokeFailureCarriesStderr(t *testing.T) {
	_, err := helperInvoker(t, "fail", 0).Invoke(context.Background(), features.FeatureVector{})
	if !prediction.IsKind(err, prediction.KindInvocationFailure) {
		t.Fatalf("want invocation failure, got %v", err)
	}
	if !strings.Contains(err.Error(), "model file missing") {
		t.Fatalf("stderr tail missing from error: %v", err)
	}
}

func TestInvokeNonZeroExitWithOutputIsReturned(t *testing.T) {
	out, err := helperInvoker(t, "fail-with-output", 0).Invoke(context.Background(), features.FeatureVector{})
	if err != nil {
		t.Fatalf("Invoke: %v", err)
	}
	if out != "Dropout" {
		t.Fatalf("got %q", out)
	}
}

func TestInvokeSurvivesHugeStderrLine(t *testing.T) {
	out, err := helperInvoker(t, "noisy-stderr", 10*time.Second).Invoke(context.Background(), features.FeatureVector{})
	if err != nil {
		t.Fatalf("Invoke: %v", err)
	}
	if out != "Graduate" {
		t.Fatalf("got %q", out)
	}
}

func TestReadLinesCutsLongLines(t *testing.T) {
	input := strings.Repeat("a", 100) + "\nshort\n" + strings.Repeat("b", 10)
	var got []string
	if err := readLines(strings.NewReader(input), 8, func(line string) { got = append(got, line) }); err != nil {
		t.Fatalf("readLines: %v", err)
	}
	want := []string{"aaaaaaaa [truncated]", "short", "bbbbbbbb [truncated]"}
	if len(got) != len(want) {
		t.Fatalf("got %q", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("line %d: got %q want %q", i, got[i], want[i])
		}
	}
}

func TestInvokeEmptyOutputIsNotAnError(t *testing.T) {
	out, err := helperInvoker(t, "empty", 0).Invoke(context.Background(), features.FeatureVector{})
	if err != nil {
		t.Fatalf("Invoke: %v", err)
	}
	if out != "" {
		t.Fatalf("got %q", out)
	}
}

func TestInvokeTimeoutKillsProcess(t *testing.T) {
	start := time.Now()
	_, err := helperInvoker(t, "sleep", 200*time.Millisecond).Invoke(context.Background(), features.FeatureVector{})
	if !prediction.IsKind(err, prediction.KindInvocationFailure) {
		t.Fatalf("want invocation failure, got %v", err)
	}
	if !strings.Contains(err.Error(), "timed out") {
		t.Fatalf("want timeout error, got %v", err)
	}
	if time.Since(start) > 5*time.Second {
		t.Fatalf("process was not killed promptly")
	}
}

func TestInvokeSpawnFailure(t *testing.T) {
	log, _ := logger.New("test")
	p, err := NewProcess(log, Options{Command: "/definitely/not/a/python"})
	if err != nil {
		t.Fatalf("NewProcess: %v", err)
	}
	_, err = p.Invoke(context.Background(), features.FeatureVector{})
	if !prediction.IsKind(err, prediction.KindInvocationFailure) {
		t.Fatalf("want invocation failure, got %v", err)
	}
}

func TestConcurrentInvocationsAreIndependent(t *testing.T) {
	p := helperInvoker(t, "echo-age", 0)
	var wg sync.WaitGroup
	errs := make(chan error, 4)
	for i := 0; i < 4; i++ {
		age := 18 + i
		wg.Add(1)
		go func() {
			defer wg.Done()
			out, err := p.Invoke(context.Background(), features.FeatureVector{AgeAtEnrollment: age})
			if err != nil {
				errs <- err
				return
			}
			if want := fmt.Sprintf(`{"prediction":"Dropout","message":"age %d"}`, age); out != want {
				errs <- fmt.Errorf("got %q want %q", out, want)
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatal(err)
	}
}

func TestNewProcessValidation(t *testing.T) {
	log, _ := logger.New("test")
	if _, err := NewProcess(log, Options{}); err == nil {
		t.Fatalf("want error for empty command")
	}
	if _, err := NewProcess(log, Options{Command: "python3", Timeout: -time.Second}); err == nil {
		t.Fatalf("want error for negative timeout")
	}
	if _, err := NewProcess(nil, Options{Command: "python3"}); err == nil {
		t.Fatalf("want error for nil logger")
	}
}
