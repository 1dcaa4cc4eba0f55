package invoker

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/yungbote/studentrisk-backend/internal/platform/ctxutil"
	"github.com/yungbote/studentrisk-backend/internal/platform/logger"
	"github.com/yungbote/studentrisk-backend/internal/prediction"
	"github.com/yungbote/studentrisk-backend/internal/prediction/features"
)

// Invoker runs inference for one feature vector and returns the raw,
// trimmed output.
type Invoker interface {
	Invoke(ctx context.Context, v features.FeatureVector) (string, error)
}

type Options struct {
	// Command is the interpreter or binary, e.g. "python3".
	Command string
	// Args come before the JSON payload, typically the script path.
	Args []string
	Dir  string
	// Env replaces the inherited environment when non-nil.
	Env []string
	// Timeout bounds one invocation. Zero disables it.
	Timeout time.Duration
}

const (
	stderrTailLines = 20
	// Longer stderr lines are cut before logging.
	maxStderrLine = 4 << 10
)

// Process spawns one child process per call. It holds no per-call state and
// is safe for concurrent use.
type Process struct {
	log  *logger.Logger
	opts Options
}

func NewProcess(log *logger.Logger, opts Options) (*Process, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	opts.Command = strings.TrimSpace(opts.Command)
	if opts.Command == "" {
		return nil, fmt.Errorf("inference command required")
	}
	if opts.Timeout < 0 {
		return nil, fmt.Errorf("inference timeout must not be negative")
	}
	return &Process{
		log:  log.With("service", "InferenceProcess", "command", opts.Command),
		opts: opts,
	}, nil
}

func (p *Process) Invoke(ctx context.Context, v features.FeatureVector) (string, error) {
	const op = "invoke"
	ctx = ctxutil.Default(ctx)
	log := p.log.With(ctxutil.LogFields(ctx)...)

	payload, err := v.JSON()
	if err != nil {
		return "", prediction.Invocation(op, fmt.Errorf("encode features: %w", err))
	}

	if p.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.opts.Timeout)
		defer cancel()
	}

	args := append(append([]string{}, p.opts.Args...), payload)
	cmd := exec.CommandContext(ctx, p.opts.Command, args...)
	cmd.Dir = p.opts.Dir
	if p.opts.Env != nil {
		cmd.Env = p.opts.Env
	}
	cmd.WaitDelay = 2 * time.Second

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return "", prediction.Invocation(op, err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return "", prediction.Invocation(op, err)
	}

	start := time.Now()
	if err := cmd.Start(); err != nil {
		return "", prediction.Invocation(op, fmt.Errorf("start %s: %w", p.opts.Command, err))
	}

	var (
		out  bytes.Buffer
		tail = newTail(stderrTailLines)
		g    errgroup.Group
	)
	g.Go(func() error {
		_, err := io.Copy(&out, stdout)
		return err
	})
	g.Go(func() error {
		return readLines(stderr, maxStderrLine, func(line string) {
			tail.add(line)
			log.Warn("inference stderr", "line", line)
		})
	})
	readErr := g.Wait()
	waitErr := cmd.Wait()

	result := strings.TrimSpace(out.String())
	elapsed := time.Since(start)

	if ctxErr := ctx.Err(); ctxErr != nil {
		if errors.Is(ctxErr, context.DeadlineExceeded) {
			return "", prediction.Invocation(op, fmt.Errorf("inference timed out after %s: %w", elapsed.Round(time.Millisecond), ctxErr))
		}
		return "", prediction.Invocation(op, fmt.Errorf("inference canceled: %w", ctxErr))
	}
	if waitErr != nil {
		if result == "" {
			return "", prediction.Invocation(op, fmt.Errorf("%w; stderr=%s", waitErr, tail.String()))
		}
		log.Warn("inference exited with error but produced output", "error", waitErr, "elapsed_ms", elapsed.Milliseconds())
	}
	if readErr != nil && result == "" {
		return "", prediction.Invocation(op, fmt.Errorf("read output: %w", readErr))
	}

	log.Debug("inference finished", "elapsed_ms", elapsed.Milliseconds(), "bytes", out.Len())
	return result, nil
}

type tailBuffer struct {
	mu    sync.Mutex
	max   int
	lines []string
}

func newTail(max int) *tailBuffer { return &tailBuffer{max: max} }

func (t *tailBuffer) add(line string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.lines = append(t.lines, line)
	if len(t.lines) > t.max {
		t.lines = t.lines[len(t.lines)-t.max:]
	}
}

func (t *tailBuffer) String() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return strings.Join(t.lines, "\n")
}

// readLines calls fn for every line of r, cutting lines longer than max. It
// reads r to the end so a chatty child never blocks on a full pipe.
func readLines(r io.Reader, max int, fn func(line string)) error {
	br := bufio.NewReaderSize(r, 64<<10)
	var (
		line []byte
		cut  bool
	)
	emit := func() {
		s := string(line)
		if cut {
			s += " [truncated]"
		}
		fn(s)
		line, cut = line[:0], false
	}
	for {
		chunk, more, err := br.ReadLine()
		if err != nil {
			if len(line) > 0 || cut {
				emit()
			}
			if errors.Is(err, io.EOF) {
				return nil
			}
			_, _ = io.Copy(io.Discard, r)
			return err
		}
		if room := max - len(line); len(chunk) > room {
			line = append(line, chunk[:room]...)
			cut = true
		} else {
			line = append(line, chunk...)
		}
		if !more {
			emit()
		}
	}
}
