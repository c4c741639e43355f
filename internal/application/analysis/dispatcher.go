package analysis

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	domain "github.com/bryanwahyu/automaton-forensics/internal/domain/forensics"
)

// Dispatcher runs the requested tools one after another against a file.
type Dispatcher struct {
	Registry *domain.Registry
	Runner   domain.Runner
	Log      logrus.FieldLogger
}

// Selection normalizes the requested tool list: empty means the default
// selection, duplicates keep their first position.
func Selection(requested []domain.ToolName) []domain.ToolName {
	if len(requested) == 0 {
		return append([]domain.ToolName(nil), domain.DefaultSelection...)
	}
	seen := make(map[domain.ToolName]bool, len(requested))
	out := make([]domain.ToolName, 0, len(requested))
	for _, t := range requested {
		if seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}

// Dispatch never fails as a whole: each tool's problem is captured in its
// own ToolResult.
func (d *Dispatcher) Dispatch(ctx context.Context, path string, requested []domain.ToolName) domain.Results {
	tools := Selection(requested)
	results := make(domain.Results, len(tools))
	for _, t := range tools {
		results[t] = d.runOne(ctx, path, t)
	}
	return results
}

func (d *Dispatcher) runOne(ctx context.Context, path string, tool domain.ToolName) (res domain.ToolResult) {
	argv, ok := d.Registry.Command(tool, path)
	if !ok {
		return domain.Failed("", domain.ErrorToolNotConfigured, "")
	}

	defer func() {
		if rec := recover(); rec != nil {
			d.logger().WithField("tool", tool).Errorf("tool handling panicked: %v", rec)
			res = domain.Failed("", domain.ErrorOther, fmt.Sprintf("panic: %v", rec))
		}
	}()
	return d.Runner.Run(ctx, argv)
}

func (d *Dispatcher) logger() logrus.FieldLogger {
	if d.Log == nil {
		return logrus.StandardLogger()
	}
	return d.Log
}
