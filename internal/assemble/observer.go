// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package assemble

import (
	"fmt"
	"io"

	"go.uber.org/zap"

	"github.com/pdiddy/article-engine/pkg/types"
)

// Observer receives one event per fetched section. The assembler delivers
// events one at a time, so implementations need no locking of their own.
type Observer interface {
	Observe(types.Event)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(types.Event)

func (f ObserverFunc) Observe(ev types.Event) { f(ev) }

type multiObserver []Observer

func (m multiObserver) Observe(ev types.Event) {
	for _, o := range m {
		o.Observe(ev)
	}
}

// Observers fans events out to every non-nil observer in order.
func Observers(obs ...Observer) Observer {
	var m multiObserver
	for _, o := range obs {
		if o != nil {
			m = append(m, o)
		}
	}
	return m
}

// LogObserver writes each event as a structured log entry. Failures log at
// warn level, everything else at debug.
func LogObserver(log *zap.Logger) Observer {
	return ObserverFunc(func(ev types.Event) {
		fields := []zap.Field{
			zap.String("run", ev.RunID),
			zap.String("path", ev.Path),
			zap.String("title", ev.Title),
			zap.String("prompt", ev.PromptKey),
			zap.String("outcome", string(ev.Outcome)),
			zap.Int("input_tokens", ev.InputTokens),
			zap.Int("output_tokens", ev.OutputTokens),
			zap.Duration("duration", ev.Duration),
		}
		switch ev.Outcome {
		case types.OutcomeFailed, types.OutcomePlaceholder:
			log.Warn("section fetch failed", append(fields, zap.String("error", ev.Error))...)
		default:
			log.Debug("section fetched", fields...)
		}
	})
}

// ProgressObserver prints one line per section, in the style of the batch
// commands: "fetched  1.1 Cost (120 tokens)".
func ProgressObserver(w io.Writer) Observer {
	return ObserverFunc(func(ev types.Event) {
		switch ev.Outcome {
		case types.OutcomeFailed, types.OutcomePlaceholder:
			fmt.Fprintf(w, "%-8s %s %s: %s\n", ev.Outcome, ev.Path, ev.Title, ev.Error)
		default:
			fmt.Fprintf(w, "%-8s %s %s (%d tokens)\n", ev.Outcome, ev.Path, ev.Title, ev.TotalTokens())
		}
	})
}
