package optimize

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"

	"promptgate/pkg/metric"
	"promptgate/pkg/predict"

	"golang.org/x/sync/errgroup"
)

// BootstrapFewShot runs a teacher copy of the student over the training
// examples and keeps the traces the metric accepts as demos. Unused
// examples fill the remaining demo slots as labeled demos.
type BootstrapFewShot struct {
	reasoner predict.Reasoner
	settings Settings
}

// NewBootstrapFewShot implements Factory.
func NewBootstrapFewShot(reasoner predict.Reasoner, settings Settings) Optimizer {
	if settings.MaxLabeledDemos <= 0 {
		settings.MaxLabeledDemos = 16
	}
	if settings.Concurrency <= 0 {
		settings.Concurrency = 1
	}
	return &BootstrapFewShot{reasoner: reasoner, settings: settings}
}

type attempt struct {
	pred predict.Prediction
	err  error
}

func (b *BootstrapFewShot) Compile(ctx context.Context, student *predict.Module, score metric.Func, trainset []predict.Example, maxBootstraps int) (*predict.Module, int, error) {
	sig := student.Signature
	fields := sig.Fields()

	var failures atomic.Int32
	used := make([]bool, len(trainset))
	var augmented []predict.Example

	for start := 0; start < len(trainset) && len(augmented) < maxBootstraps; start += b.settings.Concurrency {
		end := min(start+b.settings.Concurrency, len(trainset))
		results := make([]attempt, end-start)

		g, gctx := errgroup.WithContext(ctx)
		for i := start; i < end; i++ {
			g.Go(func() error {
				teacher := b.teacher(student, trainset, i)
				pred, err := b.reasoner.Run(gctx, teacher, trainset[i].Pick(sig.Inputs))
				if err != nil {
					if ctx.Err() != nil {
						return ctx.Err()
					}
					n := int(failures.Add(1))
					slog.WarnContext(ctx, "Bootstrap call failed", "signature", sig.Name, "example", i, "error", err)
					if n > b.settings.MaxErrors {
						return fmt.Errorf("%w: %d failures, last: %w", ErrTooManyErrors, n, err)
					}
				}
				results[i-start] = attempt{pred: pred, err: err}
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, 0, err
		}

		for j, res := range results {
			if len(augmented) >= maxBootstraps {
				break
			}
			i := start + j
			if res.err != nil || !score(trainset[i], res.pred.Outputs, sig.Outputs) {
				continue
			}
			demo := trainset[i].Pick(sig.Inputs)
			for k, v := range res.pred.Outputs {
				demo[k] = v
			}
			if res.pred.Reasoning != "" && student.Kind == predict.KindChainOfThought {
				demo[predict.ReasoningField] = res.pred.Reasoning
			}
			augmented = append(augmented, demo)
			used[i] = true
		}
	}

	demos := append([]predict.Example(nil), augmented...)
	slots := b.labeledSlots(len(augmented))
	for i, ex := range trainset {
		if slots == 0 {
			break
		}
		if used[i] {
			continue
		}
		demos = append(demos, ex.Pick(fields))
		slots--
	}

	compiled := student.Clone()
	compiled.Demos = demos

	slog.InfoContext(ctx, "Bootstrap finished",
		"signature", sig.Name,
		"examples", len(trainset),
		"bootstrapped", len(augmented),
		"demos", len(demos),
		"failures", failures.Load(),
	)
	return compiled, len(augmented), nil
}

// labeledSlots is how many labeled demos fit next to n bootstrapped ones.
func (b *BootstrapFewShot) labeledSlots(n int) int {
	return max(b.settings.MaxLabeledDemos-n, 0)
}

// teacher returns the student seeded with labeled demos from every example
// but skip.
func (b *BootstrapFewShot) teacher(student *predict.Module, trainset []predict.Example, skip int) *predict.Module {
	fields := student.Signature.Fields()
	t := student.Clone()
	t.Demos = t.Demos[:0]
	for i, ex := range trainset {
		if len(t.Demos) >= b.settings.MaxLabeledDemos {
			break
		}
		if i != skip {
			t.Demos = append(t.Demos, ex.Pick(fields))
		}
	}
	return t
}
