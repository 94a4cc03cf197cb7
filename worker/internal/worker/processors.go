package worker

import (
	"context"
	"fmt"
	"sort"

	"github.com/bharathbs2003/cinehack/worker/internal/models"

	"github.com/google/uuid"
)

// StepProcessor handles one pipeline step for one job at a time. Name is
// both the step identifier in job_steps and the suffix of the routing key
// the step's queue binds to.
type StepProcessor interface {
	Name() string
	Process(ctx context.Context, jobID uuid.UUID, msg models.JobMessage) error
}

// ProcessorRegistry maps step names to their processors. Registration
// happens once at worker construction; lookups afterwards are read-only,
// so no locking is needed.
type ProcessorRegistry struct {
	byStep map[string]StepProcessor
}

// NewProcessorRegistry creates an empty registry.
func NewProcessorRegistry() *ProcessorRegistry {
	return &ProcessorRegistry{byStep: make(map[string]StepProcessor)}
}

// Register adds a processor. Registering two processors under the same step
// name is a programming error and panics at startup.
func (r *ProcessorRegistry) Register(p StepProcessor) {
	if p == nil {
		return
	}
	step := p.Name()
	if _, dup := r.byStep[step]; dup {
		panic(fmt.Sprintf("duplicate processor for step %q", step))
	}
	r.byStep[step] = p
}

// Get retrieves the processor for a step.
func (r *ProcessorRegistry) Get(step string) (StepProcessor, bool) {
	p, ok := r.byStep[step]
	return p, ok
}

// Names returns the registered step names in sorted order.
func (r *ProcessorRegistry) Names() []string {
	names := make([]string, 0, len(r.byStep))
	for step := range r.byStep {
		names = append(names, step)
	}
	sort.Strings(names)
	return names
}
