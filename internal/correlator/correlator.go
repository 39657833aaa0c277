package correlator

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/rs/xid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/flowtrace/flowtrace/internal/domain"
	"github.com/flowtrace/flowtrace/pkg/flowapi"
)

const (
	DefaultTimeWindow = 30 * time.Second
	DefaultMaxDepth   = 5

	// Candidate list bounds per discovery pass.
	webhookPassLimit     = 10
	subworkflowPassLimit = 5

	// The webhook pass accepts candidates starting up to one second
	// before the parent execution; the sub-workflow pass does not.
	// Distinct constants: unifying them moves the acceptance boundary.
	webhookPassGrace     = time.Second
	subworkflowPassGrace = time.Duration(0)
)

// Source supplies workflow definitions and execution records. Satisfied
// by *flowapi.Client.
type Source interface {
	ListWorkflows(ctx context.Context, activeOnly bool) ([]domain.Workflow, error)
	GetWorkflow(ctx context.Context, id string) (*domain.Workflow, error)
	ListExecutions(ctx context.Context, filter flowapi.ExecutionFilter) ([]domain.Execution, error)
	GetExecution(ctx context.Context, id string, includeData bool) (*domain.Execution, error)
}

// Options bounds a correlation search.
type Options struct {
	// TimeWindow limits how long after the parent execution a candidate
	// may start. Defaults to DefaultTimeWindow.
	TimeWindow time.Duration

	// MaxDepth limits how many triggering hops the search follows from
	// the root. Defaults to DefaultMaxDepth.
	MaxDepth int
}

func (o Options) withDefaults() Options {
	if o.TimeWindow <= 0 {
		o.TimeWindow = DefaultTimeWindow
	}

	if o.MaxDepth <= 0 {
		o.MaxDepth = DefaultMaxDepth
	}

	return o
}

// Correlation links a discovered execution to the execution that likely
// triggered it, with a confidence in (0.5, 1.0] and a label naming the
// signals that contributed.
type Correlation struct {
	Execution  domain.Execution
	ParentID   string
	Confidence float64
	Method     string
}

// Correlator discovers executions likely triggered by a given execution,
// directly or transitively, across workflow boundaries. The workflow
// cache and webhook index are built once per instance and never
// invalidated; construct a new correlator to see newly created webhooks.
type Correlator struct {
	source Source

	// Session state, populated by Initialize.
	index          *webhookIndex
	names          map[string]string
	subworkflowIDs []string
}

func New(source Source) *Correlator {
	return &Correlator{source: source}
}

// Initialize builds the workflow cache and webhook index by fetching
// every active workflow's full definition. This fan-out is proportional
// to workflow count and is paid once; repeated calls are no-ops.
func (c *Correlator) Initialize(ctx context.Context) error {
	if c.index != nil {
		return nil
	}

	summaries, err := c.source.ListWorkflows(ctx, true)
	if err != nil {
		return fmt.Errorf("failed to list active workflows: %w", err)
	}

	names := make(map[string]string, len(summaries))

	var definitions []domain.Workflow
	var subworkflowIDs []string

	for _, summary := range summaries {
		// Summaries omit node lists, so fetch the full definition.
		workflow, err := c.source.GetWorkflow(ctx, summary.ID)
		if err != nil {
			return fmt.Errorf("failed to fetch workflow %s: %w", summary.ID, err)
		}

		names[workflow.ID] = workflow.Name
		definitions = append(definitions, *workflow)

		if workflow.HasWorkflowTrigger() {
			subworkflowIDs = append(subworkflowIDs, workflow.ID)
		}
	}

	sort.Strings(subworkflowIDs)

	c.names = names
	c.subworkflowIDs = subworkflowIDs
	c.index = buildWebhookIndex(definitions)

	log.Info().
		Int("workflows", len(definitions)).
		Int("subworkflow_triggers", len(subworkflowIDs)).
		Msg("Correlator initialized")

	return nil
}

// GetWorkflowName returns the cached name for a workflow id, or the id
// itself when unknown.
func (c *Correlator) GetWorkflowName(id string) string {
	if name, ok := c.names[id]; ok {
		return name
	}

	return id
}

// GetWorkflowNames returns all cached workflow ids mapped to their names.
func (c *Correlator) GetWorkflowNames() map[string]string {
	names := make(map[string]string, len(c.names))
	for id, name := range c.names {
		names[id] = name
	}

	return names
}

// CorrelateExecutions discovers executions likely triggered by the root
// execution and returns them in discovery order, depth first, webhook
// candidates before sub-workflow candidates at each hop. Initializes the
// correlator on first use. Data-source failures abort the whole search;
// there is no partial-result salvage.
func (c *Correlator) CorrelateExecutions(ctx context.Context, rootID string, opts Options) ([]Correlation, error) {
	opts = opts.withDefaults()

	if err := c.Initialize(ctx); err != nil {
		return nil, err
	}

	root, err := c.source.GetExecution(ctx, rootID, true)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch root execution %s: %w", rootID, err)
	}

	s := &search{
		correlator: c,
		opts:       opts,
		visited:    map[string]struct{}{root.ID: {}},
		logger: log.With().
			Str("trace_id", xid.New().String()).
			Str("root_execution", root.ID).
			Logger(),
	}

	s.logger.Info().
		Dur("time_window", opts.TimeWindow).
		Int("max_depth", opts.MaxDepth).
		Msg("Starting execution correlation")

	if err := s.expand(ctx, *root, root.ID, 0); err != nil {
		return nil, err
	}

	s.logger.Info().Int("correlations", len(s.results)).Msg("Execution correlation finished")

	return s.results, nil
}

// search carries the state of one correlation run. The visited set is
// shared across the whole search, not per branch: each execution is
// accepted at most once and never re-expanded, which terminates cycles
// in the trigger graph.
type search struct {
	correlator *Correlator
	opts       Options
	visited    map[string]struct{}
	results    []Correlation
	logger     zerolog.Logger
}

// expand runs both discovery passes for one execution, recursing into
// every accepted candidate. Depth counts triggering hops from the root.
func (s *search) expand(ctx context.Context, execution domain.Execution, parentID string, depth int) error {
	if depth >= s.opts.MaxDepth {
		s.logger.Debug().Str("execution", execution.ID).Int("depth", depth).Msg("Max depth reached")
		return nil
	}

	parentCtx := ExtractUserContext(execution)

	if err := s.webhookPass(ctx, execution, parentCtx, parentID, depth); err != nil {
		return err
	}

	return s.subworkflowPass(ctx, execution, parentCtx, parentID, depth)
}

// webhookPass resolves each outbound HTTP call through the webhook index
// and scores recent executions of the resolved workflow. An unresolved
// call is skipped silently.
func (s *search) webhookPass(ctx context.Context, execution domain.Execution, parentCtx UserContext, parentID string, depth int) error {
	windowStart := execution.StartedAt.Add(-webhookPassGrace)
	windowEnd := execution.StartedAt.Add(s.opts.TimeWindow)

	for _, call := range ExtractHTTPCalls(execution) {
		mapping, ok := s.correlator.index.Find(call.URL)
		if !ok {
			continue
		}

		candidates, err := s.correlator.source.ListExecutions(ctx, flowapi.ExecutionFilter{
			WorkflowID:  mapping.WorkflowID,
			Limit:       webhookPassLimit,
			IncludeData: true,
		})
		if err != nil {
			return fmt.Errorf("failed to list executions of workflow %s: %w", mapping.WorkflowID, err)
		}

		for _, candidate := range candidates {
			if _, seen := s.visited[candidate.ID]; seen {
				continue
			}

			if candidate.StartedAt.Before(windowStart) || candidate.StartedAt.After(windowEnd) {
				continue
			}

			confidence, method := scoreWebhookCorrelation(candidate, parentCtx, call)
			if confidence <= acceptThreshold {
				continue
			}

			if err := s.accept(ctx, candidate, parentID, depth, confidence, method); err != nil {
				return err
			}
		}
	}

	return nil
}

// subworkflowPass scores recent executions of every cached workflow that
// carries a sub-workflow trigger, except the current execution's own
// workflow. Unlike the webhook pass there is no grace period before the
// parent's start.
func (s *search) subworkflowPass(ctx context.Context, execution domain.Execution, parentCtx UserContext, parentID string, depth int) error {
	windowStart := execution.StartedAt.Add(-subworkflowPassGrace)
	windowEnd := execution.StartedAt.Add(s.opts.TimeWindow)

	for _, workflowID := range s.correlator.subworkflowIDs {
		if workflowID == execution.WorkflowID {
			continue
		}

		candidates, err := s.correlator.source.ListExecutions(ctx, flowapi.ExecutionFilter{
			WorkflowID:  workflowID,
			Limit:       subworkflowPassLimit,
			IncludeData: true,
		})
		if err != nil {
			return fmt.Errorf("failed to list executions of workflow %s: %w", workflowID, err)
		}

		for _, candidate := range candidates {
			if _, seen := s.visited[candidate.ID]; seen {
				continue
			}

			if candidate.StartedAt.Before(windowStart) || candidate.StartedAt.After(windowEnd) {
				continue
			}

			score, method := scoreSubworkflowCorrelation(execution, candidate, parentCtx)
			if score <= acceptThreshold {
				continue
			}

			confidence := score
			if confidence > 1.0 {
				confidence = 1.0
			}

			if err := s.accept(ctx, candidate, parentID, depth, confidence, method); err != nil {
				return err
			}
		}
	}

	return nil
}

// accept records a correlation and immediately expands the candidate's
// own subtree, with the candidate as the parent of whatever it finds.
func (s *search) accept(ctx context.Context, candidate domain.Execution, parentID string, depth int, confidence float64, method string) error {
	s.visited[candidate.ID] = struct{}{}
	s.results = append(s.results, Correlation{
		Execution:  candidate,
		ParentID:   parentID,
		Confidence: confidence,
		Method:     method,
	})

	s.logger.Debug().
		Str("execution", candidate.ID).
		Str("workflow", candidate.WorkflowID).
		Float64("confidence", confidence).
		Str("method", method).
		Int("depth", depth).
		Msg("Accepted correlation")

	return s.expand(ctx, candidate, candidate.ID, depth+1)
}
