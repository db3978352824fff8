package coordinator

import (
	"errors"

	"go.opentelemetry.io/otel/metric"
)

type instruments struct {
	runs            metric.Int64Counter
	runsCompleted   metric.Int64Counter
	runsFailed      metric.Int64Counter
	runsExhausted   metric.Int64Counter
	turns           metric.Int64Counter
	toolCalls       metric.Int64Counter
	toolCallsFailed metric.Int64Counter
	textOnly        metric.Int64Counter

	runDuration metric.Float64Histogram
	llmLatency  metric.Float64Histogram
	toolLatency metric.Float64Histogram
	promptSize  metric.Int64Histogram
}

func newInstruments(m metric.Meter) (*instruments, error) {
	var (
		in   instruments
		err  error
		errs []error
	)
	counter := func(name, desc string) metric.Int64Counter {
		c, err := m.Int64Counter(name, metric.WithDescription(desc))
		errs = append(errs, err)
		return c
	}

	in.runs = counter("coordinator_runs_total", "Total number of coordination runs started")
	in.runsCompleted = counter("coordinator_runs_completed_total", "Total number of coordination runs that produced an answer")
	in.runsFailed = counter("coordinator_runs_failed_total", "Total number of coordination runs that failed")
	in.runsExhausted = counter("coordinator_runs_exhausted_total", "Total number of coordination runs that used their whole turn budget")
	in.turns = counter("coordinator_turns_total", "Total number of turns sent to the reasoning service")
	in.toolCalls = counter("tool_calls_total", "Total number of tool calls executed")
	in.toolCallsFailed = counter("tool_calls_failed_total", "Total number of tool calls that returned an error")
	in.textOnly = counter("coordinator_text_only_fallbacks_total", "Total number of runs that fell back to text-only mode")

	in.runDuration, err = m.Float64Histogram("coordination_duration_seconds",
		metric.WithDescription("Total duration of a coordination run in seconds"), metric.WithUnit("s"))
	errs = append(errs, err)
	in.llmLatency, err = m.Float64Histogram("llm_response_time_seconds",
		metric.WithDescription("Time taken to receive a response from the reasoning service in seconds"), metric.WithUnit("s"))
	errs = append(errs, err)
	in.toolLatency, err = m.Float64Histogram("tool_execution_time_seconds",
		metric.WithDescription("Time taken to execute individual tools in seconds"), metric.WithUnit("s"))
	errs = append(errs, err)
	in.promptSize, err = m.Int64Histogram("prompt_size_bytes",
		metric.WithDescription("Size of the prompt sent to the reasoning service in bytes"), metric.WithUnit("By"))
	errs = append(errs, err)

	return &in, errors.Join(errs...)
}
