package observer

import "go.opentelemetry.io/otel/attribute"

// Attribute keys for run observability spans and metrics.
var (
	AttrRunID      = attribute.Key("run.id")
	AttrRunDepth   = attribute.Key("run.depth")
	AttrRunOutcome = attribute.Key("run.outcome")

	AttrToolName = attribute.Key("tool.name")
)
