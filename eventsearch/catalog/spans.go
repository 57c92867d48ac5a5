package catalog

import "github.com/nonibytes/eventsearch/eventsearch/expr"

// DatasetSpans is the indexed spans dataset.
const DatasetSpans = "spans"

var spanStatus = map[string]int64{
	"ok":                  0,
	"cancelled":           1,
	"unknown":             2,
	"invalid_argument":    3,
	"deadline_exceeded":   4,
	"not_found":           5,
	"already_exists":      6,
	"permission_denied":   7,
	"resource_exhausted":  8,
	"failed_precondition": 9,
	"aborted":             10,
	"out_of_range":        11,
	"unimplemented":       12,
	"internal_error":      13,
	"unavailable":         14,
	"data_loss":           15,
	"unauthenticated":     16,
}

// spanDuration is the larger of a span's self time and its duration.
var spanDuration = expr.Fn("if",
	expr.Fn("greater", expr.Col("exclusive_time"), expr.Col("duration")),
	expr.Col("exclusive_time"),
	expr.Col("duration"),
)

func column(name, col string, vt ValueType) Entry {
	return Entry{Name: name, Kind: KindColumn, Column: col, ValueType: vt}
}

// Spans returns the catalog of the indexed spans dataset.
func Spans() *Catalog {
	return MustNew(Definition{
		Dataset:   DatasetSpans,
		TextField: "message",
		TagColumn: "tags",
		Fields: []Entry{
			{Name: "span.duration", Kind: KindDerived, Expression: spanDuration, ValueType: TypeDuration},
			column("span.self_time", "exclusive_time", TypeDuration),
			column("span.op", "op", TypeString),
			column("span.description", "description", TypeString),
			column("message", "description", TypeString),
			{Name: "span.status", Kind: KindColumn, Column: "span_status", ValueType: TypeEnum, EnumMap: spanStatus},
			column("span.action", "action", TypeString),
			column("span.module", "module", TypeString),
			column("span.domain", "domain", TypeString),
			column("span.group", "group", TypeString),
			column("profile.id", "profile_id", TypeString),
			column("trace", "trace_id", TypeString),
			column("transaction.id", "transaction_id", TypeString),
			column("id", "span_id", TypeString),
			column("parent_span", "parent_span_id", TypeString),
			column("segment.id", "segment_id", TypeString),
			column("transaction", "segment_name", TypeString),
			column("is_transaction", "is_segment", TypeBoolean),
			{Name: "project", Kind: KindColumn, Column: "project_id", ValueType: TypeInteger, Lookup: LookupProject},
			column("project.id", "project_id", TypeInteger),
			column("timestamp", "timestamp", TypeTimestamp),
			{Name: "count", Kind: KindAggregate, Expression: expr.Fn("count"), ValueType: TypeInteger},
			{Name: "count()", Kind: KindAggregate, Expression: expr.Fn("count"), ValueType: TypeInteger},
		},
	})
}
