// Package types defines the shared data structures for the responsecore engine.
// This package contains only type definitions, plus the FilterFunc adapter.
package types

// ResponseType names the kind of a concrete response.
type ResponseType string

const (
	ResponseNone     ResponseType = "none"
	ResponseSpeak    ResponseType = "speak"
	ResponseSentence ResponseType = "sentence"
	ResponseScene    ResponseType = "scene"
	ResponseGroupRef ResponseType = "response" // value names another response group
	ResponsePrint    ResponseType = "print"
)

// Fact is a single named, weighted criterion supplied by the caller.
type Fact struct {
	Name   string
	Value  string
	Weight float32
}

// CriterionDef is an authored criterion. A leaf sets Key and Value;
// a composite sets Children. Never both.
type CriterionDef struct {
	ID       string
	Key      string   // fact name matched by a leaf
	Value    string   // match expression
	Weight   float32  // stored as given; loaders default to 1
	Required bool
	Children []string // criterion IDs
}

// ResponseDef is one authored entry of a response group.
type ResponseDef struct {
	Type   ResponseType
	Value  string
	Weight float32 // stored as given; loaders default to 1
	First  bool
	Last   bool
}

// Interval is an inclusive [Min, Max] range in seconds.
type Interval struct {
	Min float32
	Max float32
}

// ResponseParams carries the speech-layer parameters of a group.
type ResponseParams struct {
	Delay         Interval
	PreDelay      Interval
	RespeakDelay  Interval
	WeaponDelay   Interval
	Odds          int // 0-100
	SoundLevel    string
	SpeakOnce     bool
	NoScene       bool
	StopOnNonIdle bool
}

// ResponseGroupDef is an authored response group.
type ResponseGroupDef struct {
	ID            string
	Responses     []ResponseDef
	Sequential    bool
	NoRepeat      bool
	PermitRepeats bool // disables deplete-before-repeat
	Params        ResponseParams
}

// RuleDef is an authored rule.
type RuleDef struct {
	ID                  string
	Criteria            []string // criterion IDs
	Groups              []string // response group IDs
	Disabled            bool
	MatchOnce           bool
	Context             string // "key:value[:duration],..."
	ApplyContextToWorld bool
	SourceOrder         int    // position among authored definitions; rules are scanned in this order
}

// EnumerationDef is a named table of numeric constants.
type EnumerationDef struct {
	ID     string
	Values map[string]float32
}

// Response is a concrete response chosen by the engine.
type Response struct {
	Type  ResponseType
	Value string
}

// Outcome is the result of a single dispatch.
type Outcome struct {
	Matched             bool
	Response            Response // zero when the winning rule had nothing eligible
	Rule                string
	Group               string
	Context             string
	ApplyContextToWorld bool
	Params              ResponseParams
	Score               float32
	Events              []Event
}

// Event is emitted during a dispatch.
type Event struct {
	Type string
	Data map[string]any
}

// Random is the source of randomness used for tie-breaks and sampling.
type Random interface {
	// RandomInt returns an integer in [lo, hi].
	RandomInt(lo, hi int) int
	// RandomFloat returns a float in [lo, hi].
	RandomFloat(lo, hi float32) float32
}

// Filter vetoes concrete response candidates at selection time.
type Filter interface {
	IsValidResponse(t ResponseType, value string) bool
}

// FilterFunc adapts a plain function to Filter.
type FilterFunc func(t ResponseType, value string) bool

// IsValidResponse calls f.
func (f FilterFunc) IsValidResponse(t ResponseType, value string) bool { return f(t, value) }
