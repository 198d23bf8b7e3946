package semantic

import (
	"regexp"
	"strings"
)

// Signal is one heuristic check contributing weight toward a detector's
// composite confidence when it matches.
type Signal struct {
	Name   string
	Weight float64
	Match  func(in PatternInput) bool
}

// DetectorSpec is one design-pattern detector: a fixed signal list plus
// the threshold a composite score must clear to be reported (spec
// §4.10). Detectors are data, not interfaces, since every one of them
// boils down to the same weighted-signal evaluation loop; the table
// mirrors how the teacher's own rule tables (e.g. framework detection)
// favor one generic evaluator over a detector-per-file hierarchy once the
// shape is this uniform.
type DetectorSpec struct {
	PatternName string
	Threshold   float64
	Signals     []Signal
}

// PatternInput is a class/struct and its method set, the unit design
// patterns are detected against.
type PatternInput struct {
	TypeName        string
	DocComment      string
	IsAbstract      bool
	ExtendsName     string
	ImplementsNames []string
	MethodNames     []string
	FieldNames      []string
	FieldTypes      []string
	ConstructorBody string // body of a New<Type>/NewType-style constructor, if any
}

func nameHas(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}

func anyMethod(in PatternInput, substrs ...string) bool {
	for _, m := range in.MethodNames {
		for _, s := range substrs {
			if nameHas(m, s) {
				return true
			}
		}
	}
	return false
}

func anyField(in PatternInput, substrs ...string) bool {
	for _, f := range in.FieldNames {
		for _, s := range substrs {
			if nameHas(f, s) {
				return true
			}
		}
	}
	return false
}

var singletonPrivateCtor = regexp.MustCompile(`\bsync\.Once\b`)

// DetectorSpecs enumerates the twelve detectors spec §4.10 names.
func DetectorSpecs() []DetectorSpec {
	return []DetectorSpec{
		{
			PatternName: "factory",
			Threshold:   0.6,
			Signals: []Signal{
				{"constructor-name", 0.35, func(in PatternInput) bool { return anyMethod(in, "new"+strings.ToLower(in.TypeName), "create", "build") }},
				{"returns-interface", 0.25, func(in PatternInput) bool { return len(in.ImplementsNames) > 0 }},
				{"no-shared-state", 0.2, func(in PatternInput) bool { return len(in.FieldNames) <= 2 }},
				{"name-hint", 0.2, func(in PatternInput) bool { return nameHas(in.TypeName, "factory") }},
			},
		},
		{
			PatternName: "singleton",
			Threshold:   0.6,
			Signals: []Signal{
				{"sync-once", 0.4, func(in PatternInput) bool { return singletonPrivateCtor.MatchString(in.ConstructorBody) }},
				{"get-instance-method", 0.35, func(in PatternInput) bool { return anyMethod(in, "getinstance", "instance") }},
				{"package-level-var", 0.25, func(in PatternInput) bool { return anyField(in, "instance") }},
			},
		},
		{
			PatternName: "observer",
			Threshold:   0.6,
			Signals: []Signal{
				{"subscriber-list", 0.3, func(in PatternInput) bool { return anyField(in, "listener", "observer", "subscriber", "handler") }},
				{"subscribe-method", 0.35, func(in PatternInput) bool { return anyMethod(in, "subscribe", "addlistener", "on", "register") }},
				{"notify-method", 0.35, func(in PatternInput) bool { return anyMethod(in, "notify", "emit", "publish", "broadcast") }},
			},
		},
		{
			PatternName: "repository",
			Threshold:   0.55,
			Signals: []Signal{
				{"name-hint", 0.3, func(in PatternInput) bool { return nameHas(in.TypeName, "repository") || nameHas(in.TypeName, "repo") }},
				{"crud-methods", 0.45, func(in PatternInput) bool {
					return anyMethod(in, "find", "get", "save", "delete", "create", "update", "list", "query")
				}},
				{"storage-field", 0.25, func(in PatternInput) bool { return anyField(in, "db", "store", "conn", "client") }},
			},
		},
		{
			PatternName: "service",
			Threshold:   0.55,
			Signals: []Signal{
				{"name-hint", 0.3, func(in PatternInput) bool { return nameHas(in.TypeName, "service") }},
				{"dependency-fields", 0.4, func(in PatternInput) bool { return len(in.FieldNames) >= 1 && len(in.ImplementsNames) == 0 }},
				{"orchestration-methods", 0.3, func(in PatternInput) bool { return len(in.MethodNames) >= 2 }},
			},
		},
		{
			PatternName: "adapter",
			Threshold:   0.6,
			Signals: []Signal{
				{"name-hint", 0.25, func(in PatternInput) bool { return nameHas(in.TypeName, "adapter") || nameHas(in.TypeName, "wrapper") }},
				{"wraps-external-field", 0.4, func(in PatternInput) bool { return anyField(in, "client", "inner", "wrapped", "delegate") }},
				{"implements-interface", 0.35, func(in PatternInput) bool { return len(in.ImplementsNames) > 0 }},
			},
		},
		{
			PatternName: "builder",
			Threshold:   0.6,
			Signals: []Signal{
				{"name-hint", 0.25, func(in PatternInput) bool { return nameHas(in.TypeName, "builder") }},
				{"chainable-with-methods", 0.45, func(in PatternInput) bool { return anyMethod(in, "with") }},
				{"build-method", 0.3, func(in PatternInput) bool { return anyMethod(in, "build") }},
			},
		},
		{
			PatternName: "strategy",
			Threshold:   0.6,
			Signals: []Signal{
				{"interface-field", 0.4, func(in PatternInput) bool { return anyField(in, "strategy", "algorithm", "policy") }},
				{"execute-method", 0.35, func(in PatternInput) bool { return anyMethod(in, "execute", "apply", "run") }},
				{"multiple-implementers", 0.25, func(in PatternInput) bool { return len(in.ImplementsNames) > 0 }},
			},
		},
		{
			PatternName: "decorator",
			Threshold:   0.6,
			Signals: []Signal{
				{"wraps-same-interface", 0.4, func(in PatternInput) bool { return anyField(in, "inner", "wrapped", "next", "base") && len(in.ImplementsNames) > 0 }},
				{"name-hint", 0.3, func(in PatternInput) bool { return nameHas(in.TypeName, "decorator") || nameHas(in.TypeName, "middleware") }},
				{"passthrough-methods", 0.3, func(in PatternInput) bool { return len(in.MethodNames) >= 1 }},
			},
		},
		{
			PatternName: "facade",
			Threshold:   0.6,
			Signals: []Signal{
				{"name-hint", 0.3, func(in PatternInput) bool { return nameHas(in.TypeName, "facade") }},
				{"multiple-subsystem-fields", 0.45, func(in PatternInput) bool { return len(in.FieldNames) >= 3 }},
				{"simplified-methods", 0.25, func(in PatternInput) bool { return len(in.MethodNames) >= 1 && len(in.MethodNames) <= 4 }},
			},
		},
		{
			PatternName: "proxy",
			Threshold:   0.6,
			Signals: []Signal{
				{"name-hint", 0.25, func(in PatternInput) bool { return nameHas(in.TypeName, "proxy") }},
				{"delegate-field", 0.45, func(in PatternInput) bool { return anyField(in, "real", "target", "delegate", "underlying") }},
				{"implements-same-interface", 0.3, func(in PatternInput) bool { return len(in.ImplementsNames) > 0 }},
			},
		},
		{
			PatternName: "composite",
			Threshold:   0.6,
			Signals: []Signal{
				{"self-referential-field", 0.5, func(in PatternInput) bool {
					for _, ft := range in.FieldTypes {
						if nameHas(ft, in.TypeName) || nameHas(ft, "[]"+in.TypeName) {
							return true
						}
					}
					return anyField(in, "children", "nodes", "items")
				}},
				{"recursive-method", 0.3, func(in PatternInput) bool { return anyMethod(in, "add", "remove", "traverse") }},
				{"tree-name-hint", 0.2, func(in PatternInput) bool { return nameHas(in.TypeName, "node") || nameHas(in.TypeName, "tree") || nameHas(in.TypeName, "composite") }},
			},
		},
	}
}

// DetectedPattern is one design pattern found for a single type, with the
// per-signal evidence that contributed to its composite confidence.
type DetectedPattern struct {
	PatternName string
	Participant string
	Evidence    map[string]bool
	Confidence  float64
}

// DetectPatterns runs every registered detector against in and returns
// the ones whose composite confidence clears their threshold.
func DetectPatterns(in PatternInput) []DetectedPattern {
	var found []DetectedPattern
	for _, spec := range DetectorSpecs() {
		evidence := make(map[string]bool, len(spec.Signals))
		var confidence float64
		for _, sig := range spec.Signals {
			matched := sig.Match(in)
			evidence[sig.Name] = matched
			if matched {
				confidence += sig.Weight
			}
		}
		if confidence >= spec.Threshold {
			found = append(found, DetectedPattern{
				PatternName: spec.PatternName,
				Participant: in.TypeName,
				Evidence:    evidence,
				Confidence:  confidence,
			})
		}
	}
	return found
}
