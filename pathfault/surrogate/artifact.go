package surrogate

import (
	"encoding/json"
	"fmt"

	"github.com/koreacsl/pathfault-go/pathfault/condition"
	"github.com/koreacsl/pathfault-go/pathfault/rewrite"
	"github.com/koreacsl/pathfault-go/pathfault/server"
)

// conditionArtifact is the JSON-serializable mirror of
// condition.Condition. Operand round-trips as []byte -- json encodes
// a []byte as base64, which preserves 0x00-0xFF bytes exactly, unlike
// a plain string field, which would mangle non-UTF-8 operands.
type conditionArtifact struct {
	Kind    string `json:"kind"`
	Operand []byte `json:"operand"`
	Negated bool   `json:"negated"`
}

// transformationArtifact mirrors rewrite.Transformation. Only the
// fields relevant to Kind are populated; the rest stay zero.
type transformationArtifact struct {
	Name        string              `json:"name"`
	Kind        string              `json:"kind"`
	Target      []byte              `json:"target,omitempty"`
	Replacement []byte              `json:"replacement,omitempty"`
	Offset      int                 `json:"offset,omitempty"`
	Delimiter   []byte              `json:"delimiter,omitempty"`
	Str         []byte              `json:"str,omitempty"`
	Delim       []byte              `json:"delim,omitempty"`
	NormStr     []byte              `json:"norm_str,omitempty"`
	Guards      []conditionArtifact `json:"guards"`
}

type observedPairArtifact struct {
	RequestType string `json:"request_type"`
	Inbound     string `json:"inbound_url"`
	Outbound    string `json:"outbound_url"`
}

type inconsistencyEntryArtifact struct {
	HexByte  string                 `json:"hex_byte"`
	Char     string                 `json:"char"`
	Observed []observedPairArtifact `json:"observed"`
}

type serverArtifact struct {
	Name string `json:"name"`

	Conditions     []conditionArtifact `json:"conditions"`
	PreConditions  []conditionArtifact `json:"pre_conditions"`
	PostConditions []conditionArtifact `json:"post_conditions"`

	Transformations          []transformationArtifact `json:"transformations"`
	EssentialTransformations []transformationArtifact `json:"essential_transformations"`

	IsNormalize    bool                      `json:"is_normalize"`
	IsDecode       bool                      `json:"is_decode"`
	Normalizations []transformationArtifact  `json:"normalizations"`

	Inconsistencies []inconsistencyEntryArtifact `json:"inconsistencies"`
	Omitted         []inconsistencyEntryArtifact `json:"omitted"`
	Unprocessed     []inconsistencyEntryArtifact `json:"unprocessed"`

	Stats server.Stats `json:"stats"`
}

// Save encodes servers into the deterministic, re-loadable artifact
// spec.md §6 describes: enough to reconstruct identical Server objects
// (transformation kind, operand strings, guard lists, flags).
func Save(servers []*server.Server) ([]byte, error) {
	artifacts := make([]serverArtifact, len(servers))
	for i, s := range servers {
		artifacts[i] = serverToArtifact(s)
	}
	data, err := json.MarshalIndent(artifacts, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("surrogate: encode artifact: %w", err)
	}
	return data, nil
}

// Load decodes an artifact produced by Save back into Server objects
// that produce formula-equivalent output to the originals (spec.md
// §8's round-trip invariant: load(save(servers)) == servers).
func Load(data []byte) ([]*server.Server, error) {
	var artifacts []serverArtifact
	if err := json.Unmarshal(data, &artifacts); err != nil {
		return nil, fmt.Errorf("surrogate: decode artifact: %w", err)
	}
	out := make([]*server.Server, len(artifacts))
	for i, a := range artifacts {
		srv, err := artifactToServer(a)
		if err != nil {
			return nil, err
		}
		out[i] = srv
	}
	return out, nil
}

func serverToArtifact(s *server.Server) serverArtifact {
	return serverArtifact{
		Name:                     s.Name,
		Conditions:               conditionsToArtifact(s.Conditions),
		PreConditions:            conditionsToArtifact(s.PreConditions),
		PostConditions:           conditionsToArtifact(s.PostConditions),
		Transformations:          transformationsToArtifact(s.Transformations),
		EssentialTransformations: transformationsToArtifact(s.EssentialTransformations),
		IsNormalize:              s.IsNormalize,
		IsDecode:                 s.IsDecode,
		Normalizations:           transformationsToArtifact(s.Normalizations),
		Inconsistencies:          entriesToArtifact(s.Inconsistencies),
		Omitted:                  entriesToArtifact(s.Omitted),
		Unprocessed:              entriesToArtifact(s.Unprocessed),
		Stats:                    s.Stats,
	}
}

func artifactToServer(a serverArtifact) (*server.Server, error) {
	srv := server.New(a.Name)

	conds, err := artifactsToConditions(a.Conditions)
	if err != nil {
		return nil, err
	}
	srv.Conditions = conds

	if srv.PreConditions, err = artifactsToConditions(a.PreConditions); err != nil {
		return nil, err
	}
	if srv.PostConditions, err = artifactsToConditions(a.PostConditions); err != nil {
		return nil, err
	}
	if srv.Transformations, err = artifactsToTransformations(a.Transformations); err != nil {
		return nil, err
	}
	if srv.EssentialTransformations, err = artifactsToTransformations(a.EssentialTransformations); err != nil {
		return nil, err
	}

	srv.IsDecode = a.IsDecode
	// IsNormalize is set directly (not via SetNormalize) so a loaded
	// server's Normalizations list is exactly what was persisted,
	// rather than re-seeded with the canonical default.
	srv.IsNormalize = a.IsNormalize
	if srv.Normalizations, err = artifactsToTransformations(a.Normalizations); err != nil {
		return nil, err
	}

	srv.Inconsistencies = artifactsToEntries(a.Inconsistencies)
	srv.Omitted = artifactsToEntries(a.Omitted)
	srv.Unprocessed = artifactsToEntries(a.Unprocessed)
	srv.Stats = a.Stats

	return srv, nil
}

func conditionsToArtifact(cs []condition.Condition) []conditionArtifact {
	out := make([]conditionArtifact, len(cs))
	for i, c := range cs {
		out[i] = conditionArtifact{Kind: c.Kind.String(), Operand: c.Operand, Negated: c.Negated}
	}
	return out
}

func artifactsToConditions(as []conditionArtifact) ([]condition.Condition, error) {
	out := make([]condition.Condition, len(as))
	for i, a := range as {
		kind, err := conditionKindFromString(a.Kind)
		if err != nil {
			return nil, err
		}
		c, err := condition.New(kind, a.Operand, a.Negated)
		if err != nil {
			return nil, err
		}
		out[i] = c
	}
	return out, nil
}

func conditionKindFromString(s string) (condition.Kind, error) {
	switch s {
	case "equal":
		return condition.Equal, nil
	case "prefix":
		return condition.Prefix, nil
	case "suffix":
		return condition.Suffix, nil
	case "contains":
		return condition.Contains, nil
	case "has_slash_after":
		return condition.HasSlashAfter, nil
	default:
		return 0, fmt.Errorf("surrogate: unknown condition kind %q", s)
	}
}

func transformationsToArtifact(ts []rewrite.Transformation) []transformationArtifact {
	out := make([]transformationArtifact, len(ts))
	for i, t := range ts {
		out[i] = transformationToArtifact(t)
	}
	return out
}

func transformationToArtifact(t rewrite.Transformation) transformationArtifact {
	a := transformationArtifact{Name: t.Name, Guards: conditionsToArtifact(t.Guards)}
	switch r := t.Rewrite.(type) {
	case rewrite.Replace:
		a.Kind = "replace"
		a.Target = r.Target
		a.Replacement = r.Replacement
	case rewrite.SubStringUntil:
		a.Kind = "substring_until"
		a.Offset = r.Offset
		a.Delimiter = r.Delimiter
	case rewrite.SubStringFromOffset:
		a.Kind = "substring_from_offset"
		a.Offset = r.Offset
	case rewrite.AddPrefix:
		a.Kind = "add_prefix"
		a.Str = r.Str
	case rewrite.AddSuffix:
		a.Kind = "add_suffix"
		a.Str = r.Str
	case rewrite.DelimiterSlashSplit:
		a.Kind = "delimiter_slash_split"
		a.Delim = r.Delim
	case rewrite.Normalization:
		a.Kind = "normalization"
		a.NormStr = r.NormStr
	}
	return a
}

func artifactsToTransformations(as []transformationArtifact) ([]rewrite.Transformation, error) {
	out := make([]rewrite.Transformation, len(as))
	for i, a := range as {
		t, err := artifactToTransformation(a)
		if err != nil {
			return nil, err
		}
		out[i] = t
	}
	return out, nil
}

func artifactToTransformation(a transformationArtifact) (rewrite.Transformation, error) {
	guards, err := artifactsToConditions(a.Guards)
	if err != nil {
		return rewrite.Transformation{}, err
	}

	var rw rewrite.Type
	switch a.Kind {
	case "replace":
		rw = rewrite.Replace{Target: a.Target, Replacement: a.Replacement}
	case "substring_until":
		rw = rewrite.SubStringUntil{Offset: a.Offset, Delimiter: a.Delimiter}
	case "substring_from_offset":
		rw = rewrite.SubStringFromOffset{Offset: a.Offset}
	case "add_prefix":
		rw = rewrite.AddPrefix{Str: a.Str}
	case "add_suffix":
		rw = rewrite.AddSuffix{Str: a.Str}
	case "delimiter_slash_split":
		rw = rewrite.DelimiterSlashSplit{Delim: a.Delim}
	case "normalization":
		rw = rewrite.Normalization{NormStr: a.NormStr}
	default:
		return rewrite.Transformation{}, fmt.Errorf("surrogate: unknown transformation kind %q", a.Kind)
	}

	return rewrite.Transformation{Name: a.Name, Rewrite: rw, Guards: guards}, nil
}

func entriesToArtifact(es []server.InconsistencyEntry) []inconsistencyEntryArtifact {
	out := make([]inconsistencyEntryArtifact, len(es))
	for i, e := range es {
		observed := make([]observedPairArtifact, len(e.Observed))
		for j, o := range e.Observed {
			observed[j] = observedPairArtifact{RequestType: o.RequestType, Inbound: o.Inbound, Outbound: o.Outbound}
		}
		out[i] = inconsistencyEntryArtifact{HexByte: e.HexByte, Char: e.Char, Observed: observed}
	}
	return out
}

func artifactsToEntries(as []inconsistencyEntryArtifact) []server.InconsistencyEntry {
	out := make([]server.InconsistencyEntry, len(as))
	for i, a := range as {
		observed := make([]server.ObservedPair, len(a.Observed))
		for j, o := range a.Observed {
			observed[j] = server.ObservedPair{RequestType: o.RequestType, Inbound: o.Inbound, Outbound: o.Outbound}
		}
		out[i] = server.InconsistencyEntry{HexByte: a.HexByte, Char: a.Char, Observed: observed}
	}
	return out
}
