// Package matcher finds equivalent indicators across municipalities and
// groups formulas that recur across tenders.
package matcher

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sigi-ilum/sigi-go/internal/datastore"
	"github.com/sigi-ilum/sigi-go/internal/logging"
)

var (
	// ErrNoCriterion is returned when no comparison criterion was supplied.
	ErrNoCriterion = errors.New("no comparison criterion supplied")
	// ErrMultipleCriteria is returned when more than one criterion was supplied.
	ErrMultipleCriteria = errors.New("only one comparison criterion may be supplied")
	// ErrUnknownGroupKind is returned for a grouping criterion outside {hash, formula}.
	ErrUnknownGroupKind = errors.New("unknown grouping criterion")
)

// Criteria selects exactly one way of finding equivalent indicators.
type Criteria struct {
	Name              *string // bidirectional case-insensitive substring match
	NormalizedFormula *string // exact match after trimming and lower-casing
	Hash              *string // exact match, no normalization
}

// Validate checks that exactly one criterion is set.
func (c *Criteria) Validate() error {
	count := 0
	for _, v := range []*string{c.Name, c.NormalizedFormula, c.Hash} {
		if v != nil {
			count++
		}
	}
	switch {
	case count == 0:
		return ErrNoCriterion
	case count > 1:
		return ErrMultipleCriteria
	default:
		return nil
	}
}

// FormulaSnapshot is the formula detail attached to match and group results.
type FormulaSnapshot struct {
	Raw        *string `json:"bruta"`
	Normalized *string `json:"normalizada"`
	Hash       *string `json:"hash"`
}

// SubIndicatorSnapshot mirrors a stored sub-indicator in match results.
type SubIndicatorSnapshot struct {
	Name        string  `json:"nome"`
	Description *string `json:"descricao"`
}

// ConditionSnapshot mirrors a stored condition in match results.
type ConditionSnapshot struct {
	Rule  *string  `json:"regra"`
	Score *float64 `json:"nota"`
}

// Match is one indicator equivalent to the supplied criterion, annotated with
// its owning municipality and full detail.
type Match struct {
	IndicatorID     uint                   `json:"id"`
	Municipality    string                 `json:"municipio"`
	StateCode       string                 `json:"uf"`
	Name            string                 `json:"nome_indicador"`
	Description     *string                `json:"descricao"`
	Unit            *string                `json:"unidade"`
	Tags            []string               `json:"tags"`
	Observations    []string               `json:"observacoes"`
	Inconsistencies []string               `json:"inconsistencias"`
	Formula         *FormulaSnapshot       `json:"formula"`
	SubIndicators   []SubIndicatorSnapshot `json:"subindicadores"`
	Conditions      []ConditionSnapshot    `json:"condicoes"`
}

// GroupEntry is one indicator inside a group of formulas sharing a key.
type GroupEntry struct {
	IndicatorID  uint            `json:"id"`
	Name         string          `json:"nome_indicador"`
	Description  *string         `json:"descricao"`
	Municipality string          `json:"municipio"`
	StateCode    string          `json:"uf"`
	Formula      FormulaSnapshot `json:"formula"`
}

// GroupKind selects the formula key used for similarity grouping.
type GroupKind int

const (
	GroupByHash GroupKind = iota
	GroupByNormalizedFormula
)

// ParseGroupKind maps the wire criterion values to a GroupKind.
func ParseGroupKind(criterion string) (GroupKind, error) {
	switch criterion {
	case "hash":
		return GroupByHash, nil
	case "formula":
		return GroupByNormalizedFormula, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownGroupKind, criterion)
	}
}

func (k GroupKind) formulaKey() datastore.FormulaKey {
	if k == GroupByHash {
		return datastore.FormulaKeyHash
	}
	return datastore.FormulaKeyNormalized
}

// Service implements the comparison and grouping operations over the store.
type Service struct {
	ds  datastore.Interface
	log *slog.Logger
}

// New creates a matcher backed by the given store.
func New(ds datastore.Interface) *Service {
	return &Service{
		ds:  ds,
		log: logging.ForService("matcher"),
	}
}

// FindEquivalent scans every indicator of every municipality and returns the
// ones equivalent to the criterion. An empty result is not an error.
func (s *Service) FindEquivalent(criteria *Criteria) ([]Match, error) {
	if err := criteria.Validate(); err != nil {
		return nil, err
	}

	municipalities, err := s.ds.GetAllMunicipalities()
	if err != nil {
		return nil, fmt.Errorf("loading indicators for comparison: %w", err)
	}

	var matches []Match
	for mi := range municipalities {
		m := &municipalities[mi]
		for ii := range m.Indicators {
			indicator := &m.Indicators[ii]
			if s.matches(criteria, indicator) {
				matches = append(matches, newMatch(m, indicator))
			}
		}
	}

	if s.log != nil {
		s.log.Debug("Comparison finished", "matches", len(matches))
	}
	return matches, nil
}

// matches applies the single supplied criterion to one indicator.
func (s *Service) matches(criteria *Criteria, indicator *datastore.Indicator) bool {
	switch {
	case criteria.Name != nil:
		return nameMatches(*criteria.Name, indicator.Name)
	case criteria.NormalizedFormula != nil:
		if canonical(*criteria.NormalizedFormula) == "" {
			return false
		}
		if indicator.Formula == nil || indicator.Formula.Normalized == nil {
			return false
		}
		return canonical(*criteria.NormalizedFormula) == canonical(*indicator.Formula.Normalized)
	case criteria.Hash != nil:
		if *criteria.Hash == "" {
			return false
		}
		if indicator.Formula == nil || indicator.Formula.Hash == nil {
			return false
		}
		return *indicator.Formula.Hash == *criteria.Hash
	default:
		return false
	}
}

// nameMatches is deliberately symmetric: the query may contain the stored
// name or the stored name may contain the query, both after trimming and
// lower-casing. This permissive two-way containment is the documented
// matching policy, kept as observed.
func nameMatches(query, name string) bool {
	q := canonical(query)
	n := canonical(name)
	if q == "" || n == "" {
		return false
	}
	return strings.Contains(n, q) || strings.Contains(q, n)
}

// canonical trims surrounding whitespace and lower-cases the text.
func canonical(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// newMatch copies an indicator and its owner into a match result.
func newMatch(m *datastore.Municipality, indicator *datastore.Indicator) Match {
	match := Match{
		IndicatorID:     indicator.ID,
		Municipality:    m.Name,
		StateCode:       m.StateCode,
		Name:            indicator.Name,
		Description:     indicator.Description,
		Unit:            indicator.Unit,
		Tags:            orEmpty(indicator.Tags),
		Observations:    orEmpty(indicator.Observations),
		Inconsistencies: orEmpty(indicator.Inconsistencies),
		SubIndicators:   []SubIndicatorSnapshot{},
		Conditions:      []ConditionSnapshot{},
	}

	if indicator.Formula != nil {
		match.Formula = &FormulaSnapshot{
			Raw:        indicator.Formula.Raw,
			Normalized: indicator.Formula.Normalized,
			Hash:       indicator.Formula.Hash,
		}
	}
	for _, sub := range indicator.SubIndicators {
		match.SubIndicators = append(match.SubIndicators, SubIndicatorSnapshot{
			Name:        sub.Name,
			Description: sub.Description,
		})
	}
	for _, cond := range indicator.Conditions {
		match.Conditions = append(match.Conditions, ConditionSnapshot{
			Rule:  cond.Rule,
			Score: cond.Score,
		})
	}
	return match
}

// FindSimilarGroups groups all formulas by the chosen key and returns only
// the groups with two or more members, keyed by the shared value. Formulas
// with a NULL or empty key are excluded from grouping entirely.
func (s *Service) FindSimilarGroups(kind GroupKind) (map[string][]GroupEntry, error) {
	key := kind.formulaKey()

	duplicated, err := s.ds.DuplicatedFormulaKeys(key)
	if err != nil {
		return nil, fmt.Errorf("finding recurring formula keys: %w", err)
	}

	groups := make(map[string][]GroupEntry, len(duplicated))
	if len(duplicated) == 0 {
		return groups, nil
	}

	owners, err := s.ds.FormulaOwnersByKey(key, duplicated)
	if err != nil {
		return nil, fmt.Errorf("loading grouped formulas: %w", err)
	}

	for i := range owners {
		owner := &owners[i]
		groupKey := owner.Hash
		if kind == GroupByNormalizedFormula {
			groupKey = owner.Normalized
		}
		if groupKey == nil || *groupKey == "" {
			continue
		}
		groups[*groupKey] = append(groups[*groupKey], GroupEntry{
			IndicatorID:  owner.IndicatorID,
			Name:         owner.IndicatorName,
			Description:  owner.Description,
			Municipality: owner.MunicipalityName,
			StateCode:    owner.StateCode,
			Formula: FormulaSnapshot{
				Raw:        owner.Raw,
				Normalized: owner.Normalized,
				Hash:       owner.Hash,
			},
		})
	}

	if s.log != nil {
		s.log.Debug("Similarity grouping finished", "groups", len(groups))
	}
	return groups, nil
}

func orEmpty(list []string) []string {
	if list == nil {
		return []string{}
	}
	return list
}
