// Package importer turns inbound indicator documents into stored entity graphs.
package importer

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/sigi-ilum/sigi-go/internal/datastore"
	"github.com/sigi-ilum/sigi-go/internal/logging"
)

// ErrDuplicateImport is returned when the same (municipality, state, tender,
// year) tuple was already imported.
var ErrDuplicateImport = errors.New("indicator set already imported for this municipality")

// ErrMissingField is returned when a required document field is absent.
// Wrapping errors name the offending field.
var ErrMissingField = errors.New("missing required field")

// Summary reports the outcome of a successful import.
type Summary struct {
	Municipality    string  `json:"municipio"`
	StateCode       string  `json:"uf"`
	TenderID        *string `json:"edital"`
	TenderYear      *int    `json:"ano_edital"`
	TotalIndicators int     `json:"total_indicadores"`
}

// Service validates documents and persists their entity graphs.
type Service struct {
	ds  datastore.Interface
	log *slog.Logger
}

// New creates an importer backed by the given store.
func New(ds datastore.Interface) *Service {
	return &Service{
		ds:  ds,
		log: logging.ForService("importer"),
	}
}

// Import creates one municipality and its full subtree from a document, or
// fails without persisting anything. The whole document is rejected when the
// same municipality/tender tuple already exists or any indicator lacks a name.
func (s *Service) Import(doc *Document) (*Summary, error) {
	if err := validate(doc); err != nil {
		return nil, err
	}

	exists, err := s.ds.MunicipalityExists(doc.Municipality, doc.StateCode, doc.TenderID, doc.TenderYear)
	if err != nil {
		return nil, fmt.Errorf("checking for duplicate import: %w", err)
	}
	if exists {
		return nil, ErrDuplicateImport
	}

	municipality := buildGraph(doc)
	if err := s.ds.SaveMunicipality(municipality); err != nil {
		return nil, fmt.Errorf("persisting indicator set: %w", err)
	}

	if s.log != nil {
		s.log.Info("Indicator set imported",
			"municipality", municipality.Name,
			"state", municipality.StateCode,
			"indicators", len(municipality.Indicators),
		)
	}

	return &Summary{
		Municipality:    municipality.Name,
		StateCode:       municipality.StateCode,
		TenderID:        municipality.TenderID,
		TenderYear:      municipality.TenderYear,
		TotalIndicators: len(municipality.Indicators),
	}, nil
}

// validate checks the document's required fields before any write happens.
func validate(doc *Document) error {
	if doc.Municipality == "" {
		return fmt.Errorf("%w: municipio", ErrMissingField)
	}
	if doc.StateCode == "" {
		return fmt.Errorf("%w: uf", ErrMissingField)
	}
	for i := range doc.Indicators {
		if doc.Indicators[i].EffectiveName() == "" {
			return fmt.Errorf("%w: nome_indicador", ErrMissingField)
		}
		for j := range doc.Indicators[i].SubIndicators {
			if doc.Indicators[i].SubIndicators[j].Name == "" {
				return fmt.Errorf("%w: subindicadores.nome", ErrMissingField)
			}
		}
	}
	return nil
}

// buildGraph constructs the full in-memory entity graph for a document.
func buildGraph(doc *Document) *datastore.Municipality {
	municipality := &datastore.Municipality{
		Name:       doc.Municipality,
		StateCode:  doc.StateCode,
		TenderID:   doc.TenderID,
		TenderYear: doc.TenderYear,
	}

	for i := range doc.Indicators {
		entry := &doc.Indicators[i]
		indicator := datastore.Indicator{
			Name:            entry.EffectiveName(),
			Description:     entry.Description,
			Unit:            entry.Unit,
			Tags:            orEmpty(entry.Tags),
			Observations:    orEmpty(entry.Observations),
			Inconsistencies: orEmpty(entry.Inconsistencies),
		}

		if entry.Formula != nil {
			indicator.Formula = &datastore.Formula{
				Raw:        entry.Formula.Raw,
				Normalized: entry.Formula.Normalized,
				Hash:       entry.Formula.Hash,
			}
		}

		for _, sub := range entry.SubIndicators {
			indicator.SubIndicators = append(indicator.SubIndicators, datastore.SubIndicator{
				Name:        sub.Name,
				Description: sub.Description,
			})
		}

		for _, cond := range entry.Conditions {
			indicator.Conditions = append(indicator.Conditions, datastore.Condition{
				Rule:  cond.Rule,
				Score: cond.Score,
			})
		}

		municipality.Indicators = append(municipality.Indicators, indicator)
	}

	return municipality
}

func orEmpty(list []string) []string {
	if list == nil {
		return []string{}
	}
	return list
}
