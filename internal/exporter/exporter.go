// Package exporter serializes a stored municipality subtree back into the
// nested document shape the importer accepts, enabling round-trip re-import.
package exporter

import (
	"github.com/sigi-ilum/sigi-go/internal/datastore"
	"github.com/sigi-ilum/sigi-go/internal/importer"
)

// Export maps a municipality and its full subtree into an import document.
// List fields always serialize as lists, never null, so the round trip is exact.
func Export(m *datastore.Municipality) *importer.Document {
	doc := &importer.Document{
		Municipality: m.Name,
		StateCode:    m.StateCode,
		TenderID:     m.TenderID,
		TenderYear:   m.TenderYear,
		Indicators:   make([]importer.IndicatorDoc, 0, len(m.Indicators)),
	}

	for i := range m.Indicators {
		indicator := &m.Indicators[i]
		entry := importer.IndicatorDoc{
			Name:            indicator.Name,
			Description:     indicator.Description,
			Unit:            indicator.Unit,
			Tags:            orEmpty(indicator.Tags),
			Observations:    orEmpty(indicator.Observations),
			Inconsistencies: orEmpty(indicator.Inconsistencies),
			SubIndicators:   make([]importer.SubIndicatorDoc, 0, len(indicator.SubIndicators)),
			Conditions:      make(importer.ConditionList, 0, len(indicator.Conditions)),
		}

		if indicator.Formula != nil {
			entry.Formula = &importer.FormulaDoc{
				Raw:        indicator.Formula.Raw,
				Normalized: indicator.Formula.Normalized,
				Hash:       indicator.Formula.Hash,
			}
		}

		for _, sub := range indicator.SubIndicators {
			entry.SubIndicators = append(entry.SubIndicators, importer.SubIndicatorDoc{
				Name:        sub.Name,
				Description: sub.Description,
			})
		}

		for _, cond := range indicator.Conditions {
			entry.Conditions = append(entry.Conditions, importer.ConditionDoc{
				Rule:  cond.Rule,
				Score: cond.Score,
			})
		}

		doc.Indicators = append(doc.Indicators, entry)
	}

	return doc
}

func orEmpty(list []string) []string {
	if list == nil {
		return []string{}
	}
	return list
}
