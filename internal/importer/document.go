// document.go: the nested JSON document shape accepted on import and
// reproduced on export.
package importer

import (
	"encoding/json"
	"fmt"
	"sort"
)

// Document is one full indicator set for a municipality.
type Document struct {
	Municipality string         `json:"municipio"`
	StateCode    string         `json:"uf"`
	TenderID     *string        `json:"edital"`
	TenderYear   *int           `json:"ano_edital"`
	Indicators   []IndicatorDoc `json:"indicadores"`
}

// IndicatorDoc is one indicator entry. The name may arrive under either
// "nome_indicador" or "nome".
type IndicatorDoc struct {
	Name            string            `json:"nome_indicador,omitempty"`
	AltName         string            `json:"nome,omitempty"`
	Description     *string           `json:"descricao"`
	Unit            *string           `json:"unidade"`
	Tags            []string          `json:"tags"`
	Observations    []string          `json:"observacoes"`
	Inconsistencies []string          `json:"inconsistencias"`
	Formula         *FormulaDoc       `json:"formula"`
	SubIndicators   []SubIndicatorDoc `json:"subindicadores"`
	Conditions      ConditionList     `json:"condicoes"`
}

// EffectiveName returns the indicator name, accepting either key.
func (i *IndicatorDoc) EffectiveName() string {
	if i.Name != "" {
		return i.Name
	}
	return i.AltName
}

// FormulaDoc carries the raw, normalized and hashed forms of a formula.
type FormulaDoc struct {
	Raw        *string `json:"bruta"`
	Normalized *string `json:"normalizada"`
	Hash       *string `json:"hash"`
}

// SubIndicatorDoc is a named component of an indicator.
type SubIndicatorDoc struct {
	Name        string  `json:"nome"`
	Description *string `json:"descricao"`
}

// ConditionDoc is one scoring rule with its score.
type ConditionDoc struct {
	Rule  *string  `json:"regra"`
	Score *float64 `json:"nota"`
}

// ConditionList accepts "condicoes" either as a flat list of conditions or as
// a mapping of group name to list; both forms flatten into one list. Grouped
// form is flattened in sorted group-name order so results are deterministic.
type ConditionList []ConditionDoc

func (cl *ConditionList) UnmarshalJSON(data []byte) error {
	var flat []ConditionDoc
	if err := json.Unmarshal(data, &flat); err == nil {
		*cl = flat
		return nil
	}

	var grouped map[string][]ConditionDoc
	if err := json.Unmarshal(data, &grouped); err != nil {
		return fmt.Errorf("condicoes must be a list or a map of lists: %w", err)
	}

	names := make([]string, 0, len(grouped))
	for name := range grouped {
		names = append(names, name)
	}
	sort.Strings(names)

	var conditions []ConditionDoc
	for _, name := range names {
		conditions = append(conditions, grouped[name]...)
	}
	*cl = conditions
	return nil
}
