// model.go: defines the persisted entities of the indicator catalog.
package datastore

// Municipality is one imported indicator set, keyed by the tender it came from.
// The (Name, StateCode, TenderID, TenderYear) tuple is kept unique by the
// importer, not by a storage constraint.
type Municipality struct {
	ID         uint    `gorm:"primaryKey" json:"id"`
	Name       string  `gorm:"index:idx_municipalities_name" json:"municipio"`
	StateCode  string  `gorm:"type:varchar(2);index:idx_municipalities_state" json:"uf"`
	TenderID   *string `json:"edital"`
	TenderYear *int    `json:"ano_edital"`

	Indicators []Indicator `gorm:"foreignKey:MunicipalityID;constraint:OnDelete:CASCADE" json:"indicadores"`
}

// Indicator is a named measurable criterion from a tender document.
// Tag and note lists are stored as native JSON list columns.
type Indicator struct {
	ID              uint     `gorm:"primaryKey" json:"id"`
	MunicipalityID  uint     `gorm:"index;not null" json:"municipio_id"`
	Name            string   `gorm:"index:idx_indicators_name" json:"nome_indicador"`
	Description     *string  `json:"descricao"`
	Unit            *string  `json:"unidade"`
	Tags            []string `gorm:"serializer:json" json:"tags"`
	Observations    []string `gorm:"serializer:json" json:"observacoes"`
	Inconsistencies []string `gorm:"serializer:json" json:"inconsistencias"`

	Formula       *Formula       `gorm:"foreignKey:IndicatorID;constraint:OnDelete:CASCADE" json:"formula"`        // one-to-one, owned
	SubIndicators []SubIndicator `gorm:"foreignKey:IndicatorID;constraint:OnDelete:CASCADE" json:"subindicadores"` // one-to-many
	Conditions    []Condition    `gorm:"foreignKey:IndicatorID;constraint:OnDelete:CASCADE" json:"condicoes"`      // one-to-many
}

// Formula is the textual expression defining how an indicator is computed.
// Hash is an externally supplied stable digest of the normalized text.
type Formula struct {
	ID          uint    `gorm:"primaryKey" json:"id"`
	IndicatorID uint    `gorm:"uniqueIndex;not null" json:"indicador_id"`
	Raw         *string `json:"bruta"`
	Normalized  *string `gorm:"index:idx_formulas_normalized" json:"normalizada"`
	Hash        *string `gorm:"index:idx_formulas_hash" json:"hash"`
}

// SubIndicator is a named component of an indicator.
type SubIndicator struct {
	ID          uint    `gorm:"primaryKey" json:"id"`
	IndicatorID uint    `gorm:"index;not null" json:"indicador_id"`
	Name        string  `json:"nome"`
	Description *string `json:"descricao"`
}

// Condition is a scoring rule tied to an indicator.
type Condition struct {
	ID          uint     `gorm:"primaryKey" json:"id"`
	IndicatorID uint     `gorm:"index;not null" json:"indicador_id"`
	Rule        *string  `json:"regra"`
	Score       *float64 `json:"nota"`
}
