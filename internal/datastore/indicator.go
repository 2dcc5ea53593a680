// indicator.go: indicator field edits and formula grouping queries.
package datastore

import (
	"errors"
	"fmt"

	"gorm.io/gorm"
)

// GetIndicator retrieves an indicator with its formula, sub-indicators and
// conditions by ID.
func (ds *DataStore) GetIndicator(id uint) (Indicator, error) {
	var indicator Indicator
	err := ds.DB.
		Preload("Formula").
		Preload("SubIndicators").
		Preload("Conditions").
		First(&indicator, id).Error
	if err != nil {
		return Indicator{}, fmt.Errorf("getting indicator with ID %d: %w", id, err)
	}
	return indicator, nil
}

// CountIndicators returns the number of stored indicators.
func (ds *DataStore) CountIndicators() (int64, error) {
	var count int64
	if err := ds.DB.Model(&Indicator{}).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("counting indicators: %w", err)
	}
	return count, nil
}

// UpdateFormula applies a partial update to the formula of an indicator.
// Returns ErrNoFormula when the indicator exists but has no formula attached.
func (ds *DataStore) UpdateFormula(indicatorID uint, patch *FormulaPatch) error {
	return ds.DB.Transaction(func(tx *gorm.DB) error {
		var indicator Indicator
		if err := tx.First(&indicator, indicatorID).Error; err != nil {
			return fmt.Errorf("getting indicator with ID %d: %w", indicatorID, err)
		}

		var formula Formula
		if err := tx.Where("indicator_id = ?", indicatorID).First(&formula).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("indicator %q (ID %d): %w", indicator.Name, indicatorID, ErrNoFormula)
			}
			return fmt.Errorf("getting formula for indicator ID %d: %w", indicatorID, err)
		}

		if patch.Empty() {
			return nil
		}

		updates := map[string]any{}
		if patch.Raw != nil {
			updates["raw"] = *patch.Raw
		}
		if patch.Normalized != nil {
			updates["normalized"] = *patch.Normalized
		}
		if patch.Hash != nil {
			updates["hash"] = *patch.Hash
		}

		if err := tx.Model(&formula).Updates(updates).Error; err != nil {
			return fmt.Errorf("updating formula for indicator ID %d: %w", indicatorID, err)
		}
		return nil
	})
}

// ReplaceTags replaces the full tag list of an indicator.
func (ds *DataStore) ReplaceTags(indicatorID uint, tags []string) error {
	var indicator Indicator
	if err := ds.DB.First(&indicator, indicatorID).Error; err != nil {
		return fmt.Errorf("getting indicator with ID %d: %w", indicatorID, err)
	}

	if tags == nil {
		tags = []string{}
	}
	if err := ds.DB.Model(&indicator).Update("tags", tags).Error; err != nil {
		return fmt.Errorf("replacing tags for indicator ID %d: %w", indicatorID, err)
	}
	return nil
}

// DuplicatedFormulaKeys returns the hash or normalized-text values shared by
// two or more formulas. NULL and empty keys are never grouped.
func (ds *DataStore) DuplicatedFormulaKeys(key FormulaKey) ([]string, error) {
	column := key.column()
	var keys []string
	err := ds.DB.Model(&Formula{}).
		Where(column+" IS NOT NULL AND "+column+" != ''").
		Group(column).
		Having("COUNT(id) > 1").
		Pluck(column, &keys).Error
	if err != nil {
		return nil, fmt.Errorf("finding duplicated formula %s values: %w", column, err)
	}
	return keys, nil
}

// FormulaOwnersByKey returns every formula whose key column matches one of the
// given values, joined with its owning indicator and municipality.
func (ds *DataStore) FormulaOwnersByKey(key FormulaKey, values []string) ([]FormulaOwner, error) {
	if len(values) == 0 {
		return nil, nil
	}

	column := key.column()
	var owners []FormulaOwner
	err := ds.DB.Table("formulas").
		Select("formulas.raw, formulas.normalized, formulas.hash, "+
			"indicators.id AS indicator_id, indicators.name AS indicator_name, indicators.description, "+
			"municipalities.name AS municipality_name, municipalities.state_code").
		Joins("JOIN indicators ON indicators.id = formulas.indicator_id").
		Joins("JOIN municipalities ON municipalities.id = indicators.municipality_id").
		Where("formulas."+column+" IN ?", values).
		Order("formulas.id ASC").
		Scan(&owners).Error
	if err != nil {
		return nil, fmt.Errorf("loading formula owners by %s: %w", column, err)
	}
	return owners, nil
}
