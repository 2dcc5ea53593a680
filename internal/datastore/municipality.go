// municipality.go: persistence operations for municipalities and their subtrees.
package datastore

import (
	"fmt"
	"strings"

	"gorm.io/gorm"
)

// withSubtree preloads the full indicator subtree of a municipality query.
func (ds *DataStore) withSubtree() *gorm.DB {
	return ds.DB.
		Preload("Indicators").
		Preload("Indicators.Formula").
		Preload("Indicators.SubIndicators").
		Preload("Indicators.Conditions")
}

// SaveMunicipality stores a municipality and its full subtree as a single
// transaction. If any insert fails, nothing is persisted.
func (ds *DataStore) SaveMunicipality(m *Municipality) error {
	return ds.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(m).Error; err != nil {
			return fmt.Errorf("saving municipality: %w", err)
		}
		return nil
	})
}

// GetMunicipality retrieves a municipality with its full subtree by ID.
func (ds *DataStore) GetMunicipality(id uint) (Municipality, error) {
	var m Municipality
	if err := ds.withSubtree().First(&m, id).Error; err != nil {
		return Municipality{}, fmt.Errorf("getting municipality with ID %d: %w", id, err)
	}
	return m, nil
}

// GetAllMunicipalities retrieves every municipality with its full subtree.
func (ds *DataStore) GetAllMunicipalities() ([]Municipality, error) {
	var municipalities []Municipality
	if err := ds.withSubtree().Order("id ASC").Find(&municipalities).Error; err != nil {
		return nil, fmt.Errorf("getting all municipalities: %w", err)
	}
	return municipalities, nil
}

// SearchMunicipalities retrieves municipalities matching all supplied filters.
// Filters are exact matches ANDed together; an empty filter matches everything.
func (ds *DataStore) SearchMunicipalities(filter *MunicipalityFilter) ([]Municipality, error) {
	query := ds.withSubtree()
	if filter.Name != "" {
		query = query.Where("name = ?", filter.Name)
	}
	if filter.StateCode != "" {
		query = query.Where("state_code = ?", filter.StateCode)
	}
	if filter.TenderID != "" {
		query = query.Where("tender_id = ?", filter.TenderID)
	}
	if filter.TenderYear != nil {
		query = query.Where("tender_year = ?", *filter.TenderYear)
	}

	var municipalities []Municipality
	if err := query.Order("id ASC").Find(&municipalities).Error; err != nil {
		return nil, fmt.Errorf("searching municipalities: %w", err)
	}
	return municipalities, nil
}

// FindMunicipalityByNameLike retrieves the first municipality whose name
// contains the fragment, case-insensitively.
func (ds *DataStore) FindMunicipalityByNameLike(fragment string) (Municipality, error) {
	var m Municipality
	pattern := "%" + strings.ToLower(strings.TrimSpace(fragment)) + "%"
	if err := ds.withSubtree().
		Where("LOWER(name) LIKE ?", pattern).
		Order("id ASC").
		First(&m).Error; err != nil {
		return Municipality{}, fmt.Errorf("finding municipality by name %q: %w", fragment, err)
	}
	return m, nil
}

// MunicipalityExists reports whether a municipality with the exact
// (name, state, tender-id, tender-year) tuple is already stored.
func (ds *DataStore) MunicipalityExists(name, stateCode string, tenderID *string, tenderYear *int) (bool, error) {
	query := ds.DB.Model(&Municipality{}).
		Where("name = ? AND state_code = ?", name, stateCode)

	if tenderID != nil {
		query = query.Where("tender_id = ?", *tenderID)
	} else {
		query = query.Where("tender_id IS NULL")
	}
	if tenderYear != nil {
		query = query.Where("tender_year = ?", *tenderYear)
	} else {
		query = query.Where("tender_year IS NULL")
	}

	var count int64
	if err := query.Count(&count).Error; err != nil {
		return false, fmt.Errorf("checking for existing municipality: %w", err)
	}
	return count > 0, nil
}

// UpdateMunicipality replaces the scalar fields of a municipality. The
// indicator subtree is left untouched; full replace is shallow.
func (ds *DataStore) UpdateMunicipality(id uint, m *Municipality) error {
	var existing Municipality
	if err := ds.DB.First(&existing, id).Error; err != nil {
		return fmt.Errorf("getting municipality with ID %d: %w", id, err)
	}

	if err := ds.DB.Model(&existing).
		Select("Name", "StateCode", "TenderID", "TenderYear").
		Updates(map[string]any{
			"name":        m.Name,
			"state_code":  m.StateCode,
			"tender_id":   m.TenderID,
			"tender_year": m.TenderYear,
		}).Error; err != nil {
		return fmt.Errorf("updating municipality with ID %d: %w", id, err)
	}
	return nil
}

// DeleteMunicipality removes a municipality and everything it owns. Children
// are deleted explicitly inside one transaction so no orphans survive on
// backends without enforced foreign keys.
func (ds *DataStore) DeleteMunicipality(id uint) error {
	return ds.DB.Transaction(func(tx *gorm.DB) error {
		var m Municipality
		if err := tx.First(&m, id).Error; err != nil {
			return fmt.Errorf("getting municipality with ID %d: %w", id, err)
		}

		indicatorIDs := tx.Model(&Indicator{}).Select("id").Where("municipality_id = ?", id)

		if err := tx.Where("indicator_id IN (?)", indicatorIDs).Delete(&Condition{}).Error; err != nil {
			return fmt.Errorf("deleting conditions for municipality ID %d: %w", id, err)
		}
		if err := tx.Where("indicator_id IN (?)", indicatorIDs).Delete(&SubIndicator{}).Error; err != nil {
			return fmt.Errorf("deleting sub-indicators for municipality ID %d: %w", id, err)
		}
		if err := tx.Where("indicator_id IN (?)", indicatorIDs).Delete(&Formula{}).Error; err != nil {
			return fmt.Errorf("deleting formulas for municipality ID %d: %w", id, err)
		}
		if err := tx.Where("municipality_id = ?", id).Delete(&Indicator{}).Error; err != nil {
			return fmt.Errorf("deleting indicators for municipality ID %d: %w", id, err)
		}
		if err := tx.Delete(&Municipality{}, id).Error; err != nil {
			return fmt.Errorf("deleting municipality with ID %d: %w", id, err)
		}
		return nil
	})
}

// DeleteAllMunicipalities removes every stored municipality and subtree,
// returning the number of municipalities deleted. Deleting from an empty
// store is a no-op success.
func (ds *DataStore) DeleteAllMunicipalities() (int64, error) {
	var total int64
	if err := ds.DB.Model(&Municipality{}).Count(&total).Error; err != nil {
		return 0, fmt.Errorf("counting municipalities: %w", err)
	}
	if total == 0 {
		return 0, nil
	}

	err := ds.DB.Transaction(func(tx *gorm.DB) error {
		global := tx.Session(&gorm.Session{AllowGlobalUpdate: true})
		for _, model := range []any{&Condition{}, &SubIndicator{}, &Formula{}, &Indicator{}, &Municipality{}} {
			if err := global.Delete(model).Error; err != nil {
				return fmt.Errorf("bulk deleting %T: %w", model, err)
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return total, nil
}

// CountMunicipalities returns the number of stored municipalities.
func (ds *DataStore) CountMunicipalities() (int64, error) {
	var count int64
	if err := ds.DB.Model(&Municipality{}).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("counting municipalities: %w", err)
	}
	return count, nil
}
